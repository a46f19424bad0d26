package jsruntime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranspile_JSXUsesReactFactory(t *testing.T) {
	code, err := Transpile(`const el = <div className="x">hi</div>;`)

	require.NoError(t, err)
	assert.Contains(t, code, "React.createElement")
}

func TestTranspile_ErrorIsCompileError(t *testing.T) {
	_, err := Transpile(`const = ;`)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Message, "solution.jsx:1:")
}

func TestWrapScript_DropsImports(t *testing.T) {
	code, err := wrapScript("import { render } from '@testing-library/react';\nreturn true;")

	require.NoError(t, err)
	assert.NotContains(t, code, "testing-library")
	assert.Contains(t, code, "return true")
}

func TestTranspile_KeepsAsyncFunctions(t *testing.T) {
	code, err := Transpile(`async function add(a, b) { return await a + b; }`)

	require.NoError(t, err)
	assert.Contains(t, code, "async function add")
	assert.NotContains(t, code, "__async")
}
