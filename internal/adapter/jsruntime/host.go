package jsruntime

import (
	_ "embed"
	"sync"

	"github.com/dop251/goja"
)

//go:embed host.js
var hostSource string

// hostProgram is compiled once and run in every fresh runtime
var hostProgram = sync.OnceValues(func() (*goja.Program, error) {
	return goja.Compile("host.js", hostSource, false)
})
