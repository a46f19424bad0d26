package jsruntime

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

const sourceFile = "solution.jsx"

// CompileError carries the formatted compiler diagnostics for a source
type CompileError struct {
	Message string
}

func (e *CompileError) Error() string {
	return e.Message
}

func transformOptions(file string) api.TransformOptions {
	return api.TransformOptions{
		Loader:      api.LoaderJSX,
		JSX:         api.JSXTransform,
		JSXFactory:  "React.createElement",
		JSXFragment: "React.Fragment",
		Format:      api.FormatCommonJS,
		Target:      api.ES2017,
		Sourcefile:  file,
		LogLevel:    api.LogLevelSilent,
	}
}

// Transpile turns JSX/ES source into CommonJS that the engine can run
func Transpile(source string) (string, error) {
	return transpile(source, sourceFile)
}

func transpile(source, file string) (string, error) {
	result := api.Transform(source, transformOptions(file))
	if len(result.Errors) > 0 {
		return "", &CompileError{Message: formatMessages(result.Errors)}
	}
	return string(result.Code), nil
}

func formatMessages(msgs []api.Message) string {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m.Location == nil {
			lines = append(lines, m.Text)
			continue
		}
		lines = append(lines, fmt.Sprintf("%s:%d:%d: %s", m.Location.File, m.Location.Line, m.Location.Column, m.Text))
	}
	return strings.Join(lines, "\n")
}

var importLine = regexp.MustCompile(`(?m)^\s*import\s[^\n]*$`)

// wrapScript prepares an assertion body for evaluation: module imports are
// dropped since every helper is a global, and the body becomes a function
// so a bare `return` is legal.
func wrapScript(script string) (string, error) {
	body := importLine.ReplaceAllString(script, "")
	return transpile("(function () {\n"+body+"\n})();", "assertion.jsx")
}
