// Package jsruntime executes submitted JavaScript/JSX in single-use goja
// runtimes with preemptive time and memory limits.
package jsruntime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dop251/goja"

	"gitlab.com/codegrader.net/internal/core/ports/primary"
	"gitlab.com/codegrader.net/internal/core/ports/secondary"
	"gitlab.com/codegrader.net/internal/domain"
	"gitlab.com/codegrader.net/internal/metrics"
)

var _ secondary.Sandbox = (*Sandbox)(nil)

var (
	errTimeLimit   = errors.New(domain.ReasonTimeLimit)
	errMemoryLimit = errors.New(domain.ReasonMemoryLimit)
)

const (
	defaultMaxCallStackSize = 4096
	fallbackComponentName   = "Component"
)

var identifier = regexp.MustCompile(`^[A-Za-z_$][\w$]*$`)

// Sandbox is safe for concurrent use; every call builds its own runtime.
type Sandbox struct {
	logger           primary.Logger
	maxCallStackSize int
}

type Option func(*Sandbox)

func WithMaxCallStackSize(n int) Option {
	return func(s *Sandbox) {
		if n > 0 {
			s.maxCallStackSize = n
		}
	}
}

func New(logger primary.Logger, opts ...Option) *Sandbox {
	s := &Sandbox{
		logger:           logger,
		maxCallStackSize: defaultMaxCallStackSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Validate parses source without executing it
func (s *Sandbox) Validate(source string) domain.ValidationResult {
	if _, err := Transpile(source); err != nil {
		return domain.ValidationResult{IsValid: false, Error: err.Error()}
	}
	return domain.ValidationResult{IsValid: true}
}

func (s *Sandbox) Render(ctx context.Context, source, entryPoint string, limits domain.Limits) domain.Outcome {
	return s.run(ctx, "render", source, limits, domain.FailureRender, func(vm *goja.Runtime) domain.Outcome {
		if _, failed := s.mountEntry(vm, entryPoint); failed != nil {
			return *failed
		}
		return snapshot(vm)
	})
}

func (s *Sandbox) Call(ctx context.Context, source, functionName string, args []any, limits domain.Limits) domain.Outcome {
	return s.run(ctx, "call", source, limits, domain.FailureCall, func(vm *goja.Runtime) domain.Outcome {
		fn := resolveFunction(vm, functionName)
		if fn == nil {
			return domain.Failed(fmt.Sprintf("%s: %s", domain.ReasonMissingFunc, functionName), domain.FailureMissingEntryPoint)
		}
		jsArgs, err := toArgs(vm, args)
		if err != nil {
			return domain.Failed(fmt.Sprintf("invalid input: %v", err), domain.FailureCall)
		}
		ret, err := fn(goja.Undefined(), jsArgs...)
		if err != nil {
			return classify(err, domain.FailureCall)
		}
		if p, ok := ret.Export().(*goja.Promise); ok {
			return settled(p, domain.FailureCall)
		}
		return domain.Returned(exportValue(ret))
	})
}

func (s *Sandbox) Evaluate(ctx context.Context, source, entryPoint, script string, limits domain.Limits) domain.Outcome {
	wrapped, err := wrapScript(script)
	if err != nil {
		return domain.Failed("invalid assertion: "+err.Error(), domain.FailureAssertion)
	}
	return s.run(ctx, "evaluate", source, limits, domain.FailureRender, func(vm *goja.Runtime) domain.Outcome {
		comp, failed := s.mountEntry(vm, entryPoint)
		if failed != nil {
			return *failed
		}
		name := entryName(entryPoint)
		if lookupGlobal(vm, name) == nil {
			_ = vm.Set(name, comp)
		}
		ret, err := vm.RunScript("assertion.js", wrapped)
		if err != nil {
			return classify(err, domain.FailureAssertion)
		}
		if failures := graderStrings(vm, "failures"); len(failures) > 0 {
			return domain.Failed(strings.Join(failures, "; "), domain.FailureAssertion)
		}
		if p, ok := ret.Export().(*goja.Promise); ok {
			if out := settled(p, domain.FailureAssertion); out.IsFailed() {
				return out
			}
		}
		if b, ok := ret.Export().(bool); ok && !b {
			return domain.Failed("assertion returned false", domain.FailureAssertion)
		}
		return snapshot(vm)
	})
}

// run compiles source into a fresh runtime under the time and memory guards
// and hands the loaded runtime to fn.
func (s *Sandbox) run(ctx context.Context, mode, source string, limits domain.Limits, kind domain.FailureKind, fn func(vm *goja.Runtime) domain.Outcome) (out domain.Outcome) {
	limits = limits.WithDefaults()
	if ctx.Err() != nil {
		return domain.Failed(domain.ReasonTimeLimit, domain.FailureTimeout)
	}
	code, err := Transpile(source)
	if err != nil {
		return domain.Failed(err.Error(), domain.FailureCompile)
	}
	program, err := hostProgram()
	if err != nil {
		s.logger.Error("Failed to compile host runtime", "error", err)
		return domain.Failed(fmt.Sprintf("sandbox unavailable: %v", err), kind)
	}

	started := time.Now()
	vm := goja.New()
	vm.SetMaxCallStackSize(s.maxCallStackSize)

	leave := enterRuntime()
	timer := time.AfterFunc(limits.Timeout(), func() { vm.Interrupt(errTimeLimit) })
	stopCtx := context.AfterFunc(ctx, func() { vm.Interrupt(errTimeLimit) })
	stopMem := watchMemory(vm, limits.MemoryBytes())
	defer func() {
		timer.Stop()
		stopCtx()
		stopMem()
		leave()
		if r := recover(); r != nil {
			s.logger.Error("Sandbox panicked", "panic", r)
			out = domain.Failed(fmt.Sprintf("%v", r), kind)
		}
		metrics.SandboxRunsTotal.WithLabelValues(mode, out.Failure.String()).Inc()
		s.logger.Debug("Sandbox run finished", "mode", mode, "failure", out.Failure.String(), "elapsed", time.Since(started))
	}()

	if _, err := vm.RunProgram(program); err != nil {
		return classify(err, kind)
	}
	if _, err := vm.RunScript(sourceFile, code); err != nil {
		return classify(err, kind)
	}
	out = fn(vm)
	out.Logs = graderStrings(vm, "logs")
	return out
}

func (s *Sandbox) mountEntry(vm *goja.Runtime, entryPoint string) (goja.Value, *domain.Outcome) {
	comp := resolveComponent(vm, entryName(entryPoint))
	if comp == nil {
		failed := domain.Failed(fmt.Sprintf("%s: %s", domain.ReasonMissingEntry, entryName(entryPoint)), domain.FailureMissingEntryPoint)
		return nil, &failed
	}
	mount, err := graderFunc(vm, "mount")
	if err != nil {
		failed := domain.Failed(err.Error(), domain.FailureRender)
		return nil, &failed
	}
	if _, err := mount(goja.Undefined(), comp); err != nil {
		failed := classify(err, domain.FailureRender)
		return nil, &failed
	}
	return comp, nil
}

func entryName(entryPoint string) string {
	if entryPoint == "" {
		return domain.DefaultEntryPoint
	}
	return entryPoint
}

func classify(err error, kind domain.FailureKind) domain.Outcome {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if interrupted.Value() == errMemoryLimit {
			return domain.Failed(domain.ReasonMemoryLimit, domain.FailureMemoryLimit)
		}
		return domain.Failed(domain.ReasonTimeLimit, domain.FailureTimeout)
	}
	var exception *goja.Exception
	if errors.As(err, &exception) {
		if v := exception.Value(); v != nil && !goja.IsUndefined(v) {
			return domain.Failed(v.String(), kind)
		}
	}
	return domain.Failed(err.Error(), kind)
}

func settled(p *goja.Promise, kind domain.FailureKind) domain.Outcome {
	switch p.State() {
	case goja.PromiseStateFulfilled:
		return domain.Returned(exportValue(p.Result()))
	case goja.PromiseStateRejected:
		reason := "promise rejected"
		if r := p.Result(); r != nil && !goja.IsUndefined(r) {
			reason = r.String()
		}
		return domain.Failed(reason, kind)
	default:
		return domain.Failed("promise did not settle", kind)
	}
}

func snapshot(vm *goja.Runtime) domain.Outcome {
	snap, err := graderFunc(vm, "snapshot")
	if err != nil {
		return domain.Failed(err.Error(), domain.FailureRender)
	}
	v, err := snap(goja.Undefined())
	if err != nil {
		return classify(err, domain.FailureRender)
	}
	return domain.Rendered(toNode(v.Export()))
}

func graderFunc(vm *goja.Runtime, name string) (goja.Callable, error) {
	g := vm.Get("__grader")
	if g == nil || goja.IsUndefined(g) {
		return nil, errors.New("host runtime not installed")
	}
	fn, ok := goja.AssertFunction(g.ToObject(vm).Get(name))
	if !ok {
		return nil, fmt.Errorf("host function %s not found", name)
	}
	return fn, nil
}

func graderStrings(vm *goja.Runtime, name string) []string {
	fn, err := graderFunc(vm, name)
	if err != nil {
		return nil
	}
	v, err := fn(goja.Undefined())
	if err != nil {
		return nil
	}
	items, _ := v.Export().([]any)
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// lookupGlobal finds a top-level binding, including let/const declarations
// which are not properties of the global object.
func lookupGlobal(vm *goja.Runtime, name string) goja.Value {
	if !identifier.MatchString(name) {
		return nil
	}
	if v := vm.Get(name); v != nil && !goja.IsUndefined(v) && !goja.IsNull(v) {
		return v
	}
	v, err := vm.RunString("typeof " + name + " !== 'undefined' ? " + name + " : undefined")
	if err != nil || v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	return v
}

func moduleExports(vm *goja.Runtime) goja.Value {
	m := vm.Get("module")
	if m == nil || goja.IsUndefined(m) || goja.IsNull(m) {
		return nil
	}
	ex := m.ToObject(vm).Get("exports")
	if ex == nil || goja.IsUndefined(ex) || goja.IsNull(ex) {
		return nil
	}
	return ex
}

func exportedMember(vm *goja.Runtime, name string) goja.Value {
	ex := moduleExports(vm)
	if ex == nil {
		return nil
	}
	v := ex.ToObject(vm).Get(name)
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	return v
}

func isFunction(v goja.Value) bool {
	if v == nil {
		return false
	}
	_, ok := goja.AssertFunction(v)
	return ok
}

// resolveComponent looks for the default export, then the entry symbol, then
// a symbol named Component.
func resolveComponent(vm *goja.Runtime, entry string) goja.Value {
	candidates := []func() goja.Value{
		func() goja.Value { return exportedMember(vm, "default") },
		func() goja.Value {
			if ex := moduleExports(vm); isFunction(ex) {
				return ex
			}
			return nil
		},
		func() goja.Value { return exportedMember(vm, entry) },
		func() goja.Value { return lookupGlobal(vm, entry) },
		func() goja.Value { return exportedMember(vm, fallbackComponentName) },
		func() goja.Value { return lookupGlobal(vm, fallbackComponentName) },
	}
	for _, c := range candidates {
		if v := c(); isFunction(v) {
			return v
		}
	}
	return nil
}

func resolveFunction(vm *goja.Runtime, name string) goja.Callable {
	for _, v := range []goja.Value{exportedMember(vm, name), lookupGlobal(vm, name)} {
		if fn, ok := goja.AssertFunction(v); ok && v != nil {
			return fn
		}
	}
	if ex := moduleExports(vm); ex != nil {
		if fn, ok := goja.AssertFunction(ex); ok {
			return fn
		}
	}
	return nil
}

// toArgs round-trips args through JSON.parse so the callee receives native
// engine arrays and objects rather than wrapped Go values.
func toArgs(vm *goja.Runtime, args []any) ([]goja.Value, error) {
	if len(args) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	parse, ok := goja.AssertFunction(vm.Get("JSON").ToObject(vm).Get("parse"))
	if !ok {
		return nil, errors.New("JSON.parse unavailable")
	}
	parsed, err := parse(goja.Undefined(), vm.ToValue(string(raw)))
	if err != nil {
		return nil, err
	}
	arr := parsed.ToObject(vm)
	n := int(arr.Get("length").ToInteger())
	out := make([]goja.Value, n)
	for i := 0; i < n; i++ {
		out[i] = arr.Get(strconv.Itoa(i))
	}
	return out, nil
}
