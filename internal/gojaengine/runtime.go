//go:build goja && !v8

// Package gojaengine implements core.JSRuntime on github.com/dop251/goja,
// a pure-Go ECMAScript engine. Select it with -tags goja.
package gojaengine

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/cryguy/mermaid/internal/core"
	"github.com/dop251/goja"
)

// errInterrupted is the value passed to goja when a render is aborted.
var errInterrupted = errors.New("script interrupted")

type gojaRuntime struct {
	vm *goja.Runtime
}

var _ core.JSRuntime = (*gojaRuntime)(nil)

// New creates a goja runtime. goja has no heap limit, so
// cfg.MemoryLimitMB is ignored.
func New(cfg core.EngineConfig) (core.JSRuntime, error) {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.UncapFieldNameMapper())
	return &gojaRuntime{vm: vm}, nil
}

func (r *gojaRuntime) run(js string) (goja.Value, error) {
	v, err := r.vm.RunString(js)
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			r.vm.ClearInterrupt()
			return nil, errInterrupted
		}
		return nil, err
	}
	return v, nil
}

func (r *gojaRuntime) Eval(js string) error {
	_, err := r.run(js)
	return err
}

func (r *gojaRuntime) EvalString(js string) (string, error) {
	v, err := r.run(js)
	if err != nil {
		return "", err
	}
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return "", nil
	}
	return v.String(), nil
}

func (r *gojaRuntime) EvalBool(js string) (bool, error) {
	v, err := r.run(js)
	if err != nil {
		return false, err
	}
	if v == nil {
		return false, nil
	}
	return v.ToBoolean(), nil
}

// RegisterFunc relies on goja's reflection wrapper, which already turns a
// trailing non-nil error return into a thrown exception.
func (r *gojaRuntime) RegisterFunc(name string, fn any) error {
	if reflect.TypeOf(fn).Kind() != reflect.Func {
		return fmt.Errorf("RegisterFunc: expected function, got %T", fn)
	}
	return r.vm.Set(name, fn)
}

func (r *gojaRuntime) SetGlobal(name string, value any) error {
	return r.vm.Set(name, value)
}

// RunMicrotasks lets goja drain its job queue, which it does whenever the
// outermost script run returns.
func (r *gojaRuntime) RunMicrotasks() {
	_, _ = r.vm.RunString("undefined")
}

func (r *gojaRuntime) Interrupt() {
	r.vm.Interrupt(errInterrupted)
}

func (r *gojaRuntime) Close() error {
	r.vm = nil
	return nil
}
