// Package starvm hosts a foreign VM in process on go.starlark.net.
//
// Each foreign class is a Starlark module: its top-level functions are the
// class's static functions. Modules are registered from source or loaded
// lazily from "<qualified.class.Name>.star" files in a directory. Scripts
// call back into native entry points with the predeclared builtin
// native.call(name, *args); native.exports() lists the registered names.
package starvm

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"vmbridge/bridge"
	"vmbridge/internal/binding"
)

// Extension is the file extension of class modules.
const Extension = ".star"

// Runtime is a bridge.Runtime backed by Starlark modules.
type Runtime struct {
	mu      sync.RWMutex
	modules map[string]starlark.StringDict

	dir    string
	print  func(class, msg string)
	logger *slog.Logger
}

type Option func(*Runtime)

// WithDir makes the runtime load unknown classes from dir.
func WithDir(dir string) Option {
	return func(r *Runtime) { r.dir = dir }
}

// WithPrint routes Starlark print() output to fn.
func WithPrint(fn func(class, msg string)) Option {
	return func(r *Runtime) { r.print = fn }
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) { r.logger = logger }
}

func New(opts ...Option) *Runtime {
	r := &Runtime{
		modules: make(map[string]starlark.StringDict),
		print:   func(string, string) {},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// LoadSource executes src as the module of class, replacing any module
// registered for it before.
func (r *Runtime) LoadSource(class, src string) error {
	if err := binding.ValidateQualifiedName(class); err != nil {
		return err
	}
	globals, err := r.exec(class, class+Extension, src)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.modules[class] = globals
	r.mu.Unlock()
	return nil
}

// LoadFile executes the file at path as the module of class.
func (r *Runtime) LoadFile(class, path string) error {
	src, err := os.ReadFile(path) //nolint:gosec // G304: module paths are chosen by the embedding program
	if err != nil {
		return fmt.Errorf("load class %s: %w", class, err)
	}
	return r.LoadSource(class, string(src))
}

// Classes returns the number of loaded class modules.
func (r *Runtime) Classes() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.modules)
}

func (r *Runtime) exec(class, filename, src string) (starlark.StringDict, error) {
	thread := r.newThread("load:" + class)
	globals, err := starlark.ExecFile(thread, filename, src, predeclared()) //nolint:staticcheck // SA1019: ExecFileOptions needs a syntax.FileOptions we don't customise
	if err != nil {
		return nil, fmt.Errorf("load class %s: %w", class, err)
	}
	r.logger.Debug("loaded class module", "class", class, "globals", len(globals))
	return globals, nil
}

func (r *Runtime) module(class string) (starlark.StringDict, error) {
	r.mu.RLock()
	globals, ok := r.modules[class]
	r.mu.RUnlock()
	if ok {
		return globals, nil
	}

	if r.dir == "" {
		return nil, fmt.Errorf("class %s is not loaded", class)
	}
	path := filepath.Join(r.dir, class+Extension)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("class %s not found in %s", class, r.dir)
	}
	if err := r.LoadFile(class, path); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.modules[class], nil
}

func (r *Runtime) newThread(name string) *starlark.Thread {
	return &starlark.Thread{
		Name: name,
		Print: func(t *starlark.Thread, msg string) {
			r.print(t.Name, msg)
		},
	}
}

// Attach implements bridge.Runtime. Every attachment runs on its own
// Starlark thread.
func (r *Runtime) Attach() (bridge.Handle, error) {
	return &handle{rt: r}, nil
}

type handle struct {
	rt       *Runtime
	mu       sync.Mutex
	released bool
}

func (h *handle) InvokeStatic(class, function string, args []bridge.Value) (bridge.Value, error) {
	h.mu.Lock()
	released := h.released
	h.mu.Unlock()
	if released {
		return bridge.Nil, errors.New("invoke on released handle")
	}

	globals, err := h.rt.module(class)
	if err != nil {
		return bridge.Nil, err
	}
	fn, ok := globals[function].(starlark.Callable)
	if !ok {
		return bridge.Nil, fmt.Errorf("class %s has no function %s", class, function)
	}

	tuple := make(starlark.Tuple, len(args))
	for i, arg := range args {
		sv, err := valueToStarlark(arg)
		if err != nil {
			return bridge.Nil, fmt.Errorf("%s.%s: argument %d: %w", class, function, i, err)
		}
		tuple[i] = sv
	}

	result, err := starlark.Call(h.rt.newThread(class), fn, tuple, nil)
	if err != nil {
		return bridge.Nil, fmt.Errorf("%s.%s: %w", class, function, err)
	}
	return valueFromStarlark(result)
}

func (h *handle) Decode(v bridge.Value, target any) error {
	return bridge.Decode(v, target)
}

func (h *handle) Release() {
	h.mu.Lock()
	h.released = true
	h.mu.Unlock()
}

// valueToStarlark decodes a boundary value for a Starlark callee.
func valueToStarlark(v bridge.Value) (starlark.Value, error) {
	gv, err := bridge.DecodeAny(v)
	if err != nil {
		return nil, err
	}
	return toStarlark(gv)
}

// valueFromStarlark encodes a Starlark result. Results carry no class, so
// the receiving side decodes them into whatever type it declared. None
// becomes bridge.Nil.
func valueFromStarlark(v starlark.Value) (bridge.Value, error) {
	if v == starlark.None {
		return bridge.Nil, nil
	}
	gv, err := fromStarlark(v)
	if err != nil {
		return bridge.Nil, bridge.Unify(err)
	}
	return bridge.Encode("", gv)
}

func predeclared() starlark.StringDict {
	return starlark.StringDict{
		"native": starlarkstruct.FromStringDict(starlark.String("native"), starlark.StringDict{
			"call":    starlark.NewBuiltin("native.call", nativeCall),
			"exports": starlark.NewBuiltin("native.exports", nativeExports),
		}),
	}
}

// native.call(name, *args) invokes a native entry point.
func nativeCall(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(kwargs) > 0 {
		return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("%s: missing entry point name", b.Name())
	}
	name, ok := starlark.AsString(args[0])
	if !ok {
		return nil, fmt.Errorf("%s: entry point name must be a string, got %s", b.Name(), args[0].Type())
	}

	values := make([]bridge.Value, 0, len(args)-1)
	for i, arg := range args[1:] {
		v, err := valueFromStarlark(arg)
		if err != nil {
			return nil, fmt.Errorf("%s: argument %d: %w", b.Name(), i, err)
		}
		values = append(values, v)
	}

	result, err := bridge.Call(name, values...)
	if err != nil {
		return nil, err
	}
	return valueToStarlark(result)
}

func nativeExports(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	names := bridge.Exports()
	list := make([]starlark.Value, len(names))
	for i, name := range names {
		list[i] = starlark.String(name)
	}
	return starlark.NewList(list), nil
}
