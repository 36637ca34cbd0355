// Package bridgetest provides a recording stub foreign runtime for tests of
// generated bindings.
package bridgetest

import (
	"sync"
	"testing"

	"vmbridge/bridge"
)

// Call is one recorded InvokeStatic request.
type Call struct {
	Class    string
	Function string
	Args     []bridge.Value
}

// HandlerFunc answers InvokeStatic requests.
type HandlerFunc func(class, function string, args []bridge.Value) (bridge.Value, error)

// Runtime is a bridge.Runtime that records static calls and answers them
// with Handler. The zero value answers every call with bridge.Nil.
type Runtime struct {
	// Handler answers static calls. Nil means "return bridge.Nil".
	Handler HandlerFunc
	// AttachErr, when set, makes every Attach fail.
	AttachErr error

	mu       sync.Mutex
	calls    []Call
	attached int
	released int
}

// New returns a stub runtime answering with handler.
func New(handler HandlerFunc) *Runtime {
	return &Runtime{Handler: handler}
}

// Install makes r the active runtime for the duration of the test.
func (r *Runtime) Install(t testing.TB) *Runtime {
	t.Helper()
	restore := bridge.SetRuntime(r)
	t.Cleanup(restore)
	return r
}

// Attach implements bridge.Runtime.
func (r *Runtime) Attach() (bridge.Handle, error) {
	if r.AttachErr != nil {
		return nil, r.AttachErr
	}

	r.mu.Lock()
	r.attached++
	r.mu.Unlock()
	return &handle{rt: r}, nil
}

// Calls returns a copy of the recorded static calls.
func (r *Runtime) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Attachments reports how many handles were attached and released.
func (r *Runtime) Attachments() (attached, released int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attached, r.released
}

type handle struct {
	rt       *Runtime
	released bool
}

func (h *handle) InvokeStatic(class, function string, args []bridge.Value) (bridge.Value, error) {
	h.rt.mu.Lock()
	h.rt.calls = append(h.rt.calls, Call{
		Class:    class,
		Function: function,
		Args:     append([]bridge.Value(nil), args...),
	})
	handler := h.rt.Handler
	h.rt.mu.Unlock()

	if handler == nil {
		return bridge.Nil, nil
	}
	return handler(class, function, args)
}

func (h *handle) Decode(v bridge.Value, target any) error {
	return bridge.Decode(v, target)
}

func (h *handle) Release() {
	if h.released {
		return
	}
	h.released = true

	h.rt.mu.Lock()
	h.rt.released++
	h.rt.mu.Unlock()
}

// Returns answers every call with the boundary encoding of v.
func Returns[T any](v T) HandlerFunc {
	return func(string, string, []bridge.Value) (bridge.Value, error) {
		return bridge.FromNative(v, "")
	}
}

// Fails answers every call with err.
func Fails(err error) HandlerFunc {
	return func(string, string, []bridge.Value) (bridge.Value, error) {
		return bridge.Nil, err
	}
}
