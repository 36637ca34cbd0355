package bridge

import "sync/atomic"

// Runtime is a foreign runtime that native code can attach to.
type Runtime interface {
	// Attach returns a handle bound to the calling goroutine's attachment.
	Attach() (Handle, error)
}

// Handle is an active attachment to a foreign runtime. Generated code
// obtains one per call and releases it on every exit path.
type Handle interface {
	// InvokeStatic calls a static function of a foreign class.
	InvokeStatic(class, function string, args []Value) (Value, error)
	// Decode converts a boundary value into target, a pointer to a native value.
	Decode(v Value, target any) error
	// Release ends the attachment.
	Release()
}

type runtimeSlot struct {
	rt Runtime
}

var active atomic.Pointer[runtimeSlot]

// SetRuntime installs rt as the active foreign runtime and returns a
// function restoring the previous one.
func SetRuntime(rt Runtime) (restore func()) {
	prev := active.Swap(&runtimeSlot{rt: rt})
	return func() {
		active.Store(prev)
	}
}

// ActiveRuntime returns the installed runtime, or nil.
func ActiveRuntime() Runtime {
	slot := active.Load()
	if slot == nil {
		return nil
	}
	return slot.rt
}

// Attach attaches the calling goroutine to the active foreign runtime.
func Attach() (Handle, error) {
	rt := ActiveRuntime()
	if rt == nil {
		return nil, invocationErrorf("attach: no foreign runtime installed")
	}

	h, err := rt.Attach()
	if err != nil {
		return nil, invocationErrorf("attach: %v", err)
	}
	if h == nil {
		return nil, invocationErrorf("attach: runtime returned no handle")
	}
	return h, nil
}
