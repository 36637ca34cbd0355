package bridge

import (
	"errors"
	"fmt"
)

// Kind tells which step of a boundary call failed. Call sites only ever see
// the message; Kind exists for logging and tests.
type Kind int

const (
	// KindInvocation covers attaching to the runtime and static calls into it.
	KindInvocation Kind = iota
	// KindMarshal covers conversions to and from the boundary representation.
	KindMarshal
	// KindCallee is an error returned by a natively implemented function body.
	KindCallee
)

func (k Kind) String() string {
	switch k {
	case KindInvocation:
		return "invocation"
	case KindMarshal:
		return "marshal"
	case KindCallee:
		return "callee"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is the single error type that crosses generated call sites.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Unify converts any collaborator error into an *Error. An *Error anywhere
// in the chain keeps its kind; everything else is an invocation failure.
func Unify(err error) error {
	return unify(err, KindInvocation)
}

// Callee is Unify for errors returned by native function bodies.
func Callee(err error) error {
	return unify(err, KindCallee)
}

func unify(err error, fallback Kind) error {
	if err == nil {
		return nil
	}

	if be, ok := err.(*Error); ok {
		return be
	}

	var inner *Error
	if errors.As(err, &inner) {
		return &Error{Kind: inner.Kind, Message: err.Error()}
	}

	return &Error{Kind: fallback, Message: err.Error()}
}

// KindOf reports the kind of a unified error. Errors that were never unified
// report KindInvocation.
func KindOf(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindInvocation
}

func marshalErrorf(format string, args ...any) error {
	return &Error{Kind: KindMarshal, Message: fmt.Sprintf(format, args...)}
}

func invocationErrorf(format string, args ...any) error {
	return &Error{Kind: KindInvocation, Message: fmt.Sprintf(format, args...)}
}
