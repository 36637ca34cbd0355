// Package bridge is the runtime side of generated vmbridge bindings.
//
// It defines the boundary representation (Value), the conversions between
// native Go values and that representation, the capability interfaces a
// foreign runtime must provide, and the export table through which the
// foreign runtime reaches natively implemented functions.
package bridge

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"vmbridge/internal"
)

// Boundary class names for the supported primitive types.
const (
	ClassString = "java.lang.String"
	ClassByte   = "java.lang.Byte"
	ClassShort  = "java.lang.Short"
	ClassInt    = "java.lang.Integer"
	ClassLong   = "java.lang.Long"
	ClassFloat  = "java.lang.Float"
	ClassDouble = "java.lang.Double"
)

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	internal.PanicOnError(err)
	encMode = em
}

// Value is a value in boundary representation: a class name plus a CBOR
// payload. An empty Class marks an untyped value produced by a dynamic
// runtime, which decodes into any supported native type.
type Value struct {
	Class string
	Data  cbor.RawMessage
}

// Nil is the "no value" sentinel used for unit results.
var Nil = Value{}

// IsNil reports whether v is the no-value sentinel.
func (v Value) IsNil() bool {
	return v.Class == "" && len(v.Data) == 0
}

func (v Value) String() string {
	if v.IsNil() {
		return "<nil>"
	}
	if v.Class == "" {
		return fmt.Sprintf("<untyped %x>", []byte(v.Data))
	}
	return fmt.Sprintf("<%s %x>", v.Class, []byte(v.Data))
}

// Classed is implemented by native types bound to a foreign class. The
// generator emits the method for every class declaration.
type Classed interface {
	BoundaryClass() string
}

// FromNative converts a native value to its boundary representation. A
// non-empty classHint replaces the class derived from the value.
func FromNative[T any](v T, classHint string) (Value, error) {
	class, ok := nativeClass(any(v))
	if !ok {
		return Nil, marshalErrorf("unsupported native type %T", v)
	}
	if classHint != "" {
		class = classHint
	}
	return Encode(class, v)
}

// Encode serializes v under the given class without any type checks.
// Runtimes use it for values whose class they determine themselves.
func Encode(class string, v any) (Value, error) {
	data, err := encMode.Marshal(v)
	if err != nil {
		return Nil, marshalErrorf("encode %s: %v", displayClass(class), err)
	}
	return Value{Class: class, Data: data}, nil
}

// ToNative converts a boundary value to T through the handle's decoder.
func ToNative[T any](h Handle, v Value) (T, error) {
	var out T
	if err := h.Decode(v, &out); err != nil {
		return out, Unify(err)
	}
	return out, nil
}

// Decode is the default boundary decoder. target must be a pointer to a
// supported native type; the value's class must be compatible with it.
func Decode(v Value, target any) error {
	want, ok := targetClass(target)
	if !ok {
		return marshalErrorf("unsupported native type %T", target)
	}
	if v.IsNil() {
		return marshalErrorf("cannot convert no-value to %s", want)
	}
	if !compatible(v.Class, want) {
		return marshalErrorf("cannot convert %s to %s", displayClass(v.Class), want)
	}
	if err := cbor.Unmarshal(v.Data, target); err != nil {
		return marshalErrorf("decode %s as %s: %v", displayClass(v.Class), want, err)
	}
	return nil
}

// DecodeAny decodes the payload of v into generic Go values (strings,
// int64/uint64, float64, []any, map[any]any). Dynamic runtimes use it.
func DecodeAny(v Value) (any, error) {
	if v.IsNil() {
		return nil, nil
	}
	var out any
	if err := cbor.Unmarshal(v.Data, &out); err != nil {
		return nil, marshalErrorf("decode %s: %v", displayClass(v.Class), err)
	}
	return out, nil
}

func nativeClass(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return ClassString, true
	case int8:
		return ClassByte, true
	case int16:
		return ClassShort, true
	case int32:
		return ClassInt, true
	case int64:
		return ClassLong, true
	case float32:
		return ClassFloat, true
	case float64:
		return ClassDouble, true
	case Classed:
		return t.BoundaryClass(), true
	}
	return "", false
}

func targetClass(target any) (string, bool) {
	switch t := target.(type) {
	case *string:
		return ClassString, true
	case *int8:
		return ClassByte, true
	case *int16:
		return ClassShort, true
	case *int32:
		return ClassInt, true
	case *int64:
		return ClassLong, true
	case *float32:
		return ClassFloat, true
	case *float64:
		return ClassDouble, true
	case Classed:
		return t.BoundaryClass(), true
	}
	return "", false
}

func compatible(got, want string) bool {
	if got == "" || got == want {
		return true
	}
	if isInteger(got) && isInteger(want) {
		return true
	}
	return isFloat(got) && isFloat(want)
}

func isInteger(class string) bool {
	switch class {
	case ClassByte, ClassShort, ClassInt, ClassLong:
		return true
	}
	return false
}

func isFloat(class string) bool {
	return class == ClassFloat || class == ClassDouble
}

func displayClass(class string) string {
	if class == "" {
		return "untyped value"
	}
	return class
}
