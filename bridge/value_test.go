package bridge

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct {
	X int32
	Y int32
}

func (point) BoundaryClass() string { return "io.example.Point" }

type plainHandle struct{}

func (plainHandle) InvokeStatic(string, string, []Value) (Value, error) { return Nil, nil }
func (plainHandle) Decode(v Value, target any) error                  { return Decode(v, target) }
func (plainHandle) Release()                                          {}

func roundTrip[T any](t *testing.T, v T) T {
	t.Helper()
	bv, err := FromNative(v, "")
	require.NoError(t, err)
	out, err := ToNative[T](plainHandle{}, bv)
	require.NoError(t, err)
	return out
}

func TestRoundTripPrimitives(t *testing.T) {
	assert.Equal(t, "héllo", roundTrip(t, "héllo"))
	assert.Equal(t, "", roundTrip(t, ""))
	assert.Equal(t, int8(-128), roundTrip(t, int8(-128)))
	assert.Equal(t, int16(32767), roundTrip(t, int16(32767)))
	assert.Equal(t, int32(-7), roundTrip(t, int32(-7)))
	assert.Equal(t, int64(1)<<62, roundTrip(t, int64(1)<<62))
	assert.Equal(t, float32(1.5), roundTrip(t, float32(1.5)))
	assert.Equal(t, 3.141592653589793, roundTrip(t, 3.141592653589793))
}

func TestRoundTripBoundType(t *testing.T) {
	p := point{X: 3, Y: -4}
	v, err := FromNative(p, "")
	require.NoError(t, err)
	assert.Equal(t, "io.example.Point", v.Class)
	assert.Equal(t, p, roundTrip(t, p))
}

func TestFromNativeClasses(t *testing.T) {
	tests := []struct {
		name  string
		value any
		class string
	}{
		{"string", "x", ClassString},
		{"int8", int8(1), ClassByte},
		{"int16", int16(1), ClassShort},
		{"int32", int32(1), ClassInt},
		{"int64", int64(1), ClassLong},
		{"float32", float32(1), ClassFloat},
		{"float64", float64(1), ClassDouble},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := FromNative(tt.value, "")
			require.NoError(t, err)
			assert.Equal(t, tt.class, v.Class)
			assert.False(t, v.IsNil())
		})
	}
}

func TestFromNativeHintOverridesClass(t *testing.T) {
	v, err := FromNative(point{}, "io.other.Point")
	require.NoError(t, err)
	assert.Equal(t, "io.other.Point", v.Class)
}

func TestFromNativeUnsupported(t *testing.T) {
	_, err := FromNative(true, "")
	require.Error(t, err)
	assert.Equal(t, KindMarshal, KindOf(err))
	assert.Contains(t, err.Error(), "unsupported native type bool")
}

func TestDecodeIntegerWidening(t *testing.T) {
	v, err := FromNative(int64(42), "")
	require.NoError(t, err)

	out, err := ToNative[int32](plainHandle{}, v)
	require.NoError(t, err)
	assert.Equal(t, int32(42), out)
}

func TestDecodeIntegerOverflow(t *testing.T) {
	v, err := FromNative(int64(1)<<40, "")
	require.NoError(t, err)

	_, err = ToNative[int8](plainHandle{}, v)
	require.Error(t, err)
	assert.Equal(t, KindMarshal, KindOf(err))
}

func TestDecodeMismatch(t *testing.T) {
	tests := []struct {
		name   string
		value  any
		decode func(Value) error
	}{
		{"string into int", "12", func(v Value) error { _, err := ToNative[int32](plainHandle{}, v); return err }},
		{"float into int", 1.5, func(v Value) error { _, err := ToNative[int64](plainHandle{}, v); return err }},
		{"int into string", int32(1), func(v Value) error { _, err := ToNative[string](plainHandle{}, v); return err }},
		{"string into bound", "p", func(v Value) error { _, err := ToNative[point](plainHandle{}, v); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := FromNative(tt.value, "")
			require.NoError(t, err)
			err = tt.decode(v)
			require.Error(t, err)
			assert.Equal(t, KindMarshal, KindOf(err))
		})
	}
}

func TestDecodeUntyped(t *testing.T) {
	v, err := Encode("", map[string]any{"X": 1, "Y": 2})
	require.NoError(t, err)

	p, err := ToNative[point](plainHandle{}, v)
	require.NoError(t, err)
	assert.Equal(t, point{X: 1, Y: 2}, p)
}

func TestDecodeNil(t *testing.T) {
	_, err := ToNative[string](plainHandle{}, Nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no-value")
}

func TestDecodeUnsupportedTarget(t *testing.T) {
	v, err := FromNative("x", "")
	require.NoError(t, err)
	var b bool
	err = Decode(v, &b)
	require.Error(t, err)
	assert.Equal(t, KindMarshal, KindOf(err))
}

func TestDecodeAny(t *testing.T) {
	v, err := FromNative("abc", "")
	require.NoError(t, err)
	got, err := DecodeAny(v)
	require.NoError(t, err)
	assert.Equal(t, "abc", got)

	got, err = DecodeAny(Nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestEncodingIsDeterministic(t *testing.T) {
	a, err := FromNative(point{X: 1, Y: 2}, "")
	require.NoError(t, err)
	b, err := FromNative(point{X: 1, Y: 2}, "")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestUnify(t *testing.T) {
	assert.NoError(t, Unify(nil))

	err := Unify(errors.New("boom"))
	assert.Equal(t, "boom", err.Error())
	assert.Equal(t, KindInvocation, KindOf(err))

	marshal := marshalErrorf("bad value")
	assert.Same(t, marshal, Unify(marshal))

	wrapped := Unify(fmt.Errorf("context: %w", marshal))
	assert.Equal(t, "context: bad value", wrapped.Error())
	assert.Equal(t, KindMarshal, KindOf(wrapped))

	assert.Equal(t, KindCallee, KindOf(Callee(errors.New("body failed"))))
	assert.Equal(t, KindMarshal, KindOf(Callee(marshal)))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "invocation", KindInvocation.String())
	assert.Equal(t, "marshal", KindMarshal.String())
	assert.Equal(t, "callee", KindCallee.String())
	assert.Equal(t, "Kind(9)", Kind(9).String())
}
