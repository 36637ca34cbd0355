// Package marshal holds the static marshalling rules the generator uses to
// turn declared types into Go types and boundary classes.
package marshal

import (
	"vmbridge/bridge"
	"vmbridge/internal/binding"
)

// Rule says how one declared type crosses the boundary.
type Rule struct {
	// Name is the declared spelling, e.g. "i32".
	Name string
	// GoType is the native Go type, e.g. "int32".
	GoType string
	// Class is the boundary class of primitive values.
	Class string
	// Symbol is the generated class-name constant of a bound type.
	Symbol string
	// Bound is set for types registered through a class binding.
	Bound bool
	// Unit marks an absent return type. Unit never reaches a conversion.
	Unit bool
}

// ClassHint is the class hint passed to bridge.FromNative: the class
// constant for bound types, empty for primitives.
func (r Rule) ClassHint() string {
	if r.Bound {
		return r.Symbol
	}
	return ""
}

var primitives = map[string]Rule{}

func init() {
	add := func(goType, class string, names ...string) {
		for _, name := range names {
			primitives[name] = Rule{Name: name, GoType: goType, Class: class}
		}
	}
	add("string", bridge.ClassString, "String", "str", "string")
	add("int8", bridge.ClassByte, "i8", "int8")
	add("int16", bridge.ClassShort, "i16", "int16")
	add("int32", bridge.ClassInt, "i32", "int32")
	add("int64", bridge.ClassLong, "i64", "int64")
	add("float32", bridge.ClassFloat, "f32", "float32")
	add("float64", bridge.ClassDouble, "f64", "float64")
}

// Lookup returns the rule for a declared type name. Names outside the
// primitive set must be bound in reg.
func Lookup(typeName string, reg *binding.Registry) (Rule, error) {
	if rule, ok := primitives[typeName]; ok {
		return rule, nil
	}

	b, err := reg.Lookup(typeName)
	if err != nil {
		return Rule{}, err
	}
	return Rule{Name: typeName, GoType: b.TypeID, Class: b.QualifiedName, Symbol: b.Symbol, Bound: true}, nil
}

// Unit is the rule for an absent return type.
func Unit() Rule {
	return Rule{Name: "()", Unit: true}
}

// IsPrimitive reports whether typeName is one of the supported primitives.
func IsPrimitive(typeName string) bool {
	_, ok := primitives[typeName]
	return ok
}
