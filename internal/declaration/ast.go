// Package declaration reads vmbridge declaration files: class bindings and
// function groups describing functions shared with a foreign runtime.
package declaration

import "strings"

// TypeRef is a type as written in a declaration, e.g. i32 or geo::Point.
type TypeRef struct {
	Segments []string
}

// Name returns the path joined with "::".
func (t TypeRef) Name() string {
	return strings.Join(t.Segments, "::")
}

func (t TypeRef) String() string {
	return t.Name()
}

// Parameter is one declared parameter.
type Parameter struct {
	Name    string
	Type    TypeRef
	Mutable bool
}

// Body is the Go body of an inbound declaration.
type Body struct {
	Statements []string
}

// Direction says which side implements a declared function.
type Direction int

const (
	// Outbound functions live in the foreign runtime; native code gets a proxy.
	Outbound Direction = iota
	// Inbound functions are implemented natively and exported to the foreign runtime.
	Inbound
)

func (d Direction) String() string {
	if d == Inbound {
		return "inbound"
	}
	return "outbound"
}

// FunctionDeclaration is one function signature inside a group.
type FunctionDeclaration struct {
	Pos    Position
	Doc    []string
	Public bool
	Name   string
	Params []Parameter
	// Return is nil for unit.
	Return *TypeRef
	// Body is nil for outbound declarations.
	Body *Body
}

// Direction is decided by body presence alone.
func (d *FunctionDeclaration) Direction() Direction {
	if d.Body != nil {
		return Inbound
	}
	return Outbound
}

// FunctionGroup is the parsed content of one impl block.
type FunctionGroup struct {
	Pos    Position
	TypeID string
	Decls  []FunctionDeclaration
	// Trailing is unrelated content after the last declaration, kept verbatim.
	Trailing string
}

// ClassDecl binds a native type to a qualified foreign class name.
type ClassDecl struct {
	Pos           Position
	TypeID        string
	QualifiedName string
}

// File is a parsed declaration file.
type File struct {
	Name    string
	Classes []ClassDecl
	Groups  []*FunctionGroup
}
