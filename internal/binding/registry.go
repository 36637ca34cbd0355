// Package binding associates native types with qualified foreign class
// names and hands out the generated constant that carries each name.
package binding

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Separator joins namespace segments of a qualified name.
const Separator = "."

// symbolPrefix starts the generated constant holding a type's class name.
const symbolPrefix = "className"

// ClassBinding is one foreign class bound to one native type.
type ClassBinding struct {
	TypeID        string
	QualifiedName string
	// Symbol is the generated constant that holds QualifiedName.
	Symbol string
}

// Registry maps native type identifiers to class bindings. Bindings are
// write-once. A Registry is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	bindings map[string]ClassBinding
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{bindings: make(map[string]ClassBinding)}
}

// Bind registers qualifiedName for typeID. Binding a type again to the same
// name returns the existing binding; a different name is an error.
func (r *Registry) Bind(typeID, qualifiedName string) (ClassBinding, error) {
	if err := ValidateQualifiedName(qualifiedName); err != nil {
		return ClassBinding{}, err
	}
	if typeID == "" {
		return ClassBinding{}, fmt.Errorf("bind %q: empty native type", qualifiedName)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.bindings[typeID]; ok {
		if existing.QualifiedName != qualifiedName {
			return ClassBinding{}, fmt.Errorf("bind %s to %q: already bound to %q", typeID, qualifiedName, existing.QualifiedName)
		}
		return existing, nil
	}

	b := ClassBinding{TypeID: typeID, QualifiedName: qualifiedName, Symbol: Symbol(typeID)}
	r.bindings[typeID] = b
	return b, nil
}

// Resolve returns the qualified name bound to typeID.
func (r *Registry) Resolve(typeID string) (string, error) {
	b, err := r.Lookup(typeID)
	if err != nil {
		return "", err
	}
	return b.QualifiedName, nil
}

// Lookup returns the binding of typeID.
func (r *Registry) Lookup(typeID string) (ClassBinding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bindings[typeID]
	if !ok {
		return ClassBinding{}, &UnresolvedBindingError{TypeID: typeID}
	}
	return b, nil
}

// Bindings returns every binding sorted by type identifier.
func (r *Registry) Bindings() []ClassBinding {
	r.mu.RLock()
	out := make([]ClassBinding, 0, len(r.bindings))
	for _, b := range r.bindings {
		out = append(out, b)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].TypeID < out[j].TypeID })
	return out
}

// Symbol is the generated constant name for typeID. It depends only on
// typeID, so every declaration of the same type resolves to one symbol.
func Symbol(typeID string) string {
	return symbolPrefix + typeID
}

// ValidateQualifiedName checks that name is a dot-separated list of
// segments made of ASCII letters and digits, each starting with a letter.
func ValidateQualifiedName(name string) error {
	if name == "" {
		return &NameFormatError{Name: name, Reason: "empty name"}
	}
	for i, seg := range strings.Split(name, Separator) {
		if seg == "" {
			return &NameFormatError{Name: name, Reason: fmt.Sprintf("segment %d is empty", i+1)}
		}
		for j, r := range seg {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			case r >= '0' && r <= '9' && j > 0:
			default:
				return &NameFormatError{Name: name, Reason: fmt.Sprintf("invalid character %q in segment %q", r, seg)}
			}
		}
	}
	return nil
}
