package binding

import "fmt"

// NameFormatError reports a qualified name that is not a valid dotted path.
type NameFormatError struct {
	Name   string
	Reason string
}

func (e *NameFormatError) Error() string {
	return fmt.Sprintf("invalid qualified name %q: %s", e.Name, e.Reason)
}

// UnresolvedBindingError reports a native type used without a class binding.
type UnresolvedBindingError struct {
	TypeID string
}

func (e *UnresolvedBindingError) Error() string {
	return fmt.Sprintf("native type %s has no class binding", e.TypeID)
}
