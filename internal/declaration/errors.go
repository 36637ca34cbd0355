package declaration

import "fmt"

// ParseError describes malformed declaration source.
type ParseError struct {
	File     string
	Pos      Position
	Found    string
	Expected string
	// Message replaces the found/expected wording when set.
	Message string
}

func (e *ParseError) Error() string {
	where := e.Pos.String()
	if e.File != "" {
		where = e.File + ":" + where
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", where, e.Message)
	}
	return fmt.Sprintf("%s: expected %s, found %s", where, e.Expected, e.Found)
}
