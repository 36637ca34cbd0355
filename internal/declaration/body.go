package declaration

import (
	"errors"
	goast "go/ast"
	goparser "go/parser"
	"go/scanner"
	gotoken "go/token"
	"strings"
)

const (
	bodyPrologue  = "package p\nfunc _() {\n"
	bodyEpilogue  = "\n}\n"
	bodyFirstLine = 3
)

// splitStatements parses body as Go statements and returns the source text
// of each top-level statement in order. Comments between statements stay
// with the statement that follows them; comments after the last statement
// stay with the last one.
func splitStatements(body string) ([]string, error) {
	src := bodyPrologue + body + bodyEpilogue
	fset := gotoken.NewFileSet()
	f, err := goparser.ParseFile(fset, "", src, goparser.ParseComments|goparser.SkipObjectResolution)
	if err != nil {
		return nil, err
	}

	fn := f.Decls[0].(*goast.FuncDecl)
	stmts := fn.Body.List
	if len(stmts) == 0 {
		return nil, nil
	}

	tf := fset.File(f.Pos())
	out := make([]string, 0, len(stmts))
	prev := len(bodyPrologue)
	for _, s := range stmts {
		end := tf.Offset(s.End())
		out = append(out, trimStatement(src[prev:end]))
		prev = end
	}

	if rest := trimStatement(src[prev : len(src)-len(bodyEpilogue)]); rest != "" {
		out[len(out)-1] += "\n" + rest
	}
	return out, nil
}

func trimStatement(s string) string {
	return strings.TrimSpace(strings.TrimLeft(s, "; \t\r\n"))
}

// bodyError maps a Go syntax error inside a body back to declaration
// source. open is the position of the body's '{'.
func bodyError(file string, open Position, err error) *ParseError {
	var list scanner.ErrorList
	if !errors.As(err, &list) || len(list) == 0 {
		return &ParseError{File: file, Pos: open, Message: "invalid function body: " + err.Error()}
	}

	first := list[0]
	pos := Position{Line: open.Line + first.Pos.Line - bodyFirstLine, Column: first.Pos.Column}
	switch {
	case first.Pos.Line < bodyFirstLine:
		pos = open
	case first.Pos.Line == bodyFirstLine:
		pos.Column = open.Column + first.Pos.Column
	}
	return &ParseError{File: file, Pos: pos, Message: "invalid Go statement in function body: " + first.Msg}
}
