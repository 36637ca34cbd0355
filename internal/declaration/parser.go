package declaration

import (
	gotoken "go/token"
	"go/types"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ReservedPrefix starts every identifier the generator introduces in
// emitted code. Declarations may not use it.
const ReservedPrefix = "vmb"

// reservedNames would collide with names the generated code relies on.
var reservedNames = map[string]bool{
	"bridge":        true,
	"BoundaryClass": true,
}

// Parser is a recursive-descent parser with one token of lookahead.
type Parser struct {
	file  string
	lexer *Lexer
	cur   Token
	peek  Token
}

// NewParser creates a parser for input. file is used in error positions.
func NewParser(file, input string) *Parser {
	p := &Parser{file: file, lexer: NewLexer(input)}
	p.next()
	p.next()
	return p
}

// ParseGroup parses source holding exactly one impl block.
func ParseGroup(src string) (*FunctionGroup, error) {
	p := NewParser("", src)
	group, err := p.parseGroup()
	if err != nil {
		return nil, err
	}
	if p.cur.Type != TokenEOF {
		return nil, p.unexpected("end of input")
	}
	return group, nil
}

// ParseFile parses a whole declaration file.
func ParseFile(name, src string) (*File, error) {
	return NewParser(name, src).ParseFile()
}

// ParseFile parses class declarations and impl blocks up to end of input.
func (p *Parser) ParseFile() (*File, error) {
	f := &File{Name: p.file}
	for p.cur.Type != TokenEOF {
		switch p.cur.Type {
		case TokenClass:
			class, err := p.parseClass()
			if err != nil {
				return nil, err
			}
			f.Classes = append(f.Classes, class)
		case TokenImpl:
			group, err := p.parseGroup()
			if err != nil {
				return nil, err
			}
			f.Groups = append(f.Groups, group)
		default:
			return nil, p.unexpected("'class' or 'impl'")
		}
	}
	return f, nil
}

func (p *Parser) next() {
	p.cur = p.peek
	p.peek = p.lexer.NextToken()
}

func (p *Parser) expect(t TokenType) (Token, error) {
	if p.cur.Type != t {
		return Token{}, p.unexpected(t.String())
	}
	tok := p.cur
	p.next()
	return tok, nil
}

func (p *Parser) unexpected(expected string) *ParseError {
	return &ParseError{File: p.file, Pos: p.cur.Pos, Found: p.cur.describe(), Expected: expected}
}

func (p *Parser) invalid(pos Position, found, expected string) *ParseError {
	return &ParseError{File: p.file, Pos: pos, Found: strconv.Quote(found), Expected: expected}
}

// class Calc = "io.example.Calc";
func (p *Parser) parseClass() (ClassDecl, error) {
	start, err := p.expect(TokenClass)
	if err != nil {
		return ClassDecl{}, err
	}
	typeTok, err := p.expect(TokenIdent)
	if err != nil {
		return ClassDecl{}, err
	}
	if _, err := p.expect(TokenAssign); err != nil {
		return ClassDecl{}, err
	}
	nameTok, err := p.expect(TokenString)
	if err != nil {
		return ClassDecl{}, err
	}
	name, err := strconv.Unquote(nameTok.Literal)
	if err != nil {
		return ClassDecl{}, p.invalid(nameTok.Pos, nameTok.Literal, "valid string literal")
	}
	if _, err := p.expect(TokenSemicolon); err != nil {
		return ClassDecl{}, err
	}
	return ClassDecl{Pos: start.Pos, TypeID: typeTok.Literal, QualifiedName: name}, nil
}

func (p *Parser) parseGroup() (*FunctionGroup, error) {
	start, err := p.expect(TokenImpl)
	if err != nil {
		return nil, err
	}
	typeTok, err := p.expect(TokenIdent)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenLBrace); err != nil {
		return nil, err
	}

	group := &FunctionGroup{Pos: start.Pos, TypeID: typeTok.Literal}
	seen := make(map[string]bool)
	for p.cur.Type == TokenFn || p.cur.Type == TokenPub {
		decl, err := p.parseDecl()
		if err != nil {
			return nil, err
		}
		goName := decl.GoName()
		if seen[goName] {
			return nil, p.invalid(decl.Pos, decl.Name, "unique function name")
		}
		seen[goName] = true
		group.Decls = append(group.Decls, decl)
	}

	if p.cur.Type == TokenRBrace {
		p.next()
		return group, nil
	}

	// Anything else ends declaration scanning; keep it up to the closing brace.
	if p.cur.Type == TokenEOF {
		return nil, p.unexpected("'}'")
	}
	trailingAt := p.cur.Pos
	text, ok := p.lexer.ScanBalanced(trailingAt)
	if !ok {
		return nil, &ParseError{File: p.file, Pos: trailingAt, Found: "end of input", Expected: "'}' closing impl " + group.TypeID}
	}
	group.Trailing = strings.TrimSpace(text)
	p.peek = p.lexer.NextToken()
	p.next()
	return group, nil
}

func (p *Parser) parseDecl() (FunctionDeclaration, error) {
	decl := FunctionDeclaration{Pos: p.cur.Pos, Doc: p.cur.Doc}

	if p.cur.Type == TokenPub {
		decl.Public = true
		p.next()
	}
	if _, err := p.expect(TokenFn); err != nil {
		return decl, err
	}

	nameTok, err := p.expect(TokenIdent)
	if err != nil {
		return decl, err
	}
	if err := p.checkIdent(nameTok, funcName); err != nil {
		return decl, err
	}
	decl.Name = nameTok.Literal

	if decl.Params, err = p.parseParams(); err != nil {
		return decl, err
	}

	if p.cur.Type == TokenArrow {
		p.next()
		ret, err := p.parseTypePath()
		if err != nil {
			return decl, err
		}
		decl.Return = &ret
	}

	switch p.cur.Type {
	case TokenSemicolon:
		p.next()
	case TokenLBrace:
		body, err := p.parseBody()
		if err != nil {
			return decl, err
		}
		decl.Body = body
	default:
		return decl, p.unexpected("';' or '{'")
	}
	return decl, nil
}

func (p *Parser) parseParams() ([]Parameter, error) {
	if _, err := p.expect(TokenLParen); err != nil {
		return nil, err
	}

	var params []Parameter
	seen := make(map[string]bool)
	for {
		param := Parameter{}
		if p.cur.Type == TokenMut {
			param.Mutable = true
			p.next()
		} else if p.cur.Type != TokenIdent {
			break
		}

		nameTok, err := p.expect(TokenIdent)
		if err != nil {
			return nil, err
		}
		if err := p.checkIdent(nameTok, paramName); err != nil {
			return nil, err
		}
		if seen[nameTok.Literal] {
			return nil, p.invalid(nameTok.Pos, nameTok.Literal, "unique parameter name")
		}
		seen[nameTok.Literal] = true
		param.Name = nameTok.Literal

		if _, err := p.expect(TokenColon); err != nil {
			return nil, err
		}
		if param.Type, err = p.parseTypePath(); err != nil {
			return nil, err
		}
		params = append(params, param)

		if p.cur.Type != TokenComma {
			break
		}
		p.next()
	}

	if _, err := p.expect(TokenRParen); err != nil {
		return nil, err
	}
	return params, nil
}

func (p *Parser) parseTypePath() (TypeRef, error) {
	first, err := p.expect(TokenIdent)
	if err != nil {
		return TypeRef{}, err
	}
	ref := TypeRef{Segments: []string{first.Literal}}
	for p.cur.Type == TokenPathSep {
		p.next()
		seg, err := p.expect(TokenIdent)
		if err != nil {
			return TypeRef{}, err
		}
		ref.Segments = append(ref.Segments, seg.Literal)
	}
	return ref, nil
}

// parseBody reads a brace-delimited Go body. The current token is '{'.
func (p *Parser) parseBody() (*Body, error) {
	open := p.cur.Pos
	after := Position{Offset: open.Offset + 1, Line: open.Line, Column: open.Column + 1}

	text, ok := p.lexer.ScanBalanced(after)
	if !ok {
		return nil, &ParseError{File: p.file, Pos: open, Found: "end of input", Expected: "'}' closing function body"}
	}
	p.peek = p.lexer.NextToken()
	p.next()

	stmts, err := splitStatements(text)
	if err != nil {
		return nil, bodyError(p.file, open, err)
	}
	return &Body{Statements: stmts}, nil
}

func (p *Parser) checkIdent(tok Token, what string) error {
	name := tok.Literal
	switch {
	case name == "_":
		return p.invalid(tok.Pos, name, what+" other than '_'")
	case gotoken.IsKeyword(name):
		return p.invalid(tok.Pos, name, what+" that is not a Go keyword")
	case what == paramName && types.Universe.Lookup(name) != nil:
		return p.invalid(tok.Pos, name, what+" that does not shadow a predeclared Go identifier")
	case strings.HasPrefix(name, ReservedPrefix) || reservedNames[name] || reservedNames[exported(name)]:
		return p.invalid(tok.Pos, name, what+" that is not reserved by the generator")
	}
	return nil
}

const (
	funcName  = "function name"
	paramName = "parameter name"
)

// GoName is the Go method name of the frontend definition: exported for
// pub declarations, unexported otherwise.
func (d *FunctionDeclaration) GoName() string {
	if d.Public {
		return exported(d.Name)
	}
	return unexported(d.Name)
}

func exported(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r)) + name[size:]
}

func unexported(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToLower(r)) + name[size:]
}
