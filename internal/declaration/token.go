package declaration

import "fmt"

// TokenType is the kind of a declaration-language token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIllegal

	TokenIdent  // foo, Calc, i32
	TokenString // "io.example.Calc"

	// Keywords
	TokenImpl
	TokenFn
	TokenPub
	TokenMut
	TokenClass

	// Punctuation
	TokenLBrace    // {
	TokenRBrace    // }
	TokenLParen    // (
	TokenRParen    // )
	TokenComma     // ,
	TokenColon     // :
	TokenPathSep   // ::
	TokenArrow     // ->
	TokenSemicolon // ;
	TokenAssign    // =

	// TokenOther is any other character. The grammar never accepts it, but
	// trailing group content may contain it.
	TokenOther
)

var tokenNames = map[TokenType]string{
	TokenEOF:       "end of input",
	TokenIllegal:   "illegal token",
	TokenIdent:     "identifier",
	TokenString:    "string literal",
	TokenImpl:      "'impl'",
	TokenFn:        "'fn'",
	TokenPub:       "'pub'",
	TokenMut:       "'mut'",
	TokenClass:     "'class'",
	TokenLBrace:    "'{'",
	TokenRBrace:    "'}'",
	TokenLParen:    "'('",
	TokenRParen:    "')'",
	TokenComma:     "','",
	TokenColon:     "':'",
	TokenPathSep:   "'::'",
	TokenArrow:     "'->'",
	TokenSemicolon: "';'",
	TokenAssign:    "'='",
	TokenOther:     "character",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

var keywords = map[string]TokenType{
	"impl":  TokenImpl,
	"fn":    TokenFn,
	"pub":   TokenPub,
	"mut":   TokenMut,
	"class": TokenClass,
}

// Position is a location in declaration source.
type Position struct {
	Offset int // byte offset, 0-based
	Line   int // 1-based
	Column int // 1-based, in runes
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token is a lexed token.
type Token struct {
	Type    TokenType
	Literal string
	Pos     Position
	// Doc holds the "//" comment lines directly above the token.
	Doc []string
}

func (t Token) describe() string {
	switch t.Type {
	case TokenEOF:
		return "end of input"
	case TokenIllegal:
		return t.Literal
	}
	return fmt.Sprintf("%q", t.Literal)
}
