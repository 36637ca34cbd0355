package declaration

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Lexer tokenizes declaration source. Besides ordinary tokens it can scan
// a raw brace-balanced region, which is how Go function bodies are read.
type Lexer struct {
	input   string
	pos     int  // offset of ch
	readPos int  // offset after ch
	ch      rune // current character, 0 at EOF
	line    int
	col     int

	comments []comment
}

type comment struct {
	text string
	line int
}

// NewLexer creates a lexer over input.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input, line: 1}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		if l.ch != 0 {
			l.col++
		}
		l.ch = 0
		l.pos = len(l.input)
		return
	}

	if l.ch == '\n' {
		l.line++
		l.col = 0
	}

	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	l.ch = r
	l.pos = l.readPos
	l.readPos += size
	l.col++
}

func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

func (l *Lexer) position() Position {
	return Position{Offset: l.pos, Line: l.line, Column: l.col}
}

// seek moves the lexer so that the character at p is current.
func (l *Lexer) seek(p Position) {
	l.readPos = p.Offset
	l.line = p.Line
	l.col = p.Column - 1
	l.ch = 0
	l.readChar()
	l.comments = nil
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	pos := l.position()
	tok := Token{Pos: pos, Doc: l.takeDoc(pos.Line)}

	switch {
	case l.ch == 0:
		tok.Type = TokenEOF
		return tok
	case isIdentStart(l.ch):
		tok.Literal = l.readIdent()
		if kw, ok := keywords[tok.Literal]; ok {
			tok.Type = kw
		} else {
			tok.Type = TokenIdent
		}
		return tok
	case l.ch == '"':
		lit, ok := l.readQuoted('"')
		tok.Literal = lit
		tok.Type = TokenString
		if !ok {
			tok.Type = TokenIllegal
			tok.Literal = "unterminated string literal"
		}
		return tok
	}

	ch := l.ch
	l.readChar()
	tok.Literal = string(ch)
	switch ch {
	case '{':
		tok.Type = TokenLBrace
	case '}':
		tok.Type = TokenRBrace
	case '(':
		tok.Type = TokenLParen
	case ')':
		tok.Type = TokenRParen
	case ',':
		tok.Type = TokenComma
	case ';':
		tok.Type = TokenSemicolon
	case '=':
		tok.Type = TokenAssign
	case ':':
		tok.Type = TokenColon
		if l.ch == ':' {
			l.readChar()
			tok.Type = TokenPathSep
			tok.Literal = "::"
		}
	case '-':
		tok.Type = TokenOther
		if l.ch == '>' {
			l.readChar()
			tok.Type = TokenArrow
			tok.Literal = "->"
		}
	default:
		tok.Type = TokenOther
	}
	return tok
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch {
		case unicode.IsSpace(l.ch):
			l.readChar()
		case l.ch == '/' && l.peekChar() == '/':
			line := l.line
			start := l.pos + 2
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			text := strings.TrimSpace(l.input[start:l.pos])
			l.comments = append(l.comments, comment{text: text, line: line})
		case l.ch == '/' && l.peekChar() == '*':
			l.readChar()
			l.readChar()
			for l.ch != 0 && (l.ch != '*' || l.peekChar() != '/') {
				l.readChar()
			}
			if l.ch != 0 {
				l.readChar()
				l.readChar()
			}
		default:
			return
		}
	}
}

// takeDoc returns the contiguous run of line comments ending on the line
// above tokenLine, and forgets all pending comments.
func (l *Lexer) takeDoc(tokenLine int) []string {
	pending := l.comments
	l.comments = nil

	var doc []string
	want := tokenLine - 1
	for i := len(pending) - 1; i >= 0; i-- {
		if pending[i].line != want {
			break
		}
		doc = append([]string{pending[i].text}, doc...)
		want--
	}
	return doc
}

func (l *Lexer) readIdent() string {
	start := l.pos
	for isIdentStart(l.ch) || unicode.IsDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readQuoted reads a quoted literal starting at the opening quote and
// returns it including quotes. Backslash escapes are skipped.
func (l *Lexer) readQuoted(quote rune) (string, bool) {
	start := l.pos
	l.readChar()
	for l.ch != quote {
		if l.ch == 0 || l.ch == '\n' {
			return l.input[start:l.pos], false
		}
		if l.ch == '\\' {
			l.readChar()
			if l.ch == 0 {
				return l.input[start:l.pos], false
			}
		}
		l.readChar()
	}
	l.readChar()
	return l.input[start:l.pos], true
}

// ScanBalanced reads raw source starting at from, at brace depth 1, up to
// the matching '}'. It returns the text before that brace and leaves the
// lexer just after it. Go string, rune and raw string literals and
// comments are skipped so braces inside them do not count.
func (l *Lexer) ScanBalanced(from Position) (string, bool) {
	l.seek(from)
	start := l.pos
	depth := 1

	for l.ch != 0 {
		switch {
		case l.ch == '{':
			depth++
		case l.ch == '}':
			depth--
			if depth == 0 {
				text := l.input[start:l.pos]
				l.readChar()
				return text, true
			}
		case l.ch == '"' || l.ch == '\'':
			if _, ok := l.readQuoted(l.ch); !ok {
				return "", false
			}
			continue
		case l.ch == '`':
			l.readChar()
			for l.ch != '`' && l.ch != 0 {
				l.readChar()
			}
			if l.ch == 0 {
				return "", false
			}
		case l.ch == '/' && l.peekChar() == '/':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		case l.ch == '/' && l.peekChar() == '*':
			l.readChar()
			l.readChar()
			for l.ch != 0 && (l.ch != '*' || l.peekChar() != '/') {
				l.readChar()
			}
			if l.ch == 0 {
				return "", false
			}
			l.readChar()
		}
		l.readChar()
	}
	return "", false
}

func isIdentStart(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}
