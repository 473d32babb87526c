package lexer

import "fmt"

// TokenType identifies the lexical class of a token.
type TokenType int

const (
	EOF TokenType = iota
	NEWLINE
	INDENT
	DEDENT

	IDENT
	INT
	FLOAT
	STRING

	// Operators
	PLUS     // +
	MINUS    // -
	STAR     // *
	SLASH    // /
	ASSIGN   // =
	PLUSEQ   // +=
	MINUSEQ  // -=
	STAREQ   // *=
	SLASHEQ  // /=
	EQ       // ==
	NEQ      // !=
	LT       // <
	LTE      // <=
	GT       // >
	GTE      // >=
	DOT      // .
	COMMA    // ,
	COLON    // :
	LPAREN   // (
	RPAREN   // )
	LBRACKET // [
	RBRACKET // ]
	LBRACE   // {
	RBRACE   // }

	// Keywords
	KwIf
	KwElif
	KwElse
	KwWhile
	KwFor
	KwIn
	KwDef
	KwClass
	KwReturn
	KwPass
	KwTrue
	KwFalse
	KwNone
	KwImport
	KwFrom
)

var tokenNames = map[TokenType]string{
	EOF:      "EOF",
	NEWLINE:  "NEWLINE",
	INDENT:   "INDENT",
	DEDENT:   "DEDENT",
	IDENT:    "IDENT",
	INT:      "INT",
	FLOAT:    "FLOAT",
	STRING:   "STRING",
	PLUS:     "+",
	MINUS:    "-",
	STAR:     "*",
	SLASH:    "/",
	ASSIGN:   "=",
	PLUSEQ:   "+=",
	MINUSEQ:  "-=",
	STAREQ:   "*=",
	SLASHEQ:  "/=",
	EQ:       "==",
	NEQ:      "!=",
	LT:       "<",
	LTE:      "<=",
	GT:       ">",
	GTE:      ">=",
	DOT:      ".",
	COMMA:    ",",
	COLON:    ":",
	LPAREN:   "(",
	RPAREN:   ")",
	LBRACKET: "[",
	RBRACKET: "]",
	LBRACE:   "{",
	RBRACE:   "}",
	KwIf:     "if",
	KwElif:   "elif",
	KwElse:   "else",
	KwWhile:  "while",
	KwFor:    "for",
	KwIn:     "in",
	KwDef:    "def",
	KwClass:  "class",
	KwReturn: "return",
	KwPass:   "pass",
	KwTrue:   "True",
	KwFalse:  "False",
	KwNone:   "None",
	KwImport: "import",
	KwFrom:   "from",
}

var keywords = map[string]TokenType{
	"if":     KwIf,
	"elif":   KwElif,
	"else":   KwElse,
	"while":  KwWhile,
	"for":    KwFor,
	"in":     KwIn,
	"def":    KwDef,
	"class":  KwClass,
	"return": KwReturn,
	"pass":   KwPass,
	"True":   KwTrue,
	"False":  KwFalse,
	"None":   KwNone,
	"import": KwImport,
	"from":   KwFrom,
}

func (t TokenType) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// IsKeyword returns true for keyword token types.
func (t TokenType) IsKeyword() bool {
	return t >= KwIf && t <= KwFrom
}

// Token is a single lexical unit with its source position.
type Token struct {
	Type    TokenType
	Literal string
	Line    int // 1-based
	Col     int // 1-based, column of the first character
}

func (t Token) String() string {
	switch t.Type {
	case IDENT, INT, FLOAT, STRING:
		return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
	default:
		return t.Type.String()
	}
}
