package extract

import "fmt"

type TokenType int

const (
	EOF TokenType = iota
	NEWLINE
	INDENT
	DEDENT
	NAME
	NUMBER
	STRING
	OP
)

var tokenTypeNames = [...]string{
	EOF:     "EOF",
	NEWLINE: "NEWLINE",
	INDENT:  "INDENT",
	DEDENT:  "DEDENT",
	NAME:    "NAME",
	NUMBER:  "NUMBER",
	STRING:  "STRING",
	OP:      "OP",
}

func (t TokenType) String() string {
	if int(t) < len(tokenTypeNames) {
		return tokenTypeNames[t]
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token is one lexical unit. Pos and End are byte offsets into the source,
// EndLine differs from Line only for strings spanning several lines.
type Token struct {
	Type    TokenType
	Value   string
	Line    int
	Col     int
	EndLine int
	Pos     int
	End     int

	// Fields holds the tokens of each replacement field of an f-string.
	Fields [][]Token
}

func (t Token) isOp(v string) bool   { return t.Type == OP && t.Value == v }
func (t Token) isName(v string) bool { return t.Type == NAME && t.Value == v }

func (t Token) String() string {
	return fmt.Sprintf("%s %q %d:%d", t.Type, t.Value, t.Line, t.Col)
}

var keywords = map[string]bool{
	"False": true, "None": true, "True": true, "and": true, "as": true,
	"assert": true, "async": true, "await": true, "break": true, "class": true,
	"continue": true, "def": true, "del": true, "elif": true, "else": true,
	"except": true, "finally": true, "for": true, "from": true, "global": true,
	"if": true, "import": true, "in": true, "is": true, "lambda": true,
	"nonlocal": true, "not": true, "or": true, "pass": true, "raise": true,
	"return": true, "try": true, "while": true, "with": true, "yield": true,
}

// SyntaxError reports source that cannot be parsed. Line is 1-indexed.
type SyntaxError struct {
	Line int
	Col  int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at line %d: %s", e.Line, e.Msg)
}
