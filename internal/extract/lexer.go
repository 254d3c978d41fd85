package extract

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type lexer struct {
	src       string
	pos       int
	line      int
	lineStart int

	indents  []int
	brackets []Token
	tokens   []Token

	// pending is set once the current logical line has produced a token.
	pending   bool
	continued bool
}

var (
	ops3 = []string{"**=", "//=", ">>=", "<<=", "..."}
	ops2 = []string{
		"->", ":=", "==", "!=", "<=", ">=", "**", "//", "<<", ">>",
		"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "@=",
	}
)

const ops1 = "+-*/%@&|^~<>()[]{},:;.="

var closerFor = map[string]string{")": "(", "]": "[", "}": "{"}

// Tokenize splits Python source into tokens, synthesizing NEWLINE, INDENT
// and DEDENT the way the reference tokenizer does. Newlines inside brackets
// and after a backslash continuation do not end the logical line.
func Tokenize(src string) ([]Token, error) {
	lx := &lexer{src: src, line: 1, indents: []int{0}}
	if err := lx.run(); err != nil {
		return nil, err
	}
	return lx.tokens, nil
}

func (lx *lexer) run() error {
	for lx.pos < len(lx.src) {
		if len(lx.brackets) == 0 && !lx.continued {
			blank, err := lx.indentation()
			if err != nil {
				return err
			}
			if blank {
				continue
			}
		}
		lx.continued = false
		if err := lx.lineTokens(); err != nil {
			return err
		}
	}
	return lx.finish()
}

func (lx *lexer) errorf(line, col int, format string, args ...any) error {
	return &SyntaxError{Line: line, Col: col, Msg: fmt.Sprintf(format, args...)}
}

func (lx *lexer) newline() {
	lx.line++
	lx.lineStart = lx.pos
}

func (lx *lexer) emit(typ TokenType, start int) {
	lx.tokens = append(lx.tokens, Token{
		Type:    typ,
		Value:   lx.src[start:lx.pos],
		Line:    lx.line,
		Col:     start - lx.lineStart,
		EndLine: lx.line,
		Pos:     start,
		End:     lx.pos,
	})
	if typ != NEWLINE && typ != INDENT && typ != DEDENT {
		lx.pending = true
	}
}

// indentation measures the leading whitespace of a physical line. Blank and
// comment-only lines are consumed whole and reported as blank.
func (lx *lexer) indentation() (bool, error) {
	col := 0
	p := lx.pos
measure:
	for ; p < len(lx.src); p++ {
		switch lx.src[p] {
		case ' ':
			col++
		case '\t':
			col = (col/8 + 1) * 8
		case '\f':
			col = 0
		default:
			break measure
		}
	}
	if p >= len(lx.src) {
		lx.pos = p
		return true, nil
	}
	switch lx.src[p] {
	case '#':
		for p < len(lx.src) && lx.src[p] != '\n' {
			p++
		}
		fallthrough
	case '\r', '\n':
		for p < len(lx.src) && lx.src[p] == '\r' {
			p++
		}
		if p < len(lx.src) && lx.src[p] == '\n' {
			p++
			lx.pos = p
			lx.newline()
			return true, nil
		}
		if p >= len(lx.src) {
			lx.pos = p
			return true, nil
		}
	}

	lx.pos = p
	top := lx.indents[len(lx.indents)-1]
	switch {
	case col > top:
		lx.indents = append(lx.indents, col)
		lx.tokens = append(lx.tokens, Token{Type: INDENT, Line: lx.line, EndLine: lx.line, Pos: p, End: p})
	case col < top:
		for col < lx.indents[len(lx.indents)-1] {
			lx.indents = lx.indents[:len(lx.indents)-1]
			lx.tokens = append(lx.tokens, Token{Type: DEDENT, Line: lx.line, EndLine: lx.line, Pos: p, End: p})
		}
		if col != lx.indents[len(lx.indents)-1] {
			return false, lx.errorf(lx.line, col, "unindent does not match any outer indentation level")
		}
	}
	return false, nil
}

// lineTokens scans one physical line up to and including its newline.
func (lx *lexer) lineTokens() error {
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\f' || c == '\r':
			lx.pos++

		case c == '#':
			for lx.pos < len(lx.src) && lx.src[lx.pos] != '\n' {
				lx.pos++
			}

		case c == '\n':
			if len(lx.brackets) == 0 && lx.pending {
				lx.pos++
				lx.tokens = append(lx.tokens, Token{Type: NEWLINE, Value: "\n", Line: lx.line, Col: lx.pos - 1 - lx.lineStart, EndLine: lx.line, Pos: lx.pos - 1, End: lx.pos})
				lx.pending = false
			} else {
				lx.pos++
			}
			lx.newline()
			return nil

		case c == '\\':
			p := lx.pos + 1
			for p < len(lx.src) && lx.src[p] == '\r' {
				p++
			}
			if p < len(lx.src) && lx.src[p] == '\n' {
				lx.pos = p + 1
				lx.newline()
				lx.continued = true
				return nil
			}
			if p >= len(lx.src) {
				return lx.errorf(lx.line, lx.pos-lx.lineStart, "unexpected EOF while parsing")
			}
			return lx.errorf(lx.line, lx.pos-lx.lineStart, "unexpected character after line continuation character")

		case c == '\'' || c == '"':
			if err := lx.scanString(lx.pos, ""); err != nil {
				return err
			}

		case isDigit(c) || (c == '.' && lx.pos+1 < len(lx.src) && isDigit(lx.src[lx.pos+1])):
			lx.scanNumber()

		default:
			r, size := utf8.DecodeRuneInString(lx.src[lx.pos:])
			if isIdentStart(r) {
				if err := lx.scanName(); err != nil {
					return err
				}
				continue
			}
			if err := lx.scanOp(r, size); err != nil {
				return err
			}
		}
	}
	return nil
}

func (lx *lexer) finish() error {
	if len(lx.brackets) > 0 {
		open := lx.brackets[len(lx.brackets)-1]
		return lx.errorf(open.Line, open.Col, "'%s' was never closed", open.Value)
	}
	if lx.continued {
		return lx.errorf(lx.line, 0, "unexpected EOF while parsing")
	}
	if lx.pending {
		lx.tokens = append(lx.tokens, Token{Type: NEWLINE, Line: lx.line, EndLine: lx.line, Pos: lx.pos, End: lx.pos})
		lx.pending = false
	}
	for len(lx.indents) > 1 {
		lx.indents = lx.indents[:len(lx.indents)-1]
		lx.tokens = append(lx.tokens, Token{Type: DEDENT, Line: lx.line, EndLine: lx.line, Pos: lx.pos, End: lx.pos})
	}
	lx.tokens = append(lx.tokens, Token{Type: EOF, Line: lx.line, EndLine: lx.line, Pos: lx.pos, End: lx.pos})
	return nil
}

func (lx *lexer) scanName() error {
	start := lx.pos
	for lx.pos < len(lx.src) {
		r, size := utf8.DecodeRuneInString(lx.src[lx.pos:])
		if !isIdentPart(r) {
			break
		}
		lx.pos += size
	}
	name := lx.src[start:lx.pos]
	if lx.pos < len(lx.src) && (lx.src[lx.pos] == '\'' || lx.src[lx.pos] == '"') && isStringPrefix(name) {
		return lx.scanString(start, strings.ToLower(name))
	}
	lx.emit(NAME, start)
	return nil
}

func isStringPrefix(s string) bool {
	switch strings.ToLower(s) {
	case "r", "u", "b", "br", "rb", "f", "fr", "rf", "t", "tr", "rt":
		return true
	}
	return false
}

// scanString scans a string literal whose prefix (possibly empty) starts at
// start and whose opening quote is at lx.pos.
func (lx *lexer) scanString(start int, prefix string) error {
	q := lx.src[lx.pos]
	startLine, startCol := lx.line, start-lx.lineStart
	delim := string(q)
	if strings.HasPrefix(lx.src[lx.pos:], strings.Repeat(delim, 3)) {
		delim = strings.Repeat(delim, 3)
	}
	triple := len(delim) == 3
	lx.pos += len(delim)
	bodyStart := lx.pos
	bodyEnd := -1

	for bodyEnd < 0 {
		if lx.pos >= len(lx.src) {
			if triple {
				return lx.errorf(startLine, startCol, "unterminated triple-quoted string literal (detected at line %d)", lx.line)
			}
			return lx.errorf(startLine, startCol, "unterminated string literal (detected at line %d)", startLine)
		}
		c := lx.src[lx.pos]
		switch {
		case c == '\\':
			lx.pos++
			if lx.pos < len(lx.src) {
				lx.pos++
				if lx.src[lx.pos-1] == '\n' {
					lx.newline()
				}
			}
		case c == '\n':
			if !triple {
				return lx.errorf(startLine, startCol, "unterminated string literal (detected at line %d)", startLine)
			}
			lx.pos++
			lx.newline()
		case c == q && strings.HasPrefix(lx.src[lx.pos:], delim):
			bodyEnd = lx.pos
			lx.pos += len(delim)
		default:
			lx.pos++
		}
	}

	tok := Token{
		Type:    STRING,
		Value:   lx.src[start:lx.pos],
		Line:    startLine,
		Col:     startCol,
		EndLine: lx.line,
		Pos:     start,
		End:     lx.pos,
	}
	if strings.ContainsAny(prefix, "ft") {
		tok.Fields = fstringFields(lx.src[bodyStart:bodyEnd])
	}
	lx.tokens = append(lx.tokens, tok)
	lx.pending = true
	return nil
}

func (lx *lexer) scanNumber() {
	start := lx.pos
	hex := strings.HasPrefix(strings.ToLower(lx.src[start:min(start+2, len(lx.src))]), "0x")
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		if !hex && (c == 'e' || c == 'E') && lx.pos+1 < len(lx.src) && (lx.src[lx.pos+1] == '+' || lx.src[lx.pos+1] == '-') {
			lx.pos += 2
			continue
		}
		if isDigit(c) || isASCIILetter(c) || c == '_' || c == '.' {
			lx.pos++
			continue
		}
		break
	}
	lx.emit(NUMBER, start)
}

func (lx *lexer) scanOp(r rune, size int) error {
	start := lx.pos
	rest := lx.src[lx.pos:]
	for _, group := range [][]string{ops3, ops2} {
		for _, op := range group {
			if strings.HasPrefix(rest, op) {
				lx.pos += len(op)
				lx.emit(OP, start)
				return nil
			}
		}
	}
	if r >= utf8.RuneSelf {
		return lx.errorf(lx.line, start-lx.lineStart, "invalid character '%c' (U+%04X)", r, r)
	}
	if !strings.ContainsRune(ops1, r) {
		return lx.errorf(lx.line, start-lx.lineStart, "invalid syntax")
	}
	lx.pos += size
	lx.emit(OP, start)

	tok := lx.tokens[len(lx.tokens)-1]
	switch tok.Value {
	case "(", "[", "{":
		lx.brackets = append(lx.brackets, tok)
	case ")", "]", "}":
		if len(lx.brackets) == 0 {
			return lx.errorf(tok.Line, tok.Col, "unmatched '%s'", tok.Value)
		}
		open := lx.brackets[len(lx.brackets)-1]
		if closerFor[tok.Value] != open.Value {
			if open.Line != tok.Line {
				return lx.errorf(tok.Line, tok.Col, "closing parenthesis '%s' does not match opening parenthesis '%s' on line %d", tok.Value, open.Value, open.Line)
			}
			return lx.errorf(tok.Line, tok.Col, "closing parenthesis '%s' does not match opening parenthesis '%s'", tok.Value, open.Value)
		}
		lx.brackets = lx.brackets[:len(lx.brackets)-1]
	}
	return nil
}

// fstringFields lexes the expressions of an f-string body's replacement
// fields, including fields nested in format specs. Fields that do not lex
// are skipped.
func fstringFields(body string) [][]Token {
	var fields [][]Token
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '{':
			if i+1 < len(body) && body[i+1] == '{' {
				i++
				continue
			}
			expr, spec, end, ok := replacementField(body, i+1)
			if !ok {
				return fields
			}
			if toks := fragmentTokens(expr); len(toks) > 0 {
				fields = append(fields, toks)
			}
			fields = append(fields, fstringFields(spec)...)
			i = end
		case '}':
			if i+1 < len(body) && body[i+1] == '}' {
				i++
			}
		}
	}
	return fields
}

// replacementField scans from just after '{' to the matching '}' and splits
// the field into its expression and its conversion/format spec.
func replacementField(body string, i int) (expr, spec string, end int, ok bool) {
	depth := 0
	exprEnd := -1
	for j := i; j < len(body); j++ {
		switch c := body[j]; c {
		case '\'', '"':
			k := strings.IndexByte(body[j+1:], c)
			if k < 0 {
				return "", "", 0, false
			}
			j += k + 1
		case '(', '[', '{':
			depth++
		case ')', ']':
			depth--
		case '}':
			if depth > 0 {
				depth--
				continue
			}
			if exprEnd < 0 {
				return body[i:j], "", j, true
			}
			return body[i:exprEnd], body[exprEnd+1 : j], j, true
		case '!':
			if depth == 0 && exprEnd < 0 && (j+1 >= len(body) || body[j+1] != '=') {
				exprEnd = j
			}
		case ':':
			if depth == 0 && exprEnd < 0 {
				exprEnd = j
			}
		}
	}
	return "", "", 0, false
}

func fragmentTokens(expr string) []Token {
	toks, err := Tokenize("(" + expr + ")")
	if err != nil || len(toks) < 2 {
		return nil
	}
	out := make([]Token, 0, len(toks))
	for _, t := range toks {
		if t.Type == NAME || t.Type == NUMBER || t.Type == STRING || t.Type == OP {
			out = append(out, t)
		}
	}
	if len(out) < 2 {
		return nil
	}
	return out[1 : len(out)-1]
}

func isDigit(c byte) bool       { return c >= '0' && c <= '9' }
func isASCIILetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r) || unicode.Is(unicode.Mc, r)
}
