package extract

import (
	"fmt"
	"strings"
)

var compoundKeywords = map[string]bool{
	"if": true, "elif": true, "else": true, "for": true, "while": true,
	"try": true, "except": true, "finally": true, "with": true,
}

type parser struct {
	src  string
	toks []Token
	i    int

	// last is the most recent token that carries source text.
	last Token
}

// Parse builds the statement tree of src. Expressions are not parsed beyond
// what is needed to find definitions, imports and call sites.
func Parse(src string) (*Module, error) {
	toks, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, toks: toks}

	var body []Stmt
	var chain clauseChain
	for p.peek().Type != EOF {
		if p.peek().Type == DEDENT {
			p.next()
			continue
		}
		stmts, err := p.statement()
		if err != nil {
			return nil, err
		}
		if err := chain.add(stmts); err != nil {
			return nil, err
		}
		body = append(body, stmts...)
	}
	if err := chain.end(p.peek().Line); err != nil {
		return nil, err
	}
	return &Module{Body: body}, nil
}

func (p *parser) peek() Token { return p.peekAt(0) }

func (p *parser) peekAt(n int) Token {
	if p.i+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.i+n]
}

func (p *parser) next() Token {
	t := p.toks[p.i]
	if p.i < len(p.toks)-1 {
		p.i++
	}
	switch t.Type {
	case NAME, NUMBER, STRING, OP:
		p.last = t
	}
	return t
}

func (p *parser) errorAt(t Token, format string, args ...any) error {
	return &SyntaxError{Line: t.Line, Col: t.Col, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) statement() ([]Stmt, error) {
	t := p.peek()
	switch {
	case t.Type == INDENT:
		return nil, p.errorAt(t, "unexpected indent")
	case t.Type == NEWLINE:
		p.next()
		return nil, nil
	case t.isOp("@"):
		return p.decorated()
	case t.isName("def"):
		return p.one(p.funcDef(nil, t))
	case t.isName("class"):
		return p.one(p.classDef(nil))
	case t.isName("async"):
		switch n := p.peekAt(1); {
		case n.isName("def"):
			return p.one(p.funcDef(nil, t))
		case n.isName("for"), n.isName("with"):
			return p.one(p.compound())
		}
	case t.Type == NAME && compoundKeywords[t.Value]:
		return p.one(p.compound())
	case (t.isName("match") || t.isName("case")) && p.softCompound():
		return p.one(p.compound())
	}
	return p.simpleStatements()
}

func (p *parser) one(s Stmt, err error) ([]Stmt, error) {
	if err != nil {
		return nil, err
	}
	return []Stmt{s}, nil
}

// softCompound reports whether the logical line starting at the cursor ends
// in ':' and opens an indented block, which is what separates a match or case
// statement from an expression using those names.
func (p *parser) softCompound() bool {
	j := p.i
	for j < len(p.toks) && p.toks[j].Type != NEWLINE && p.toks[j].Type != EOF {
		j++
	}
	if j == p.i+1 || j >= len(p.toks)-1 || p.toks[j].Type != NEWLINE {
		return false
	}
	return p.toks[j-1].isOp(":") && p.toks[j+1].Type == INDENT
}

func (p *parser) decorated() ([]Stmt, error) {
	var header []CallExpr
	for p.peek().isOp("@") {
		at := p.next()
		var expr []Token
		for p.peek().Type != NEWLINE && p.peek().Type != EOF {
			expr = append(expr, p.next())
		}
		if len(expr) == 0 {
			return nil, p.errorAt(at, "invalid syntax")
		}
		if err := p.checkExpr(expr, false); err != nil {
			return nil, err
		}
		header = append(header, callsIn(expr)...)
		p.next()
	}

	t := p.peek()
	switch {
	case t.isName("def"):
		return p.one(p.funcDef(header, t))
	case t.isName("async") && p.peekAt(1).isName("def"):
		return p.one(p.funcDef(header, t))
	case t.isName("class"):
		return p.one(p.classDef(header))
	}
	return nil, p.errorAt(t, "invalid syntax")
}

// funcDef parses a def statement. start is the first token of the
// definition, either 'def' or 'async'.
func (p *parser) funcDef(header []CallExpr, start Token) (Stmt, error) {
	fn := &FuncDef{Line: start.Line, Header: header}
	if start.isName("async") {
		fn.Async = true
		p.next()
	}
	p.next()

	name := p.next()
	if name.Type != NAME || keywords[name.Value] {
		return nil, p.errorAt(name, "invalid syntax")
	}
	fn.Name = name.Value

	if p.peek().isOp("[") {
		p.bracketed()
	}
	if !p.peek().isOp("(") {
		return nil, p.errorAt(p.peek(), "expected '('")
	}
	params, calls, err := p.params(p.bracketed())
	if err != nil {
		return nil, err
	}
	fn.Params = params
	fn.Header = append(fn.Header, calls...)

	if p.peek().isOp("->") {
		p.next()
		returns := p.untilColon()
		if len(returns) == 0 {
			return nil, p.errorAt(p.peek(), "invalid syntax")
		}
		fn.Returns = p.text(returns)
		fn.Header = append(fn.Header, callsIn(returns)...)
	}
	if !p.peek().isOp(":") {
		return nil, p.errorAt(p.peek(), "expected ':'")
	}
	p.next()

	body, err := p.suite(fmt.Sprintf("function definition on line %d", start.Line))
	if err != nil {
		return nil, err
	}
	fn.Body = body
	fn.EndLine = p.last.EndLine
	return fn, nil
}

func (p *parser) classDef(header []CallExpr) (Stmt, error) {
	kw := p.next()
	cls := &ClassDef{Line: kw.Line, Header: header}

	name := p.next()
	if name.Type != NAME || keywords[name.Value] {
		return nil, p.errorAt(name, "invalid syntax")
	}
	cls.Name = name.Value

	if p.peek().isOp("[") {
		p.bracketed()
	}
	if p.peek().isOp("(") {
		cls.Header = append(cls.Header, callsIn(p.bracketed())...)
	}
	if !p.peek().isOp(":") {
		return nil, p.errorAt(p.peek(), "expected ':'")
	}
	p.next()

	body, err := p.suite(fmt.Sprintf("class definition on line %d", kw.Line))
	if err != nil {
		return nil, err
	}
	cls.Body = body
	cls.EndLine = p.last.EndLine
	return cls, nil
}

func (p *parser) compound() (Stmt, error) {
	kw := p.next()
	if kw.isName("async") {
		kw = p.next()
	}
	s := &OtherStmt{Keyword: kw.Value, Line: kw.Line}

	header := p.untilColon()
	if !p.peek().isOp(":") {
		return nil, p.errorAt(p.peek(), "expected ':'")
	}
	if err := p.checkHeader(kw, p.next(), header); err != nil {
		return nil, err
	}

	if kw.Value == "case" {
		header = guard(header)
	}
	s.Calls = callsIn(header)

	body, err := p.suite(fmt.Sprintf("'%s' statement on line %d", kw.Value, kw.Line))
	if err != nil {
		return nil, err
	}
	s.Body = body
	s.EndLine = p.last.EndLine
	return s, nil
}

// guard returns the tokens after a case pattern's top-level 'if'. Patterns
// such as Point(x=0) match structure and are not calls.
func guard(header []Token) []Token {
	depth := 0
	for i, t := range header {
		switch {
		case t.isOp("(") || t.isOp("[") || t.isOp("{"):
			depth++
		case t.isOp(")") || t.isOp("]") || t.isOp("}"):
			depth--
		case depth == 0 && t.isName("if"):
			return header[i+1:]
		}
	}
	return nil
}

// suite parses the body after a compound header's ':', either an indented
// block or simple statements on the same line.
func (p *parser) suite(what string) ([]Stmt, error) {
	if p.peek().Type != NEWLINE {
		if p.peek().Type == EOF {
			return nil, p.errorAt(p.peek(), "expected an indented block after %s", what)
		}
		return p.simpleStatements()
	}
	p.next()
	if p.peek().Type != INDENT {
		return nil, p.errorAt(p.peek(), "expected an indented block after %s", what)
	}
	p.next()

	var body []Stmt
	var chain clauseChain
	for {
		switch t := p.peek(); t.Type {
		case DEDENT, EOF:
			if err := chain.end(t.Line); err != nil {
				return nil, err
			}
			if t.Type == DEDENT {
				p.next()
			}
			return body, nil
		}
		stmts, err := p.statement()
		if err != nil {
			return nil, err
		}
		if err := chain.add(stmts); err != nil {
			return nil, err
		}
		body = append(body, stmts...)
	}
}

func (p *parser) simpleStatements() ([]Stmt, error) {
	var stmts []Stmt
	var piece []Token
	depth := 0

	flush := func(sep Token) error {
		if len(piece) == 0 {
			return p.errorAt(sep, "invalid syntax")
		}
		s, err := p.simple(piece)
		if err != nil {
			return err
		}
		stmts = append(stmts, s)
		piece = nil
		return nil
	}

	for {
		t := p.peek()
		if t.Type == NEWLINE || t.Type == EOF {
			p.next()
			if len(piece) > 0 {
				if err := flush(t); err != nil {
					return nil, err
				}
			}
			return stmts, nil
		}
		if t.Type != NAME && t.Type != NUMBER && t.Type != STRING && t.Type != OP {
			return nil, p.errorAt(t, "invalid syntax")
		}
		p.next()
		switch {
		case t.isOp("(") || t.isOp("[") || t.isOp("{"):
			depth++
		case t.isOp(")") || t.isOp("]") || t.isOp("}"):
			depth--
		case depth == 0 && t.isOp(";"):
			if err := flush(t); err != nil {
				return nil, err
			}
			continue
		}
		piece = append(piece, t)
	}
}

func (p *parser) simple(toks []Token) (Stmt, error) {
	first, last := toks[0], toks[len(toks)-1]
	if first.isName("import") || first.isName("from") {
		return p.importStmt(toks)
	}
	if err := p.checkExpr(toks, true); err != nil {
		return nil, err
	}
	return &OtherStmt{
		Keyword: first.Value,
		Line:    first.Line,
		EndLine: last.EndLine,
		Calls:   callsIn(toks),
	}, nil
}

// bracketed consumes a bracketed group starting at the cursor and returns
// the tokens between the brackets. The lexer guarantees balance.
func (p *parser) bracketed() []Token {
	p.next()
	var inner []Token
	depth := 0
	for {
		t := p.next()
		switch {
		case t.Type == EOF:
			return inner
		case t.isOp("(") || t.isOp("[") || t.isOp("{"):
			depth++
		case t.isOp(")") || t.isOp("]") || t.isOp("}"):
			if depth == 0 {
				return inner
			}
			depth--
		}
		inner = append(inner, t)
	}
}

// untilColon collects the tokens of a header up to its top-level ':'. Colons
// belonging to lambdas or nested in brackets are part of the header.
func (p *parser) untilColon() []Token {
	var toks []Token
	depth, lambdas := 0, 0
	for {
		t := p.peek()
		if t.Type == NEWLINE || t.Type == EOF {
			return toks
		}
		switch {
		case t.isOp("(") || t.isOp("[") || t.isOp("{"):
			depth++
		case t.isOp(")") || t.isOp("]") || t.isOp("}"):
			depth--
		case depth == 0 && t.isName("lambda"):
			lambdas++
		case depth == 0 && t.isOp(":"):
			if lambdas == 0 {
				return toks
			}
			lambdas--
		}
		toks = append(toks, p.next())
	}
}

// params splits a parameter list into named parameters and collects the
// calls made by annotations and defaults. The '/' and bare '*' markers carry
// no name and are dropped.
func (p *parser) params(toks []Token) ([]Param, []CallExpr, error) {
	var params []Param
	var calls []CallExpr
	for _, piece := range splitTop(toks, ",") {
		if len(piece) == 0 {
			continue
		}
		var param Param
		i := 0
		if piece[0].isOp("*") || piece[0].isOp("**") {
			param.Stars = piece[0].Value
			i++
		}
		if i == len(piece) && param.Stars == "*" {
			continue
		}
		if piece[0].isOp("/") && len(piece) == 1 {
			continue
		}
		if i >= len(piece) || piece[i].Type != NAME || keywords[piece[i].Value] {
			at := piece[0]
			if i < len(piece) {
				at = piece[i]
			}
			return nil, nil, p.errorAt(at, "invalid syntax")
		}
		param.Name = piece[i].Value
		rest := piece[i+1:]

		if len(rest) > 0 && rest[0].isOp(":") {
			ann := rest[1:]
			if j := indexTop(ann, "="); j >= 0 {
				rest = ann[j:]
				ann = ann[:j]
			} else {
				rest = nil
			}
			if len(ann) == 0 {
				return nil, nil, p.errorAt(piece[i], "invalid syntax")
			}
			param.Annotation = p.text(ann)
			calls = append(calls, callsIn(ann)...)
		}
		if len(rest) > 0 {
			if !rest[0].isOp("=") || len(rest) == 1 {
				return nil, nil, p.errorAt(rest[0], "invalid syntax")
			}
			calls = append(calls, callsIn(rest[1:])...)
		}
		params = append(params, param)
	}
	return params, calls, nil
}

// text renders tokens as they appear in the source. Tokens on different
// lines are joined by a single space, or by nothing next to a bracket.
func (p *parser) text(toks []Token) string {
	var b strings.Builder
	for i, t := range toks {
		if i > 0 {
			prev := toks[i-1]
			switch {
			case prev.EndLine == t.Line:
				b.WriteString(p.src[prev.End:t.Pos])
			case prev.isOp("(") || prev.isOp("[") || prev.isOp("{"):
			case t.isOp(")") || t.isOp("]") || t.isOp("}") || t.isOp(","):
			default:
				b.WriteByte(' ')
			}
		}
		b.WriteString(t.Value)
	}
	return b.String()
}

// callsIn returns the call sites among toks in source order, including those
// inside f-string replacement fields. A call is a name directly followed by
// '(', or a parenthesized lone name; for a dotted callee that name is the
// final attribute.
func callsIn(toks []Token) []CallExpr {
	var calls []CallExpr
	for i, t := range toks {
		if t.Type == STRING {
			for _, field := range t.Fields {
				calls = append(calls, callsIn(field)...)
			}
			continue
		}
		if !t.isOp("(") || i == 0 {
			continue
		}
		callee := toks[i-1]
		if callee.isOp(")") && i >= 3 && toks[i-3].isOp("(") && (i == 3 || !endsOperand(toks[i-4])) {
			callee = toks[i-2]
		}
		if callee.Type != NAME || keywords[callee.Value] {
			continue
		}
		calls = append(calls, CallExpr{Name: callee.Value, Line: callee.Line})
	}
	return calls
}

// endsOperand reports whether t can close an operand, making a following
// '(' a call rather than a group.
func endsOperand(t Token) bool {
	return (isOperand(t) && !t.isOp("...")) || t.isOp(")") || t.isOp("]") || t.isOp("}")
}

func splitTop(toks []Token, sep string) [][]Token {
	var out [][]Token
	depth, start := 0, 0
	for i, t := range toks {
		switch {
		case t.isOp("(") || t.isOp("[") || t.isOp("{"):
			depth++
		case t.isOp(")") || t.isOp("]") || t.isOp("}"):
			depth--
		case depth == 0 && t.isOp(sep):
			out = append(out, toks[start:i])
			start = i + 1
		}
	}
	return append(out, toks[start:])
}

func indexTop(toks []Token, op string) int {
	depth := 0
	for i, t := range toks {
		switch {
		case t.isOp("(") || t.isOp("[") || t.isOp("{"):
			depth++
		case t.isOp(")") || t.isOp("]") || t.isOp("}"):
			depth--
		case depth == 0 && t.isOp(op):
			return i
		}
	}
	return -1
}
