package extract

import "strings"

type tokenReader struct {
	toks []Token
	i    int
}

func (r *tokenReader) done() bool { return r.i >= len(r.toks) }

func (r *tokenReader) peek() Token {
	if r.done() {
		last := r.toks[len(r.toks)-1]
		return Token{Type: NEWLINE, Line: last.EndLine, Col: last.End - last.Pos + last.Col}
	}
	return r.toks[r.i]
}

func (r *tokenReader) next() Token {
	t := r.peek()
	r.i++
	return t
}

func (r *tokenReader) dotted() (string, bool) {
	if r.peek().Type != NAME || keywords[r.peek().Value] {
		return "", false
	}
	var b strings.Builder
	b.WriteString(r.next().Value)
	for r.peek().isOp(".") {
		r.next()
		if r.peek().Type != NAME {
			return "", false
		}
		b.WriteByte('.')
		b.WriteString(r.next().Value)
	}
	return b.String(), true
}

// alias reads an optional "as name" clause.
func (r *tokenReader) alias() (string, bool) {
	if !r.peek().isName("as") {
		return "", true
	}
	r.next()
	t := r.next()
	if t.Type != NAME || keywords[t.Value] {
		return "", false
	}
	return t.Value, true
}

func (p *parser) importStmt(toks []Token) (Stmt, error) {
	s := &ImportStmt{Line: toks[0].Line, EndLine: toks[len(toks)-1].EndLine}
	r := &tokenReader{toks: toks}
	invalid := func() error { return p.errorAt(r.peek(), "invalid syntax") }

	if r.next().isName("import") {
		for {
			mod, ok := r.dotted()
			if !ok {
				return nil, invalid()
			}
			alias, ok := r.alias()
			if !ok {
				return nil, invalid()
			}
			s.Names = append(s.Names, ImportName{Name: mod, Alias: alias})
			if r.done() {
				return s, nil
			}
			if !r.peek().isOp(",") {
				return nil, invalid()
			}
			comma := r.next()
			if r.done() {
				return nil, p.errorAt(comma, "trailing comma not allowed without surrounding parentheses")
			}
		}
	}

	s.From = true
	var module strings.Builder
	for r.peek().isOp(".") || r.peek().isOp("...") {
		module.WriteString(r.next().Value)
	}
	if !r.peek().isName("import") {
		name, ok := r.dotted()
		if !ok {
			return nil, invalid()
		}
		module.WriteString(name)
	}
	if module.Len() == 0 || !r.peek().isName("import") {
		return nil, invalid()
	}
	r.next()
	s.Module = module.String()

	if r.peek().isOp("*") {
		r.next()
		if !r.done() {
			return nil, invalid()
		}
		s.Names = []ImportName{{Name: "*"}}
		return s, nil
	}

	paren := r.peek().isOp("(")
	if paren {
		r.next()
	}
	for {
		name := r.next()
		if name.Type != NAME || keywords[name.Value] {
			return nil, p.errorAt(name, "invalid syntax")
		}
		alias, ok := r.alias()
		if !ok {
			return nil, invalid()
		}
		s.Names = append(s.Names, ImportName{Name: name.Value, Alias: alias})

		if paren && r.peek().isOp(")") {
			r.next()
			break
		}
		if !paren && r.done() {
			break
		}
		if !r.peek().isOp(",") {
			return nil, invalid()
		}
		comma := r.next()
		if paren && r.peek().isOp(")") {
			r.next()
			break
		}
		if !paren && r.done() {
			return nil, p.errorAt(comma, "trailing comma not allowed without surrounding parentheses")
		}
	}
	if !r.done() {
		return nil, invalid()
	}
	return s, nil
}
