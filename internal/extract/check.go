package extract

// Statements that take an expression after their keyword. return and raise
// may also stand alone.
var (
	exprStmts = map[string]bool{
		"return": true, "raise": true, "del": true, "assert": true,
		"global": true, "nonlocal": true,
	}
	bareStmts  = map[string]bool{"return": true, "raise": true}
	aloneStmts = map[string]bool{"pass": true, "break": true, "continue": true}
)

var binaryKeywords = map[string]bool{
	"and": true, "or": true, "in": true, "is": true, "if": true,
	"else": true, "for": true, "as": true, "from": true,
}

var prefixOps = map[string]bool{"+": true, "-": true, "~": true, "*": true, "**": true}

type frame struct {
	at        int
	subscript bool
}

func opens(t Token) bool  { return t.isOp("(") || t.isOp("[") || t.isOp("{") }
func closes(t Token) bool { return t.isOp(")") || t.isOp("]") || t.isOp("}") }

func isOperand(t Token) bool {
	switch t.Type {
	case NUMBER, STRING:
		return true
	case NAME:
		return !keywords[t.Value] || t.Value == "True" || t.Value == "False" || t.Value == "None"
	}
	return t.isOp("...")
}

// checkExpr rejects token runs that no expression produces: operands with
// no operator between them, operators missing an operand and empty slots
// between commas. It does not build a tree. When stmt is set the first token
// may be a statement keyword.
func (p *parser) checkExpr(toks []Token, stmt bool) error {
	if len(toks) == 0 {
		return nil
	}
	invalid := func(t Token) error { return p.errorAt(t, "invalid syntax") }

	// want is set while an operand is expected. bare allows that operand to
	// be left out, and slice marks a subscript ':' which may have no bound.
	want, bare, slice := true, false, false
	var stack []frame

	i := 0
	if first := toks[0]; stmt && first.Type == NAME {
		switch {
		case aloneStmts[first.Value]:
			want, i = false, 1
		case exprStmts[first.Value]:
			bare, i = bareStmts[first.Value], 1
		case first.Value == "type" && len(toks) > 1 && toks[1].Type == NAME && !keywords[toks[1].Value]:
			i = 1
		}
	}

	for ; i < len(toks); i++ {
		t := toks[i]
		afterSlice := slice
		slice = false

		switch {
		case isOperand(t):
			if !want && !(t.Type == STRING && toks[i-1].Type == STRING) {
				return invalid(t)
			}
			want, bare = false, false

		case opens(t):
			if !want && t.isOp("{") {
				return invalid(t)
			}
			stack = append(stack, frame{at: i, subscript: !want && t.isOp("[")})
			want, bare = true, false

		case closes(t):
			if len(stack) == 0 {
				return invalid(t)
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			empty := top.at == i-1 && !top.subscript
			if want && !bare && !afterSlice && !empty && !toks[i-1].isOp(",") {
				return invalid(t)
			}
			want, bare = false, false

		case t.isOp(","):
			if want && !afterSlice {
				return invalid(t)
			}
			want, bare = true, false

		case t.isOp(":") && len(stack) > 0 && stack[len(stack)-1].subscript:
			want, bare, slice = true, false, true

		case t.isOp("."):
			if want || i+1 >= len(toks) || toks[i+1].Type != NAME || keywords[toks[i+1].Value] {
				return invalid(t)
			}
			i++

		case t.isOp("~") || t.isOp("->"):
			if !want || t.isOp("->") {
				return invalid(t)
			}
			bare = false

		case t.Type == OP:
			if want && !prefixOps[t.Value] {
				return invalid(t)
			}
			want, bare = true, false

		case t.isName("not"):
			if !want {
				if i+1 >= len(toks) || !toks[i+1].isName("in") {
					return invalid(t)
				}
				i++
			}
			want, bare = true, false

		case t.isName("await"):
			if !want {
				return invalid(t)
			}
			bare = false

		case t.isName("yield"):
			if !want {
				return invalid(t)
			}
			bare = true
			if i+1 < len(toks) && toks[i+1].isName("from") {
				bare = false
				i++
			}

		case t.isName("lambda"):
			if !want {
				return invalid(t)
			}
			j := lambdaColon(toks, i+1)
			if j < 0 {
				return invalid(t)
			}
			i, bare = j, false

		case t.isName("async"):
			if want || i+1 >= len(toks) || !toks[i+1].isName("for") {
				return invalid(t)
			}

		case t.Type == NAME && binaryKeywords[t.Value]:
			if want {
				return invalid(t)
			}
			want = true

		default:
			return invalid(t)
		}
	}

	if last := toks[len(toks)-1]; want && !bare && !last.isOp(",") {
		return invalid(last)
	}
	return nil
}

// lambdaColon finds the ':' that ends the parameters of a lambda whose
// parameters start at toks[start].
func lambdaColon(toks []Token, start int) int {
	depth, lambdas := 0, 0
	for j := start; j < len(toks); j++ {
		t := toks[j]
		switch {
		case opens(t):
			depth++
		case closes(t):
			if depth == 0 {
				return -1
			}
			depth--
		case depth == 0 && t.isName("lambda"):
			lambdas++
		case depth == 0 && t.isOp(":"):
			if lambdas == 0 {
				return j
			}
			lambdas--
		}
	}
	return -1
}

// checkHeader validates the header of a compound statement. else, try and
// finally take none and except may leave its exception out.
func (p *parser) checkHeader(kw, colon Token, header []Token) error {
	switch kw.Value {
	case "else", "try", "finally":
		if len(header) > 0 {
			return p.errorAt(header[0], "invalid syntax")
		}
		return nil
	case "except":
	default:
		if len(header) == 0 {
			return p.errorAt(colon, "invalid syntax")
		}
	}
	return p.checkExpr(header, false)
}

const missingHandler = "expected 'except' or 'finally' block"

// clauseChain follows the statement an elif, else, except or finally clause
// would continue. head is "if", "loop", "try" or empty.
type clauseChain struct {
	head string
	last string
}

func (c *clauseChain) add(stmts []Stmt) error {
	for _, s := range stmts {
		line, _ := s.Lines()
		kw := ""
		if o, ok := s.(*OtherStmt); ok {
			kw = o.Keyword
		}
		if c.head == "try" && c.last == "try" && kw != "except" && kw != "finally" {
			return &SyntaxError{Line: line, Msg: missingHandler}
		}

		ok := true
		switch kw {
		case "elif":
			ok = c.head == "if"
			c.last = kw
		case "else":
			switch {
			case c.head == "if", c.head == "loop":
				c.head = ""
			case c.head == "try" && c.last == "except":
				c.last = kw
			default:
				ok = false
			}
		case "except":
			ok = c.head == "try" && (c.last == "try" || c.last == "except")
			c.last = kw
		case "finally":
			ok = c.head == "try"
			c.head = ""
		case "if", "try":
			c.head, c.last = kw, kw
		case "for", "while":
			c.head, c.last = "loop", kw
		default:
			c.head, c.last = "", ""
		}
		if !ok {
			return &SyntaxError{Line: line, Msg: "invalid syntax"}
		}
	}
	return nil
}

// end closes the block at line.
func (c *clauseChain) end(line int) error {
	if c.head == "try" && c.last == "try" {
		return &SyntaxError{Line: line, Msg: missingHandler}
	}
	return nil
}
