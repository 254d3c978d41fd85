package extract

import (
	"reflect"
	"testing"
)

func tokenTypes(toks []Token) []TokenType {
	types := make([]TokenType, len(toks))
	for i, t := range toks {
		types[i] = t.Type
	}
	return types
}

func TestTokenizeIndentation(t *testing.T) {
	toks, err := Tokenize("if x:\n    y = 1\n\n    # note\nz\n")
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}

	want := []TokenType{
		NAME, NAME, OP, NEWLINE,
		INDENT, NAME, OP, NUMBER, NEWLINE,
		DEDENT, NAME, NEWLINE,
		EOF,
	}
	if got := tokenTypes(toks); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestTokenizeImplicitJoining(t *testing.T) {
	toks, err := Tokenize("x = foo(\n    1,\n    2)\ny = a + \\\n    b\n")
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}

	newlines := 0
	for _, tok := range toks {
		if tok.Type == NEWLINE {
			newlines++
		}
		if tok.Type == INDENT {
			t.Errorf("unexpected INDENT at line %d", tok.Line)
		}
	}
	if newlines != 2 {
		t.Errorf("expected 2 logical lines, got %d", newlines)
	}
	if last := toks[len(toks)-2]; last.Value != "\n" || last.Line != 5 {
		t.Errorf("expected final NEWLINE on line 5, got %v", last)
	}
}

func TestTokenizeStrings(t *testing.T) {
	code := "a = rb'\\x00'\nb = \"\"\"multi\nline\"\"\"\nc = 'it\\'s'\n"
	toks, err := Tokenize(code)
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}

	var strs []Token
	for _, tok := range toks {
		if tok.Type == STRING {
			strs = append(strs, tok)
		}
	}
	if len(strs) != 3 {
		t.Fatalf("expected 3 strings, got %d", len(strs))
	}
	if strs[0].Value != `rb'\x00'` {
		t.Errorf("unexpected prefixed string %q", strs[0].Value)
	}
	if strs[1].Line != 2 || strs[1].EndLine != 3 {
		t.Errorf("expected triple-quoted string on lines 2-3, got %d-%d", strs[1].Line, strs[1].EndLine)
	}
	if strs[2].Line != 4 {
		t.Errorf("expected escaped string on line 4, got %d", strs[2].Line)
	}
}

func TestTokenizeFStringFields(t *testing.T) {
	toks, err := Tokenize(`s = f"{a!r} {{literal}} {b(c):>{width}} {d['k']}"` + "\n")
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}

	str := toks[2]
	if str.Type != STRING {
		t.Fatalf("expected STRING, got %v", str)
	}

	var fields []string
	for _, field := range str.Fields {
		fields = append(fields, field[0].Value)
	}
	want := []string{"a", "b", "width", "d"}
	if !reflect.DeepEqual(fields, want) {
		t.Errorf("expected fields %v, got %v", want, fields)
	}
}

func TestTokenizeOperators(t *testing.T) {
	toks, err := Tokenize("x **= y // 2 -> z := ...\n")
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}

	var ops []string
	for _, tok := range toks {
		if tok.Type == OP {
			ops = append(ops, tok.Value)
		}
	}
	want := []string{"**=", "//", "->", ":=", "..."}
	if !reflect.DeepEqual(ops, want) {
		t.Errorf("expected %v, got %v", want, ops)
	}
}

func TestTokenizeErrors(t *testing.T) {
	tests := []struct {
		name string
		code string
		line int
		msg  string
	}{
		{"never closed", "a = [1,\n2,\n", 1, "'[' was never closed"},
		{"mismatch", "a = (1,\n2]\n", 2, "closing parenthesis ']' does not match opening parenthesis '(' on line 1"},
		{"triple", "a = 1\nb = '''open\n\n", 2, "unterminated triple-quoted string literal (detected at line 4)"},
		{"invalid char", "a = 1 $ 2\n", 1, "invalid syntax"},
		{"non ascii", "a = 1 € 2\n", 1, "invalid character '€' (U+20AC)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Tokenize(tt.code)
			se, ok := err.(*SyntaxError)
			if !ok {
				t.Fatalf("expected *SyntaxError, got %v", err)
			}
			if se.Line != tt.line {
				t.Errorf("expected line %d, got %d", tt.line, se.Line)
			}
			if se.Msg != tt.msg {
				t.Errorf("expected %q, got %q", tt.msg, se.Msg)
			}
		})
	}
}
