package extract

import (
	"encoding/json"
	"strings"
)

// CodeNode is a top-level declaration: *Function or *Class.
type CodeNode interface {
	codeNode()
}

type Function struct {
	Name      string   `json:"name"`
	Exported  bool     `json:"exported"`
	StartLine int      `json:"startLine"`
	EndLine   int      `json:"endLine"`
	Async     bool     `json:"async"`
	Signature string   `json:"signature"`
	Calls     []string `json:"calls"`
}

type Class struct {
	Name      string   `json:"name"`
	Exported  bool     `json:"exported"`
	StartLine int      `json:"startLine"`
	EndLine   int      `json:"endLine"`
	Methods   []Method `json:"methods"`
}

type Method struct {
	Name      string   `json:"name"`
	Async     bool     `json:"async"`
	Signature string   `json:"signature"`
	StartLine int      `json:"startLine"`
	EndLine   int      `json:"endLine"`
	Calls     []string `json:"calls"`
}

type Import struct {
	Source   string  `json:"source"`
	Imported string  `json:"imported"`
	Alias    *string `json:"alias"`
}

type Result struct {
	Nodes   []CodeNode `json:"nodes"`
	Imports []Import   `json:"imports"`
}

func (*Function) codeNode() {}
func (*Class) codeNode()    {}

func (f *Function) MarshalJSON() ([]byte, error) {
	type function Function
	return json.Marshal(struct {
		Type string `json:"type"`
		*function
	}{"function", (*function)(f)})
}

func (c *Class) MarshalJSON() ([]byte, error) {
	type class Class
	return json.Marshal(struct {
		Type string `json:"type"`
		*class
	}{"class", (*class)(c)})
}

// Extract parses code and describes its top-level functions and classes,
// the direct methods of those classes, and every import in the file.
// Definitions nested deeper are not reported as nodes.
func Extract(code string) (*Result, error) {
	mod, err := Parse(code)
	if err != nil {
		return nil, err
	}

	res := &Result{Nodes: []CodeNode{}, Imports: []Import{}}
	for _, stmt := range mod.Body {
		switch s := stmt.(type) {
		case *FuncDef:
			res.Nodes = append(res.Nodes, newFunction(s))
		case *ClassDef:
			res.Nodes = append(res.Nodes, newClass(s))
		case *ImportStmt, *OtherStmt:
		}
	}
	res.Imports = appendImports(res.Imports, mod.Body)
	return res, nil
}

// IsExported applies the underscore convention: a leading underscore marks
// a name private.
func IsExported(name string) bool {
	return !strings.HasPrefix(name, "_")
}

func newFunction(fn *FuncDef) *Function {
	return &Function{
		Name:      fn.Name,
		Exported:  IsExported(fn.Name),
		StartLine: fn.Line,
		EndLine:   fn.EndLine,
		Async:     fn.Async,
		Signature: Signature(fn),
		Calls:     appendCalls([]string{}, fn.Body),
	}
}

func newClass(cls *ClassDef) *Class {
	c := &Class{
		Name:      cls.Name,
		Exported:  IsExported(cls.Name),
		StartLine: cls.Line,
		EndLine:   cls.EndLine,
		Methods:   []Method{},
	}
	for _, stmt := range cls.Body {
		fn, ok := stmt.(*FuncDef)
		if !ok {
			continue
		}
		c.Methods = append(c.Methods, Method{
			Name:      fn.Name,
			Async:     fn.Async,
			Signature: Signature(fn),
			StartLine: fn.Line,
			EndLine:   fn.EndLine,
			Calls:     appendCalls([]string{}, fn.Body),
		})
	}
	return c
}

// Signature renders name(param[: type], ...)[ -> returns]. Defaults are
// left out; annotations keep their source text.
func Signature(fn *FuncDef) string {
	var b strings.Builder
	b.WriteString(fn.Name)
	b.WriteByte('(')
	for i, p := range fn.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Stars)
		b.WriteString(p.Name)
		if p.Annotation != "" {
			b.WriteString(": ")
			b.WriteString(p.Annotation)
		}
	}
	b.WriteByte(')')
	if fn.Returns != "" {
		b.WriteString(" -> ")
		b.WriteString(fn.Returns)
	}
	return b.String()
}

// appendCalls walks body in source order, descending into every block and
// nested definition.
func appendCalls(dst []string, body []Stmt) []string {
	for _, stmt := range body {
		switch s := stmt.(type) {
		case *FuncDef:
			dst = appendCallNames(dst, s.Header)
			dst = appendCalls(dst, s.Body)
		case *ClassDef:
			dst = appendCallNames(dst, s.Header)
			dst = appendCalls(dst, s.Body)
		case *OtherStmt:
			dst = appendCallNames(dst, s.Calls)
			dst = appendCalls(dst, s.Body)
		case *ImportStmt:
		}
	}
	return dst
}

func appendCallNames(dst []string, calls []CallExpr) []string {
	for _, c := range calls {
		dst = append(dst, c.Name)
	}
	return dst
}

func appendImports(dst []Import, body []Stmt) []Import {
	for _, stmt := range body {
		switch s := stmt.(type) {
		case *ImportStmt:
			for _, n := range s.Names {
				dst = append(dst, newImport(s, n))
			}
		case *FuncDef:
			dst = appendImports(dst, s.Body)
		case *ClassDef:
			dst = appendImports(dst, s.Body)
		case *OtherStmt:
			dst = appendImports(dst, s.Body)
		}
	}
	return dst
}

func newImport(s *ImportStmt, n ImportName) Import {
	if !s.From {
		imported := n.Name
		if n.Alias != "" {
			imported = n.Alias
		}
		return Import{Source: n.Name, Imported: imported}
	}
	imp := Import{Source: s.Module, Imported: n.Name}
	if n.Alias != "" {
		alias := n.Alias
		imp.Alias = &alias
	}
	return imp
}
