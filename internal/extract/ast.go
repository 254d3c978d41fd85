package extract

// Module is a parsed source file.
type Module struct {
	Body []Stmt
}

// Stmt is a statement of the syntax tree. The set of implementations is
// closed: *FuncDef, *ClassDef, *ImportStmt and *OtherStmt. Call sites hang
// off statements as CallExpr values.
type Stmt interface {
	stmtNode()
	Lines() (start, end int)
}

type FuncDef struct {
	Name    string
	Async   bool
	Line    int
	EndLine int
	Params  []Param
	Returns string

	// Header holds the calls made by decorators, defaults and annotations.
	Header []CallExpr
	Body   []Stmt
}

type Param struct {
	Name       string
	Stars      string
	Annotation string
}

type ClassDef struct {
	Name    string
	Line    int
	EndLine int

	// Header holds the calls made by decorators and the base list.
	Header []CallExpr
	Body   []Stmt
}

type ImportStmt struct {
	Line    int
	EndLine int
	From    bool
	Module  string
	Names   []ImportName
}

type ImportName struct {
	Name  string
	Alias string
}

// CallExpr is a call site. Name is the bare callee or the last attribute of
// a dotted callee.
type CallExpr struct {
	Name string
	Line int
}

// OtherStmt is any statement that is neither a definition nor an import.
// Compound statements keep their header calls in Calls and their block in
// Body.
type OtherStmt struct {
	Keyword string
	Line    int
	EndLine int
	Calls   []CallExpr
	Body    []Stmt
}

func (*FuncDef) stmtNode()    {}
func (*ClassDef) stmtNode()   {}
func (*ImportStmt) stmtNode() {}
func (*OtherStmt) stmtNode()  {}

func (s *FuncDef) Lines() (int, int)    { return s.Line, s.EndLine }
func (s *ClassDef) Lines() (int, int)   { return s.Line, s.EndLine }
func (s *ImportStmt) Lines() (int, int) { return s.Line, s.EndLine }
func (s *OtherStmt) Lines() (int, int)  { return s.Line, s.EndLine }
