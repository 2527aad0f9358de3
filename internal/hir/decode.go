package hir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"bell/internal/source"
	"bell/internal/types"
)

// The serialized typed tree is a JSON document produced by the front end.
// Expressions are objects tagged by "kind"; types are named by string
// ("int", "bool", "unit" or a struct name); locations are [line, col] or
// [line, col, endLine, endCol] arrays.

type rawProgram struct {
	File      string          `json:"file"`
	Structs   []rawStruct     `json:"structs"`
	Functions []rawFunction   `json:"functions"`
	Loc       []int           `json:"loc"`
}

type rawStruct struct {
	Name   string     `json:"name"`
	Fields []rawField `json:"fields"`
}

type rawField struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type rawFunction struct {
	Name     string     `json:"name"`
	Params   []rawField `json:"params"`
	Result   string     `json:"result"`
	Body     *rawExpr   `json:"body"`
	MaxDepth int        `json:"max_depth"`
	Entry    bool       `json:"entry"`
	Loc      []int      `json:"loc"`
}

type rawArm struct {
	Cond *rawExpr `json:"cond"`
	Body *rawExpr `json:"body"`
}

type rawInit struct {
	Name  string   `json:"name"`
	Value *rawExpr `json:"value"`
}

type rawExpr struct {
	Kind   string          `json:"kind"`
	Type   string          `json:"type"`
	Loc    []int           `json:"loc"`
	Name   string          `json:"name"`
	Value  json.RawMessage `json:"value"`
	Op     string          `json:"op"`
	Left   *rawExpr        `json:"left"`
	Right  *rawExpr        `json:"right"`
	X      *rawExpr        `json:"x"`
	Target *rawExpr        `json:"target"`
	Callee string          `json:"callee"`
	Args   []*rawExpr      `json:"args"`
	Field  string          `json:"field"`
	Fields []rawInit       `json:"fields"`
	Arms   []rawArm        `json:"arms"`
	Else   *rawExpr        `json:"else"`
	Body   *rawExpr        `json:"body"`
	Exprs  []*rawExpr      `json:"exprs"`
	Tail   *rawExpr        `json:"tail"`
	Text   string          `json:"text"`
}

// DecodeError locates a malformed node of the serialized tree.
type DecodeError struct {
	Path string
	Msg  string
}

func (e *DecodeError) Error() string {
	if e.Path == "" {
		return e.Msg
	}
	return e.Path + ": " + e.Msg
}

// Decode reads a serialized typed tree.
func Decode(r io.Reader) (*Program, error) {
	var raw rawProgram
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return nil, &DecodeError{Msg: err.Error()}
	}

	d := &decoder{file: raw.File, structs: make(map[string]*types.StructType)}
	return d.program(&raw)
}

// DecodeBytes is Decode over an in-memory document.
func DecodeBytes(data []byte) (*Program, error) {
	return Decode(bytes.NewReader(data))
}

type decoder struct {
	file    string
	structs map[string]*types.StructType
}

func (d *decoder) fail(path, format string, args ...any) error {
	return &DecodeError{Path: path, Msg: fmt.Sprintf(format, args...)}
}

func (d *decoder) loc(pos []int) source.Location {
	switch len(pos) {
	case 2:
		return *source.Span(d.file, pos[0], pos[1], 0, 0)
	case 4:
		return *source.Span(d.file, pos[0], pos[1], pos[2], pos[3])
	}
	return *source.Span(d.file, 0, 0, 0, 0)
}

func (d *decoder) program(raw *rawProgram) (*Program, error) {
	prog := &Program{Location: d.loc(raw.Loc)}

	// Declare every struct first so fields may refer to later structs.
	for _, rs := range raw.Structs {
		if _, dup := d.structs[rs.Name]; dup || rs.Name == "" {
			return nil, d.fail("structs", "invalid or duplicate struct name %q", rs.Name)
		}
		st := types.NewStruct(rs.Name, nil)
		d.structs[rs.Name] = st
		prog.Structs = append(prog.Structs, st)
	}
	for i, rs := range raw.Structs {
		st := prog.Structs[i]
		for _, f := range rs.Fields {
			ft, err := d.typ(f.Type, "structs."+rs.Name+"."+f.Name)
			if err != nil {
				return nil, err
			}
			st.Fields = append(st.Fields, types.StructField{Name: f.Name, Type: ft})
		}
	}
	if err := d.checkStructCycles(prog.Structs); err != nil {
		return nil, err
	}

	for _, rf := range raw.Functions {
		fn, err := d.function(&rf)
		if err != nil {
			return nil, err
		}
		prog.Functions = append(prog.Functions, fn)
	}
	return prog, nil
}

func (d *decoder) checkStructCycles(structs []*types.StructType) error {
	state := make(map[*types.StructType]int)
	var visit func(st *types.StructType) error
	visit = func(st *types.StructType) error {
		switch state[st] {
		case 1:
			return d.fail("structs", "struct %s contains itself", st.Name)
		case 2:
			return nil
		}
		state[st] = 1
		for _, f := range st.Fields {
			if inner, ok := f.Type.(*types.StructType); ok {
				if err := visit(inner); err != nil {
					return err
				}
			}
		}
		state[st] = 2
		return nil
	}
	for _, st := range structs {
		if err := visit(st); err != nil {
			return err
		}
	}
	return nil
}

func (d *decoder) typ(name, path string) (types.SemType, error) {
	if name == "" {
		return nil, nil
	}
	if t, ok := types.FromName(types.TYPE_NAME(name)); ok {
		return t, nil
	}
	if st, ok := d.structs[name]; ok {
		return st, nil
	}
	return nil, d.fail(path, "unknown type %q", name)
}

func (d *decoder) function(rf *rawFunction) (*FuncDef, error) {
	path := "functions." + rf.Name
	fn := &FuncDef{
		Name:     rf.Name,
		MaxDepth: rf.MaxDepth,
		Entry:    rf.Entry,
		Location: d.loc(rf.Loc),
	}

	result, err := d.typ(rf.Result, path+".result")
	if err != nil {
		return nil, err
	}
	if result == nil {
		result = types.TypeUnit
	}
	fn.Result = result

	for _, p := range rf.Params {
		pt, err := d.typ(p.Type, path+"."+p.Name)
		if err != nil {
			return nil, err
		}
		fn.Params = append(fn.Params, Param{Name: p.Name, Type: pt, Location: fn.Location})
	}

	if rf.Body == nil {
		return nil, d.fail(path, "missing body")
	}
	body, err := d.block(rf.Body, path+".body")
	if err != nil {
		return nil, err
	}
	fn.Body = body
	return fn, nil
}

func (d *decoder) block(raw *rawExpr, path string) (*Block, error) {
	if raw == nil {
		return nil, nil
	}
	if raw.Kind != "block" {
		return nil, d.fail(path, "expected a block, got %q", raw.Kind)
	}
	e, err := d.expr(raw, path)
	if err != nil {
		return nil, err
	}
	return e.(*Block), nil
}

func (d *decoder) optExpr(raw *rawExpr, path string) (Expr, error) {
	if raw == nil {
		return nil, nil
	}
	return d.expr(raw, path)
}

func (d *decoder) valueExpr(msg json.RawMessage, path string) (Expr, error) {
	if len(msg) == 0 || string(msg) == "null" {
		return nil, nil
	}
	var raw rawExpr
	if err := json.Unmarshal(msg, &raw); err != nil {
		return nil, d.fail(path, "%v", err)
	}
	return d.expr(&raw, path)
}

func (d *decoder) exprs(raws []*rawExpr, path string) ([]Expr, error) {
	out := make([]Expr, 0, len(raws))
	for i, raw := range raws {
		e, err := d.expr(raw, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (d *decoder) expr(raw *rawExpr, path string) (Expr, error) {
	if raw == nil {
		return nil, d.fail(path, "missing expression")
	}
	path = path + "(" + raw.Kind + ")"
	loc := d.loc(raw.Loc)
	t, err := d.typ(raw.Type, path)
	if err != nil {
		return nil, err
	}

	switch raw.Kind {
	case "lit":
		return d.literal(raw, t, loc, path)

	case "var":
		return &VarRef{Name: raw.Name, Type: t, Location: loc}, nil

	case "let":
		value, err := d.valueExpr(raw.Value, path)
		if err != nil {
			return nil, err
		}
		if t == nil && value != nil {
			t = value.ExprType()
		}
		return &Let{Name: raw.Name, Type: t, Value: value, Location: loc}, nil

	case "assign":
		target, err := d.expr(raw.Target, path+".target")
		if err != nil {
			return nil, err
		}
		value, err := d.valueExpr(raw.Value, path)
		if err != nil {
			return nil, err
		}
		return &Assign{Target: target, Value: value, Location: loc}, nil

	case "binary":
		op := ParseOp(raw.Op)
		left, err := d.expr(raw.Left, path+".left")
		if err != nil {
			return nil, err
		}
		right, err := d.expr(raw.Right, path+".right")
		if err != nil {
			return nil, err
		}
		if t == nil {
			t = types.TypeInt
			if op.IsComparison() || op.IsLogical() {
				t = types.TypeBool
			}
		}
		return &BinaryOp{Op: op, Left: left, Right: right, Type: t, Location: loc}, nil

	case "unary":
		op := OpInvalid
		switch raw.Op {
		case "!":
			op = OpNot
		case "-", "neg":
			op = OpNeg
		}
		x, err := d.expr(raw.X, path+".x")
		if err != nil {
			return nil, err
		}
		if t == nil {
			t = types.TypeInt
			if op == OpNot {
				t = types.TypeBool
			}
		}
		return &UnaryOp{Op: op, X: x, Type: t, Location: loc}, nil

	case "call":
		args, err := d.exprs(raw.Args, path+".args")
		if err != nil {
			return nil, err
		}
		return &Call{Callee: raw.Callee, Args: args, Type: t, Location: loc}, nil

	case "field":
		x, err := d.expr(raw.X, path+".x")
		if err != nil {
			return nil, err
		}
		return &FieldAccess{X: x, Field: raw.Field, Type: t, Location: loc}, nil

	case "struct":
		st, ok := t.(*types.StructType)
		if !ok {
			return nil, d.fail(path, "struct literal needs a struct type, got %q", raw.Type)
		}
		lit := &StructLiteral{Type: st, Location: loc}
		for _, init := range raw.Fields {
			value, err := d.expr(init.Value, path+"."+init.Name)
			if err != nil {
				return nil, err
			}
			lit.Fields = append(lit.Fields, FieldInit{Name: init.Name, Value: value})
		}
		return lit, nil

	case "if":
		node := &If{Type: t, Location: loc}
		for i, arm := range raw.Arms {
			armPath := fmt.Sprintf("%s.arms[%d]", path, i)
			cond, err := d.expr(arm.Cond, armPath+".cond")
			if err != nil {
				return nil, err
			}
			body, err := d.block(arm.Body, armPath+".body")
			if err != nil {
				return nil, err
			}
			node.Arms = append(node.Arms, IfArm{Cond: cond, Body: body})
		}
		if len(node.Arms) == 0 {
			return nil, d.fail(path, "if without arms")
		}
		els, err := d.block(raw.Else, path+".else")
		if err != nil {
			return nil, err
		}
		node.Else = els
		if node.Type == nil {
			node.Type = types.TypeUnit
		}
		return node, nil

	case "loop":
		body, err := d.block(raw.Body, path+".body")
		if err != nil {
			return nil, err
		}
		if body == nil {
			return nil, d.fail(path, "loop without body")
		}
		if t == nil {
			t = types.TypeUnit
		}
		return &Loop{Body: body, Type: t, Location: loc}, nil

	case "break":
		value, err := d.valueExpr(raw.Value, path)
		if err != nil {
			return nil, err
		}
		return &Break{Value: value, Location: loc}, nil

	case "continue":
		return &Continue{Location: loc}, nil

	case "return":
		value, err := d.valueExpr(raw.Value, path)
		if err != nil {
			return nil, err
		}
		return &Return{Value: value, Location: loc}, nil

	case "block":
		exprs, err := d.exprs(raw.Exprs, path+".exprs")
		if err != nil {
			return nil, err
		}
		tail, err := d.optExpr(raw.Tail, path+".tail")
		if err != nil {
			return nil, err
		}
		if t == nil {
			t = types.TypeUnit
			if tail != nil {
				t = tail.ExprType()
			}
		}
		return &Block{Exprs: exprs, Tail: tail, Type: t, Location: loc}, nil

	case "print":
		value, err := d.valueExpr(raw.Value, path)
		if err != nil {
			return nil, err
		}
		if value == nil {
			return nil, d.fail(path, "print without value")
		}
		return &Print{Value: value, Location: loc}, nil

	case "command":
		return &Command{Text: raw.Text, Location: loc}, nil
	}

	return nil, d.fail(path, "unknown expression kind")
}

func (d *decoder) literal(raw *rawExpr, t types.SemType, loc source.Location, path string) (Expr, error) {
	var b bool
	if err := json.Unmarshal(raw.Value, &b); err == nil {
		if t == nil {
			t = types.TypeBool
		}
		v := int32(0)
		if b {
			v = 1
		}
		return &Literal{Value: v, Type: t, Location: loc}, nil
	}

	var n int64
	if err := json.Unmarshal(raw.Value, &n); err != nil {
		return nil, d.fail(path, "literal value must be an integer or boolean")
	}
	if n < -1<<31 || n > 1<<31-1 {
		return nil, d.fail(path, "literal %d does not fit in 32 bits", n)
	}
	if t == nil {
		t = types.TypeInt
	}
	return &Literal{Value: int32(n), Type: t, Location: loc}, nil
}
