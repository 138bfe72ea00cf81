package il

import "fmt"

// BuildError is returned by Builder methods for construction-time misuse:
// name collisions, appending after a terminator, arity/type mismatches on
// branch arguments. It is not a verifier diagnostic (spec §4.1: "No
// verification is performed here; these are construction-time sanity
// checks only"); internal/verify performs full correctness checking.
type BuildError struct {
	Func string
	Msg  string
}

func (e *BuildError) Error() string {
	if e.Func == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Func, e.Msg)
}

// Builder provides construction helpers for Module, Function, BasicBlock,
// Instruction, and Value (spec §4.1). It performs only the sanity checks
// named there; full correctness is the verifier's job.
type Builder struct {
	Module *Module
}

// NewBuilder wraps m for incremental construction.
func NewBuilder(m *Module) *Builder {
	return &Builder{Module: m}
}

// DeclareExtern registers an extern symbol in the module.
func (b *Builder) DeclareExtern(name string, sig Signature) error {
	if _, ok := b.Module.ExternByName(name); ok {
		return &BuildError{Msg: fmt.Sprintf("extern %q already declared", name)}
	}
	b.Module.Externs = append(b.Module.Externs, Extern{Name: name, Sig: sig})
	b.Module.reindex()
	return nil
}

// DeclareGlobal registers a module-level constant.
func (b *Builder) DeclareGlobal(name string, t Type, v Value) error {
	if _, ok := b.Module.GlobalByName(name); ok {
		return &BuildError{Msg: fmt.Sprintf("global %q already declared", name)}
	}
	b.Module.Globals = append(b.Module.Globals, GlobalConst{Name: name, Type: t, Value: v})
	b.Module.reindex()
	return nil
}

// DefineStruct registers a struct/class payload layout.
func (b *Builder) DefineStruct(id StructID, fields []FieldDecl) error {
	if _, ok := b.Module.TypeByID(id); ok {
		return &BuildError{Msg: fmt.Sprintf("type %q already declared", id)}
	}
	b.Module.Types = append(b.Module.Types, TypeDecl{ID: id, Fields: fields})
	b.Module.reindex()
	return nil
}

// DeclareClass registers OOP metadata for a previously defined struct.
func (b *Builder) DeclareClass(info ClassInfo) error {
	if _, ok := b.Module.ClassByID(info.ID); ok {
		return &BuildError{Msg: fmt.Sprintf("class %q already declared", info.ID)}
	}
	b.Module.Classes = append(b.Module.Classes, info)
	b.Module.reindex()
	return nil
}

// AddFunction creates and registers a new, blockless function.
func (b *Builder) AddFunction(name string, sig Signature) (*Function, error) {
	if _, ok := b.Module.FuncByName(name); ok {
		return nil, &BuildError{Msg: fmt.Sprintf("function %q already declared", name)}
	}
	fn := NewFunction(name, sig)
	b.Module.Functions = append(b.Module.Functions, fn)
	b.Module.reindex()
	return fn, nil
}

// CreateBlock assigns fresh SSA ids to each of params and appends a new,
// uniquely named block to fn. Block zero becomes the entry implicitly.
func CreateBlock(fn *Function, name string, paramTypes []Type, paramNames []string) (*BasicBlock, error) {
	if fn.blockNames[name] {
		return nil, &BuildError{Func: fn.Name, Msg: fmt.Sprintf("block name %q already used", name)}
	}
	if len(paramNames) != 0 && len(paramNames) != len(paramTypes) {
		return nil, &BuildError{Func: fn.Name, Msg: "paramNames/paramTypes length mismatch"}
	}
	b := &BasicBlock{
		ID:   fn.nextBlockID,
		Name: name,
		Func: fn,
	}
	fn.nextBlockID++
	for i, t := range paramTypes {
		nm := ""
		if paramNames != nil {
			nm = paramNames[i]
		}
		b.Params = append(b.Params, Param{Name: nm, ID: fn.ReserveTemp(), Type: t})
	}
	fn.Blocks = append(fn.Blocks, b)
	fn.blockNames[name] = true
	return b, nil
}

// AddInstruction appends instr to b. Rejects once b is terminated.
func AddInstruction(b *BasicBlock, instr *Instruction) error {
	if b.IsTerminated() {
		return &BuildError{Func: b.Func.Name, Msg: fmt.Sprintf("block %q already terminated", b.Name)}
	}
	if instr.Op.IsTerminator() {
		return &BuildError{Func: b.Func.Name, Msg: "use SetTerminator for terminator opcodes"}
	}
	b.Instrs = append(b.Instrs, instr)
	return nil
}

// SetTerminator installs instr as b's terminator. Rejects if b already has
// one.
func SetTerminator(b *BasicBlock, instr *Instruction) error {
	if b.IsTerminated() {
		return &BuildError{Func: b.Func.Name, Msg: fmt.Sprintf("block %q already terminated", b.Name)}
	}
	if !instr.Op.IsTerminator() {
		return &BuildError{Func: b.Func.Name, Msg: fmt.Sprintf("opcode %s is not a terminator", instr.Op)}
	}
	b.Terminator = instr
	return nil
}

// Branch sets b's terminator to an unconditional `br dest(args...)`,
// asserting args' arity and types match dest's parameters, and links the
// CFG edge.
func Branch(b *BasicBlock, dest *BasicBlock, args []Value) error {
	if err := checkBranchArgs(b.Func.Name, dest, args); err != nil {
		return err
	}
	instr := NewInstruction(OpBr, Loc{})
	instr.Targets = []string{dest.Name}
	instr.BrArgs = [][]Value{args}
	if err := SetTerminator(b, instr); err != nil {
		return err
	}
	linkEdge(b, dest)
	return nil
}

// CondBranch sets b's terminator to `cbr cond, thenDest(thenArgs...),
// elseDest(elseArgs...)`, asserting both argument lists against their
// destinations and linking both CFG edges.
func CondBranch(b *BasicBlock, cond Value, thenDest *BasicBlock, thenArgs []Value, elseDest *BasicBlock, elseArgs []Value) error {
	if !cond.Type.Equal(I1) {
		return &BuildError{Func: b.Func.Name, Msg: "cbr condition must be i1"}
	}
	if err := checkBranchArgs(b.Func.Name, thenDest, thenArgs); err != nil {
		return err
	}
	if err := checkBranchArgs(b.Func.Name, elseDest, elseArgs); err != nil {
		return err
	}
	instr := NewInstruction(OpCbr, Loc{})
	instr.Args = []Value{cond}
	instr.Targets = []string{thenDest.Name, elseDest.Name}
	instr.BrArgs = [][]Value{thenArgs, elseArgs}
	if err := SetTerminator(b, instr); err != nil {
		return err
	}
	linkEdge(b, thenDest)
	linkEdge(b, elseDest)
	return nil
}

func checkBranchArgs(fnName string, dest *BasicBlock, args []Value) error {
	if len(args) != len(dest.Params) {
		return &BuildError{Func: fnName, Msg: fmt.Sprintf(
			"branch to %q supplies %d args, want %d", dest.Name, len(args), len(dest.Params))}
	}
	for i, a := range args {
		if !a.Type.Equal(dest.Params[i].Type) {
			return &BuildError{Func: fnName, Msg: fmt.Sprintf(
				"branch to %q arg %d type %s does not match param type %s",
				dest.Name, i, a.Type, dest.Params[i].Type)}
		}
	}
	return nil
}

func linkEdge(from, to *BasicBlock) {
	from.Succs = append(from.Succs, to)
	to.Preds = append(to.Preds, from)
}

// LinkEdge records a CFG edge from a non-br/cbr terminator (switch.i32,
// invoke) to one of its targets. Branch and CondBranch link their own
// edges; multi-target terminators built directly via SetTerminator must
// call this once per target so analyses (dominators, CFG queries) see a
// consistent graph.
func LinkEdge(from, to *BasicBlock) { linkEdge(from, to) }
