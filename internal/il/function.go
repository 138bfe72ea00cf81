package il

// OOPInfo carries the optional object-oriented metadata a Function may
// hold: its receiver class (if it is a method), its vtable slot index (if
// virtual), and whether it is a constructor (spec §3, §6).
type OOPInfo struct {
	IsMethod      bool
	ReceiverClass StructID
	IsVirtual     bool
	SlotIndex     int
	IsConstructor bool
}

// Function is a name, signature, and ordered list of basic blocks. Block
// zero is the entry; its parameters are the function's declared
// parameters (spec §3 — there is no separate parameter list).
type Function struct {
	Name string
	Sig  Signature

	Blocks []*BasicBlock // Blocks[0] is the entry block
	OOP    *OOPInfo

	nextBlockID BlockID
	nextSsaID   SsaID
	blockNames  map[string]bool
}

// NewFunction allocates an empty function. Entry is created separately via
// CreateBlock so that its parameters can be supplied explicitly.
func NewFunction(name string, sig Signature) *Function {
	return &Function{
		Name:       name,
		Sig:        sig,
		blockNames: make(map[string]bool),
	}
}

// Entry returns the function's entry block, or nil if none has been
// created yet.
func (f *Function) Entry() *BasicBlock {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// ReserveTemp allocates and returns a fresh, monotonically increasing SSA
// id for this function (spec §4.1).
func (f *Function) ReserveTemp() SsaID {
	id := f.nextSsaID
	f.nextSsaID++
	return id
}

// NumBlocks returns the number of blocks created so far (used to size
// per-block arrays in analyses).
func (f *Function) NumBlocks() int { return len(f.Blocks) }

// BlockByName looks up a block by its unique-within-function name.
func (f *Function) BlockByName(name string) (*BasicBlock, bool) {
	for _, b := range f.Blocks {
		if b.Name == name {
			return b, true
		}
	}
	return nil, false
}
