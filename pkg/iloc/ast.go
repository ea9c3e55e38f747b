// Package iloc defines the three-address intermediate representation for a
// single basic block of ILOC code. Instructions carry three operand slots;
// each register operand is progressively annotated by later passes with a
// virtual register, a next-use index, and finally a physical register.
package iloc

import "math"

// Invalid marks an unset register number, address, or operand slot.
const Invalid = -1

// NoUse is the next-use value of a register with no further use in the
// block. It compares greater than every real instruction index.
const NoUse = math.MaxInt32

// Opcode identifies an ILOC operation
type Opcode int

const (
	OpLoad Opcode = iota // load  r1     => r2
	OpLoadI              // loadI c      => r2
	OpStore              // store r1     => r2
	OpAdd                // add   r1, r2 => r3
	OpSub                // sub   r1, r2 => r3
	OpMult               // mult  r1, r2 => r3
	OpLshift             // lshift r1, r2 => r3
	OpRshift             // rshift r1, r2 => r3
	OpOutput             // output c
	OpNop                // nop
)

var opcodeNames = []string{
	"load", "loadI", "store", "add", "sub",
	"mult", "lshift", "rshift", "output", "nop",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) {
		return opcodeNames[op]
	}
	return "?"
}

// Operand is one slot of an instruction. For register operands SR holds the
// source register number as read from the input; for immediate-bearing slots
// (loadI src1, output src1) SR doubles as the constant value. VR, PR and NU
// are filled in by the liverange and regalloc passes.
type Operand struct {
	IsReg bool
	SR    int // source register, or the immediate for non-register slots
	VR    int // virtual register (live range)
	PR    int // physical register
	NU    int // next-use index; NoUse when dead after this instruction
}

// Reg returns a register operand for source register sr
func Reg(sr int) Operand {
	return Operand{IsReg: true, SR: sr, VR: Invalid, PR: Invalid, NU: Invalid}
}

// Imm returns an immediate operand carrying constant c in its SR field
func Imm(c int) Operand {
	return Operand{SR: c, VR: Invalid, PR: Invalid, NU: Invalid}
}

// None returns an unused operand slot
func None() Operand {
	return Operand{SR: Invalid, VR: Invalid, PR: Invalid, NU: Invalid}
}

// Instruction is one three-address ILOC instruction. Slot use by opcode:
//
//	load    Src1=addr reg            Dest=reg
//	loadI   Src1=immediate           Dest=reg
//	store   Src1=value reg  Src2=addr reg
//	arith   Src1=reg        Src2=reg Dest=reg
//	output  Src1=immediate
//	nop     (no operands)
type Instruction struct {
	Op   Opcode
	Src1 Operand
	Src2 Operand
	Dest Operand
}

// NewInstruction returns an instruction with all operand slots unset
func NewInstruction(op Opcode) Instruction {
	return Instruction{Op: op, Src1: None(), Src2: None(), Dest: None()}
}

// Block is an in-order editable sequence of instructions. Passes iterate it
// by index; InsertBefore shifts the tail right, so a forward sweep that
// splices recovery code must advance its own cursor past what it inserts.
type Block struct {
	instrs []Instruction
}

// NewBlock returns an empty block
func NewBlock() *Block {
	return &Block{}
}

// Len returns the number of instructions in the block
func (b *Block) Len() int {
	return len(b.instrs)
}

// At returns a pointer to the instruction at index i, so operand
// annotations written through it are visible to later passes
func (b *Block) At(i int) *Instruction {
	return &b.instrs[i]
}

// Append adds an instruction at the end of the block
func (b *Block) Append(instr Instruction) {
	b.instrs = append(b.instrs, instr)
}

// InsertBefore splices instr in so that it lands at index i; the
// instruction previously at i and everything after it shift right by one
func (b *Block) InsertBefore(i int, instr Instruction) {
	b.instrs = append(b.instrs, Instruction{})
	copy(b.instrs[i+1:], b.instrs[i:])
	b.instrs[i] = instr
}
