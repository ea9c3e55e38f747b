// Package interp executes a basic block of ILOC code over a flat memory
// and a register file. It can read operands through either their source
// registers or their allocated physical registers, which lets tests check
// that allocation preserved the observable output of a block.
package interp

import (
	"fmt"

	"github.com/raymyers/iloc-alloc/pkg/iloc"
)

// RegMode selects which register field of each operand the machine reads
type RegMode int

const (
	BySR RegMode = iota // interpret source registers (pre-allocation)
	ByPR                // interpret physical registers (post-allocation)
)

// State is the machine state after a run. Output collects the values
// printed by output instructions, in order.
type State struct {
	Regs   map[int]int32
	Mem    map[int32]int32
	Output []int32
}

// Run executes b from a zeroed machine and returns the final state
func Run(b *iloc.Block, mode RegMode) (*State, error) {
	s := &State{
		Regs: make(map[int]int32),
		Mem:  make(map[int32]int32),
	}
	for i := 0; i < b.Len(); i++ {
		if err := s.step(b.At(i), mode, i); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *State) step(instr *iloc.Instruction, mode RegMode, i int) error {
	switch instr.Op {
	case iloc.OpNop:
		// nothing
	case iloc.OpLoadI:
		s.set(instr.Dest, mode, int32(instr.Src1.SR))
	case iloc.OpLoad:
		s.set(instr.Dest, mode, s.Mem[s.get(instr.Src1, mode)])
	case iloc.OpStore:
		s.Mem[s.get(instr.Src2, mode)] = s.get(instr.Src1, mode)
	case iloc.OpOutput:
		s.Output = append(s.Output, s.Mem[int32(instr.Src1.SR)])
	case iloc.OpAdd:
		s.set(instr.Dest, mode, s.get(instr.Src1, mode)+s.get(instr.Src2, mode))
	case iloc.OpSub:
		s.set(instr.Dest, mode, s.get(instr.Src1, mode)-s.get(instr.Src2, mode))
	case iloc.OpMult:
		s.set(instr.Dest, mode, s.get(instr.Src1, mode)*s.get(instr.Src2, mode))
	case iloc.OpLshift:
		s.set(instr.Dest, mode, shiftLeft(s.get(instr.Src1, mode), s.get(instr.Src2, mode)))
	case iloc.OpRshift:
		s.set(instr.Dest, mode, shiftRight(s.get(instr.Src1, mode), s.get(instr.Src2, mode)))
	default:
		return fmt.Errorf("instruction %d: unknown opcode %d", i, instr.Op)
	}
	return nil
}

// get reads the register named by op under the given mode
func (s *State) get(op iloc.Operand, mode RegMode) int32 {
	return s.Regs[regOf(op, mode)]
}

// set writes the register named by op under the given mode
func (s *State) set(op iloc.Operand, mode RegMode, v int32) {
	s.Regs[regOf(op, mode)] = v
}

func regOf(op iloc.Operand, mode RegMode) int {
	if mode == ByPR {
		return op.PR
	}
	return op.SR
}

// shiftLeft matches the target machine: shift counts outside [0,32) yield 0
func shiftLeft(v, by int32) int32 {
	if by < 0 || by >= 32 {
		return 0
	}
	return v << uint(by)
}

func shiftRight(v, by int32) int32 {
	if by < 0 || by >= 32 {
		return 0
	}
	return v >> uint(by)
}
