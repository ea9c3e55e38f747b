// Package regalloc rewrites a basic block so that every register operand
// names one of k physical registers. A single forward sweep assigns
// physical registers to the virtual registers discovered by the liverange
// pass, splicing loadI/load/store recovery code into the block whenever
// pressure forces a value out of the register file.
package regalloc

import (
	"errors"
	"fmt"
	"math"

	"github.com/raymyers/iloc-alloc/pkg/iloc"
	"github.com/raymyers/iloc-alloc/pkg/liverange"
)

// SpillBase is the first memory address used for spilled values. Spill
// slots are 4 bytes wide and handed out sequentially from here.
const SpillBase = 32768

// ErrUseBeforeDef is returned when the sweep needs the value of a virtual
// register that was never defined and has no memory image to restore from.
var ErrUseBeforeDef = errors.New("use of undefined register")

// ErrSpillOverflow is returned when the spill address space is exhausted
var ErrSpillOverflow = errors.New("spill address overflow")

// Allocator performs the forward assignment sweep over one block
type Allocator struct {
	b           *iloc.Block
	info        *liverange.Info
	cls         *class
	k           int // effective register count after any reservation
	scratch     int // reserved register for spill addresses, or Invalid
	nextMemAddr int
	cur         int // index of the instruction being assigned
	spills      int
	restores    int
}

// NewAllocator prepares a sweep over b with numRegs requested physical
// registers. If the block's peak pressure exceeds numRegs, the highest
// register is reserved to hold spill addresses and only numRegs-1 remain
// allocatable.
func NewAllocator(b *iloc.Block, info *liverange.Info, numRegs int) *Allocator {
	a := &Allocator{
		b:           b,
		info:        info,
		k:           numRegs,
		scratch:     iloc.Invalid,
		nextMemAddr: SpillBase,
	}
	if a.k < info.MaxLive {
		a.k--
		a.scratch = a.k
	}
	a.cls = newClass(a.k)
	return a
}

// Run performs the sweep. On success every register operand in the block
// has a physical register assigned.
func (a *Allocator) Run() error {
	for a.cur = 0; a.cur < a.b.Len(); a.cur++ {
		if err := a.assign(); err != nil {
			return err
		}
	}
	return nil
}

// assign handles the instruction under the cursor: sources are ensured
// into registers, registers holding dead values are freed, surviving
// sources have their next uses re-recorded, and finally the destination
// is allocated. The frees must precede the next-use updates so a register
// whose value just died is not re-marked live, and must precede the
// destination allocation so the destination can reuse a source's register.
//
// Splicing recovery code shifts the block, so the phases work on a
// snapshot of the operands and the assigned registers are written back
// through the cursor only once all splicing is done.
func (a *Allocator) assign() error {
	instr := a.b.At(a.cur)
	src1, src2, dest := instr.Src1, instr.Src2, instr.Dest

	var err error
	if src1.IsReg {
		if src1.PR, err = a.ensure(src1.VR); err != nil {
			return err
		}
	}
	if src2.IsReg {
		if src2.PR, err = a.ensure(src2.VR); err != nil {
			return err
		}
	}

	if src1.NU == iloc.NoUse {
		a.cls.release(src1.PR)
	}
	if src2.IsReg && src2.NU == iloc.NoUse && src2.PR != src1.PR {
		a.cls.release(src2.PR)
	}

	if src1.PR != iloc.Invalid {
		a.cls.setNext(src1.PR, src1.NU)
	}
	if src2.PR != iloc.Invalid {
		a.cls.setNext(src2.PR, src2.NU)
	}

	if dest.IsReg {
		if dest.PR, err = a.allocate(dest.VR); err != nil {
			return err
		}
		a.cls.setNext(dest.PR, dest.NU)
	}

	instr = a.b.At(a.cur)
	instr.Src1.PR = src1.PR
	instr.Src2.PR = src2.PR
	instr.Dest.PR = dest.PR
	return nil
}

// ensure returns the physical register holding vr, restoring the value
// from its recovery source if it is not currently in the register file
func (a *Allocator) ensure(vr int) (int, error) {
	if pr := a.cls.holding(vr); pr != iloc.Invalid {
		return pr, nil
	}

	pr, err := a.allocate(vr)
	if err != nil {
		return iloc.Invalid, err
	}

	switch {
	case a.info.Clean[vr] == liverange.Remat:
		// Reissue the defining loadI
		restore := iloc.NewInstruction(iloc.OpLoadI)
		restore.Src1 = iloc.Imm(a.info.VRToMem[vr])
		restore.Dest.IsReg = true
		restore.Dest.PR = pr
		a.splice(restore)
	case a.info.VRToMem[vr] != iloc.Invalid:
		// Materialize the address into the scratch register, then load
		addr := iloc.NewInstruction(iloc.OpLoadI)
		addr.Src1 = iloc.Imm(a.info.VRToMem[vr])
		addr.Dest.IsReg = true
		addr.Dest.PR = a.scratch
		a.splice(addr)

		restore := iloc.NewInstruction(iloc.OpLoad)
		restore.Src1.IsReg = true
		restore.Src1.PR = a.scratch
		restore.Dest.IsReg = true
		restore.Dest.PR = pr
		a.splice(restore)
	default:
		return iloc.Invalid, fmt.Errorf("vr%d: %w", vr, ErrUseBeforeDef)
	}
	a.restores++
	return pr, nil
}

// allocate hands vr a physical register, evicting the occupant that will
// not be needed for the longest when none is free. A Dirty occupant must
// be stored before it is overwritten; the cheaper classes are recoverable
// without one.
func (a *Allocator) allocate(vr int) (int, error) {
	pr, ok := a.cls.takeFree()
	if !ok {
		pr = a.optimalVictim()
		victim := a.cls.name[pr]
		if a.info.Clean[victim] == liverange.Dirty {
			if a.nextMemAddr > math.MaxInt32-3 {
				return iloc.Invalid, ErrSpillOverflow
			}
			addr := iloc.NewInstruction(iloc.OpLoadI)
			addr.Src1 = iloc.Imm(a.nextMemAddr)
			addr.Dest.IsReg = true
			addr.Dest.PR = a.scratch
			a.splice(addr)

			a.info.VRToMem[victim] = a.nextMemAddr
			a.nextMemAddr += 4

			st := iloc.NewInstruction(iloc.OpStore)
			st.Src1.IsReg = true
			st.Src1.PR = pr
			st.Src2.IsReg = true
			st.Src2.PR = a.scratch
			a.splice(st)

			a.info.Clean[victim] = liverange.Spilled
			a.spills++
		}
	}
	a.cls.occupy(pr, vr, a.info.Clean[vr])
	return pr, nil
}

// optimalVictim picks the occupied register whose eviction costs least:
// rematerializable values first, then any other non-Dirty value, and only
// when every occupant is Dirty the one with the farthest next use overall
func (a *Allocator) optimalVictim() int {
	for _, cl := range a.cls.cclean {
		if cl == liverange.Remat {
			return a.bestOfType(liverange.Remat, false)
		}
	}
	for _, cl := range a.cls.cclean {
		if cl != liverange.Dirty {
			return a.bestOfType(liverange.Dirty, true)
		}
	}
	best := 0
	for pr := 1; pr < a.cls.sz; pr++ {
		if a.cls.next[pr] > a.cls.next[best] {
			best = pr
		}
	}
	return best
}

// bestOfType returns the register with the farthest next use among those
// whose cleanliness matches cln, or differs from cln when negate is set.
// Ties go to the highest register index.
func (a *Allocator) bestOfType(cln liverange.Class, negate bool) int {
	pr := iloc.Invalid
	optNextUse := iloc.Invalid
	for i := 0; i < a.cls.sz; i++ {
		match := a.cls.cclean[i] == cln
		if negate {
			match = !match
		}
		if match && a.cls.next[i] >= optNextUse {
			pr = i
			optNextUse = a.cls.next[i]
		}
	}
	return pr
}

// splice inserts instr immediately before the instruction under the
// cursor, then bumps the cursor so it still addresses that instruction
func (a *Allocator) splice(instr iloc.Instruction) {
	a.b.InsertBefore(a.cur, instr)
	a.cur++
}
