// Package liverange discovers live ranges in a basic block. A single
// reverse sweep maps every source register to a dense virtual register,
// records the next-use index on each register operand, tracks peak register
// pressure, and classifies each virtual register by how cheaply its value
// can be recovered if the allocator has to evict it.
package liverange

import "github.com/raymyers/iloc-alloc/pkg/iloc"

// Class describes how a virtual register's value can be recovered after
// eviction. Dirty values need a full spill; the other classes can be
// recovered without storing anything.
type Class int

const (
	Dirty     Class = iota // no current memory copy; spill before evicting
	Remat                  // produced by loadI; reissue the loadI to restore
	Spilled                // spilled earlier; memory copy is current
	CleanLoad              // loaded from an address no store modifies
)

var classNames = []string{"dirty", "remat", "spill", "cload"}

func (c Class) String() string {
	if int(c) < len(classNames) {
		return classNames[c]
	}
	return "?"
}

// Info holds the per-virtual-register results of the sweep. Clean and
// VRToMem are indexed by virtual register; VRToMem holds the spill address,
// the rematerializable constant, or the clean-load address, and
// iloc.Invalid when the value has no memory image.
type Info struct {
	Clean   []Class
	VRToMem []int
	MaxLive int // peak number of simultaneously live virtual registers
	NumVR   int
}

// storeRec tracks one store seen during the reverse sweep. Addr stays
// Invalid until the loadI defining the address register is reached.
type storeRec struct {
	vr   int // virtual register of the address operand
	addr int
}

// loadRec tracks one load seen during the reverse sweep, by the virtual
// registers of its address operand and its result.
type loadRec struct {
	srcVR  int
	destVR int
}

// analysis is the mutable state of one reverse sweep
type analysis struct {
	info    *Info
	sr2vr   []int
	lastUse []int
	vrName  int
	numLive int
	stores  []storeRec
	loads   []loadRec
}

// Analyze performs the reverse sweep over b. Every register operand comes
// back with VR and NU set; the returned Info carries the per-VR side tables
// and the peak pressure the allocator needs for its reservation decision.
func Analyze(b *iloc.Block) *Info {
	numSR := countSourceRegs(b)
	a := &analysis{
		info:    &Info{},
		sr2vr:   make([]int, numSR),
		lastUse: make([]int, numSR),
	}
	for i := range a.sr2vr {
		a.sr2vr[i] = iloc.Invalid
		a.lastUse[i] = iloc.NoUse
	}

	for i := b.Len() - 1; i >= 0; i-- {
		a.visit(b.At(i), i)
	}

	a.info.NumVR = a.vrName
	return a.info
}

// visit processes one instruction of the reverse sweep
func (a *analysis) visit(instr *iloc.Instruction, i int) {
	// The destination ends its live range here: annotate it, then kill the
	// mapping so an earlier use of the same source register starts a fresh
	// virtual register.
	if instr.Dest.IsReg {
		a.update(&instr.Dest, i)
		a.sr2vr[instr.Dest.SR] = iloc.Invalid
		a.lastUse[instr.Dest.SR] = iloc.NoUse
		a.numLive--
		a.reconcileStores(instr)
	}
	if instr.Src1.IsReg {
		a.update(&instr.Src1, i)
	}
	if instr.Src2.IsReg {
		a.update(&instr.Src2, i)
	}

	switch instr.Op {
	case iloc.OpLoadI:
		// The value is reproducible from the immediate alone
		a.info.Clean[instr.Dest.VR] = Remat
		a.info.VRToMem[instr.Dest.VR] = instr.Src1.SR
		a.checkCleanLoads(instr)
	case iloc.OpStore:
		// Address unknown until the sweep reaches the loadI defining it
		a.stores = append(a.stores, storeRec{vr: instr.Src2.VR, addr: iloc.Invalid})
	case iloc.OpLoad:
		a.loads = append(a.loads, loadRec{srcVR: instr.Src1.VR, destVR: instr.Dest.VR})
	}
}

// update annotates one register operand: assigns a fresh virtual register
// if this source register has no live mapping, and records the next-use
// index, which during a reverse sweep is simply the last index seen so far.
func (a *analysis) update(op *iloc.Operand, i int) {
	if a.sr2vr[op.SR] == iloc.Invalid {
		a.sr2vr[op.SR] = a.vrName
		a.vrName++
		a.numLive++
		if a.numLive > a.info.MaxLive {
			a.info.MaxLive = a.numLive
		}
		a.info.VRToMem = append(a.info.VRToMem, iloc.Invalid)
		a.info.Clean = append(a.info.Clean, Dirty)
	}
	op.VR = a.sr2vr[op.SR]
	op.NU = a.lastUse[op.SR]
	a.lastUse[op.SR] = i
}

// reconcileStores resolves the address of any pending store whose address
// register is defined by instr. A loadI reveals the address; any other
// defining instruction makes the address unrecoverable, so the entry is
// dropped and that store no longer counts against any clean-load candidate.
// Only entries still waiting on an address are touched.
func (a *analysis) reconcileStores(instr *iloc.Instruction) {
	for si := range a.stores {
		if a.stores[si].vr != instr.Dest.VR || a.stores[si].addr != iloc.Invalid {
			continue
		}
		if instr.Op == iloc.OpLoadI {
			a.stores[si].addr = instr.Src1.SR
		} else {
			a.stores = append(a.stores[:si], a.stores[si+1:]...)
		}
		return
	}
}

// checkCleanLoads runs when the sweep reaches a loadI: any recorded load
// whose address register is defined by this loadI reads from a known
// constant address, and if no store targets that address the loaded value
// can be recovered by reissuing the load.
func (a *analysis) checkCleanLoads(instr *iloc.Instruction) {
	addr := instr.Src1.SR
	for li := range a.loads {
		if a.loads[li].srcVR != instr.Dest.VR {
			continue
		}
		if a.storeTo(addr) {
			continue
		}
		a.info.Clean[a.loads[li].destVR] = CleanLoad
		a.info.VRToMem[a.loads[li].destVR] = addr
		a.loads = append(a.loads[:li], a.loads[li+1:]...)
		return
	}
}

// storeTo reports whether any recorded store resolves to addr
func (a *analysis) storeTo(addr int) bool {
	for _, s := range a.stores {
		if s.addr == addr {
			return true
		}
	}
	return false
}

// countSourceRegs scans the block once and returns the highest source
// register number plus one, sizing the sweep's per-SR tables
func countSourceRegs(b *iloc.Block) int {
	high := iloc.Invalid
	for i := 0; i < b.Len(); i++ {
		instr := b.At(i)
		if instr.Dest.IsReg && instr.Dest.SR > high {
			high = instr.Dest.SR
		}
		if instr.Src2.IsReg && instr.Src2.SR > high {
			high = instr.Src2.SR
		}
		if instr.Src1.IsReg && instr.Src1.SR > high {
			high = instr.Src1.SR
		}
	}
	return high + 1
}
