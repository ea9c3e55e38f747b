package regalloc

import (
	"github.com/raymyers/iloc-alloc/pkg/iloc"
	"github.com/raymyers/iloc-alloc/pkg/liverange"
)

// Result summarizes one allocation run
type Result struct {
	K         int // effective register count after any reservation
	ScratchPR int // register reserved for spill addresses, or Invalid
	MaxLive   int // peak pressure found by the liverange pass
	Spills    int // store/loadI pairs spliced for dirty evictions
	Restores  int // values restored ahead of a use
}

// TransformBlock runs live-range analysis and register allocation over b,
// rewriting it in place so every register operand names one of numRegs
// physical registers
func TransformBlock(b *iloc.Block, numRegs int) (*Result, error) {
	info := liverange.Analyze(b)
	return AllocateBlock(b, info, numRegs)
}

// AllocateBlock runs only the assignment sweep, for callers that already
// hold the liverange results
func AllocateBlock(b *iloc.Block, info *liverange.Info, numRegs int) (*Result, error) {
	a := NewAllocator(b, info, numRegs)
	if err := a.Run(); err != nil {
		return nil, err
	}
	return &Result{
		K:         a.k,
		ScratchPR: a.scratch,
		MaxLive:   info.MaxLive,
		Spills:    a.spills,
		Restores:  a.restores,
	}, nil
}
