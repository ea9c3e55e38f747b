package liverange

import (
	"testing"

	"github.com/raymyers/iloc-alloc/pkg/iloc"
	"github.com/raymyers/iloc-alloc/pkg/lexer"
	"github.com/raymyers/iloc-alloc/pkg/parser"
)

func mustParse(t *testing.T, src string) *iloc.Block {
	t.Helper()
	p := parser.New(lexer.New(src))
	b := p.ParseBlock()
	if errs := p.Errors(); len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	return b
}

func TestVirtualRegisterNumbering(t *testing.T) {
	b := mustParse(t, `
loadI 1024 => r0
loadI 4 => r1
add r0, r1 => r2
output 1024
`)
	info := Analyze(b)

	// The reverse sweep reaches the add first, so its operands get the
	// lowest numbers, destination before sources
	if got := b.At(2).Dest.VR; got != 0 {
		t.Errorf("r2: expected vr0, got vr%d", got)
	}
	if got := b.At(2).Src1.VR; got != 1 {
		t.Errorf("r0 at add: expected vr1, got vr%d", got)
	}
	if got := b.At(2).Src2.VR; got != 2 {
		t.Errorf("r1 at add: expected vr2, got vr%d", got)
	}

	// Definitions share the virtual register of their uses
	if got := b.At(0).Dest.VR; got != 1 {
		t.Errorf("loadI => r0: expected vr1, got vr%d", got)
	}
	if got := b.At(1).Dest.VR; got != 2 {
		t.Errorf("loadI => r1: expected vr2, got vr%d", got)
	}

	if info.NumVR != 3 {
		t.Errorf("expected 3 virtual registers, got %d", info.NumVR)
	}
}

func TestNextUseIndices(t *testing.T) {
	b := mustParse(t, `
loadI 1024 => r0
loadI 4 => r1
add r0, r1 => r2
output 1024
`)
	Analyze(b)

	// Both loadI destinations are next used by the add at index 2
	if got := b.At(0).Dest.NU; got != 2 {
		t.Errorf("r0 def: expected nu 2, got %d", got)
	}
	if got := b.At(1).Dest.NU; got != 2 {
		t.Errorf("r1 def: expected nu 2, got %d", got)
	}

	// The add's operands and its dead result have no further use
	if got := b.At(2).Src1.NU; got != iloc.NoUse {
		t.Errorf("r0 use: expected NoUse, got %d", got)
	}
	if got := b.At(2).Src2.NU; got != iloc.NoUse {
		t.Errorf("r1 use: expected NoUse, got %d", got)
	}
	if got := b.At(2).Dest.NU; got != iloc.NoUse {
		t.Errorf("r2 def: expected NoUse, got %d", got)
	}
}

func TestMaxLive(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want int
	}{
		{
			name: "simple chain",
			src: `
loadI 1024 => r0
loadI 4 => r1
add r0, r1 => r2
output 1024
`,
			want: 2,
		},
		{
			name: "three operands overlap",
			src: `
loadI 10 => r0
loadI 20 => r1
loadI 30 => r2
add r0, r1 => r3
add r3, r2 => r4
store r4 => r0
`,
			want: 3,
		},
		{
			name: "no registers",
			src:  "nop\noutput 2048\nnop\n",
			want: 0,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			info := Analyze(mustParse(t, tc.src))
			if info.MaxLive != tc.want {
				t.Errorf("expected maxLive %d, got %d", tc.want, info.MaxLive)
			}
		})
	}
}

func TestRematTagging(t *testing.T) {
	b := mustParse(t, `
loadI 100 => r0
loadI 200 => r1
add r0, r1 => r2
store r2 => r0
`)
	info := Analyze(b)

	r0 := b.At(0).Dest.VR
	r1 := b.At(1).Dest.VR
	r2 := b.At(2).Dest.VR

	if info.Clean[r0] != Remat || info.VRToMem[r0] != 100 {
		t.Errorf("r0: expected Remat/100, got %s/%d", info.Clean[r0], info.VRToMem[r0])
	}
	if info.Clean[r1] != Remat || info.VRToMem[r1] != 200 {
		t.Errorf("r1: expected Remat/200, got %s/%d", info.Clean[r1], info.VRToMem[r1])
	}
	if info.Clean[r2] != Dirty {
		t.Errorf("r2: arithmetic result should be Dirty, got %s", info.Clean[r2])
	}
	if info.VRToMem[r2] != iloc.Invalid {
		t.Errorf("r2: expected no memory image, got %d", info.VRToMem[r2])
	}
}

func TestCleanLoadTagging(t *testing.T) {
	b := mustParse(t, `
loadI 1024 => r0
load r0 => r1
loadI 2048 => r2
add r1, r2 => r3
loadI 4096 => r4
store r3 => r4
output 4096
`)
	info := Analyze(b)

	loaded := b.At(1).Dest.VR
	if info.Clean[loaded] != CleanLoad {
		t.Errorf("expected CleanLoad for value loaded from 1024, got %s", info.Clean[loaded])
	}
	if info.VRToMem[loaded] != 1024 {
		t.Errorf("expected load address 1024, got %d", info.VRToMem[loaded])
	}
}

func TestStoreInvalidatesCleanLoad(t *testing.T) {
	// The store resolves to address 1024, the same address the load
	// reads, so the loaded value cannot be reissued
	b := mustParse(t, `
loadI 1024 => r0
load r0 => r1
loadI 1024 => r2
store r1 => r2
output 1024
`)
	info := Analyze(b)

	loaded := b.At(1).Dest.VR
	if info.Clean[loaded] != Dirty {
		t.Errorf("expected Dirty for load shadowed by store, got %s", info.Clean[loaded])
	}
	if info.VRToMem[loaded] != iloc.Invalid {
		t.Errorf("expected no memory image, got %d", info.VRToMem[loaded])
	}
}

func TestUnresolvableStorePruned(t *testing.T) {
	// The store's address register is defined by an add, so its target
	// can never be resolved; the entry is dropped rather than blocking
	// every clean-load candidate
	b := mustParse(t, `
loadI 1024 => r0
load r0 => r1
add r1, r1 => r2
store r1 => r2
output 1024
`)
	info := Analyze(b)

	loaded := b.At(1).Dest.VR
	if info.Clean[loaded] != CleanLoad {
		t.Errorf("expected CleanLoad once unresolvable store is pruned, got %s", info.Clean[loaded])
	}
}

func TestFreshVRPerLiveRange(t *testing.T) {
	// r1 is redefined, so its two live ranges get distinct VRs
	b := mustParse(t, `
loadI 5 => r1
loadI 10 => r2
add r1, r2 => r3
loadI 7 => r1
add r1, r3 => r4
store r4 => r2
`)
	Analyze(b)

	first := b.At(0).Dest.VR
	second := b.At(3).Dest.VR
	if first == second {
		t.Errorf("redefinition of r1 should start a fresh live range, both got vr%d", first)
	}
	if b.At(2).Src1.VR != first {
		t.Errorf("first use of r1 should share vr%d, got vr%d", first, b.At(2).Src1.VR)
	}
	if b.At(4).Src1.VR != second {
		t.Errorf("second use of r1 should share vr%d, got vr%d", second, b.At(4).Src1.VR)
	}
}
