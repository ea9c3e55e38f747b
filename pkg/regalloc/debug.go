package regalloc

import (
	"fmt"
	"io"

	"github.com/raymyers/iloc-alloc/pkg/iloc"
	"github.com/raymyers/iloc-alloc/pkg/liverange"
)

// WriteTable dumps the annotated block in tabular form, one row per
// instruction with the sr/vr/pr/nu fields of every operand and the
// cleanliness class of the destination's live range. Debug aid behind the
// CLI's -p flag; every line is prefixed as a line comment so the dump can
// sit alongside legal ILOC output.
func WriteTable(w io.Writer, b *iloc.Block, info *liverange.Info) {
	fmt.Fprintf(w, "// %-5s %-8s %-24s %-24s %-24s %s\n",
		"index", "opcode", "op1 (sr vr pr nu)", "op2 (sr vr pr nu)", "dest (sr vr pr nu)", "clean")
	for i := 0; i < b.Len(); i++ {
		instr := b.At(i)
		fmt.Fprintf(w, "// %-5d %-8s %-24s %-24s %-24s %s\n",
			i, instr.Op,
			operandCells(instr.Src1),
			operandCells(instr.Src2),
			operandCells(instr.Dest),
			destClass(instr, info))
	}
}

func operandCells(op iloc.Operand) string {
	return fmt.Sprintf("%5s %5s %5s %5s",
		cell(op.SR), cell(op.VR), cell(op.PR), cell(op.NU))
}

// cell renders one register field, keeping the sentinels readable
func cell(v int) string {
	switch v {
	case iloc.Invalid:
		return "-"
	case iloc.NoUse:
		return "inf"
	default:
		return fmt.Sprintf("%d", v)
	}
}

func destClass(instr *iloc.Instruction, info *liverange.Info) string {
	if !instr.Dest.IsReg || instr.Dest.VR == iloc.Invalid || instr.Dest.VR >= len(info.Clean) {
		return ""
	}
	return info.Clean[instr.Dest.VR].String()
}
