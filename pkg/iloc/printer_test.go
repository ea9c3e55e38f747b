package iloc

import (
	"bytes"
	"strings"
	"testing"
)

func printOne(instr Instruction) string {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintInstruction(&instr)
	return buf.String()
}

func TestPrintInstructionForms(t *testing.T) {
	t.Run("nop", func(t *testing.T) {
		if got := printOne(NewInstruction(OpNop)); got != "nop\n" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("output", func(t *testing.T) {
		instr := NewInstruction(OpOutput)
		instr.Src1 = Imm(1024)
		if got := printOne(instr); got != "output    1024\n" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("loadI", func(t *testing.T) {
		instr := NewInstruction(OpLoadI)
		instr.Src1 = Imm(42)
		instr.Dest = Reg(3)
		if got := printOne(instr); got != "loadI     42        =>   r3\n" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("load", func(t *testing.T) {
		instr := NewInstruction(OpLoad)
		instr.Src1 = Reg(1)
		instr.Dest = Reg(2)
		if got := printOne(instr); got != "load      r1        =>   r2\n" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("store", func(t *testing.T) {
		instr := NewInstruction(OpStore)
		instr.Src1 = Reg(4)
		instr.Src2 = Reg(5)
		if got := printOne(instr); got != "store     r4        =>   r5\n" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("add", func(t *testing.T) {
		instr := NewInstruction(OpAdd)
		instr.Src1 = Reg(1)
		instr.Src2 = Reg(2)
		instr.Dest = Reg(3)
		if got := printOne(instr); got != "add       r1, r2    =>   r3\n" {
			t.Errorf("got %q", got)
		}
	})
}

func TestPrintPrefersPhysicalRegister(t *testing.T) {
	instr := NewInstruction(OpLoad)
	instr.Src1 = Reg(17)
	instr.Src1.PR = 0
	instr.Dest = Reg(23)
	instr.Dest.PR = 1

	got := printOne(instr)
	if !strings.Contains(got, "r0") || !strings.Contains(got, "r1") {
		t.Errorf("expected physical registers in output, got %q", got)
	}
	if strings.Contains(got, "r17") || strings.Contains(got, "r23") {
		t.Errorf("source registers leaked into output: %q", got)
	}
}

func TestPrintBlock(t *testing.T) {
	b := NewBlock()
	li := NewInstruction(OpLoadI)
	li.Src1 = Imm(8)
	li.Dest = Reg(0)
	b.Append(li)
	out := NewInstruction(OpOutput)
	out.Src1 = Imm(8)
	b.Append(out)

	var buf bytes.Buffer
	NewPrinter(&buf).PrintBlock(b)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "loadI") || !strings.HasPrefix(lines[1], "output") {
		t.Errorf("unexpected output: %q", buf.String())
	}
}
