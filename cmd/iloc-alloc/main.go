package main

import (
	"fmt"
	"io"
	"os"

	"github.com/raymyers/iloc-alloc/pkg/iloc"
	"github.com/raymyers/iloc-alloc/pkg/interp"
	"github.com/raymyers/iloc-alloc/pkg/lexer"
	"github.com/raymyers/iloc-alloc/pkg/liverange"
	"github.com/raymyers/iloc-alloc/pkg/parser"
	"github.com/raymyers/iloc-alloc/pkg/regalloc"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

// minRegs is the smallest register budget the allocator accepts: two for
// instruction operands plus one that may be reserved for spill addresses
const minRegs = 3

var (
	numRegs    int
	dumpTokens bool
	dumpTable  bool
	execute    bool
)

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "iloc-alloc [file]",
		Short: "iloc-alloc performs local register allocation on a block of ILOC code",
		Long: `iloc-alloc reads a file containing a single basic block of ILOC code,
maps its source registers onto a fixed number of physical registers, and
prints the rewritten block. When the block needs more registers than the
target provides, values are spilled to memory and restored before use.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				cmd.Help()
				return nil
			}
			if numRegs < minRegs {
				fmt.Fprintf(errOut, "iloc-alloc: invalid number of registers: %d (minimum %d)\n",
					numRegs, minRegs)
				return fmt.Errorf("invalid number of registers")
			}
			filename := args[0]

			if dumpTokens {
				return doTokens(filename, out, errOut)
			}
			return doAllocate(filename, out, errOut)
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	rootCmd.Flags().IntVarP(&numRegs, "registers", "k", 5, "Number of physical registers to allocate")
	rootCmd.Flags().BoolVarP(&dumpTokens, "tokens", "t", false, "Dump scanned tokens and exit")
	rootCmd.Flags().BoolVarP(&dumpTable, "table", "p", false, "Dump the annotated IR table to stderr")
	rootCmd.Flags().BoolVarP(&execute, "execute", "x", false, "Execute the allocated block and print its output values")

	return rootCmd
}

// doTokens scans the file and prints each token on its own line (-t flag)
func doTokens(filename string, out, errOut io.Writer) error {
	content, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(errOut, "iloc-alloc: error reading %s: %v\n", filename, err)
		return err
	}

	l := lexer.New(string(content))
	for tok := l.NextToken(); tok.Type != lexer.TokenEOF; tok = l.NextToken() {
		fmt.Fprintf(out, "<%s, %s>\n", tok.Type, tok.Literal)
	}
	return nil
}

// doAllocate runs the full pipeline: parse, analyze, allocate, print
func doAllocate(filename string, out, errOut io.Writer) error {
	b, err := parseFile(filename, errOut)
	if err != nil {
		return err
	}

	info := liverange.Analyze(b)
	if _, err := regalloc.AllocateBlock(b, info, numRegs); err != nil {
		fmt.Fprintf(errOut, "iloc-alloc: allocation failed: %v\n", err)
		return err
	}

	if dumpTable {
		regalloc.WriteTable(errOut, b, info)
	}

	printer := iloc.NewPrinter(out)
	printer.PrintBlock(b)

	if execute {
		state, err := interp.Run(b, interp.ByPR)
		if err != nil {
			fmt.Fprintf(errOut, "iloc-alloc: execution failed: %v\n", err)
			return err
		}
		for _, v := range state.Output {
			fmt.Fprintf(errOut, "%d\n", v)
		}
	}
	return nil
}

// parseFile reads and parses an ILOC file, reporting errors to errOut
func parseFile(filename string, errOut io.Writer) (*iloc.Block, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(errOut, "iloc-alloc: error reading %s: %v\n", filename, err)
		return nil, err
	}

	l := lexer.New(string(content))
	p := parser.New(l)
	b := p.ParseBlock()

	if len(p.Errors()) > 0 {
		for _, e := range p.Errors() {
			fmt.Fprintf(errOut, "%s: %s\n", filename, e)
		}
		return nil, fmt.Errorf("parsing failed with %d errors", len(p.Errors()))
	}
	return b, nil
}
