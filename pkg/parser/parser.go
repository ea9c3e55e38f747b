// Package parser implements a recursive descent parser for single-block
// ILOC code, producing the iloc.Block consumed by the allocator passes
package parser

import (
	"fmt"
	"strconv"

	"github.com/raymyers/iloc-alloc/pkg/iloc"
	"github.com/raymyers/iloc-alloc/pkg/lexer"
)

// Parser parses ILOC source into an iloc.Block
type Parser struct {
	l         *lexer.Lexer
	curToken  lexer.Token
	peekToken lexer.Token
	errors    []string
}

// New creates a new Parser for the given lexer
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}
	// Read two tokens to initialize curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

// Errors returns the list of parsing errors
func (p *Parser) Errors() []string {
	return p.errors
}

func (p *Parser) addError(msg string) {
	p.errors = append(p.errors, fmt.Sprintf("line %d, col %d: %s",
		p.curToken.Line, p.curToken.Column, msg))
}

func (p *Parser) curTokenIs(t lexer.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) expect(t lexer.TokenType) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	p.addError(fmt.Sprintf("expected %s, got %s", t, p.curToken.Type))
	return false
}

// ParseBlock parses the whole input as one basic block
func (p *Parser) ParseBlock() *iloc.Block {
	b := iloc.NewBlock()
	for !p.curTokenIs(lexer.TokenEOF) {
		instr, ok := p.parseInstruction()
		if ok {
			b.Append(instr)
		} else {
			p.synchronize()
		}
	}
	return b
}

// synchronize skips tokens until the next opcode keyword so one malformed
// instruction does not cascade into errors for the rest of the block
func (p *Parser) synchronize() {
	for !p.curTokenIs(lexer.TokenEOF) && !lexer.IsOpcode(p.curToken.Type) {
		p.nextToken()
	}
}

func (p *Parser) parseInstruction() (iloc.Instruction, bool) {
	switch p.curToken.Type {
	case lexer.TokenLoad:
		return p.parseMemop(iloc.OpLoad)
	case lexer.TokenStore:
		return p.parseMemop(iloc.OpStore)
	case lexer.TokenLoadI:
		return p.parseLoadI()
	case lexer.TokenAdd:
		return p.parseArithop(iloc.OpAdd)
	case lexer.TokenSub:
		return p.parseArithop(iloc.OpSub)
	case lexer.TokenMult:
		return p.parseArithop(iloc.OpMult)
	case lexer.TokenLshift:
		return p.parseArithop(iloc.OpLshift)
	case lexer.TokenRshift:
		return p.parseArithop(iloc.OpRshift)
	case lexer.TokenOutput:
		return p.parseOutput()
	case lexer.TokenNop:
		p.nextToken()
		return iloc.NewInstruction(iloc.OpNop), true
	default:
		p.addError(fmt.Sprintf("expected opcode, got %s %q",
			p.curToken.Type, p.curToken.Literal))
		p.nextToken()
		return iloc.Instruction{}, false
	}
}

// parseMemop parses "load r1 => r2" and "store r1 => r2". A store names no
// destination register in the IR sense: the value register goes in Src1 and
// the address register in Src2, since a store defines nothing.
func (p *Parser) parseMemop(op iloc.Opcode) (iloc.Instruction, bool) {
	instr := iloc.NewInstruction(op)
	p.nextToken()

	src, ok := p.parseReg()
	if !ok {
		return instr, false
	}
	instr.Src1 = src

	if !p.expect(lexer.TokenInto) {
		return instr, false
	}

	target, ok := p.parseReg()
	if !ok {
		return instr, false
	}
	if op == iloc.OpStore {
		instr.Src2 = target
	} else {
		instr.Dest = target
	}
	return instr, true
}

// parseLoadI parses "loadI 1024 => r2"; the constant rides in Src1.SR
func (p *Parser) parseLoadI() (iloc.Instruction, bool) {
	instr := iloc.NewInstruction(iloc.OpLoadI)
	p.nextToken()

	c, ok := p.parseConstant()
	if !ok {
		return instr, false
	}
	instr.Src1 = iloc.Imm(c)

	if !p.expect(lexer.TokenInto) {
		return instr, false
	}

	dest, ok := p.parseReg()
	if !ok {
		return instr, false
	}
	instr.Dest = dest
	return instr, true
}

// parseArithop parses "add r1, r2 => r3" and the other three-register forms
func (p *Parser) parseArithop(op iloc.Opcode) (iloc.Instruction, bool) {
	instr := iloc.NewInstruction(op)
	p.nextToken()

	src1, ok := p.parseReg()
	if !ok {
		return instr, false
	}
	instr.Src1 = src1

	if !p.expect(lexer.TokenComma) {
		return instr, false
	}

	src2, ok := p.parseReg()
	if !ok {
		return instr, false
	}
	instr.Src2 = src2

	if !p.expect(lexer.TokenInto) {
		return instr, false
	}

	dest, ok := p.parseReg()
	if !ok {
		return instr, false
	}
	instr.Dest = dest
	return instr, true
}

// parseOutput parses "output 1024"; the constant rides in Src1.SR
func (p *Parser) parseOutput() (iloc.Instruction, bool) {
	instr := iloc.NewInstruction(iloc.OpOutput)
	p.nextToken()

	c, ok := p.parseConstant()
	if !ok {
		return instr, false
	}
	instr.Src1 = iloc.Imm(c)
	return instr, true
}

func (p *Parser) parseReg() (iloc.Operand, bool) {
	if !p.curTokenIs(lexer.TokenReg) {
		p.addError(fmt.Sprintf("expected register, got %s %q",
			p.curToken.Type, p.curToken.Literal))
		return iloc.None(), false
	}
	n, err := strconv.Atoi(p.curToken.Literal)
	if err != nil {
		p.addError(fmt.Sprintf("bad register number %q", p.curToken.Literal))
		return iloc.None(), false
	}
	p.nextToken()
	return iloc.Reg(n), true
}

func (p *Parser) parseConstant() (int, bool) {
	if !p.curTokenIs(lexer.TokenConstant) {
		p.addError(fmt.Sprintf("expected constant, got %s %q",
			p.curToken.Type, p.curToken.Literal))
		return 0, false
	}
	n, err := strconv.Atoi(p.curToken.Literal)
	if err != nil {
		p.addError(fmt.Sprintf("bad constant %q", p.curToken.Literal))
		return 0, false
	}
	p.nextToken()
	return n, true
}
