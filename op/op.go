// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

// Package op defines the decoder's operation alphabet: the tagged set of
// control and user opcodes that appear in a Span's op-groups and drive the
// block-tree protocol in package decoder.
package op

import (
	"fmt"

	"github.com/probechain/zkdecoder/field"
)

// Kind is a 7-bit opcode. Encoding constant OP_BITS packs up to nine Kinds
// into a single 64-bit op-group; the opcode space is bounded to fit.
type Kind uint8

// OpBits is the bit width of a packed opcode. OpsPerGroup is the number of
// opcodes that fit in one 64-bit op-group at that stride.
const (
	OpBits      = 7
	OpsPerGroup = 64 / OpBits
)

const (
	// ---- Control ops, one per trace control row ----------------------------

	Join Kind = iota
	Split
	Loop
	Span
	Respan
	End
	Repeat
	Halt

	// ---- Stack ops, packed into Span op-groups ------------------------------

	Noop
	Push
	Drop
	Pad
	Add
	Mul
	Inv
	U32add

	// ---- Decorators: accepted anywhere, never occupy a trace row ------------

	Debug

	kindCount
)

// kindInfo groups a Kind's mnemonic and whether it is a decorator.
type kindInfo struct {
	name      string
	decorator bool
	hasImm    bool
}

var kindTable = [kindCount]kindInfo{
	Join:   {"JOIN", false, false},
	Split:  {"SPLIT", false, false},
	Loop:   {"LOOP", false, false},
	Span:   {"SPAN", false, false},
	Respan: {"RESPAN", false, false},
	End:    {"END", false, false},
	Repeat: {"REPEAT", false, false},
	Halt:   {"HALT", false, false},

	Noop:   {"NOOP", false, false},
	Push:   {"PUSH", false, true},
	Drop:   {"DROP", false, false},
	Pad:    {"PAD", false, false},
	Add:    {"ADD", false, false},
	Mul:    {"MUL", false, false},
	Inv:    {"INV", false, false},
	U32add: {"U32ADD", false, false},

	Debug: {"DEBUG", true, false},
}

// String returns the opcode's mnemonic, or "UNKNOWN" if out of range.
func (k Kind) String() string {
	if int(k) >= len(kindTable) {
		return "UNKNOWN"
	}
	return kindTable[k].name
}

// IsDecorator reports whether k is a pseudo-op that emits no trace row.
func (k Kind) IsDecorator() bool {
	if int(k) >= len(kindTable) {
		return false
	}
	return kindTable[k].decorator
}

// HasImmediate reports whether k carries a trailing immediate Felt (Push).
func (k Kind) HasImmediate() bool {
	if int(k) >= len(kindTable) {
		return false
	}
	return kindTable[k].hasImm
}

// Operation is one entry in a Span's flat operation list: a Kind plus its
// optional immediate operand.
type Operation struct {
	Kind Kind
	Imm  field.Felt
}

// New returns a plain, immediate-free Operation of the given Kind.
func New(k Kind) Operation {
	return Operation{Kind: k}
}

// NewPush returns a Push Operation carrying imm as its immediate value.
func NewPush(imm field.Felt) Operation {
	return Operation{Kind: Push, Imm: imm}
}

// IsDecorator reports whether op is a pseudo-op that emits no trace row.
func (op Operation) IsDecorator() bool { return op.Kind.IsDecorator() }

func (op Operation) String() string {
	if op.Kind == Push {
		return fmt.Sprintf("PUSH(%d)", op.Imm.Uint64())
	}
	return op.Kind.String()
}
