// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

// Package block implements the program's code-block tree (the assembler's
// output) and the span packer that compiles a flat operation list into the
// fixed-width op-groups and op-batches the decoder's hasher absorbs.
package block

import (
	"errors"
	"fmt"

	"github.com/probechain/zkdecoder/field"
	"github.com/probechain/zkdecoder/hasher"
	"github.com/probechain/zkdecoder/op"
)

// ErrUnexecutable flags a malformed tree the driver cannot execute, such as
// a Span the packer was asked to build from zero operations.
var ErrUnexecutable = errors.New("block: unexecutable code block")

// CodeBlock is the tagged variant of the program tree: Span, Join, Split, or
// Loop. Every variant carries a cached, structurally-derived hash; the
// decoder trusts it without re-validation (the assembler is the trust
// boundary).
type CodeBlock interface {
	// Hash returns the block's cached structural digest.
	Hash() field.Word
	// codeBlock is unexported so CodeBlock cannot be implemented outside
	// this package; the driver matches on the concrete variant explicitly
	// rather than through double dispatch.
	codeBlock()
}

// Join is sequential composition of two blocks.
type Join struct {
	First, Second CodeBlock
	hash          field.Word
}

// Split is a stack-conditional branch between two blocks.
type Split struct {
	OnTrue, OnFalse CodeBlock
	hash            field.Word
}

// Loop is a stack-conditional repetition of a single body block.
type Loop struct {
	Body CodeBlock
	hash field.Word
}

// Span is a straight-line run of user operations, pre-packed into batches.
type Span struct {
	Batches     []OpBatch
	Ops         []OpSlot
	NumOpGroups int
	hash        field.Word
}

func (b *Join) codeBlock()  {}
func (b *Split) codeBlock() {}
func (b *Loop) codeBlock()  {}
func (b *Span) codeBlock()  {}

// Hash returns the cached structural digest.
func (b *Join) Hash() field.Word { return b.hash }

// Hash returns the cached structural digest.
func (b *Split) Hash() field.Word { return b.hash }

// Hash returns the cached structural digest.
func (b *Loop) Hash() field.Word { return b.hash }

// Hash returns the cached structural digest.
func (b *Span) Hash() field.Word { return b.hash }

// NewJoin builds a Join block over first and second, deriving its hash by
// absorbing both children's digests into h.
func NewJoin(first, second CodeBlock, h hasher.Hasher) (*Join, error) {
	hash, err := hashChildren(h, first.Hash(), second.Hash())
	if err != nil {
		return nil, fmt.Errorf("block: hashing join: %w", err)
	}
	return &Join{First: first, Second: second, hash: hash}, nil
}

// NewSplit builds a Split block over onTrue/onFalse, deriving its hash the
// same way as NewJoin (the two arms play the role of left/right children).
func NewSplit(onTrue, onFalse CodeBlock, h hasher.Hasher) (*Split, error) {
	hash, err := hashChildren(h, onTrue.Hash(), onFalse.Hash())
	if err != nil {
		return nil, fmt.Errorf("block: hashing split: %w", err)
	}
	return &Split{OnTrue: onTrue, OnFalse: onFalse, hash: hash}, nil
}

// NewLoop builds a Loop block over body, deriving its hash by absorbing the
// body's digest with a zero right child.
func NewLoop(body CodeBlock, h hasher.Hasher) (*Loop, error) {
	hash, err := hashChildren(h, body.Hash(), field.WordZero)
	if err != nil {
		return nil, fmt.Errorf("block: hashing loop: %w", err)
	}
	return &Loop{Body: body, hash: hash}, nil
}

// NewSpan packs ops into batches via Pack and builds the resulting Span; the
// digest Pack computes by absorbing the packed batches into h becomes the
// Span's structural hash.
func NewSpan(ops []op.Operation, h hasher.Hasher) (*Span, error) {
	batches, slots, numOpGroups, hash, err := Pack(ops, h)
	if err != nil {
		return nil, err
	}
	return &Span{Batches: batches, Ops: slots, NumOpGroups: numOpGroups, hash: hash}, nil
}

// hashChildren absorbs two child digests into a single 12-wide state (left
// digest in the rate's first four cells, right digest in the next four, the
// capacity left zero) and returns the resulting structural hash.
func hashChildren(h hasher.Hasher, left, right field.Word) (field.Word, error) {
	var state [12]field.Felt
	copy(state[0:4], left[:])
	copy(state[4:8], right[:])
	_, digest, err := h.Hash(state)
	if err != nil {
		return field.WordZero, err
	}
	return digest, nil
}
