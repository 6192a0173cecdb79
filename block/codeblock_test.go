// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package block

import (
	"testing"

	"github.com/probechain/zkdecoder/field"
	"github.com/probechain/zkdecoder/hasher"
	"github.com/probechain/zkdecoder/op"
)

func mustSpan(t *testing.T, h hasher.Hasher, ops ...op.Operation) *Span {
	t.Helper()
	s, err := NewSpan(ops, h)
	if err != nil {
		t.Fatalf("NewSpan: %v", err)
	}
	return s
}

func TestJoinHashDependsOnChildren(t *testing.T) {
	h := hasher.NewStubHasher()
	a := mustSpan(t, h, op.New(op.Add))
	b := mustSpan(t, h, op.New(op.Mul))

	j1, err := NewJoin(a, b, h)
	if err != nil {
		t.Fatalf("NewJoin: %v", err)
	}
	j2, err := NewJoin(b, a, h)
	if err != nil {
		t.Fatalf("NewJoin: %v", err)
	}
	if j1.Hash().Equal(j2.Hash()) {
		t.Fatal("Join(a,b) and Join(b,a) hashed identically")
	}
}

func TestLoopHashDiffersFromBareBody(t *testing.T) {
	// StubHasher's digest is the first four absorbed cells, which for a Loop
	// is the body's digest itself, so a real permutation is needed here.
	h := hasher.NewSpongeHasher()
	body := mustSpan(t, h, op.New(op.Add))

	loop, err := NewLoop(body, h)
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	if loop.Hash().Equal(body.Hash()) {
		t.Fatal("Loop hash collided with its bare body hash")
	}
}

func TestSpanPreservesPackedBatches(t *testing.T) {
	h := hasher.NewStubHasher()
	span := mustSpan(t, h, op.New(op.Add), op.NewPush(field.New(7)))
	if len(span.Batches) == 0 {
		t.Fatal("expected at least one packed batch")
	}
	if len(span.Ops) == 0 {
		t.Fatal("expected replayable op slots")
	}
}

func TestNewSpanPropagatesPackError(t *testing.T) {
	h := hasher.NewStubHasher()
	if _, err := NewSpan(nil, h); err == nil {
		t.Fatal("expected NewSpan(nil ops) to fail")
	}
}
