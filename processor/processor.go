// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

// Package processor defines the minimal facade the decoder requires from
// the arithmetic processor: execute a primitive operation, observe the top
// of the operand stack, and report a clock. The stack, memory, and
// auxiliary chiplets behind this interface are a separate subsystem and are
// not implemented here.
package processor

import (
	"github.com/probechain/zkdecoder/field"
	"github.com/probechain/zkdecoder/op"
)

// Processor is everything the decoder depends on to drive execution. Every
// method is opaque beyond its documented effect: the decoder never inspects
// processor-internal state, and the facade guarantees at most one stack
// mutation per ExecuteOp call.
type Processor interface {
	// ExecuteOp carries out one primitive operation's effect on the stack,
	// memory, or other chiplets. Decorators are never passed to ExecuteOp.
	ExecuteOp(op op.Operation) error
	// PeekTop returns the current top-of-stack value without popping it.
	PeekTop() field.Felt
	// Clk returns the processor's current clock cycle, used by aux
	// overflow tables the decoder does not itself consume.
	Clk() uint64
}
