// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package decoder

import "github.com/probechain/zkdecoder/field"

// BlockInfo is a currently-open block's trace address and its parent's
// trace address, pushed on block entry and popped on block exit.
type BlockInfo struct {
	Addr       field.Felt
	ParentAddr field.Felt
}

// blockStack is the driver's runtime stack of open blocks. Misuse (pop or
// peek on an empty stack) is a driver bug, not a user-facing error, and
// panics rather than returning an error — it is unreachable by construction
// as long as every recursive descent call is balanced.
type blockStack struct {
	frames []BlockInfo
}

// push records a new open block at addr and returns the address of its
// parent (the block now second from the top), or ZERO if the stack was
// empty (addr is the root block).
func (s *blockStack) push(addr field.Felt) field.Felt {
	parent := field.Zero
	if len(s.frames) > 0 {
		parent = s.frames[len(s.frames)-1].Addr
	}
	s.frames = append(s.frames, BlockInfo{Addr: addr, ParentAddr: parent})
	return parent
}

// pop removes and returns the innermost open block.
func (s *blockStack) pop() BlockInfo {
	if len(s.frames) == 0 {
		panic("decoder: pop on empty block stack")
	}
	info := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	return info
}

// peekAddr returns the trace address of the innermost open block.
func (s *blockStack) peekAddr() field.Felt {
	if len(s.frames) == 0 {
		panic("decoder: peek on empty block stack")
	}
	return s.frames[len(s.frames)-1].Addr
}
