// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

// Package hasher defines the oracle the decoder consumes for block hashing
// and row-address assignment. The decoder never implements a hash function
// itself; it depends on this abstract capability so the cryptographic
// chiplet can be swapped or mocked without touching decoder logic.
package hasher

import "github.com/probechain/zkdecoder/field"

// Hasher absorbs a 12-element state and returns the row address of the
// absorption (the first row, in the external hasher trace, of this
// invocation) plus the resulting four-element digest. Calls are strictly
// sequential; addr increments by 8 between successive calls.
type Hasher interface {
	Hash(state [12]field.Felt) (addr field.Felt, result field.Word, err error)
}
