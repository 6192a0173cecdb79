// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package hasher

import "github.com/probechain/zkdecoder/field"

// StubHasher is a deterministic, content-independent oracle: each call
// returns the next multiple of 8 as its address and a digest that is the
// first four cells of the absorbed state. It exists so decoder tests can
// assert on addr/hasher-column values without depending on a real
// permutation, mirroring the stub the teacher's own test suite uses for the
// hashing chiplet.
type StubHasher struct {
	next uint64
}

// NewStubHasher returns a StubHasher whose first call returns addr 0.
func NewStubHasher() *StubHasher {
	return &StubHasher{}
}

// Hash implements Hasher.
func (s *StubHasher) Hash(state [12]field.Felt) (field.Felt, field.Word, error) {
	addr := field.New(s.next)
	s.next += 8

	digest := field.Word{state[0], state[1], state[2], state[3]}
	return addr, digest, nil
}
