// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package hasher

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"

	"github.com/probechain/zkdecoder/field"
)

// SpongeHasher is a non-stub Hasher built on golang.org/x/crypto/sha3's
// SHAKE256 extendable-output sponge: the 12-element input state is absorbed
// as 96 bytes (little-endian Felt limbs) and four 64-bit limbs are squeezed
// back out and reduced into canonical Felts. This completes the
// "// TODO: wire to golang.org/x/crypto/sha3" left open in the stdlib crypto
// stubs this module's teacher shipped but never finished.
type SpongeHasher struct {
	next uint64
}

// NewSpongeHasher returns a SpongeHasher whose first call returns addr 0.
func NewSpongeHasher() *SpongeHasher {
	return &SpongeHasher{}
}

// Hash implements Hasher.
func (s *SpongeHasher) Hash(state [12]field.Felt) (field.Felt, field.Word, error) {
	var in [96]byte
	for i, f := range state {
		binary.LittleEndian.PutUint64(in[i*8:], f.Uint64())
	}

	sponge := sha3.NewShake256()
	if _, err := sponge.Write(in[:]); err != nil {
		return field.Zero, field.WordZero, err
	}

	var out [32]byte
	if _, err := sponge.Read(out[:]); err != nil {
		return field.Zero, field.WordZero, err
	}

	var digest field.Word
	for i := range digest {
		digest[i] = field.New(binary.LittleEndian.Uint64(out[i*8:]))
	}

	addr := field.New(s.next)
	s.next += 8
	return addr, digest, nil
}
