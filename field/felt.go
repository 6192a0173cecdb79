// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

// Package field implements Felt, an element of the Goldilocks-class prime
// field used throughout the decoder's trace: every cell of every trace
// column is a Felt, and every digest is four of them (a Word).
package field

import "math/bits"

// Modulus is the Goldilocks prime p = 2^64 - 2^32 + 1.
const Modulus uint64 = 0xFFFFFFFF00000001

// Felt is a canonical element of the prime field Z/pZ. The zero value is
// the field's additive identity.
type Felt uint64

// Zero is the field's additive identity.
var Zero = Felt(0)

// One is the field's multiplicative identity.
var One = Felt(1)

// New reduces v modulo p and returns the canonical Felt.
func New(v uint64) Felt {
	if v >= Modulus {
		return Felt(v - Modulus)
	}
	return Felt(v)
}

// Uint64 returns the canonical uint64 representative, 0 <= v < p.
func (a Felt) Uint64() uint64 { return uint64(a) }

// IsZero reports whether a is the additive identity.
func (a Felt) IsZero() bool { return a == 0 }

// Equal reports whether a and b are the same field element.
func (a Felt) Equal(b Felt) bool { return a == b }

// Add returns a + b mod p.
func (a Felt) Add(b Felt) Felt {
	sum, carry := bits.Add64(uint64(a), uint64(b), 0)
	if carry != 0 || sum >= Modulus {
		sum -= Modulus
	}
	return Felt(sum)
}

// Sub returns a - b mod p.
func (a Felt) Sub(b Felt) Felt {
	diff, borrow := bits.Sub64(uint64(a), uint64(b), 0)
	if borrow != 0 {
		diff += Modulus
	}
	return Felt(diff)
}

// Neg returns -a mod p.
func (a Felt) Neg() Felt {
	if a == 0 {
		return Zero
	}
	return Felt(Modulus - uint64(a))
}

// Mul returns a * b mod p, reducing the 128-bit product.
func (a Felt) Mul(b Felt) Felt {
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	return reduce128(hi, lo)
}

// reduce128 reduces a 128-bit value hi*2^64+lo modulo the Goldilocks prime,
// exploiting 2^64 ≡ 2^32-1 and 2^96 ≡ -1 (mod p): with hi split into its two
// 32-bit halves, hi*2^64 ≡ hiLo*(2^32-1) - hiHi. The product hiLo*(2^32-1)
// fits in a uint64, so the result needs only the canonicalizing New/Sub/Add,
// with no further reduction step.
func reduce128(hi, lo uint64) Felt {
	hiHi := hi >> 32
	hiLo := hi & 0xFFFFFFFF

	t0 := New(lo).Sub(Felt(hiHi))
	t1 := New(hiLo * 0xFFFFFFFF)
	return t0.Add(t1)
}

// Exp returns a^e mod p via square-and-multiply.
func (a Felt) Exp(e uint64) Felt {
	result := One
	base := a
	for e > 0 {
		if e&1 == 1 {
			result = result.Mul(base)
		}
		base = base.Mul(base)
		e >>= 1
	}
	return result
}

// Inv returns the multiplicative inverse of a via Fermat's little theorem
// (a^(p-2) = a^-1). Returns Zero for a Zero input, matching the convention
// that the decoder never inverts a value it cannot prove is nonzero.
func (a Felt) Inv() Felt {
	if a.IsZero() {
		return Zero
	}
	return a.Exp(Modulus - 2)
}
