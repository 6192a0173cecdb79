// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package field

import "fmt"

// Word is a four-element digest: the output width of the hasher oracle and
// the unit the decoder binds into END rows and block hashes.
type Word [4]Felt

// WordZero is the zero digest.
var WordZero = Word{Zero, Zero, Zero, Zero}

// Equal reports whether w and other hold the same four elements.
func (w Word) Equal(other Word) bool {
	return w[0] == other[0] && w[1] == other[1] && w[2] == other[2] && w[3] == other[3]
}

// IsZero reports whether w is the zero digest.
func (w Word) IsZero() bool {
	return w.Equal(WordZero)
}

func (w Word) String() string {
	return fmt.Sprintf("[%d, %d, %d, %d]", w[0], w[1], w[2], w[3])
}
