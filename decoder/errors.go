// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

// Package decoder implements the block-tree driver and the 19-column trace
// it emits: the core state machine of the zkVM's decoder subsystem.
package decoder

import (
	"errors"
	"fmt"

	"github.com/probechain/zkdecoder/field"
)

// Sentinel errors identifying the kind of failure that aborted a Decode
// call. Use errors.Is against these, or errors.As against
// *NotBinaryValueError for the NotBinaryValue payload.
var (
	// ErrUnexecutableCodeBlock flags a malformed tree the driver refuses to
	// run, such as a Span the packer could not build.
	ErrUnexecutableCodeBlock = errors.New("decoder: unexecutable code block")
	// ErrHasher flags a failure from the injected hasher oracle.
	ErrHasher = errors.New("decoder: hasher error")
	// ErrProcessor flags a failure from the injected processor.
	ErrProcessor = errors.New("decoder: processor error")
)

// NotBinaryValueError reports that a Split or Loop condition was neither 0
// nor 1.
type NotBinaryValueError struct {
	Value field.Felt
}

func (e *NotBinaryValueError) Error() string {
	return fmt.Sprintf("decoder: condition %d is not a binary value", e.Value.Uint64())
}

// notBinaryValue builds a NotBinaryValueError for v.
func notBinaryValue(v field.Felt) error {
	return &NotBinaryValueError{Value: v}
}
