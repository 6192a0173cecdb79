// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

// Package xlog is a minimal structured logger for decoder-internal
// diagnostics: block entry/exit, batch boundaries, and other tracing a
// caller can discard entirely by passing nil to decoder.Decode. Caller
// frames are captured with go-stack the same way the go-probe/go-ethereum
// log package builds its records on top of it.
package xlog

import (
	"fmt"
	"io"
	"os"

	"github.com/go-stack/stack"
)

// Logger is the sink the decoder writes diagnostic lines to.
type Logger interface {
	Debugf(format string, args ...interface{})
}

// Discard is a Logger that drops every line.
var Discard Logger = discard{}

type discard struct{}

func (discard) Debugf(string, ...interface{}) {}

// Writer is a Logger that formats each line with its immediate caller frame
// and writes it to w.
type Writer struct {
	w io.Writer
}

// New returns a Writer logging to w.
func New(w io.Writer) *Writer { return &Writer{w: w} }

// Default logs to os.Stderr.
func Default() *Writer { return New(os.Stderr) }

// Debugf formats and writes one line, prefixed with the calling function's
// caller frame, printed by go-stack's %+v as the package-qualified source
// path and line.
func (l *Writer) Debugf(format string, args ...interface{}) {
	call := stack.Caller(1)
	fmt.Fprintf(l.w, "%+v: %s\n", call, fmt.Sprintf(format, args...))
}
