// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package decoder

import (
	"github.com/probechain/zkdecoder/field"
	"github.com/probechain/zkdecoder/op"
)

// NumColumns is the width of the decoder trace: addr, seven op_bits
// columns, in_span, eight hasher-mirror columns, group_count, op_idx.
const NumColumns = 19

// MinTraceLen is the smallest length the finalized trace is padded to,
// matching MIN_TRACE_LEN's role of bounding early reallocation.
const MinTraceLen = 8

// Trace is the decoder's column-major, append-only output buffer. Each
// column grows independently; Finalize pads every column to a shared
// power-of-two length. Grounded on the same AddRow/Pad(targetHeight) shape
// as a column-major STARK trace table: one append method per row kind, a
// single finalization pass at the end.
type Trace struct {
	addr       []field.Felt
	opBits     [7][]field.Felt
	inSpan     []field.Felt
	hasherCols [8][]field.Felt
	groupCount []field.Felt
	opIdx      []field.Felt
}

// NewTrace returns an empty Trace with MinTraceLen capacity pre-reserved on
// every column.
func NewTrace() *Trace {
	t := &Trace{}
	t.addr = make([]field.Felt, 0, MinTraceLen)
	for i := range t.opBits {
		t.opBits[i] = make([]field.Felt, 0, MinTraceLen)
	}
	t.inSpan = make([]field.Felt, 0, MinTraceLen)
	for i := range t.hasherCols {
		t.hasherCols[i] = make([]field.Felt, 0, MinTraceLen)
	}
	t.groupCount = make([]field.Felt, 0, MinTraceLen)
	t.opIdx = make([]field.Felt, 0, MinTraceLen)
	return t
}

// Len returns the trace's current row count.
func (t *Trace) Len() int { return len(t.addr) }

// Columns returns the 19 columns in schema order: addr, op_bits[0..7],
// in_span, hasher[0..8], group_count, op_idx.
func (t *Trace) Columns() [NumColumns][]field.Felt {
	var cols [NumColumns][]field.Felt
	cols[0] = t.addr
	for i := 0; i < 7; i++ {
		cols[1+i] = t.opBits[i]
	}
	cols[8] = t.inSpan
	for i := 0; i < 8; i++ {
		cols[9+i] = t.hasherCols[i]
	}
	cols[17] = t.groupCount
	cols[18] = t.opIdx
	return cols
}

func opBits(k op.Kind) [7]field.Felt {
	var bits [7]field.Felt
	v := uint8(k)
	for i := 0; i < 7; i++ {
		bits[i] = field.New(uint64((v >> uint(i)) & 1))
	}
	return bits
}

// appendRow is the single writer every typed appender funnels through: it
// keeps every column the same length by construction.
func (t *Trace) appendRow(addr field.Felt, kind op.Kind, inSpan field.Felt, hv [8]field.Felt, groupCount, opIdx field.Felt) {
	t.addr = append(t.addr, addr)
	bits := opBits(kind)
	for i := 0; i < 7; i++ {
		t.opBits[i] = append(t.opBits[i], bits[i])
	}
	t.inSpan = append(t.inSpan, inSpan)
	for i := 0; i < 8; i++ {
		t.hasherCols[i] = append(t.hasherCols[i], hv[i])
	}
	t.groupCount = append(t.groupCount, groupCount)
	t.opIdx = append(t.opIdx, opIdx)
}

// lastGroupCount reads back the previous row's group_count for the
// appenders that copy it forward (Respan).
func (t *Trace) lastGroupCount() field.Felt { return t.groupCount[len(t.groupCount)-1] }

// AppendControlRow writes a Join/Split/Loop/Repeat row: h1 and h2 are the
// left/body and right child digests (zeros for Loop/Repeat's second half).
func (t *Trace) AppendControlRow(addr field.Felt, kind op.Kind, h1, h2 field.Word) {
	var hv [8]field.Felt
	copy(hv[0:4], h1[:])
	copy(hv[4:8], h2[:])
	t.appendRow(addr, kind, field.Zero, hv, field.Zero, field.Zero)
}

// AppendSpanStart writes the Span opcode's own row. in_span is 0 here by
// design: the span becomes active starting the following row.
func (t *Trace) AppendSpanStart(parentAddr field.Felt, firstBatchGroups [8]field.Felt, numOpGroups int) {
	t.appendRow(parentAddr, op.Span, field.Zero, firstBatchGroups, field.New(uint64(numOpGroups)), field.Zero)
}

// AppendRespan writes a batch-boundary row inside a span at the new batch's
// address (addr advances by 8 between batches); group_count is carried
// forward from the previous row.
func (t *Trace) AppendRespan(addr field.Felt, batchGroups [8]field.Felt) {
	groupCount := t.lastGroupCount()
	t.appendRow(addr, op.Respan, field.One, batchGroups, groupCount, field.Zero)
}

// AppendUserOp writes one packed user operation's row inside a span.
// groupOpsLeft is the current group's packed value shifted past this op;
// parentAddr is the enclosing (non-span) block's address.
func (t *Trace) AppendUserOp(o op.Operation, spanAddr, parentAddr field.Felt, numGroupsLeft int, groupOpsLeft field.Felt, opIdx int) {
	var hv [8]field.Felt
	hv[0] = groupOpsLeft
	hv[1] = parentAddr
	t.appendRow(spanAddr, o.Kind, field.One, hv, field.New(uint64(numGroupsLeft)), field.New(uint64(opIdx)))
}

// AppendSpanEnd closes a Span: group_count must already have reached ZERO on
// the preceding row (a packer/driver invariant, not recoverable user input).
func (t *Trace) AppendSpanEnd(spanAddr field.Felt, spanHash field.Word, isLoopBody bool) {
	if !t.lastGroupCount().IsZero() {
		panic("decoder: group_count non-zero at span_end")
	}
	var hv [8]field.Felt
	copy(hv[0:4], spanHash[:])
	if isLoopBody {
		hv[4] = field.One
	}
	t.appendRow(spanAddr, op.End, field.Zero, hv, field.Zero, field.Zero)
}

// AppendEndRow closes a Join/Split/Loop block.
func (t *Trace) AppendEndRow(addr field.Felt, blockHash field.Word, isLoopBody, isLoop bool) {
	var hv [8]field.Felt
	copy(hv[0:4], blockHash[:])
	if isLoopBody {
		hv[4] = field.One
	}
	if isLoop {
		hv[5] = field.One
	}
	t.appendRow(addr, op.End, field.Zero, hv, field.Zero, field.Zero)
}

// Finalize pads every column to a power-of-two length at least MinTraceLen
// and at least the current length plus numRandRows, with the op_bits
// columns padded to decode as Halt and every other column padded with ZERO.
func (t *Trace) Finalize(numRandRows int) {
	target := nextPowerOfTwo(t.Len() + numRandRows)
	if target < MinTraceLen {
		target = MinTraceLen
	}

	haltBits := opBits(op.Halt)
	for t.Len() < target {
		t.addr = append(t.addr, field.Zero)
		for i := 0; i < 7; i++ {
			t.opBits[i] = append(t.opBits[i], haltBits[i])
		}
		t.inSpan = append(t.inSpan, field.Zero)
		for i := 0; i < 8; i++ {
			t.hasherCols[i] = append(t.hasherCols[i], field.Zero)
		}
		t.groupCount = append(t.groupCount, field.Zero)
		t.opIdx = append(t.opIdx, field.Zero)
	}
}

func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
