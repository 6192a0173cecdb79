// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package decoder

import (
	"errors"
	"testing"

	"github.com/probechain/zkdecoder/block"
	"github.com/probechain/zkdecoder/field"
	"github.com/probechain/zkdecoder/hasher"
	"github.com/probechain/zkdecoder/op"
)

// fakeProcessor is a minimal, error-free Processor stand-in. PeekTop serves
// scripted condition values off conds in call order when non-empty, falling
// back to a trivial internal stack otherwise — letting a test pin exactly
// the Split/Loop decisions it wants without modeling real arithmetic.
type fakeProcessor struct {
	conds []field.Felt
	stack []field.Felt
	clk   uint64
	calls []op.Kind
}

func newFakeProcessor(conds ...field.Felt) *fakeProcessor {
	return &fakeProcessor{conds: conds}
}

func (p *fakeProcessor) ExecuteOp(o op.Operation) error {
	p.clk++
	p.calls = append(p.calls, o.Kind)
	switch o.Kind {
	case op.Push:
		p.stack = append(p.stack, o.Imm)
	case op.Drop:
		if len(p.stack) > 0 {
			p.stack = p.stack[:len(p.stack)-1]
		}
	}
	return nil
}

func (p *fakeProcessor) PeekTop() field.Felt {
	if len(p.conds) > 0 {
		v := p.conds[0]
		p.conds = p.conds[1:]
		return v
	}
	if len(p.stack) == 0 {
		return field.Zero
	}
	return p.stack[len(p.stack)-1]
}

func (p *fakeProcessor) Clk() uint64 { return p.clk }

func kindAt(cols [NumColumns][]field.Felt, row int) op.Kind {
	var v uint8
	for i := 0; i < 7; i++ {
		if !cols[1+i][row].IsZero() {
			v |= 1 << uint(i)
		}
	}
	return op.Kind(v)
}

func mustSpan(t *testing.T, h hasher.Hasher, ops ...op.Operation) *block.Span {
	t.Helper()
	s, err := block.NewSpan(ops, h)
	if err != nil {
		t.Fatalf("NewSpan: %v", err)
	}
	return s
}

func TestDecodeBareSpan(t *testing.T) {
	span := mustSpan(t, hasher.NewStubHasher(), op.New(op.Add), op.New(op.Mul))

	proc := newFakeProcessor()
	tr, err := Decode(span, proc, hasher.NewStubHasher(), nil, 0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	cols := tr.Columns()
	if kindAt(cols, 0) != op.Span {
		t.Errorf("row 0 kind = %v, want Span", kindAt(cols, 0))
	}
	if !cols[8][0].IsZero() {
		t.Error("span_start row should have in_span = 0")
	}

	lastUserRow := len(span.Ops) // span_start occupies row 0; ops occupy rows 1..len(Ops)
	if !cols[17][lastUserRow].IsZero() {
		t.Errorf("group_count on last user-op row = %v, want 0", cols[17][lastUserRow])
	}
	if kindAt(cols, lastUserRow+1) != op.End {
		t.Errorf("row after last user op = %v, want End", kindAt(cols, lastUserRow+1))
	}
	if tr.Len() < MinTraceLen {
		t.Errorf("trace length %d below MinTraceLen %d", tr.Len(), MinTraceLen)
	}
}

func TestDecodeSplitTakesTrueBranch(t *testing.T) {
	bh := hasher.NewStubHasher()
	onTrue := mustSpan(t, bh, op.New(op.Add))
	onFalse := mustSpan(t, bh, op.New(op.Mul))
	split, err := block.NewSplit(onTrue, onFalse, bh)
	if err != nil {
		t.Fatalf("NewSplit: %v", err)
	}

	proc := newFakeProcessor(field.One)
	tr, err := Decode(split, proc, hasher.NewStubHasher(), nil, 0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	cols := tr.Columns()
	if kindAt(cols, 0) != op.Split {
		t.Errorf("row 0 kind = %v, want Split", kindAt(cols, 0))
	}
	if kindAt(cols, 1) != op.Span {
		t.Errorf("row 1 kind = %v, want Span (on_true branch entered)", kindAt(cols, 1))
	}
}

func TestDecodeSplitRejectsNonBinaryCondition(t *testing.T) {
	bh := hasher.NewStubHasher()
	onTrue := mustSpan(t, bh, op.New(op.Add))
	onFalse := mustSpan(t, bh, op.New(op.Mul))
	split, err := block.NewSplit(onTrue, onFalse, bh)
	if err != nil {
		t.Fatalf("NewSplit: %v", err)
	}

	proc := newFakeProcessor(field.New(2))
	_, err = Decode(split, proc, hasher.NewStubHasher(), nil, 0)
	var nbv *NotBinaryValueError
	if !errors.As(err, &nbv) {
		t.Fatalf("Decode error = %v, want *NotBinaryValueError", err)
	}
}

func TestDecodeLoopSkippedWhenConditionZero(t *testing.T) {
	bh := hasher.NewStubHasher()
	body := mustSpan(t, bh, op.New(op.Add))
	loop, err := block.NewLoop(body, bh)
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}

	proc := newFakeProcessor(field.Zero)
	tr, err := Decode(loop, proc, hasher.NewStubHasher(), nil, 0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	cols := tr.Columns()
	if kindAt(cols, 0) != op.Loop {
		t.Fatalf("row 0 kind = %v, want Loop", kindAt(cols, 0))
	}
	if kindAt(cols, 1) != op.End {
		t.Fatalf("row 1 kind = %v, want End (loop body never entered)", kindAt(cols, 1))
	}
	if !cols[9+4][1].IsZero() {
		t.Error("is_loop_body should be 0 on a skipped loop's end row")
	}
	if cols[9+5][1].IsZero() {
		t.Error("is_loop should be 1 on a loop's own end row")
	}
}

func TestDecodeLoopRepeatsUntilConditionClears(t *testing.T) {
	bh := hasher.NewStubHasher()
	body := mustSpan(t, bh, op.New(op.Add))
	loop, err := block.NewLoop(body, bh)
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}

	// Entry condition, then one REPEAT decision, then the final stop.
	proc := newFakeProcessor(field.One, field.One, field.Zero)
	tr, err := Decode(loop, proc, hasher.NewStubHasher(), nil, 0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	cols := tr.Columns()
	foundRepeat := false
	for row := 0; row < tr.Len(); row++ {
		if kindAt(cols, row) == op.Repeat {
			foundRepeat = true
		}
	}
	if !foundRepeat {
		t.Error("expected a Repeat row for the second iteration")
	}
}

// wantKinds asserts that cols decodes to exactly the given opcode sequence
// over its first len(want) rows — the thing TestDecodeLoopRepeatsUntilConditionClears
// above does not check (it only confirms a Repeat row exists somewhere).
func wantKinds(t *testing.T, cols [NumColumns][]field.Felt, want []op.Kind) {
	t.Helper()
	for row, k := range want {
		if got := kindAt(cols, row); got != k {
			t.Fatalf("row %d kind = %v, want %v", row, got, k)
		}
	}
}

// wantAddrs asserts the addr column (cols[0]) over the first len(want) rows,
// the column invariant 5 (continuity within a batch, +8 across a Respan)
// hinges on and which no prior test read at all.
func wantAddrs(t *testing.T, cols [NumColumns][]field.Felt, want []uint64) {
	t.Helper()
	for row, a := range want {
		if got := cols[0][row].Uint64(); got != a {
			t.Fatalf("row %d addr = %d, want %d", row, got, a)
		}
	}
}

// TestDecodeJoinAddressColumnAcrossSiblingSpans is the S1-equivalent
// acceptance scenario: Join(Span[Mul], Span[Add]). Each span's own Span row
// shows the Join's address, the rows inside each span show that span's own
// address, and each sibling span gets its own distinct address from its own
// hasher call — regression
// coverage for decoder.go's parent/own-address bookkeeping (DESIGN.md's
// "addr-column semantics across row kinds" derived rule).
//
// The packer's post-pass (block/batch.go's finalize, following spec.md
// §4.1's literal "pad the last group of the last batch with at least one
// Noop" rule) pads a span's tail with a Noop whether or not the span's last
// real op happened to fill its group (only a span ending in an
// immediate-bearing op, as in the multi-batch test below, gets no Noop), so
// each one-op span here
// decodes with a trailing Noop row that spec.md §8's simplified S1
// illustration omits — the row kinds below are this module's actual,
// faithful-to-§4.1 output rather than a literal transcription of §8.
func TestDecodeJoinAddressColumnAcrossSiblingSpans(t *testing.T) {
	bh := hasher.NewStubHasher()
	span1 := mustSpan(t, bh, op.New(op.Mul))
	span2 := mustSpan(t, bh, op.New(op.Add))
	join, err := block.NewJoin(span1, span2, bh)
	if err != nil {
		t.Fatalf("NewJoin: %v", err)
	}

	proc := newFakeProcessor()
	tr, err := Decode(join, proc, hasher.NewStubHasher(), nil, 0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	cols := tr.Columns()
	wantKinds(t, cols, []op.Kind{
		op.Join, op.Span, op.Mul, op.Noop, op.End,
		op.Span, op.Add, op.Noop, op.End, op.End,
	})
	wantAddrs(t, cols, []uint64{
		0, 0, 8, 8, 8,
		0, 16, 16, 16, 0,
	})
}

// TestDecodeMultiBatchSpanAddressJumpsByEight is the S7-equivalent
// acceptance scenario: a single span of nine Push ops spills past one
// OpBatchSize-groups batch (each Push claims an opcode group plus a
// dedicated immediate group, so four Pushes exactly fill a batch). The addr
// column must stay constant within each batch and jump by exactly 8 at each
// Respan row — regression coverage for execSpan's
// spanAddr.Add(field.New(8)) and the batch-boundary loop around it.
func TestDecodeMultiBatchSpanAddressJumpsByEight(t *testing.T) {
	bh := hasher.NewStubHasher()
	ops := make([]op.Operation, 9)
	for i := range ops {
		ops[i] = op.NewPush(field.New(uint64(i)))
	}
	span := mustSpan(t, bh, ops...)

	proc := newFakeProcessor()
	tr, err := Decode(span, proc, hasher.NewStubHasher(), nil, 0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	cols := tr.Columns()
	wantKinds(t, cols, []op.Kind{
		op.Span, op.Push, op.Push, op.Push, op.Push,
		op.Respan, op.Push, op.Push, op.Push, op.Push,
		op.Respan, op.Push, op.End,
	})
	wantAddrs(t, cols, []uint64{
		0, 0, 0, 0, 0,
		8, 8, 8, 8, 8,
		16, 16, 16,
	})
}

// TestDecodeSpanWithImmediatePadsLastGroupBeforeEnd is the S6 acceptance
// scenario verbatim: Span[Push(1), Push(2), Add] decodes to exactly
// Span, Push(1), Push(2), Add, Noop, End — the Noop pads Add out of the
// last bit-slot of its group per spec.md §4.1's post-pass rule.
func TestDecodeSpanWithImmediatePadsLastGroupBeforeEnd(t *testing.T) {
	bh := hasher.NewStubHasher()
	span := mustSpan(t, bh, op.NewPush(field.One), op.NewPush(field.New(2)), op.New(op.Add))

	proc := newFakeProcessor()
	tr, err := Decode(span, proc, hasher.NewStubHasher(), nil, 0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	cols := tr.Columns()
	wantKinds(t, cols, []op.Kind{
		op.Span, op.Push, op.Push, op.Add, op.Noop, op.End,
	})
}

// TestDecodeLoopRepeatsExactRowSequence is the S5 acceptance scenario: a
// loop body of two ops executed twice must decode to exactly Loop, (span),
// Repeat, (span), End, with no row kind missed or duplicated — tighter than
// TestDecodeLoopRepeatsUntilConditionClears above, which only checks that a
// Repeat row exists somewhere in the trace. As in S1/S6 above, each
// two-op span body gets one trailing Noop pad per spec.md §4.1's literal
// post-pass rule, which spec.md §8's simplified S5 illustration omits.
func TestDecodeLoopRepeatsExactRowSequence(t *testing.T) {
	bh := hasher.NewStubHasher()
	body := mustSpan(t, bh, op.New(op.Pad), op.New(op.Drop))
	loop, err := block.NewLoop(body, bh)
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}

	// Entry condition, then one REPEAT decision, then the final stop.
	proc := newFakeProcessor(field.One, field.One, field.Zero)
	tr, err := Decode(loop, proc, hasher.NewStubHasher(), nil, 0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	cols := tr.Columns()
	want := []op.Kind{
		op.Loop, op.Span, op.Pad, op.Drop, op.Noop, op.End,
		op.Repeat, op.Span, op.Pad, op.Drop, op.Noop, op.End, op.End,
	}
	wantKinds(t, cols, want)
	if tr.Len() < len(want) {
		t.Fatalf("trace has %d rows, want at least %d", tr.Len(), len(want))
	}
	if kindAt(cols, len(want)) != op.Halt {
		t.Errorf("row %d kind = %v, want Halt padding", len(want), kindAt(cols, len(want)))
	}
}

func TestDecodeUnexecutableSpanPropagatesError(t *testing.T) {
	// A Span built from zero operations is impossible to construct via
	// block.NewSpan, so exercise the decoder's own guard directly with a
	// hand-built empty Span the assembler would never actually produce.
	span := &block.Span{}
	proc := newFakeProcessor()
	_, err := Decode(span, proc, hasher.NewStubHasher(), nil, 0)
	if !errors.Is(err, ErrUnexecutableCodeBlock) {
		t.Fatalf("Decode error = %v, want ErrUnexecutableCodeBlock", err)
	}
}
