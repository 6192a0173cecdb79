// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package decoder

import (
	"fmt"

	"github.com/probechain/zkdecoder/block"
	"github.com/probechain/zkdecoder/field"
	"github.com/probechain/zkdecoder/hasher"
	"github.com/probechain/zkdecoder/internal/xlog"
	"github.com/probechain/zkdecoder/op"
	"github.com/probechain/zkdecoder/processor"
)

// driver is the recursive-descent block-tree interpreter: it owns the
// trace buffer, the block stack, and exclusive access to the processor and
// hasher for the duration of a single Decode call. It is single-use.
type driver struct {
	trace *Trace
	stack *blockStack
	proc  processor.Processor
	hash  hasher.Hasher
	log   xlog.Logger
}

// Decode walks root's block tree to completion, driving proc and consulting
// h for block addresses (block digests come from the blocks' cached hashes;
// the digests h returns here are discarded), and returns the finalized decoder
// trace. numRandRows is forwarded to Trace.Finalize as the prover's random-
// row reserve (spec.md §4.3); pass 0 when the caller has no such reserve.
// On any error the partial trace is discarded; the caller receives only the
// first failure encountered.
func Decode(root block.CodeBlock, proc processor.Processor, h hasher.Hasher, log xlog.Logger, numRandRows int) (*Trace, error) {
	if log == nil {
		log = xlog.Discard
	}
	d := &driver{
		trace: NewTrace(),
		stack: &blockStack{},
		proc:  proc,
		hash:  h,
		log:   log,
	}
	if err := d.exec(root, false); err != nil {
		return nil, err
	}
	d.trace.Finalize(numRandRows)
	return d.trace, nil
}

func (d *driver) exec(cb block.CodeBlock, isLoopBody bool) error {
	switch b := cb.(type) {
	case *block.Join:
		return d.execJoin(b, isLoopBody)
	case *block.Split:
		return d.execSplit(b, isLoopBody)
	case *block.Loop:
		return d.execLoop(b)
	case *block.Span:
		return d.execSpan(b, isLoopBody)
	default:
		return fmt.Errorf("%w: unsupported code block type %T", ErrUnexecutableCodeBlock, cb)
	}
}

func (d *driver) execJoin(b *block.Join, isLoopBody bool) error {
	if err := d.execOp(op.Noop); err != nil {
		return err
	}
	addr, err := d.hasherAddr()
	if err != nil {
		return err
	}
	parent := d.stack.push(addr)
	d.log.Debugf("join enter addr=%d parent=%d", addr.Uint64(), parent.Uint64())
	d.trace.AppendControlRow(parent, op.Join, b.First.Hash(), b.Second.Hash())

	if err := d.exec(b.First, false); err != nil {
		return err
	}
	if err := d.exec(b.Second, false); err != nil {
		return err
	}

	if err := d.execOp(op.Noop); err != nil {
		return err
	}
	info := d.stack.pop()
	d.log.Debugf("join exit addr=%d", info.Addr.Uint64())
	d.trace.AppendEndRow(info.Addr, b.Hash(), isLoopBody, false)
	return nil
}

func (d *driver) execSplit(b *block.Split, isLoopBody bool) error {
	cond := d.proc.PeekTop()
	if err := d.execOp(op.Drop); err != nil {
		return err
	}
	addr, err := d.hasherAddr()
	if err != nil {
		return err
	}
	parent := d.stack.push(addr)
	d.log.Debugf("split enter addr=%d parent=%d", addr.Uint64(), parent.Uint64())
	d.trace.AppendControlRow(parent, op.Split, b.OnTrue.Hash(), b.OnFalse.Hash())

	var branchErr error
	switch {
	case cond.Equal(field.One):
		branchErr = d.exec(b.OnTrue, false)
	case cond.IsZero():
		branchErr = d.exec(b.OnFalse, false)
	default:
		return notBinaryValue(cond)
	}
	if branchErr != nil {
		return branchErr
	}

	if err := d.execOp(op.Noop); err != nil {
		return err
	}
	info := d.stack.pop()
	d.log.Debugf("split exit addr=%d", info.Addr.Uint64())
	d.trace.AppendEndRow(info.Addr, b.Hash(), isLoopBody, false)
	return nil
}

func (d *driver) execLoop(b *block.Loop) error {
	cond := d.proc.PeekTop()
	if err := d.execOp(op.Drop); err != nil {
		return err
	}
	addr, err := d.hasherAddr()
	if err != nil {
		return err
	}
	parent := d.stack.push(addr)
	d.log.Debugf("loop enter addr=%d parent=%d", addr.Uint64(), parent.Uint64())
	d.trace.AppendControlRow(parent, op.Loop, b.Body.Hash(), field.WordZero)

	switch {
	case cond.IsZero():
		info := d.stack.pop()
		d.log.Debugf("loop exit addr=%d (body skipped)", info.Addr.Uint64())
		d.trace.AppendEndRow(info.Addr, b.Hash(), false, true)
		return nil
	case !cond.Equal(field.One):
		return notBinaryValue(cond)
	}

	executedAny := false
	for {
		if err := d.exec(b.Body, true); err != nil {
			return err
		}
		executedAny = true

		again := d.proc.PeekTop()
		if err := d.execOp(op.Drop); err != nil {
			return err
		}
		switch {
		case again.Equal(field.One):
			repeatAddr := d.stack.peekAddr()
			d.log.Debugf("loop repeat addr=%d", repeatAddr.Uint64())
			d.trace.AppendControlRow(repeatAddr, op.Repeat, b.Body.Hash(), field.WordZero)
		case again.IsZero():
			info := d.stack.pop()
			d.log.Debugf("loop exit addr=%d", info.Addr.Uint64())
			d.trace.AppendEndRow(info.Addr, b.Hash(), executedAny, true)
			return nil
		default:
			return notBinaryValue(again)
		}
	}
}

func (d *driver) execSpan(b *block.Span, isLoopBody bool) error {
	if err := d.execOp(op.Noop); err != nil {
		return err
	}
	if len(b.Batches) == 0 {
		return fmt.Errorf("%w: span has no batches", ErrUnexecutableCodeBlock)
	}

	var state [12]field.Felt
	copy(state[0:8], b.Batches[0].Groups[:])
	addr, _, err := d.hash.Hash(state)
	if err != nil {
		return wrapHasherErr(err)
	}
	parent := d.stack.push(addr)
	d.log.Debugf("span enter addr=%d parent=%d batches=%d", addr.Uint64(), parent.Uint64(), len(b.Batches))

	groupsLeft := roundUp8(b.NumOpGroups)
	d.trace.AppendSpanStart(parent, b.Batches[0].Groups, groupsLeft)

	spanAddr := addr
	batchIdx := 0

	for i, slot := range b.Ops {
		for batchIdx < slot.BatchIndex {
			batchIdx++
			spanAddr = spanAddr.Add(field.New(8))
			d.log.Debugf("span respan addr=%d batch=%d", spanAddr.Uint64(), batchIdx)
			d.trace.AppendRespan(spanAddr, b.Batches[batchIdx].Groups)
		}

		if err := d.proc.ExecuteOp(slot.Op); err != nil {
			return wrapProcessorErr(err)
		}

		if i == len(b.Ops)-1 {
			groupsLeft = 0
		} else {
			groupsLeft -= slot.GroupsConsumed
			if groupsLeft < 0 {
				groupsLeft = 0
			}
		}
		groupOpsLeft := field.New(slot.GroupValue.Uint64() >> (uint(slot.Slot+1) * op.OpBits))
		d.trace.AppendUserOp(slot.Op, spanAddr, parent, groupsLeft, groupOpsLeft, slot.Slot)
	}

	if err := d.execOp(op.Noop); err != nil {
		return err
	}
	d.stack.pop()
	d.log.Debugf("span exit addr=%d", spanAddr.Uint64())
	d.trace.AppendSpanEnd(spanAddr, b.Hash(), isLoopBody)
	return nil
}

// execOp runs a bookkeeping Noop/Drop on the processor without appending a
// trace row: the block-boundary accounting steps of the decoder protocol
// (entry/exit Noops, Split/Loop condition Drops) are processor-visible but
// do not themselves occupy a trace row.
func (d *driver) execOp(k op.Kind) error {
	if err := d.proc.ExecuteOp(op.New(k)); err != nil {
		return wrapProcessorErr(err)
	}
	return nil
}

func (d *driver) hasherAddr() (field.Felt, error) {
	var state [12]field.Felt
	addr, _, err := d.hash.Hash(state)
	if err != nil {
		return field.Zero, wrapHasherErr(err)
	}
	return addr, nil
}

func wrapProcessorErr(err error) error {
	return fmt.Errorf("%w: %v", ErrProcessor, err)
}

func wrapHasherErr(err error) error {
	return fmt.Errorf("%w: %v", ErrHasher, err)
}

func roundUp8(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + 7) / 8 * 8
}
