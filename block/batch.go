// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package block

import (
	"fmt"

	"github.com/probechain/zkdecoder/field"
	"github.com/probechain/zkdecoder/hasher"
	"github.com/probechain/zkdecoder/op"
)

// OpBatchSize is the number of op-groups per batch: the hasher's absorption
// rate, and the unit the trace's addr column advances by between batches.
const OpBatchSize = 8

// OpBatch is one absorption unit: eight op-groups, each a Felt packing up to
// op.OpsPerGroup opcodes at op.OpBits-bit stride, or (for an immediate's
// dedicated group) a single raw Felt value.
type OpBatch struct {
	Groups [OpBatchSize]field.Felt
}

// OpSlot is one replayable entry of a packed span: a single non-decorator
// operation together with the position its opcode occupies in the packed
// batches, so the decoder can reconstruct group_count/op_idx/hasher-mirror
// values without re-scanning bit patterns.
type OpSlot struct {
	Op op.Operation

	// BatchIndex is the batch this op's own opcode (not its immediate, if
	// any) was packed into.
	BatchIndex int
	// Slot is the bit-slot, 0..op.OpsPerGroup-1, the opcode occupies within
	// its group.
	Slot int
	// GroupValue is the fully-packed Felt of the group holding this op's
	// opcode, valid once the group has closed (always true by the time
	// Pack returns).
	GroupValue field.Felt
	// GroupsConsumed is 1 for a plain opcode, 2 for one that also claims a
	// dedicated immediate group.
	GroupsConsumed int
}

// packer accumulates operations into groups and batches one opcode at a
// time, mirroring the teacher's emit4/emitImm bit-shift encoding idiom but
// at OP_BITS stride instead of byte granularity.
type packer struct {
	batches []OpBatch
	slots   []OpSlot

	curBatch    [OpBatchSize]field.Felt
	groupsInBat int

	curBits uint64
	slot    int   // next free bit-slot in the in-progress group, 0..OpsPerGroup
	pending []int // indices into slots sharing the in-progress group

	// lastCommitWasNatural is true when the most recent group commit
	// happened because a plain opcode filled the group to capacity, as
	// opposed to an immediate forcing an early close. Only a natural full
	// commit can leave the span's true last op sitting in a group's final
	// bit-slot, which finalize must still guard against.
	lastCommitWasNatural bool

	numOpGroups int
}

// Pack compiles ops into fixed-size op-groups and op-batches per the span
// packing rules, and returns the span's structural hash computed by
// sequential absorption of the batch group arrays into h.
func Pack(ops []op.Operation, h hasher.Hasher) ([]OpBatch, []OpSlot, int, field.Word, error) {
	p := &packer{}

	for _, o := range ops {
		if o.IsDecorator() {
			continue
		}
		if o.Kind.HasImmediate() {
			p.appendImmediate(o)
			continue
		}
		p.appendOpcode(o)
	}

	p.finalize()

	if p.numOpGroups == 0 {
		return nil, nil, 0, field.WordZero, fmt.Errorf("%w: span has no operations", ErrUnexecutable)
	}

	hash, err := hashBatches(p.batches, h)
	if err != nil {
		return nil, nil, 0, field.WordZero, fmt.Errorf("block: hashing span: %w", err)
	}
	return p.batches, p.slots, p.numOpGroups, hash, nil
}

// appendOpcode packs o's bits into the current group at the next stride,
// recording its replay slot, and rolling over to a fresh group when the
// current one fills.
func (p *packer) appendOpcode(o op.Operation) {
	idx := len(p.slots)
	p.slots = append(p.slots, OpSlot{
		Op:             o,
		BatchIndex:     len(p.batches),
		Slot:           p.slot,
		GroupsConsumed: 1,
	})
	p.pending = append(p.pending, idx)

	p.curBits |= uint64(o.Kind) << (uint(p.slot) * op.OpBits)
	p.slot++
	if p.slot == op.OpsPerGroup {
		p.commitGroup()
		p.lastCommitWasNatural = true
	}
}

// appendImmediate packs o's opcode, then dedicates the entire next op-group
// to its raw immediate value rather than bit-packing it: the opcode and its
// immediate are consumed together as one unit. o never occupies the last
// bit-slot of a group; its group is closed right after its opcode, so o is
// always the highest packed opcode of that group.
func (p *packer) appendImmediate(o op.Operation) {
	if p.slot == op.OpsPerGroup-1 {
		// o would otherwise land in the last bit-slot of this group; pad
		// with a Noop first so o starts a fresh group instead.
		p.appendOpcode(op.New(op.Noop))
	}

	idx := len(p.slots)
	p.slots = append(p.slots, OpSlot{
		Op:             o,
		BatchIndex:     len(p.batches),
		Slot:           p.slot,
		GroupsConsumed: 2,
	})
	p.pending = append(p.pending, idx)

	p.curBits |= uint64(o.Kind) << (uint(p.slot) * op.OpBits)
	p.slot++
	p.commitGroup() // o's opcode group closes here, full or not.
	p.lastCommitWasNatural = false

	p.commitRawGroup(o.Imm)
}

// commitGroup closes the in-progress bit-packed group, back-fills every
// pending OpSlot's GroupValue, and appends the group to the current batch.
func (p *packer) commitGroup() {
	g := field.New(p.curBits)
	for _, idx := range p.pending {
		p.slots[idx].GroupValue = g
	}
	p.pending = p.pending[:0]

	p.appendGroup(g)
	p.curBits = 0
	p.slot = 0
}

// commitRawGroup appends a group holding v verbatim, unpacked: the shape an
// immediate operand takes once it claims its own op-group.
func (p *packer) commitRawGroup(v field.Felt) {
	p.appendGroup(v)
}

func (p *packer) appendGroup(g field.Felt) {
	p.curBatch[p.groupsInBat] = g
	p.groupsInBat++
	p.numOpGroups++
	if p.groupsInBat == OpBatchSize {
		p.batches = append(p.batches, OpBatch{Groups: p.curBatch})
		p.curBatch = [OpBatchSize]field.Felt{}
		p.groupsInBat = 0
	}
}

// finalize appends a trailing Noop when a bit-packed group is still open or
// when the last group was filled to capacity, then flushes any partially
// filled group and batch. When the span ends with an immediate-bearing op,
// whose raw immediate group already closed the span, no Noop is added.
func (p *packer) finalize() {
	if p.slot > 0 {
		// An in-progress group is open; pad it so the true last op isn't
		// the final entry left unpadded.
		p.appendOpcode(op.New(op.Noop))
	} else if p.lastCommitWasNatural {
		// The true last op landed exactly in the final bit-slot of its
		// group; a bare trailing Noop group keeps it from being the last
		// op of its own group.
		p.appendOpcode(op.New(op.Noop))
	}
	if p.slot > 0 {
		p.commitGroup()
	}
	if p.groupsInBat > 0 {
		p.batches = append(p.batches, OpBatch{Groups: p.curBatch})
		p.curBatch = [OpBatchSize]field.Felt{}
		p.groupsInBat = 0
	}
}

// hashBatches absorbs each batch's 8 groups (the hasher's rate) together
// with the running digest (the capacity) from the previous batch, folding
// the whole span into one structural digest.
func hashBatches(batches []OpBatch, h hasher.Hasher) (field.Word, error) {
	capacity := field.WordZero
	for _, b := range batches {
		var state [12]field.Felt
		copy(state[0:8], b.Groups[:])
		copy(state[8:12], capacity[:])

		_, digest, err := h.Hash(state)
		if err != nil {
			return field.WordZero, err
		}
		capacity = digest
	}
	return capacity, nil
}
