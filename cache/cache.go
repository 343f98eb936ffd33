// Copyright (c) 2026 the sh4jit authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cache

import (
	"github.com/kestrel-jit/sh4jit/errors"
	"github.com/kestrel-jit/sh4jit/frontend"
	"github.com/kestrel-jit/sh4jit/ir"
	"github.com/kestrel-jit/sh4jit/irpass"
	"github.com/kestrel-jit/sh4jit/isa/sh4"
	"github.com/kestrel-jit/sh4jit/links"
)

// Guest is the memory-fetch capability the cache forwards unchanged to the
// frontend for every translation.
type Guest = frontend.Guest

// Backend is the capability set the cache needs from a production
// backend (spec.md §9's "tagged capability set, not inheritance chains"):
// assemble IR into host bytes and reclaim the code region. There is
// exactly one production implementation, backend/amd64.Backend; this
// interface exists so tests can exercise the overflow-then-retry and
// fastmem paths against a fake.
type Backend interface {
	Assemble(b *ir.Builder, guestAddr uint32) (hostAddr uintptr, hostSize int, faults *links.L, err error)
	Reset()
	HandleFastmemException(faults *links.L, hostOffset int32) (resumeOffset int32, ok bool)
}

// dispatchSize is the dispatch table's entry count; BLOCK_OFFSET reduces
// any guest address covered by the JIT into this range. 1<<22 entries at
// 2-byte guest instruction granularity covers an 8MiB guest text region,
// ample for the single-guest-architecture scope this core targets.
const dispatchSize = 1 << 22

// blockOffset computes BLOCK_OFFSET(addr): word-aligned guest addresses
// reduced modulo the dispatch table's size. Collisions are impossible
// within the covered range because the function is total and injective
// over it (spec.md §3).
func blockOffset(addr uint32) uint32 {
	return (addr >> 1) & (dispatchSize - 1)
}

// Cache is the code cache of spec.md §4.F.
type Cache struct {
	dispatch []uintptr
	defaultCode uintptr

	slab     []Block
	freeList []blockID
	forward  forwardIndex
	reverse  reverseIndex

	backend  Backend
	pipeline *irpass.Pipeline
	builder  ir.Builder // IR arena, Reset and reused by every Compile.

	metrics *Metrics
}

// New constructs a Cache backed by be, whose dispatch table's empty slots
// read as defaultCode (a host routine that calls back into Compile and
// retries dispatch, per spec.md §3's "default trampoline"). regs supplies
// the register file the register allocation pass targets.
func New(be Backend, regs irpass.RegisterFile, defaultCode uintptr) *Cache {
	dispatch := make([]uintptr, dispatchSize)
	for i := range dispatch {
		dispatch[i] = defaultCode
	}

	return &Cache{
		dispatch:    dispatch,
		defaultCode: defaultCode,
		backend:     be,
		pipeline: irpass.NewPipeline(
			irpass.LoadStoreElimination{},
			irpass.DeadCodeElimination{},
			irpass.NewRegisterAllocation(regs),
		),
		metrics: newMetrics(),
	}
}

func (c *Cache) alloc() blockID {
	if n := len(c.freeList); n > 0 {
		id := c.freeList[n-1]
		c.freeList = c.freeList[:n-1]
		return id
	}
	c.slab = append(c.slab, Block{})
	return blockID(len(c.slab) - 1)
}

func (c *Cache) block(id blockID) *Block { return &c.slab[id] }

// Compile translates and assembles the block starting at guestAddr,
// installs it in the dispatch table, and returns its host entry point
// (spec.md §4.F "compile"). flags carries the caller's FASTMEM/DOUBLE_PR/
// DOUBLE_SZ decision for a fresh block; a stale unlinked block at the same
// address (left by an earlier fastmem fault) contributes its own flags
// (typically SLOWMEM) via OR, per spec.md §9's Open Question decision to
// preserve the original's "caller sets FASTMEM, cache only ORs in
// SLOWMEM" behavior.
func (c *Cache) Compile(g Guest, guestAddr uint32, flags sh4.Flags) (uintptr, error) {
	offset := blockOffset(guestAddr)
	if c.dispatch[offset] != c.defaultCode {
		return 0, errors.NewFatalf("compile: dispatch slot 0x%x not default at 0x%08x", offset, guestAddr)
	}

	if staleID, ok := c.forward.find(guestAddr); ok {
		stale := c.block(staleID)
		flags |= stale.Flags
		c.removeBlockID(staleID)
	}

	builder := &c.builder
	builder.Reset()
	unit := frontend.Translate(g, builder, guestAddr, flags)

	c.pipeline.Run(builder)

	hostAddr, hostSize, faults, err := c.backend.Assemble(builder, guestAddr)
	if err != nil {
		c.metrics.overflowRetries.Inc()
		c.ClearBlocks()

		hostAddr, hostSize, faults, err = c.backend.Assemble(builder, guestAddr)
		if err != nil {
			return 0, errors.WrapFatal(err, "backend assembler buffer overflow after clear")
		}
	}

	id := c.alloc()
	*c.block(id) = Block{
		GuestAddr: guestAddr,
		GuestSize: unit.GuestSize,
		HostAddr:  hostAddr,
		HostSize:  hostSize,
		Flags:     flags,
		NumCycles: unit.NumCycles,
		NumInstrs: unit.NumInstrs,
		Faults:    faults,
		linked:    true,
	}
	c.forward.insert(guestAddr, id)
	c.reverse.insert(hostAddr, id)
	c.dispatch[offset] = hostAddr

	c.metrics.compiles.Inc()

	return hostAddr, nil
}

// GetBlock is an exact lookup in the forward index (spec.md §4.F).
func (c *Cache) GetBlock(guestAddr uint32) (*Block, bool) {
	id, ok := c.forward.find(guestAddr)
	if !ok {
		return nil, false
	}
	return c.block(id), true
}

// RemoveBlocks removes every block whose guest footprint contains addr
// (spec.md §4.F "remove_blocks"), looping the "largest key ≤ addr" probe
// until no covering block remains. Used for cache coherence with a guest
// store into previously translated memory.
func (c *Cache) RemoveBlocks(addr uint32) {
	for {
		id, ok := c.forward.upperBoundPredecessor(addr)
		if !ok || !c.block(id).Contains(addr) {
			return
		}
		c.removeBlockID(id)
	}
}

// UnlinkBlocks resets every dispatch slot to the default trampoline but
// leaves the block set intact (spec.md §4.F "unlink_blocks"); safe to call
// while translated code is running.
func (c *Cache) UnlinkBlocks() {
	for i := range c.dispatch {
		c.dispatch[i] = c.defaultCode
	}
	for i := range c.slab {
		c.slab[i].linked = false
	}
}

// ClearBlocks unlinks all slots, removes all blocks, and resets the
// backend's code region (spec.md §4.F "clear_blocks"). Only legal when no
// translated frame is live on the call stack.
func (c *Cache) ClearBlocks() {
	c.UnlinkBlocks()
	c.slab = c.slab[:0]
	c.freeList = c.freeList[:0]
	c.forward = c.forward[:0]
	c.reverse = c.reverse[:0]
	c.backend.Reset()
	c.metrics.clears.Inc()
}

func (c *Cache) unlinkBlock(b *Block) {
	if !b.linked {
		return
	}
	c.dispatch[blockOffset(b.GuestAddr)] = c.defaultCode
	b.linked = false
}

func (c *Cache) removeBlockID(id blockID) {
	b := c.block(id)
	c.unlinkBlock(b)
	c.forward.remove(b.GuestAddr)
	c.reverse.remove(b.HostAddr)
	c.freeList = append(c.freeList, id)
}

// HandleFault implements the fastmem exception handler of spec.md §4.F,
// run synchronously on the faulting thread. It returns false ("not mine")
// for any host PC outside a live block's range or that the backend
// declines to recognize as one of its own fastmem sequences.
func (c *Cache) HandleFault(hostPC uintptr) (resumeAddr uintptr, handled bool) {
	id, ok := c.reverse.upperBoundPredecessor(hostPC)
	if !ok {
		return 0, false
	}

	b := c.block(id)
	if !b.ContainsHost(hostPC) {
		return 0, false
	}

	if b.Faults == nil {
		return 0, false
	}

	resumeOffset, ok := c.backend.HandleFastmemException(b.Faults, int32(hostPC-b.HostAddr))
	if !ok {
		return 0, false
	}

	c.unlinkBlock(b)
	b.Flags |= sh4.SLOWMEM
	c.metrics.fastmemDowngrades.Inc()

	return b.HostAddr + uintptr(resumeOffset), true
}
