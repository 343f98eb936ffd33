// Copyright (c) 2026 the sh4jit authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cache implements the code cache of spec.md §4.F: the
// direct-mapped dispatch table, the two ordered block indexes, the
// compile/invalidate/clear lifecycle, and the fastmem exception hook.
// It is grounded directly on original_source/src/hw/sh4/sh4_code_cache.cc,
// reworked per spec.md's Design Notes from an intrusive red-black tree of
// owning pointers to a slab of blocks addressed by ordered (key, id) index
// slices.
package cache

import (
	"github.com/kestrel-jit/sh4jit/isa/sh4"
	"github.com/kestrel-jit/sh4jit/links"
)

// Block is a contiguous translation unit (spec.md §3). HostAddr/HostSize
// are read-only after Assemble; Flags is the only field the fastmem
// protocol mutates post-creation (promoting SLOWMEM).
type Block struct {
	GuestAddr uint32
	GuestSize uint32
	HostAddr  uintptr
	HostSize  int
	Flags     sh4.Flags

	// NumCycles/NumInstrs are collected by the frontend's analysis pass
	// and exposed here unchanged for a scheduler outside the core to read
	// (spec.md §9's cycle-budget Design Note).
	NumCycles uint32
	NumInstrs uint32

	// Faults records the fastmem load/store sites this block's backend
	// assembly emitted. For a block with none (it was compiled SLOWMEM, or
	// emits no guest memory accesses at all) it is either nil or a table
	// with no sites; backend/amd64 always returns a non-nil table.
	Faults *links.L

	linked bool // Tracks whether dispatch[BLOCK_OFFSET(GuestAddr)] currently equals HostAddr.
}

// Contains reports whether guest address addr falls within the block's
// translated guest extent, the predicate remove_blocks' discovery probe
// ultimately checks (spec.md §4.F).
func (b *Block) Contains(addr uint32) bool {
	return addr >= b.GuestAddr && addr < b.GuestAddr+b.GuestSize
}

// ContainsHost reports whether host address pc falls within the block's
// emitted host code, the predicate the reverse-lookup fastmem path checks
// (spec.md §4.F "Lookup by host address").
func (b *Block) ContainsHost(pc uintptr) bool {
	return pc >= b.HostAddr && pc < b.HostAddr+uintptr(b.HostSize)
}
