// Copyright (c) 2026 the sh4jit authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package regalloc implements the bitmap-based register allocator that the
// optimizer pipeline's register allocation pass drives against whatever
// register file a backend publishes (irpass.RegisterFile's NumRegisters and
// ClobberedByCall).
package regalloc

import "fmt"

// Category distinguishes the integer and floating-point register files; a
// backend may have a different number of physical registers in each.
type Category uint8

const (
	CategoryInt Category = iota
	CategoryFloat
)

// Reg is a backend-defined physical register ordinal, opaque to this
// package beyond its use as a bitmap index.
type Reg uint8

func regIndex(cat Category, r Reg) uint8 {
	return uint8(r<<1) + uint8(cat)
}

func regMask(cat Category, r Reg) uint64 {
	return uint64(1) << regIndex(cat, r)
}

// Allocator tracks which of a fixed 64-register bitmap space (shared
// between the two categories via interleaved indices, as regIndex above)
// are currently free. The register allocation pass initializes one
// Allocator per IR block; it holds no cross-block state.
type Allocator struct {
	avail uint64
	freed uint64
}

// Init the allocator with the bitmask of registers the backend makes
// available to the allocator (some physical registers, e.g. the stack and
// frame pointers, are permanently reserved and never appear in avail).
func (a *Allocator) Init(avail uint64) {
	a.avail = avail
	a.freed = avail
}

// Alloc the lowest-numbered free register in category cat.
func (a *Allocator) Alloc(cat Category) (r Reg, ok bool) {
	for bits := a.freed >> uint8(cat); bits != 0; bits >>= 2 {
		if (bits & 1) != 0 {
			a.freed &^= regMask(cat, r)
			ok = true
			break
		}
		r++
	}
	return
}

// AllocSpecific reserves r, which must currently be free. Used when an
// instruction's ABI (a call's argument registers) pins a value to a
// specific physical register.
func (a *Allocator) AllocSpecific(cat Category, r Reg) {
	mask := regMask(cat, r)
	if (a.freed & mask) == 0 {
		panic(fmt.Sprintf("register %d already allocated", r))
	}
	a.freed &^= mask
}

// SetAllocated marks r allocated without requiring it to have been free;
// the register allocation pass uses it to reserve a free call-clobbered
// register across a call-like instruction.
func (a *Allocator) SetAllocated(cat Category, r Reg) {
	a.freed &^= regMask(cat, r)
}

// Free r, making it available for the next Alloc. Freeing a register
// outside avail (never managed by this allocator) is a silent no-op.
func (a *Allocator) Free(cat Category, r Reg) {
	mask := regMask(cat, r)
	if (a.freed & mask) != 0 {
		panic(fmt.Sprintf("register %d freed twice", r))
	}
	if (a.avail & mask) == 0 {
		return
	}
	a.freed |= mask
}

// Allocated reports whether r is currently allocated.
func (a *Allocator) Allocated(cat Category, r Reg) bool {
	mask := regMask(cat, r)
	return ((a.avail &^ a.freed) & mask) != 0
}

// AssertNoneAllocated panics if any managed register is still allocated;
// called by the register allocation pass at the end of each IR block as an
// invariant check (spec.md
// §7's "invariant violation" taxonomy — a caller bug, not a recoverable
// condition).
func (a *Allocator) AssertNoneAllocated() {
	if a.freed != a.avail {
		panic(fmt.Sprintf("registers still allocated at end of block: %#016x", (^a.freed)&a.avail))
	}
}

// AvailMask builds the bitmask Allocator.Init expects from a backend's
// register counts: the low numInt integer registers and the low numFloat
// float registers, packed into the interleaved index space regIndex uses.
func AvailMask(numInt, numFloat int) uint64 {
	var mask uint64
	for r := 0; r < numInt; r++ {
		mask |= regMask(CategoryInt, Reg(r))
	}
	for r := 0; r < numFloat; r++ {
		mask |= regMask(CategoryFloat, Reg(r))
	}
	return mask
}

// Map records which physical register (if any) holds each IR value,
// indexed by the interleaved (cat, reg) scheme used above. The register
// allocation pass keeps one per block to track which instruction currently
// occupies each register; the backend reads Instr.Reg instead.
type Map [64]int16

// Set records that IR value index holds in register r of category cat.
func (m *Map) Set(cat Category, r Reg, index int) {
	m[regIndex(cat, r)] = int16(index) + 1
}

// Clear removes any recorded mapping for register r of category cat.
func (m *Map) Clear(cat Category, r Reg) {
	m[regIndex(cat, r)] = 0
}

// Get returns the IR value index held in register r of category cat, or
// -1 if none.
func (m *Map) Get(cat Category, r Reg) int {
	return int(m[regIndex(cat, r)]) - 1
}
