// Copyright (c) 2026 the sh4jit authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package amd64 implements the one production Backend (spec.md §4.D):
// assembly of the IR opcode set into x86-64 byte sequences, a fixed
// register file published to the optimizer pipeline's register allocation
// pass, and fastmem fault recovery grounded on the corpus's links.L
// site-list pattern.
package amd64

import "github.com/kestrel-jit/sh4jit/regalloc"

// x86-64 general-purpose register encodings (the 4-bit ModRM/REX.B index,
// not the regalloc.Reg ordinal the allocator hands out).
const (
	rax = 0
	rcx = 1
	rdx = 2
	rbx = 3
	rsp = 4
	rbp = 5
	rsi = 6
	rdi = 7
	r8  = 8
	r9  = 9
	r10 = 10
	r11 = 11
	r12 = 12
	r13 = 13
	r14 = 14
	r15 = 15
)

// ctxReg is pinned to hold the guest Context base pointer for the lifetime
// of every compiled block (the same "stable base pointer plus offset"
// addressing isa/sh4.Context's *Offset helpers describe). Blocks emit no
// prologue: ctxReg, like memReg, must already hold its value when the
// dispatcher enters a block.
const ctxReg = r15

// memReg is pinned to hold the guest memory region's base pointer, used by
// FASTMEM loads/stores as a raw displacement base.
const memReg = r14

// intRegOrder maps the allocator's CategoryInt ordinals to real x86-64
// register encodings, in allocation order. rsp/rbp are never handed to the
// allocator (frame pointer and Go-side stack discipline own them); r14/r15
// are reserved above, and r10/r11/xmm14 are held back as the codegen's
// scratch registers for materializing constants, spill reloads and call
// targets (scratchInt, scratchInt2, scratchFloat below) rather than given
// out by the allocator.
var intRegOrder = [...]byte{rax, rcx, rdx, rbx, rsi, rdi, r8, r9, r12, r13}

// floatRegOrder maps CategoryFloat ordinals to XMM register numbers.
var floatRegOrder = [...]byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13}

const (
	scratchInt   = r11
	scratchInt2  = r10 // second integer scratch: src2 reloads, emitBranchCond, and the call/jump target in emitCallAbs/emitDispatchJump.
	scratchFloat = 14  // xmm14
)

// NumRegisters reports how many physical registers of category cat this
// backend publishes to the register allocation pass (irpass.RegisterFile).
func (*Backend) NumRegisters(cat regalloc.Category) int {
	switch cat {
	case regalloc.CategoryFloat:
		return len(floatRegOrder)
	default:
		return len(intRegOrder)
	}
}

// ClobberedByCall reports which allocator ordinals of category cat the
// slowmem/fallback call paths (emitFallback, emitStoreGuest, emitLoadGuest,
// emitCallAbs in codegen.go) clobber by hardcoding rax/rcx as the thunk's
// argument and return registers. The register allocation pass reserves
// these across a call-like instruction so it never hands one to a value
// that must survive the call.
func (*Backend) ClobberedByCall(cat regalloc.Category) []regalloc.Reg {
	if cat == regalloc.CategoryFloat {
		return nil
	}
	return []regalloc.Reg{0, 1} // intRegOrder[0]=rax, intRegOrder[1]=rcx
}

// encReg returns the x86-64 encoding for an allocator register ordinal.
func encReg(cat regalloc.Category, r regalloc.Reg) byte {
	if cat == regalloc.CategoryFloat {
		return floatRegOrder[r]
	}
	return intRegOrder[r]
}

// needsRexB reports whether encoding r in the ModRM.rm/reg field or an SIB
// base/index requires the REX.B/.R/.X extension bit (registers 8-15).
func needsRexB(enc byte) bool { return enc >= 8 }
