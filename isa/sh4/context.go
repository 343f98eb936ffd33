// Copyright (c) 2026 the sh4jit authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sh4 implements the SH-4 instruction dictionary (spec.md §4.A):
// a dense decode table mapping every 16-bit guest opcode word to a static
// descriptor carrying its flags, cycle cost, and IR-emit callback. It also
// defines the guest context layout the emit callbacks and the frontend
// address via fixed byte offsets.
package sh4

import "unsafe"

// Context is the guest register file and status accessed by emitted code.
// Its layout is fixed: emit callbacks address fields by byte offset
// (GPROffset, FPSCROffset, ...) rather than by Go field access, the same
// way translated code addresses a real CPU's register file — through a
// stable base pointer plus offset, never through a language-level struct
// reference.
//
// No FPR field: the shipped opcode subset emits no FP-register access, so
// there is nothing here for an FPROffset to address. Add it back alongside
// the opcode that needs it.
type Context struct {
	GPR   [16]uint32
	PC    uint32
	PR    uint32 // Procedure register; return target for RTS.
	FPSCR uint32
	SR    uint32
	T     uint32 // SR's T bit, tracked separately for cheap branch testing.
}

// FPSCR_PR_MASK and FPSCR_SZ_MASK are the FPSCR bits sampled at translate time to
// set the block's DOUBLE_PR / DOUBLE_SZ flags (spec.md §3, §6).
const (
	FPSCR_PR_MASK = 1 << 19
	FPSCR_SZ_MASK = 1 << 20
)

var layout Context

// GPROffset returns the byte offset of general register n within Context.
func GPROffset(n int) int32 { return int32(uintptr(unsafe.Pointer(&layout.GPR[n])) - uintptr(unsafe.Pointer(&layout))) }

// PCOffset is the byte offset of the guest program counter.
func PCOffset() int32 { return int32(uintptr(unsafe.Pointer(&layout.PC)) - uintptr(unsafe.Pointer(&layout))) }

// PROffset is the byte offset of the procedure register.
func PROffset() int32 { return int32(uintptr(unsafe.Pointer(&layout.PR)) - uintptr(unsafe.Pointer(&layout))) }

// FPSCROffset is the byte offset of FPSCR.
func FPSCROffset() int32 { return int32(uintptr(unsafe.Pointer(&layout.FPSCR)) - uintptr(unsafe.Pointer(&layout))) }

// SROffset is the byte offset of SR.
func SROffset() int32 { return int32(uintptr(unsafe.Pointer(&layout.SR)) - uintptr(unsafe.Pointer(&layout))) }

// TOffset is the byte offset of the cached T bit.
func TOffset() int32 { return int32(uintptr(unsafe.Pointer(&layout.T)) - uintptr(unsafe.Pointer(&layout))) }
