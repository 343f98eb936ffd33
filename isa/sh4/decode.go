// Copyright (c) 2026 the sh4jit authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sh4

// Field extractors for the handful of SH-4 instruction encodings this
// dictionary implements. Names follow the architecture manual's own field
// names (n, m, imm, disp) rather than anything Go-specific.

func fieldN(instr uint16) int { return int((instr >> 8) & 0xF) }
func fieldM(instr uint16) int { return int((instr >> 4) & 0xF) }

func imm8(instr uint16) int32 { return int32(int8(instr & 0xFF)) }

func disp8(instr uint16) int32 {
	d := int32(instr & 0xFF)
	if d&0x80 != 0 {
		d -= 0x100
	}
	return d
}

func disp12(instr uint16) int32 {
	d := int32(instr & 0xFFF)
	if d&0x800 != 0 {
		d -= 0x1000
	}
	return d
}

// Space is the opaque guest memory handle threaded unchanged through every
// guest memory callback (spec.md §6); this dictionary never interprets it,
// only forwards it to Guest.R16.
type Space interface{}

// Guest lets a delayed-branch emit callback fetch the instruction word in
// its own delay slot, so it can translate the slot's effect before the
// branch transfers control, mirroring the hardware order of execution.
type Guest interface {
	Space() Space
	R16(space Space, addr uint32) uint16
}
