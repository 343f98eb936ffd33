// Copyright (c) 2026 the sh4jit authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package frontend implements the SH-4 translation frontend (spec.md
// §4.E): it walks guest memory from a starting program counter, delimits
// a translation unit using the instruction dictionary (package isa/sh4),
// and drives the dictionary's emit callbacks to build IR.
package frontend

import (
	"github.com/kestrel-jit/sh4jit/ir"
	"github.com/kestrel-jit/sh4jit/isa/sh4"
)

// Guest is the memory-fetch capability the frontend needs from whatever
// owns guest RAM; it is also handed straight through to the instruction
// dictionary's delay-slot handling.
type Guest = sh4.Guest

// Space is the opaque guest memory handle forwarded unchanged to Guest.R16.
type Space = sh4.Space

// Unit describes the guest extent and static cost of one translation,
// computed by Analyze and re-derived identically by Translate (spec.md §8
// property 4: "analyze and translate must agree on guest_size").
type Unit struct {
	GuestAddr uint32
	GuestSize uint32
	NumCycles uint32
	NumInstrs uint32
}

// Analyze walks guest memory starting at addr, accumulating guest_size,
// num_cycles and num_instrs until a terminator is reached (spec.md
// §4.E's two-pass design: this pass fixes the block's guest extent before
// Translate emits any IR for it).
func Analyze(g Guest, addr uint32) Unit {
	u := Unit{GuestAddr: addr}
	space := g.Space()

	cur := addr
	for {
		data := g.R16(space, cur)
		def := sh4.Lookup(data)
		invalid := def.Flags&sh4.Invalid != 0

		cur += 2
		u.GuestSize += 2
		u.NumCycles += uint32(def.Cycles)
		u.NumInstrs++

		delayed := def.Flags&sh4.Delayed != 0
		if delayed {
			slotData := g.R16(space, cur)
			slotDef := sh4.Lookup(slotData)
			invalid = invalid || slotDef.Flags&sh4.Invalid != 0

			if slotDef.Flags&sh4.Delayed != 0 {
				panic("delay slot instruction is itself Delayed")
			}

			cur += 2
			u.GuestSize += 2
			u.NumCycles += uint32(slotDef.Cycles)
			u.NumInstrs++
		}

		if invalid {
			break
		}

		if def.Flags&(sh4.Branch|sh4.SetFPSCR|sh4.SetSR) != 0 {
			break
		}
	}

	return u
}

// Translate replays Analyze's walk, calling each instruction's dictionary
// emit callback to build IR into b, then appends a synthetic fallthrough
// branch if the emitted IR did not already end in one (spec.md §4.E).
// flags carries the block's FASTMEM/SLOWMEM/DOUBLE_PR/DOUBLE_SZ bits as
// the caller passes them (the code cache passes its own caller's flags,
// ORed with any stale block's; ResolveFlags derives them from guest state).
func Translate(g Guest, b *ir.Builder, addr uint32, flags sh4.Flags) Unit {
	u := Analyze(g, addr)
	space := g.Space()

	cur := addr
	end := addr + u.GuestSize

	for cur < end {
		data := g.R16(space, cur)
		def := sh4.Lookup(data)

		def.Emit(b, g, flags, cur, data)

		if def.Flags&sh4.Delayed != 0 {
			cur += 4
		} else {
			cur += 2
		}
	}

	appendFallthrough(b, end)

	return u
}

// appendFallthrough ensures the block's last instruction is a branch, per
// spec.md §4.E: "If it is neither an unconditional BRANCH nor a FALLBACK
// whose opcode carries BRANCH, the frontend appends branch(end_addr)".
func appendFallthrough(b *ir.Builder, end uint32) {
	last, ok := b.Last()
	if !ok {
		b.Branch(end)
		return
	}

	ins := b.At(last)
	if ins.Op.IsBranch() {
		return
	}
	if ins.Op == ir.OpFallback {
		if sh4.Lookup(ir.FallbackOpcodeWord(ins.Aux)).Flags&sh4.Branch != 0 {
			return
		}
	}

	b.Branch(end)
}

// ResolveFlags derives the translation-time Flags for a new block from
// live guest state: FASTMEM iff the caller currently permits it for this
// block, DOUBLE_PR/DOUBLE_SZ sampled from the guest's current FPSCR.
func ResolveFlags(fastmemAllowed bool, fpscr uint32) sh4.Flags {
	var f sh4.Flags
	if fastmemAllowed {
		f |= sh4.FASTMEM
	}
	if fpscr&sh4.FPSCR_PR_MASK != 0 {
		f |= sh4.DOUBLE_PR
	}
	if fpscr&sh4.FPSCR_SZ_MASK != 0 {
		f |= sh4.DOUBLE_SZ
	}
	return f
}
