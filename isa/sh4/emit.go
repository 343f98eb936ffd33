// Copyright (c) 2026 the sh4jit authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sh4

import (
	"github.com/kestrel-jit/sh4jit/errors"
	"github.com/kestrel-jit/sh4jit/ir"
	"github.com/kestrel-jit/sh4jit/trap"
)

// emitDelaySlot fetches and translates the instruction immediately
// following a Delayed instruction's own word, enforcing spec.md §4.A's
// hard check that a delay slot instruction must not itself be Delayed.
// If the delay slot word is itself Invalid, it reports that instead of
// translating it, and the caller must not go on to emit its own branch:
// spec.md §4.E's termination rule 1 treats "DELAYED and its delay slot is
// INVALID" as an illegal-instruction block end, not as a taken branch.
func emitDelaySlot(b *ir.Builder, g Guest, flags Flags, addr uint32) (slotInvalid bool) {
	slotAddr := addr + 2
	slotWord := g.R16(g.Space(), slotAddr)
	def := Lookup(slotWord)
	if def.Flags&Delayed != 0 {
		panic(errors.NewFatalf("delay slot at 0x%08x is itself Delayed (word 0x%04x)", slotAddr, slotWord))
	}
	if def.Flags&Invalid != 0 {
		b.Fallback(slotWord, slotAddr, trap.SlotIllegalInstruction)
		b.Branch(slotAddr + 2)
		return true
	}
	def.Emit(b, g, flags, slotAddr, slotWord)
	return false
}

func emitIllegal(b *ir.Builder, g Guest, flags Flags, addr uint32, instr uint16) {
	b.Fallback(instr, addr, trap.IllegalInstruction)
	b.Branch(addr + 2)
}

func emitNop(b *ir.Builder, g Guest, flags Flags, addr uint32, instr uint16) {}

func emitRTS(b *ir.Builder, g Guest, flags Flags, addr uint32, instr uint16) {
	if emitDelaySlot(b, g, flags, addr) {
		return
	}
	pr := b.LoadContext(ir.I32, PROffset())
	b.BranchIndirect(ir.ValueOf(pr))
}

func emitBRA(b *ir.Builder, g Guest, flags Flags, addr uint32, instr uint16) {
	target := addr + 4 + uint32(disp12(instr)*2)
	if emitDelaySlot(b, g, flags, addr) {
		return
	}
	b.Branch(target)
}

func branchTarget(addr uint32, disp int32) uint32 {
	return addr + 4 + uint32(disp*2)
}

func emitBF(b *ir.Builder, g Guest, flags Flags, addr uint32, instr uint16) {
	target := branchTarget(addr, disp8(instr))
	fallthroughAddr := addr + 2
	t := b.LoadContext(ir.I32, TOffset())
	b.BranchCond(ir.ValueOf(t), fallthroughAddr, target)
}

func emitBT(b *ir.Builder, g Guest, flags Flags, addr uint32, instr uint16) {
	target := branchTarget(addr, disp8(instr))
	fallthroughAddr := addr + 2
	t := b.LoadContext(ir.I32, TOffset())
	b.BranchCond(ir.ValueOf(t), target, fallthroughAddr)
}

func emitBFS(b *ir.Builder, g Guest, flags Flags, addr uint32, instr uint16) {
	target := branchTarget(addr, disp8(instr))
	fallthroughAddr := addr + 4
	t := b.LoadContext(ir.I32, TOffset())
	if emitDelaySlot(b, g, flags, addr) {
		return
	}
	b.BranchCond(ir.ValueOf(t), fallthroughAddr, target)
}

func emitBTS(b *ir.Builder, g Guest, flags Flags, addr uint32, instr uint16) {
	target := branchTarget(addr, disp8(instr))
	fallthroughAddr := addr + 4
	t := b.LoadContext(ir.I32, TOffset())
	if emitDelaySlot(b, g, flags, addr) {
		return
	}
	b.BranchCond(ir.ValueOf(t), target, fallthroughAddr)
}

func emitMovImm(b *ir.Builder, g Guest, flags Flags, addr uint32, instr uint16) {
	n := fieldN(instr)
	c := b.ConstI32(imm8(instr))
	b.StoreContext(GPROffset(n), ir.ValueOf(c))
}

func emitMovLoad(b *ir.Builder, g Guest, flags Flags, addr uint32, instr uint16) {
	n, m := fieldN(instr), fieldM(instr)
	fastmem := flags&FASTMEM != 0
	rm := b.LoadContext(ir.I32, GPROffset(m))
	v := b.LoadGuest(ir.I32, ir.ValueOf(rm), fastmem)
	b.StoreContext(GPROffset(n), ir.ValueOf(v))
}

func emitMovStore(b *ir.Builder, g Guest, flags Flags, addr uint32, instr uint16) {
	n, m := fieldN(instr), fieldM(instr)
	fastmem := flags&FASTMEM != 0
	rn := b.LoadContext(ir.I32, GPROffset(n))
	rm := b.LoadContext(ir.I32, GPROffset(m))
	b.StoreGuest(ir.I32, ir.ValueOf(rn), ir.ValueOf(rm), fastmem)
}

func emitLdsFPSCR(b *ir.Builder, g Guest, flags Flags, addr uint32, instr uint16) {
	m := fieldM(instr)
	fastmem := flags&FASTMEM != 0
	rm := b.LoadContext(ir.I32, GPROffset(m))
	v := b.LoadGuest(ir.I32, ir.ValueOf(rm), fastmem)
	four := b.ConstI32(4)
	newRm := b.Binary(ir.OpAdd, ir.I32, ir.ValueOf(rm), ir.ValueOf(four))
	b.StoreContext(GPROffset(m), ir.ValueOf(newRm))
	b.StoreContext(FPSCROffset(), ir.ValueOf(v))
}

func emitLdcSR(b *ir.Builder, g Guest, flags Flags, addr uint32, instr uint16) {
	m := fieldM(instr)
	fastmem := flags&FASTMEM != 0
	rm := b.LoadContext(ir.I32, GPROffset(m))
	v := b.LoadGuest(ir.I32, ir.ValueOf(rm), fastmem)
	four := b.ConstI32(4)
	newRm := b.Binary(ir.OpAdd, ir.I32, ir.ValueOf(rm), ir.ValueOf(four))
	b.StoreContext(GPROffset(m), ir.ValueOf(newRm))
	b.StoreContext(SROffset(), ir.ValueOf(v))
}

func registerOpcodes() {
	register(0xFFFF, 0x0009, &OpDef{Name: "nop", Cycles: 1, Emit: emitNop, Disasm: disasmNop})
	register(0xFFFF, 0x000B, &OpDef{Name: "rts", Flags: Delayed | Branch, Cycles: 2, Emit: emitRTS, Disasm: disasmRTS})
	register(0xF000, 0xA000, &OpDef{Name: "bra", Flags: Delayed | Branch, Cycles: 2, Emit: emitBRA, Disasm: disasmBRA})
	register(0xFF00, 0x8B00, &OpDef{Name: "bf", Flags: Branch, Cycles: 1, Emit: emitBF, Disasm: disasmBF})
	register(0xFF00, 0x8900, &OpDef{Name: "bt", Flags: Branch, Cycles: 1, Emit: emitBT, Disasm: disasmBT})
	register(0xFF00, 0x8F00, &OpDef{Name: "bf/s", Flags: Delayed | Branch, Cycles: 1, Emit: emitBFS, Disasm: disasmBFS})
	register(0xFF00, 0x8D00, &OpDef{Name: "bt/s", Flags: Delayed | Branch, Cycles: 1, Emit: emitBTS, Disasm: disasmBTS})
	register(0xF000, 0xE000, &OpDef{Name: "mov #imm,Rn", Cycles: 1, Emit: emitMovImm, Disasm: disasmMovImm})
	register(0xF00F, 0x6002, &OpDef{Name: "mov.l @Rm,Rn", Cycles: 1, Emit: emitMovLoad, Disasm: disasmMovLoad})
	register(0xF00F, 0x2002, &OpDef{Name: "mov.l Rm,@Rn", Cycles: 1, Emit: emitMovStore, Disasm: disasmMovStore})
	register(0xF0FF, 0x406A, &OpDef{Name: "lds.l @Rm+,fpscr", Flags: SetFPSCR, Cycles: 1, Emit: emitLdsFPSCR, Disasm: disasmLdsFPSCR})
	register(0xF0FF, 0x4007, &OpDef{Name: "ldc.l @Rm+,sr", Flags: SetSR, Cycles: 1, Emit: emitLdcSR, Disasm: disasmLdcSR})
}
