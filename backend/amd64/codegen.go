// Copyright (c) 2026 the sh4jit authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package amd64

import (
	"github.com/pkg/errors"

	"github.com/kestrel-jit/sh4jit/buffer"
	"github.com/kestrel-jit/sh4jit/ir"
	"github.com/kestrel-jit/sh4jit/isa/sh4"
	"github.com/kestrel-jit/sh4jit/links"
)

// ErrOverflow is returned by Assemble when the code region has no room
// left for the block; the cache's contract (spec.md §4.D, §7) is to clear
// the region and retry exactly once before treating a second overflow as
// fatal.
var ErrOverflow = errors.New("amd64: code region exhausted")

// Backend is the one production Backend of spec.md §4.D: it owns a single
// buffer.Fixed-backed code region and assembles the IR opcode set into
// x86-64 bytes, addressing the guest context through a pinned base
// register (ctxReg) and guest memory through another (memReg) rather than
// encoding either as an immediate, so that a Context/memory region can
// move between compilations without re-assembling every block.
type Backend struct {
	code *buffer.Fixed

	// dispatchAddr is jumped to at the end of every compiled block (after
	// storing the next guest PC into the context), handing control back
	// to the cache's dispatcher to look up or compile the next block.
	dispatchAddr uintptr

	// fallbackAddr is called for OP_FALLBACK; it receives the opcode word
	// and guest PC the same way the original's interpreter dispatch does.
	fallbackAddr uintptr

	// slowReadAddr/slowWriteAddr are the guarded slowmem thunks called for
	// OP_LOAD_GUEST/OP_STORE_GUEST instructions emitted under the block's
	// SLOWMEM flag, receiving the guest address (and, for a store, the
	// value) in the codegen's fixed argument registers and returning a
	// loaded value in rax where applicable.
	slowReadAddr, slowWriteAddr uintptr

	faults *links.L // fastmem fault sites for the block currently being assembled.
}

// New constructs a Backend whose code region is region (typically a
// page-aligned RWX mapping owned by the caller) and which hands control to
// dispatchAddr at the end of every block, to fallbackAddr for OP_FALLBACK
// instructions, and to slowReadAddr/slowWriteAddr for guest memory
// accesses emitted under the SLOWMEM flag.
func New(region []byte, dispatchAddr, fallbackAddr, slowReadAddr, slowWriteAddr uintptr) *Backend {
	return &Backend{
		code:         buffer.NewFixed(region),
		dispatchAddr: dispatchAddr,
		fallbackAddr: fallbackAddr,
		slowReadAddr: slowReadAddr,
		slowWriteAddr: slowWriteAddr,
	}
}

// Reset rewinds the code region to empty, invalidating every host address
// this Backend has previously returned from Assemble (spec.md §4.D
// reset()).
func (be *Backend) Reset() { be.code.Reset() }

// Assemble lowers b's single block (translated from guestAddr) into host
// code, returning the code region's base-relative host address and size
// of the emitted block and the fastmem fault-site table for any FASTMEM
// loads/stores it contains. Assemble returns ErrOverflow, leaving the
// region unchanged, if the block does not fit; a retry after Reset is the
// cache's responsibility.
func (be *Backend) Assemble(b *ir.Builder, guestAddr uint32) (hostAddr uintptr, hostSize int, faults *links.L, err error) {
	start := be.code.Len()
	// A fresh table per call: the caller keeps the returned pointer past
	// this call (cache.Block.Faults), so reusing one field across Assemble
	// calls would let a later block's sites overwrite an earlier block's
	// still-referenced table.
	be.faults = &links.L{}

	defer func() {
		if r := recover(); r != nil {
			if r == buffer.ErrSizeLimit {
				be.code.ResizeBytes(start)
				err = ErrOverflow
				return
			}
			panic(r)
		}
	}()

	for bi := range b.Blocks {
		for i := range b.Blocks[bi].Instrs {
			be.emit(b, bi, i)
		}
	}

	be.emitDispatchJump()

	if len(be.faults.Sites) > 0 {
		// Sites were recorded as code-region offsets (be.pc); the table
		// hands out offsets relative to the block's own start.
		for i := range be.faults.Sites {
			be.faults.Sites[i] -= int32(start)
		}
		// A single trampoline shared by every fastmem site in the block:
		// a fault on any of them re-enters this same block from its own
		// start under the SLOWMEM flag the cache promotes before
		// re-dispatching, since recompiling mid-block is not supported
		// (spec.md §1's no-deoptimization-feedback non-goal).
		be.faults.SetAddr(int32(be.code.Len() - start))
		be.emitBranchTarget(ir.ConstI(int64(int32(guestAddr))))
		be.emitDispatchJump()
	}

	return uintptr(start), be.code.Len() - start, be.faults, nil
}

func (be *Backend) pc() int32 { return int32(be.code.Len()) }

func (be *Backend) put(bs ...byte) { be.code.PutBytes(bs) }

// src resolves an Arg to a usable register: the producing instruction's
// allocated register, or intScratch/scratchFloat loaded from its spill
// slot or materialized from a constant.
func (be *Backend) src(b *ir.Builder, a ir.Arg, float bool, intScratch byte) byte {
	scratch := intScratch
	if float {
		scratch = scratchFloat
	}
	if a.IsConst {
		be.movImm64(scratch, int64(a.Bits))
		return scratch
	}
	producer := b.At(a.Ref)
	if producer.InReg {
		return encReg(producer.RegCat, producer.Reg)
	}
	be.loadSpill(scratch, producer.SpillSlot)
	return scratch
}

// src1 resolves an instruction's first (or only) operand, reloading a
// spilled producer into scratchInt.
func (be *Backend) src1(b *ir.Builder, a ir.Arg, float bool) byte {
	return be.src(b, a, float, scratchInt)
}

// src2 resolves a second operand that must stay live at the same time as
// one already resolved via src1, reloading a spilled producer into
// scratchInt2 instead of scratchInt so the two reloads can never land in
// the same register and clobber each other before both are consumed (spec
// §4.C allows spilling under register pressure, so this is not just a
// tiny-test-block corner case). There is only one float scratch
// (scratchFloat); no shipped opcode needs two simultaneously-spilled float
// operands, since the dictionary emits no FP arithmetic.
func (be *Backend) src2(b *ir.Builder, a ir.Arg, float bool) byte {
	return be.src(b, a, float, scratchInt2)
}

// dst returns the destination register an instruction should write its
// result to (its own allocated register, or scratchInt/scratchFloat if it
// was spilled; callers of dst must follow up with a storeSpill).
func dst(ins *ir.Instr) byte {
	if ins.InReg {
		return encReg(ins.RegCat, ins.Reg)
	}
	if ins.Type.Float() {
		return scratchFloat
	}
	return scratchInt
}

func (be *Backend) finish(ins *ir.Instr, reg byte) {
	if !ins.InReg && ins.Type != ir.TypeNone {
		be.storeSpill(reg, ins.SpillSlot)
	}
}

// spillBase is the frame-relative displacement of spill slot 0, beneath
// the backend's own saved registers; slots grow downward by 8 bytes each,
// matching how a real prologue would reserve stack space sized to the
// block's maximum concurrent spill count.
const spillBase = -0x100

func spillOffset(slot int32) int32 { return spillBase - slot*8 }

func (be *Backend) loadSpill(reg byte, slot int32) {
	be.put(rex(true, needsRexB(reg), false), 0x8b)
	be.put(disp(rbp, spillOffset(slot))...)
	be.fixupModRMReg(reg)
}

func (be *Backend) storeSpill(reg byte, slot int32) {
	be.put(rex(true, needsRexB(reg), false), 0x89)
	be.put(disp(rbp, spillOffset(slot))...)
	be.fixupModRMReg(reg)
}

// fixupModRMReg patches the ModRM byte just written by disp (which always
// encodes reg field 0) with the real source/destination register. disp
// appends its bytes starting with the ModRM byte as the first of the
// return slice; the caller already wrote it via put, so this rewrites the
// last-written ModRM byte in place.
func (be *Backend) fixupModRMReg(reg byte) {
	b := be.code.Bytes()
	// Walk back past the 4-byte displacement to the ModRM (and, if
	// present, SIB) byte emitted by disp.
	i := len(b) - 5
	if (b[i-1] & 0xc0) == modDisp32 && (b[i-1]&7) == 4 {
		i--
	}
	b[i] = (b[i] &^ 0x38) | ((reg & 7) << 3)
}

func (be *Backend) movImm64(reg byte, imm int64) {
	be.put(rex(true, false, needsRexB(reg)))
	be.put(0xb8 + (reg & 7))
	be.put(le64(imm)...)
}

func (be *Backend) movRegReg(dstReg, srcReg byte) {
	if dstReg == srcReg {
		return
	}
	be.put(rex(true, needsRexB(srcReg), needsRexB(dstReg)), 0x89)
	be.put(modRM(modReg, srcReg, dstReg))
}

func (be *Backend) loadMem(dstReg, baseReg byte, off int32) {
	be.put(rex(true, needsRexB(dstReg), needsRexB(baseReg)), 0x8b)
	be.put(disp(baseReg, off)...)
	be.fixupModRMReg(dstReg)
}

func (be *Backend) storeMem(baseReg byte, off int32, srcReg byte) {
	be.put(rex(true, needsRexB(srcReg), needsRexB(baseReg)), 0x89)
	be.put(disp(baseReg, off)...)
	be.fixupModRMReg(srcReg)
}

// emit lowers one instruction of block bi into host bytes.
func (be *Backend) emit(b *ir.Builder, bi, idx int) {
	ins := &b.Blocks[bi].Instrs[idx]
	if ins.Op == ir.OpNop {
		return
	}

	switch ins.Op {
	case ir.OpConst:
		d := dst(ins)
		be.movImm64(d, int64(ins.Args[0].Bits))
		be.finish(ins, d)

	case ir.OpCopy:
		d := dst(ins)
		s := be.src1(b, ins.Args[0], ins.Type.Float())
		be.movRegReg(d, s)
		be.finish(ins, d)

	case ir.OpLoadContext:
		d := dst(ins)
		be.loadMem(d, byte(ctxReg), ins.Args[0].Int32())
		be.finish(ins, d)

	case ir.OpStoreContext:
		s := be.src1(b, ins.Args[1], false)
		be.storeMem(byte(ctxReg), ins.Args[0].Int32(), s)

	case ir.OpLoadGuest:
		be.emitLoadGuest(b, ins)

	case ir.OpStoreGuest:
		be.emitStoreGuest(b, ins)

	case ir.OpFallback:
		be.emitFallback(ins)

	case ir.OpAdd, ir.OpSub, ir.OpAnd, ir.OpOr, ir.OpXor:
		be.emitArith(b, ins)

	case ir.OpShl, ir.OpShr:
		be.emitShift(b, ins)

	case ir.OpNeg, ir.OpNot:
		be.emitUnary(b, ins)

	case ir.OpCmpEq, ir.OpCmpLt, ir.OpCmpLe:
		be.emitCompare(b, ins)

	case ir.OpSelect:
		be.emitSelect(b, ins)

	case ir.OpBranch:
		be.emitBranchTarget(ins.Args[0])

	case ir.OpBranchCond:
		be.emitBranchCond(b, ins)

	case ir.OpBranchIndirect:
		s := be.src1(b, ins.Args[0], false)
		be.storeMem(byte(ctxReg), sh4.PCOffset(), s)
	}
}

// emitArith reloads lhs and rhs into distinct scratch registers (src1,
// src2) since both must be live at once for the opcode below: a spilled
// lhs and a spilled rhs reloaded into the same register would clobber
// each other before either is consumed.
func (be *Backend) emitArith(b *ir.Builder, ins *ir.Instr) {
	lhs := be.src1(b, ins.Args[0], false)
	rhs := be.src2(b, ins.Args[1], false)
	d := dst(ins)
	be.movRegReg(d, lhs)
	var opcode byte
	switch ins.Op {
	case ir.OpAdd:
		opcode = 0x01
	case ir.OpSub:
		opcode = 0x29
	case ir.OpAnd:
		opcode = 0x21
	case ir.OpOr:
		opcode = 0x09
	case ir.OpXor:
		opcode = 0x31
	}
	be.put(rex(true, needsRexB(rhs), needsRexB(d)), opcode)
	be.put(modRM(modReg, rhs, d))
	be.finish(ins, d)
}

func (be *Backend) emitShift(b *ir.Builder, ins *ir.Instr) {
	lhs := be.src1(b, ins.Args[0], false)
	d := dst(ins)
	be.movRegReg(d, lhs) // d may itself be scratchInt (a spilled result), so rhs below reloads into scratchInt2.
	if ins.Args[1].IsConst {
		be.put(rex(true, false, needsRexB(d)), 0xc1)
		sub := byte(4)
		if ins.Op == ir.OpShr {
			sub = 5
		}
		be.put(modRM(modReg, sub, d))
		be.put(byte(ins.Args[1].Uint64()))
	} else {
		rhs := be.src2(b, ins.Args[1], false)
		be.movRegReg(rcx, rhs)
		be.put(rex(true, false, needsRexB(d)), 0xd3)
		sub := byte(4)
		if ins.Op == ir.OpShr {
			sub = 5
		}
		be.put(modRM(modReg, sub, d))
	}
	be.finish(ins, d)
}

func (be *Backend) emitUnary(b *ir.Builder, ins *ir.Instr) {
	s := be.src1(b, ins.Args[0], false)
	d := dst(ins)
	be.movRegReg(d, s)
	sub := byte(3) // NEG
	if ins.Op == ir.OpNot {
		sub = 2
	}
	be.put(rex(true, false, needsRexB(d)), 0xf7)
	be.put(modRM(modReg, sub, d))
	be.finish(ins, d)
}

// emitCompare reloads lhs/rhs into distinct scratch registers: the cmp
// below needs both live simultaneously, with no intervening move to free
// one up first (see emitArith).
func (be *Backend) emitCompare(b *ir.Builder, ins *ir.Instr) {
	lhs := be.src1(b, ins.Args[0], false)
	rhs := be.src2(b, ins.Args[1], false)
	be.put(rex(true, needsRexB(rhs), needsRexB(lhs)), 0x39)
	be.put(modRM(modReg, rhs, lhs))

	d := dst(ins)
	var cc byte
	switch ins.Op {
	case ir.OpCmpEq:
		cc = 0x94 // sete
	case ir.OpCmpLt:
		cc = 0x9c // setl
	case ir.OpCmpLe:
		cc = 0x9e // setle
	}
	be.put(0x0f, cc)
	be.put(modRM(modReg, 0, d))
	be.put(rex(true, false, needsRexB(d)), 0x81, modRM(modReg, 4, d))
	be.put(le32(1)...)
	be.finish(ins, d)
}

// emitSelect has three operands live across the sequence (cond for the
// test, ifTrue for the cmov, ifFalse staged into d beforehand) but only
// two reload scratch registers. It sequences around that: ifFalse is
// consumed into d immediately (d is scratchInt when the result is
// spilled), cond gets the other scratch (src2) and is consumed by the
// test, and ifTrue is then reloaded into that same scratchInt2, which the
// flags-only test has freed and which never aliases d.
func (be *Backend) emitSelect(b *ir.Builder, ins *ir.Instr) {
	ifFalse := be.src1(b, ins.Args[2], false)
	d := dst(ins)
	be.movRegReg(d, ifFalse)
	cond := be.src2(b, ins.Args[0], false)
	be.put(rex(true, false, needsRexB(cond)), 0x85)
	be.put(modRM(modReg, cond, cond))
	ifTrue := be.src2(b, ins.Args[1], false)
	be.put(rex(true, needsRexB(d), needsRexB(ifTrue)), 0x0f, 0x45)
	be.put(modRM(modReg, d, ifTrue))
	be.finish(ins, d)
}

// emitLoadGuest assembles either a raw pointer dereference (FASTMEM, a
// site recorded in be.faults for later fault recovery) or a call through
// slowReadAddr, the embedding process's guarded/bounds-checked memory
// routine (SLOWMEM): this module implements neither guest memory layout
// nor bounds checking itself, since the guest memory map is supplied by
// the embedding process, not by this core (spec.md §1, §6).
func (be *Backend) emitLoadGuest(b *ir.Builder, ins *ir.Instr) {
	addr := be.src1(b, ins.Args[0], false)
	d := dst(ins)
	fastmem := ins.Aux&ir.FastmemBit != 0

	if fastmem {
		be.movRegReg(scratchInt, addr)
		be.put(rex(true, needsRexB(byte(memReg)), needsRexB(scratchInt)), 0x01)
		be.put(modRM(modReg, byte(memReg), scratchInt))
		site := be.pc()
		be.loadMem(d, scratchInt, 0)
		be.faults.AddSite(site)
	} else {
		be.movRegReg(rax, addr)
		be.emitCallAbs(be.slowReadAddr)
		be.movRegReg(d, rax)
	}
	be.finish(ins, d)
}

// emitStoreGuest reloads addr and val into distinct scratch registers:
// both the fastmem store and the slowmem call staging need addr and val
// live at the same time.
func (be *Backend) emitStoreGuest(b *ir.Builder, ins *ir.Instr) {
	addr := be.src1(b, ins.Args[0], false)
	val := be.src2(b, ins.Args[1], false)
	fastmem := ins.Aux&ir.FastmemBit != 0

	if fastmem {
		be.movRegReg(scratchInt, addr)
		be.put(rex(true, needsRexB(byte(memReg)), needsRexB(scratchInt)), 0x01)
		be.put(modRM(modReg, byte(memReg), scratchInt))
		site := be.pc()
		be.storeMem(scratchInt, 0, val)
		be.faults.AddSite(site)
	} else {
		// Stage val through scratchInt2 before clobbering rax/rcx with the
		// call's argument registers, in case val's allocated register is
		// one of them.
		be.movRegReg(scratchInt2, val)
		be.movRegReg(rax, addr)
		be.movRegReg(rcx, scratchInt2)
		be.emitCallAbs(be.slowWriteAddr)
	}
}

// emitFallback stores the packed opcode word/trap.ID and guest PC where
// fallbackAddr's calling convention expects them and calls it, the
// trap-raising sequence spec.md §4.D names for OP_FALLBACK.
func (be *Backend) emitFallback(ins *ir.Instr) {
	be.movImm64(rax, int64(ins.Aux))
	be.movImm64(rcx, int64(ins.GuestPC))
	be.emitCallAbs(be.fallbackAddr)
}

func (be *Backend) emitBranchTarget(target ir.Arg) {
	be.movImm64(scratchInt, int64(target.Int32()))
	be.storeMem(byte(ctxReg), sh4.PCOffset(), scratchInt)
}

// emitBranchCond tests cond before loading the two branch targets into
// scratchInt/scratchInt2: a spilled cond reloads into scratchInt too, and
// those immediate loads would clobber it if they ran first.
func (be *Backend) emitBranchCond(b *ir.Builder, ins *ir.Instr) {
	cond := be.src1(b, ins.Args[0], false)
	be.put(rex(true, false, needsRexB(cond)), 0x85)
	be.put(modRM(modReg, cond, cond))

	ifTrue := ins.Args[1].Int32()
	ifFalse := ins.Args[2].Int32()
	be.movImm64(scratchInt, int64(ifTrue))
	be.movImm64(scratchInt2, int64(ifFalse))
	be.put(rex(true, needsRexB(scratchInt), needsRexB(scratchInt2)), 0x0f, 0x44)
	be.put(modRM(modReg, scratchInt, scratchInt2))
	be.storeMem(byte(ctxReg), sh4.PCOffset(), scratchInt)
}

// emitCallAbs calls addr through scratchInt2, leaving rax/rcx free to carry
// the call's argument registers (set up by the caller beforehand).
func (be *Backend) emitCallAbs(addr uintptr) {
	be.movImm64(scratchInt2, int64(addr))
	be.put(rex(true, false, needsRexB(scratchInt2)), 0xff, modRM(modReg, 2, scratchInt2))
}

func (be *Backend) emitDispatchJump() {
	be.movImm64(scratchInt2, int64(be.dispatchAddr))
	be.put(rex(true, false, needsRexB(scratchInt2)), 0xff, modRM(modReg, 4, scratchInt2))
}
