// Copyright (c) 2026 the sh4jit authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ir

import (
	"github.com/kestrel-jit/sh4jit/regalloc"
	"github.com/kestrel-jit/sh4jit/trap"
)

// Instr is one IR instruction: an opcode, a result type, and its operands.
// Width and Aux are opcode-specific payload (memory access width and the
// FASTMEM bit for Load/StoreGuest; the dictionary opcode word for
// Fallback). A tombstoned instruction (set to OpNop by an optimizer pass)
// keeps its slot so that Refs taken before the pass ran stay valid.
//
// Reg/RegCat/Spilled/SpillSlot are written by the register allocation
// pass (package irpass) and read by the backend during assembly; they are
// zero/unset until that pass has run.
type Instr struct {
	Op      Opcode
	Type    Type
	Args    []Arg
	Width   int
	Aux     uint32
	GuestPC uint32 // Guest address this instruction was emitted for; for maps/debug.

	Reg      regalloc.Reg
	RegCat   regalloc.Category
	InReg    bool
	Spilled  bool
	SpillSlot int32
}

func (i *Instr) dead() bool { return i.Op == OpNop && i.Type == TypeNone }

// Block is a straight-line sequence of instructions. The frontend emits
// exactly one Block per translation today (SH-4 blocks have no internal
// control flow split points in this dictionary), but the optimizer
// pipeline and backend are written against a list of blocks so that a
// richer frontend can emit more without changing their contracts.
type Block struct {
	Instrs []Instr
}

// Builder is the arena that owns a translation's blocks and instructions.
// Reset reuses the underlying storage for the next translation, matching
// the Data Model's requirement that no IR object outlive a single
// translate→optimize→assemble cycle.
type Builder struct {
	Blocks []Block
	cur    int
}

// Reset clears the builder for reuse, retaining the backing arrays'
// capacity (the arena never shrinks; it only ever resets its length, the
// same bump-allocator discipline the backend's code buffer uses).
func (b *Builder) Reset() {
	for i := range b.Blocks {
		b.Blocks[i].Instrs = b.Blocks[i].Instrs[:0]
	}
	b.Blocks = b.Blocks[:0]
	b.cur = 0
	b.NewBlock()
}

// NewBlock appends a block and makes it current, returning its index.
func (b *Builder) NewBlock() int {
	if n := len(b.Blocks); n < cap(b.Blocks) {
		// Reuse the slot left behind by Reset, keeping its Instrs array.
		b.Blocks = b.Blocks[:n+1]
		b.Blocks[n].Instrs = b.Blocks[n].Instrs[:0]
	} else {
		b.Blocks = append(b.Blocks, Block{})
	}
	b.cur = len(b.Blocks) - 1
	return b.cur
}

// CurrentBlock returns the index of the block new instructions are
// appended to.
func (b *Builder) CurrentBlock() int { return b.cur }

// SetBlock makes block i current.
func (b *Builder) SetBlock(i int) { b.cur = i }

// Emit appends an instruction to the current block and returns a Ref to
// its result.
func (b *Builder) Emit(op Opcode, typ Type, args ...Arg) Ref {
	blk := &b.Blocks[b.cur]
	blk.Instrs = append(blk.Instrs, Instr{Op: op, Type: typ, Args: args})
	return Ref{Block: b.cur, Instr: len(blk.Instrs) - 1}
}

// EmitAux is Emit plus opcode-specific Width/Aux payload, used by
// Load/StoreGuest and Fallback.
func (b *Builder) EmitAux(op Opcode, typ Type, width int, aux uint32, args ...Arg) Ref {
	ref := b.Emit(op, typ, args...)
	ins := b.At(ref)
	ins.Width = width
	ins.Aux = aux
	return ref
}

// At dereferences a Ref into the instruction it names.
func (b *Builder) At(ref Ref) *Instr {
	return &b.Blocks[ref.Block].Instrs[ref.Instr]
}

// Last returns a Ref to the most recently emitted instruction in the
// current block, or ok=false if the block is empty.
func (b *Builder) Last() (ref Ref, ok bool) {
	blk := &b.Blocks[b.cur]
	if len(blk.Instrs) == 0 {
		return Ref{}, false
	}
	return Ref{Block: b.cur, Instr: len(blk.Instrs) - 1}, true
}

// Const materializes an immediate of type typ.
func (b *Builder) Const(typ Type, imm Arg) Ref {
	return b.Emit(OpConst, typ, imm)
}

// ConstI32 materializes a signed 32-bit immediate, the common case for
// guest addresses and register offsets.
func (b *Builder) ConstI32(v int32) Ref {
	return b.Const(I32, ConstI(int64(v)))
}

// LoadContext loads the guest register/FPSCR field at byte offset off.
func (b *Builder) LoadContext(typ Type, off int32) Ref {
	return b.Emit(OpLoadContext, typ, ConstI(int64(off)))
}

// StoreContext stores val into the guest register/FPSCR field at byte
// offset off.
func (b *Builder) StoreContext(off int32, val Arg) Ref {
	return b.Emit(OpStoreContext, TypeNone, ConstI(int64(off)), val)
}

// LoadGuest loads a value of type typ from guest address addr. fastmem
// selects whether the backend may compile this as a raw pointer
// dereference.
func (b *Builder) LoadGuest(typ Type, addr Arg, fastmem bool) Ref {
	aux := uint32(0)
	if fastmem {
		aux = FastmemBit
	}
	return b.EmitAux(OpLoadGuest, typ, typ.Size(), aux, addr)
}

// StoreGuest stores val to guest address addr.
func (b *Builder) StoreGuest(typ Type, addr, val Arg, fastmem bool) Ref {
	aux := uint32(0)
	if fastmem {
		aux = FastmemBit
	}
	return b.EmitAux(OpStoreGuest, TypeNone, typ.Size(), aux, addr, val)
}

// Fallback calls the instruction dictionary's interpreter routine for the
// raw 16-bit opcode word at guestPC, used for opcodes the IR cannot
// express directly (illegal instructions, rare FPU transcendentals). kind
// identifies which trap.ID the dictionary should report if the fallback
// routine itself cannot service the opcode either.
func (b *Builder) Fallback(opcodeWord uint16, guestPC uint32, kind trap.ID) Ref {
	ref := b.EmitAux(OpFallback, TypeNone, 0, FallbackAux(opcodeWord, kind), ConstI(int64(guestPC)))
	b.At(ref).GuestPC = guestPC
	return ref
}

// Branch appends an unconditional jump to the constant guest address
// target. Per spec.md §4.E every compiled block must end in exactly one
// of these (inserted synthetically by the frontend if the emitted
// instructions did not already end in one).
func (b *Builder) Branch(target uint32) Ref {
	return b.Emit(OpBranch, TypeNone, ConstI(int64(target)))
}

// BranchCond appends a two-way jump: to ifTrue when cond is nonzero,
// otherwise to ifFalse. Both targets are constant guest addresses, since
// the dictionary's BRANCH-flagged instructions (BT, BF and their delayed
// forms) only ever target a constant displacement or the fallthrough.
func (b *Builder) BranchCond(cond Arg, ifTrue, ifFalse uint32) Ref {
	return b.Emit(OpBranchCond, TypeNone, cond, ConstI(int64(ifTrue)), ConstI(int64(ifFalse)))
}

// BranchIndirect appends an unconditional jump to a runtime-computed guest
// address (RTS's target, the procedure register's saved value).
func (b *Builder) BranchIndirect(target Arg) Ref {
	return b.Emit(OpBranchIndirect, TypeNone, target)
}

// Binary emits a two-operand arithmetic/logical/compare instruction.
func (b *Builder) Binary(op Opcode, typ Type, lhs, rhs Arg) Ref {
	return b.Emit(op, typ, lhs, rhs)
}

// Unary emits a one-operand instruction (OpNeg, OpNot).
func (b *Builder) Unary(op Opcode, typ Type, v Arg) Ref {
	return b.Emit(op, typ, v)
}
