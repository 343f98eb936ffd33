// Copyright (c) 2026 the sh4jit authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ir

// Ref names the result of a previously emitted instruction: the block it
// lives in and its position within that block. A Ref is valid only for the
// lifetime of the Builder that produced it.
type Ref struct {
	Block int
	Instr int
}

// Arg is an instruction operand: either a reference to another
// instruction's result, or an immediate constant carried inline. Keeping
// constants inline (rather than as their own const-producing instructions
// that consumers must chase) is what the original's IR builder does for
// branch targets and context offsets, and it is what load/store
// elimination and dead code elimination are written against here.
type Arg struct {
	IsConst bool
	Bits    uint64 // Constant payload, reinterpreted per the consuming Type.
	Ref     Ref    // Valid when !IsConst.
}

// ValueOf returns an Arg referencing instruction ref's result.
func ValueOf(ref Ref) Arg { return Arg{Ref: ref} }

// ConstI imm as a constant Arg, sign-extended payload stored verbatim.
func ConstI(imm int64) Arg { return Arg{IsConst: true, Bits: uint64(imm)} }

// ConstU imm as a constant Arg.
func ConstU(imm uint64) Arg { return Arg{IsConst: true, Bits: imm} }

// Int32 reinterprets a constant Arg's payload as a signed 32-bit value.
func (a Arg) Int32() int32 { return int32(uint32(a.Bits)) }

// Uint32 reinterprets a constant Arg's payload as an unsigned 32-bit value.
func (a Arg) Uint32() uint32 { return uint32(a.Bits) }

// Uint64 returns the raw constant payload.
func (a Arg) Uint64() uint64 { return a.Bits }

// No float-constant accessor: the shipped SH-4 opcode subset emits no
// FP-register access, so no Arg ever carries a float64 payload. F32/F64
// (ir/opcode.go) and regalloc.CategoryFloat stay defined for the register
// allocator and backend's float register file; add ConstF64/Arg.Float64
// back here if an FP-touching opcode is added.
