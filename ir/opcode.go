// Copyright (c) 2026 the sh4jit authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ir implements the typed, SSA-like intermediate representation
// that the frontend emits into and the optimizer pipeline and backend
// consume. IR instructions and blocks are owned by a Builder arena that is
// recycled between translate/optimize/assemble cycles; no Instr, Block, or
// Ref outlives the Builder that produced it.
package ir

import (
	"fmt"

	"github.com/kestrel-jit/sh4jit/trap"
)

// Type is the result type of an IR instruction. TypeNone marks
// instructions kept only for their side effect (stores, branches,
// fallbacks).
type Type uint8

const (
	TypeNone Type = iota
	I8
	I16
	I32
	I64
	F32
	F64
)

func (t Type) String() string {
	switch t {
	case TypeNone:
		return "none"
	case I8:
		return "i8"
	case I16:
		return "i16"
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// Size returns the width in bytes of a value of type t, used for memory
// access width and register-class selection during assembly.
func (t Type) Size() int {
	switch t {
	case I8:
		return 1
	case I16:
		return 2
	case I32, F32:
		return 4
	case I64, F64:
		return 8
	default:
		return 0
	}
}

// Float reports whether t belongs to the float register category rather
// than the integer one; used by the register allocator and the backend's
// register file selection.
func (t Type) Float() bool { return t == F32 || t == F64 }

// Opcode identifies the operation an Instr performs. The set is
// deliberately small: it covers exactly what the shipped SH-4 instruction
// dictionary (isa/sh4) needs to express, per spec.md §4.B's contract that
// the IR opcode set is not required to be exhaustive ahead of need.
type Opcode uint8

const (
	OpNop Opcode = iota

	OpCopy // Forwards Args[0] verbatim; inserted by load/store elimination.

	OpConst // Materializes an immediate Args[0] of the instruction's Type.

	OpLoadContext  // Load Args[0] (byte offset, constant) from the guest context.
	OpStoreContext // Store Args[1] into the guest context at offset Args[0].

	OpLoadGuest  // Load from guest address Args[0]; Aux carries FASTMEM bit.
	OpStoreGuest // Store Args[1] to guest address Args[0]; Aux carries FASTMEM bit.

	OpFallback // Call the dictionary's interpreter fallback; Aux packs the opcode word and a trap.ID.

	OpAdd
	OpSub
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpNeg
	OpNot

	OpCmpEq
	OpCmpLt
	OpCmpLe

	OpSelect // Args = [cond, ifTrue, ifFalse]

	OpBranch         // Unconditional jump to guest address Args[0] (constant).
	OpBranchCond     // Args = [cond, targetIfTrue, targetIfFalse], both constants.
	OpBranchIndirect // Unconditional jump to guest address Args[0] (runtime value, e.g. PR for RTS).
)

// FastmemBit is set in an Instr.Aux for OpLoadGuest/OpStoreGuest emitted
// under the block's FASTMEM translation flag.
const FastmemBit uint32 = 1 << 31

// FallbackAux packs an OpFallback instruction's raw opcode word and the
// trap.ID describing why the dictionary could not lower it directly into
// a single Aux value: opcode word in the low 16 bits, trap kind above it.
func FallbackAux(opcodeWord uint16, kind trap.ID) uint32 {
	return uint32(opcodeWord) | uint32(kind)<<16
}

// FallbackOpcodeWord extracts the opcode word packed by FallbackAux.
func FallbackOpcodeWord(aux uint32) uint16 { return uint16(aux) }

// FallbackTrap extracts the trap.ID packed by FallbackAux.
func FallbackTrap(aux uint32) trap.ID { return trap.ID(aux >> 16) }

func (op Opcode) String() string {
	switch op {
	case OpNop:
		return "nop"
	case OpCopy:
		return "copy"
	case OpConst:
		return "const"
	case OpLoadContext:
		return "load_ctx"
	case OpStoreContext:
		return "store_ctx"
	case OpLoadGuest:
		return "load_guest"
	case OpStoreGuest:
		return "store_guest"
	case OpFallback:
		return "fallback"
	case OpAdd:
		return "add"
	case OpSub:
		return "sub"
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	case OpXor:
		return "xor"
	case OpShl:
		return "shl"
	case OpShr:
		return "shr"
	case OpNeg:
		return "neg"
	case OpNot:
		return "not"
	case OpCmpEq:
		return "cmp_eq"
	case OpCmpLt:
		return "cmp_lt"
	case OpCmpLe:
		return "cmp_le"
	case OpSelect:
		return "select"
	case OpBranch:
		return "branch"
	case OpBranchCond:
		return "branch_cond"
	case OpBranchIndirect:
		return "branch_indirect"
	default:
		return fmt.Sprintf("op(%d)", uint8(op))
	}
}

// IsBranch reports whether op unconditionally or conditionally ends a
// block's control flow. Used by the frontend to decide whether a synthetic
// fallthrough branch must be appended (spec.md §4.E).
func (op Opcode) IsBranch() bool {
	return op == OpBranch || op == OpBranchCond || op == OpBranchIndirect
}

// HasSideEffect reports whether op must never be removed by dead code
// elimination even if its result is unused (spec.md §4.C).
func (op Opcode) HasSideEffect() bool {
	switch op {
	case OpStoreContext, OpStoreGuest, OpFallback, OpBranch, OpBranchCond, OpBranchIndirect:
		return true
	default:
		return false
	}
}
