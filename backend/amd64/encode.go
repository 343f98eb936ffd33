// Copyright (c) 2026 the sh4jit authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package amd64

import "encoding/binary"

// Low-level ModRM/REX/SIB helpers, adapted from the teacher's x86.Assembler
// byte-level encoding primitives to the register numbering this package
// uses directly rather than routing through an instruction-selection type.

const (
	rexBase = 0x40
	rexW    = rexBase | (1 << 3) // 64-bit operand size
	rexR    = rexBase | (1 << 2) // extends ModRM.reg
	rexX    = rexBase | (1 << 1) // extends SIB.index
	rexB    = rexBase | (1 << 0) // extends ModRM.rm / SIB.base / opcode reg

	modDisp0  = 0 << 6
	modDisp8  = 1 << 6
	modDisp32 = 2 << 6
	modReg    = 3 << 6
)

func modRM(mod, reg, rm byte) byte {
	return mod | ((reg & 7) << 3) | (rm & 7)
}

// rex composes a REX prefix from the W bit and whether the reg/rm operands
// need their high bit (register 8-15). It always returns a prefix byte (at
// least the bare 0x40 when w is false and neither operand is extended);
// callers emit it for 64-bit ops, which always carry rexW.
func rex(w bool, regExt, rmExt bool) byte {
	b := byte(0)
	if w {
		b |= rexW
	} else {
		b |= rexBase
	}
	if regExt {
		b |= rexR
	}
	if rmExt {
		b |= rexB
	}
	return b
}

func le32(v int32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v))
	return b
}

func le64(v int64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(v))
	return b
}

// disp encodes a memory operand's [base+disp32] ModRM/SIB/displacement
// bytes; base may be r12/rsp, which require an SIB byte to avoid colliding
// with the RIP-relative encoding.
func disp(base byte, d int32) []byte {
	var out []byte
	rm := base & 7
	if rm == rsp&7 {
		out = append(out, modRM(modDisp32, 0, 4), sib(0, 4, rm))
	} else {
		out = append(out, modRM(modDisp32, 0, rm))
	}
	return append(out, le32(d)...)
}

func sib(scale, index, base byte) byte {
	return (scale << 6) | ((index & 7) << 3) | (base & 7)
}
