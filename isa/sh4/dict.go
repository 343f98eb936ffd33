// Copyright (c) 2026 the sh4jit authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sh4

import "github.com/kestrel-jit/sh4jit/ir"

// EmitFunc lowers one decoded guest instruction into IR. addr is the
// instruction's own guest address (not the block's). A Delayed
// instruction's EmitFunc is responsible for fetching its own delay slot
// word via g and translating it before emitting the branch's IR, so that
// the delay slot's effect precedes the control transfer exactly as the
// hardware executes it.
type EmitFunc func(b *ir.Builder, g Guest, flags Flags, addr uint32, instr uint16)

// DisasmFunc renders a decoded instruction as a human-readable mnemonic
// line, used by the frontend's dump capability.
type DisasmFunc func(addr uint32, instr uint16) string

// OpDef is the static, immutable descriptor spec.md §3 attaches to every
// opcode: flags, cycle cost, and the callbacks that emit IR or text for an
// instance of the opcode.
type OpDef struct {
	Name   string
	Flags  OpFlag
	Cycles uint8
	Emit   EmitFunc
	Disasm DisasmFunc
}

var illegalDef = &OpDef{
	Name:   "illegal",
	Flags:  Invalid,
	Cycles: 1,
	Emit:   emitIllegal,
	Disasm: func(addr uint32, instr uint16) string { return "illegal" },
}

// decodeTable is a dense 64K-entry jump table, the same density the
// original's opcode table uses: an SH-4 word's operation is not
// determined by a short common prefix, so a handful of branches on the
// high bits would just re-implement the table by hand with worse
// locality. Built once at package init by register.
var decodeTable [65536]*OpDef

// register installs def for every opcode word matching (word & mask) ==
// value. Called from this package's init to populate decodeTable; not
// exported beyond the package because the table is immutable once built
// (spec.md §3: "Instruction Descriptor... Static, immutable").
func register(mask, value uint16, def *OpDef) {
	for word := 0; word < 65536; word++ {
		if uint16(word)&mask == value {
			decodeTable[word] = def
		}
	}
}

// Lookup decodes a 16-bit guest instruction word into its static
// descriptor (spec.md §4.A).
func Lookup(word uint16) *OpDef {
	if def := decodeTable[word]; def != nil {
		return def
	}
	return illegalDef
}

func init() {
	for i := range decodeTable {
		decodeTable[i] = illegalDef
	}
	registerOpcodes()
}
