// Copyright (c) 2026 the sh4jit authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package irpass

import "github.com/kestrel-jit/sh4jit/ir"

// LoadStoreElimination removes redundant reloads of guest context fields
// and dead stores to them along a block's straight-line instruction
// sequence (spec.md §4.C). Guest RAM accesses (OpLoadGuest/OpStoreGuest)
// address a disjoint space from the guest context and are never forwarded
// or eliminated by this pass; a Fallback call is treated conservatively as
// writing every context field, since the dictionary's interpreter
// fallback routines are opaque to the pass.
type LoadStoreElimination struct{}

func (LoadStoreElimination) Name() string { return "load-store-elimination" }

type lsEntry struct {
	val      ir.Arg
	storeIdx int // Index of the store that produced val, or -1 if it came from a load.
}

func (LoadStoreElimination) Run(b *ir.Builder) {
	for bi := range b.Blocks {
		known := make(map[int32]lsEntry)
		instrs := b.Blocks[bi].Instrs

		for i := range instrs {
			ins := &instrs[i]
			if ins.Op == ir.OpNop {
				continue
			}

			switch ins.Op {
			case ir.OpLoadContext:
				off := int32(ins.Args[0].Bits)
				if e, ok := known[off]; ok {
					ins.Op = ir.OpCopy
					ins.Args = []ir.Arg{e.val}
					continue
				}
				known[off] = lsEntry{val: ir.ValueOf(ir.Ref{Block: bi, Instr: i}), storeIdx: -1}

			case ir.OpStoreContext:
				off := int32(ins.Args[0].Bits)
				val := ins.Args[1]
				if e, ok := known[off]; ok && e.storeIdx >= 0 {
					instrs[e.storeIdx].Op = ir.OpNop
					instrs[e.storeIdx].Type = ir.TypeNone
					instrs[e.storeIdx].Args = nil
				}
				known[off] = lsEntry{val: val, storeIdx: i}

			case ir.OpFallback:
				known = make(map[int32]lsEntry)
			}
		}
	}
}
