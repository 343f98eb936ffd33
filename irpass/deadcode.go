// Copyright (c) 2026 the sh4jit authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package irpass

import "github.com/kestrel-jit/sh4jit/ir"

// DeadCodeElimination prunes IR values with no observable consumer,
// preserving every side-effecting instruction (memory ops, fallbacks,
// branches) and transitively everything those depend on (spec.md §4.C).
type DeadCodeElimination struct{}

func (DeadCodeElimination) Name() string { return "dead-code-elimination" }

func (DeadCodeElimination) Run(b *ir.Builder) {
	used := make([][]bool, len(b.Blocks))
	for bi := range b.Blocks {
		used[bi] = make([]bool, len(b.Blocks[bi].Instrs))
	}

	var stack []ir.Ref
	mark := func(ref ir.Ref) {
		if !used[ref.Block][ref.Instr] {
			used[ref.Block][ref.Instr] = true
			stack = append(stack, ref)
		}
	}

	for bi := range b.Blocks {
		for ii, ins := range b.Blocks[bi].Instrs {
			if ins.Op.HasSideEffect() {
				mark(ir.Ref{Block: bi, Instr: ii})
			}
		}
	}

	for len(stack) > 0 {
		ref := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		ins := b.At(ref)
		for _, a := range ins.Args {
			if !a.IsConst {
				mark(a.Ref)
			}
		}
	}

	for bi := range b.Blocks {
		instrs := b.Blocks[bi].Instrs
		for ii := range instrs {
			if instrs[ii].Op == ir.OpNop {
				continue
			}
			if !used[bi][ii] {
				instrs[ii].Op = ir.OpNop
				instrs[ii].Type = ir.TypeNone
				instrs[ii].Args = nil
			}
		}
	}
}
