// Copyright (c) 2026 the sh4jit authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ir

import (
	"fmt"
	"io"
)

// Fprint writes a textual listing of b's blocks and instructions, used by
// the frontend's dump capability and by tests that assert on optimizer
// output without decoding host machine code.
func Fprint(w io.Writer, b *Builder) {
	for bi := range b.Blocks {
		fmt.Fprintf(w, "block %d:\n", bi)
		for ii, ins := range b.Blocks[bi].Instrs {
			if ins.dead() {
				continue
			}
			fmt.Fprintf(w, "  %%%d.%d %s.%s", bi, ii, ins.Op, ins.Type)
			for _, a := range ins.Args {
				if a.IsConst {
					fmt.Fprintf(w, " #%d", int64(a.Bits))
				} else {
					fmt.Fprintf(w, " %%%d.%d", a.Ref.Block, a.Ref.Instr)
				}
			}
			if ins.Op == OpFallback {
				fmt.Fprintf(w, " op=0x%04x trap=%s", FallbackOpcodeWord(ins.Aux), FallbackTrap(ins.Aux))
			}
			fmt.Fprintln(w)
		}
	}
}
