// Copyright (c) 2026 the sh4jit authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package frontend

import (
	"fmt"
	"io"

	"github.com/kestrel-jit/sh4jit/isa/sh4"
)

// LookupOp exposes the dictionary's decode step directly, completing the
// frontend's capability set ({translate, analyze, lookup_op, dump}, per
// spec.md's Design Notes) for callers that only need a descriptor (a
// debugger stepping one instruction at a time, for example).
func LookupOp(word uint16) *sh4.OpDef {
	return sh4.Lookup(word)
}

// Dump writes a disassembly of the guest instructions covering [addr,
// addr+size) to w, following delay slots inline the same way Translate
// does.
func Dump(w io.Writer, g Guest, addr uint32, size uint32) {
	space := g.Space()
	end := addr + size

	for addr < end {
		data := g.R16(space, addr)
		def := sh4.Lookup(data)

		fmt.Fprintf(w, "0x%08x  %s\n", addr, def.Disasm(addr, data))
		addr += 2

		if def.Flags&sh4.Delayed != 0 {
			slotData := g.R16(space, addr)
			slotDef := sh4.Lookup(slotData)
			fmt.Fprintf(w, "0x%08x  %s\n", addr, slotDef.Disasm(addr, slotData))
			addr += 2
		}
	}
}
