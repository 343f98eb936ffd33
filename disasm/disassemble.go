// Copyright (c) 2026 the sh4jit authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package disasm prints the amd64 host code the backend emits for a
// single translation unit, annotated with the block's fastmem fault sites
// and resume trampoline. It exists for debugging a miscompiled block, not
// for anything the core itself calls.
package disasm

import (
	"fmt"
	"io"

	"github.com/bnagy/gapstone"

	"github.com/kestrel-jit/sh4jit/links"
)

// Fprint disassembles code, the host bytes of one assembled block starting
// at hostAddr, and writes an annotated AT&T-syntax listing to w. faults may
// be nil for a block with no fastmem sequences (compiled SLOWMEM, or one
// that touches no guest memory).
func Fprint(w io.Writer, code []byte, hostAddr uintptr, faults *links.L) error {
	engine, err := gapstone.New(gapstone.CS_ARCH_X86, gapstone.CS_MODE_64)
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := engine.SetOption(gapstone.CS_OPT_SYNTAX, gapstone.CS_OPT_SYNTAX_ATT); err != nil {
		return err
	}

	insns, err := engine.Disasm(code, uint64(hostAddr), 0)
	if err != nil {
		return err
	}

	faultSite := map[uint64]int{}
	var resumeAddr uint64
	hasFaults := faults != nil && len(faults.Sites) > 0
	if hasFaults {
		for i, site := range faults.Sites {
			faultSite[uint64(hostAddr)+uint64(site)] = i
		}
		resumeAddr = uint64(hostAddr) + uint64(faults.FinalAddr())
	}

	fmt.Fprintf(w, "block %#x:\n", hostAddr)

	for _, insn := range insns {
		if i, ok := faultSite[insn.Address]; ok {
			fmt.Fprintf(w, "; fastmem site %d\n", i)
		}
		if hasFaults && insn.Address == resumeAddr {
			fmt.Fprintln(w, "resume:")
		}
		fmt.Fprintf(w, "  %#08x:\t%s\t%s\n", insn.Address, insn.Mnemonic, insn.OpStr)
	}

	return nil
}
