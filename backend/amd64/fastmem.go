// Copyright (c) 2026 the sh4jit authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package amd64

import "github.com/kestrel-jit/sh4jit/links"

// faultInstrLen is a conservative upper bound on the byte length of the
// faulting instruction at a recorded site. A site is recorded at the
// fastmem load/store itself (after the movRegReg + add that form its
// address), which is REX + opcode + ModRM (+ SIB) + 4-byte displacement,
// at most 8 bytes, so a faulting PC landing inside that instruction always
// falls within [site, site+faultInstrLen).
const faultInstrLen = 24

// HandleFastmemException is the Backend method the code cache's capability
// set calls (spec.md §4.D handle_fastmem). It reports whether hostOffset, a
// faulting instruction pointer relative to the block's host_addr, falls
// inside one of faults' recorded fastmem sites, returning the
// block-relative offset of the resume trampoline appended after the
// block's last fastmem sequence if so (grounded on
// sh4_cache_handle_exception's reverse lookup in
// original_source/src/hw/sh4/sh4_code_cache.cc). It needs no Backend state
// of its own since faults is supplied by the caller's own reverse lookup.
func (*Backend) HandleFastmemException(faults *links.L, hostOffset int32) (resumeOffset int32, ok bool) {
	if _, found := faults.Contains(hostOffset, faultInstrLen); !found {
		return 0, false
	}
	return faults.FinalAddr(), true
}
