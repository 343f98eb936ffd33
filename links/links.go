// Copyright (c) 2026 the sh4jit authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package links implements the site-list bookkeeping the backend uses to
// remember where, within an assembled block, a particular fastmem access
// was emitted, so that a later fault at one of those host addresses can be
// resolved back to a resume point without rescanning the whole block.
package links

// L names a set of host code sites that all resolve to the same final
// address once it becomes known. For a fastmem access it is one entry per
// load/store site; Addr is set to the slowmem resume trampoline emitted
// immediately after the block's fastmem sequences.
type L struct {
	Sites []int32
	Addr  int32
}

// AddSite records another host byte offset, relative to the start of the
// block's code, that refers to this link.
func (l *L) AddSite(offset int32) {
	l.Sites = append(l.Sites, offset)
}

// SetAddr finalizes the link's target address. Setting it twice is a
// caller bug (an invariant violation per spec.md §7) since every link is
// resolved exactly once, at the end of assembling its block.
func (l *L) SetAddr(addr int32) {
	if l.Addr != 0 {
		panic("link address set twice")
	}
	l.Addr = addr
}

// FinalAddr returns the resolved address, panicking if SetAddr was never
// called.
func (l *L) FinalAddr() int32 {
	if l.Addr == 0 {
		panic("link address requested before being set")
	}
	return l.Addr
}

// Contains reports whether offset falls within [site, site+length) for any
// recorded site, returning the matching site's index. Used by
// handle_fastmem to decide whether a faulting PC lands inside one of this
// link's emitted instructions.
func (l *L) Contains(offset, length int32) (siteIndex int, ok bool) {
	for i, s := range l.Sites {
		if offset >= s && offset < s+length {
			return i, true
		}
	}
	return -1, false
}
