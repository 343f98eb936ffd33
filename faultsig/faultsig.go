// Copyright (c) 2026 the sh4jit authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package faultsig is a reference binding between the code cache's fastmem
// exception contract (spec.md §6 "process exception handler registry")
// and a real host process. A production signal/SEH/Mach-exception shim is
// architecture- and OS-specific and lives outside this core; this package
// gives a pure-Go caller something usable today on the one platform Go's
// runtime exposes directly: runtime/debug.SetPanicOnFault turns a SIGSEGV
// hit during translated code's execution into an ordinary, same-goroutine
// panic, which is the closest stdlib equivalent to the synchronous,
// same-thread delivery spec.md §5 requires.
package faultsig

import (
	"runtime"
	"runtime/debug"
)

// AccessKind distinguishes a load fault from a store fault, reported by
// whichever shim detects the actual access (SetPanicOnFault's panic value
// does not distinguish the two, so Guard always reports AccessUnknown).
type AccessKind int

const (
	AccessUnknown AccessKind = iota
	AccessRead
	AccessWrite
)

// Exception is the fault record spec.md §6 describes: at minimum a
// faulting host PC, a faulting guest address, and an access kind.
// FaultAddr is left zero by Guard, which has no portable way to recover
// the OS siginfo's faulting address from a recovered panic; a real
// signal-handler shim filling in Exception directly can set it.
type Exception struct {
	PC        uintptr
	FaultAddr uintptr
	Kind      AccessKind
}

// Handler is the capability the cache provides: decide whether a fault at
// pc is one of its own recognized fastmem sites, and if so where execution
// should resume. It is satisfied by *cache.Cache without this package
// importing cache, keeping the dependency one-directional.
type Handler interface {
	HandleFault(pc uintptr) (resumeAddr uintptr, handled bool)
}

// Registry holds every handler a process wants consulted on a fault,
// iterated in registration order and stopping at the first that claims the
// fault (spec.md §6's "iterate registered handlers … propagate to the OS
// default on unanimous decline").
type Registry struct {
	handlers []Handler
}

// Register adds h to the registry. Not safe to call concurrently with
// Guard.
func (r *Registry) Register(h Handler) {
	r.handlers = append(r.handlers, h)
}

// Guard runs fn — ordinarily the dispatch loop's call into a block's host
// entry point — with SetPanicOnFault enabled, and routes any resulting
// fault through the registered handlers. It reports whether some handler
// claimed the fault.
//
// Guard cannot do what a real exception shim does: rewrite the faulting
// frame's saved PC to resumeAddr and return control there. Go offers no
// portable way to mutate a goroutine's own recovered stack. Once a handler
// claims the fault, Guard simply returns true; the single faulting call
// into the block is abandoned, and the caller is expected to re-enter the
// dispatch loop at the block's guest address, which the cache has already
// unlinked and flagged SLOWMEM, so the next attempt takes the guarded
// path. This matches spec.md §7's "known fastmem fault — silently
// recovered by unlink+downgrade, transparent to the guest": the guest
// program's own state is untouched by the abandoned call since a fastmem
// site faults before committing any result.
func (r *Registry) Guard(fn func()) (recovered bool) {
	prev := debug.SetPanicOnFault(true)
	defer debug.SetPanicOnFault(prev)

	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		if _, ok := rec.(runtime.Error); !ok {
			panic(rec)
		}

		pc := faultingPC()
		for _, h := range r.handlers {
			if _, ok := h.HandleFault(pc); ok {
				recovered = true
				return
			}
		}
		panic(rec)
	}()

	fn()
	return false
}

// faultingPC walks the still-live panicking goroutine's stack for the
// return address of Guard's own deferred recover frame's caller, an
// approximation of the faulting instruction's address. skip=3 accounts for
// runtime.Callers, faultingPC, and the recover closure itself.
func faultingPC() uintptr {
	var pcs [8]uintptr
	n := runtime.Callers(3, pcs[:])
	if n == 0 {
		return 0
	}
	return pcs[0]
}
