// Copyright (c) 2019 the sh4jit authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package errors exports the Fatal half of the error taxonomy described
// by spec.md §7: invariant violations and unrecoverable resource
// exhaustion that must halt the process. The taxonomy's other half, decode
// errors, is not a Go error at all — per spec.md §7 the guest-visible
// effect of an INVALID opcode is emitted directly into the IR as a
// fallback fault (isa/sh4's emitIllegal), so no caller ever sees a decode
// failure as a returned error.
package errors

import "github.com/pkg/errors"

// Fatal indicates an invariant violation or unrecoverable resource
// exhaustion per spec.md §7: a caller bug (compile called on an already
// linked dispatch slot, a delay slot instruction with its own delay slot)
// or a second consecutive backend buffer overflow. The process must halt;
// nothing downstream of a Fatal is safe to continue executing.
type Fatal struct {
	Err error
}

func (e *Fatal) Error() string { return "fatal: " + e.Err.Error() }
func (e *Fatal) Unwrap() error { return e.Err }

// NewFatal wraps msg as a Fatal error, annotated with a stack trace via
// github.com/pkg/errors so the halt diagnostic is actionable.
func NewFatal(msg string) *Fatal {
	return &Fatal{Err: errors.New(msg)}
}

// NewFatalf is NewFatal with fmt.Sprintf-style formatting.
func NewFatalf(format string, args ...interface{}) *Fatal {
	return &Fatal{Err: errors.Errorf(format, args...)}
}

// Wrap annotates err with a message and a stack trace, for propagating a
// lower-level error (e.g. a buffer overflow) through a layer that adds
// context without itself being fatal.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, msg)
}

// WrapFatal is Wrap, but the result is a Fatal: used when the lower-level
// error (a second consecutive backend overflow) has already crossed the
// line from recoverable into must-halt.
func WrapFatal(err error, msg string) *Fatal {
	return &Fatal{Err: errors.Wrap(err, msg)}
}
