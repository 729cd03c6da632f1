// This file is part of sdbootctl
// SPDX-License-Identifier: GPL-3.0-only

package kernelmgr

import (
	"errors"
	"log"
)

var (
	// ErrInvalidVersion reports a directory or package name that does not
	// start with a parseable kernel version.
	ErrInvalidVersion = errors.New("invalid kernel version")

	// ErrNotInitialized reports a missing install or entries directory on
	// the ESP; the user has to run `sdbootctl init` first.
	ErrNotInitialized = errors.New("ESP layout not initialized, run `sdbootctl init`")

	// ErrIncompleteWrite reports a destination file that ended up shorter
	// than the data written to it, usually no space left on device.
	ErrIncompleteWrite = errors.New("incomplete write (no space left on device?)")

	// ErrEmptySelection reports an operation that needs at least one
	// kernel when none is available or installed.
	ErrEmptySelection = errors.New("no kernel found")

	// ErrInvalidIndex reports a numeric kernel target outside the list.
	ErrInvalidIndex = errors.New("kernel index out of range")
)

// warnf logs a non-fatal problem. Discovery and batch removal downgrade
// per-candidate failures to warnings so one stale entry cannot block the
// rest of the run.
func warnf(format string, args ...interface{}) {
	log.Printf("WARNING: "+format, args...)
}

// noticef reports progress of a mutating operation.
func noticef(format string, args ...interface{}) {
	log.Printf(format, args...)
}
