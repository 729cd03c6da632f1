// This file is part of sdbootctl
// SPDX-License-Identifier: GPL-3.0-only

package main

import (
	"fmt"
	"io"

	"golang.org/x/sys/unix"
)

// lowSpaceThreshold is the free-space level below which an install to the
// ESP is likely to fail halfway. Kernel plus initramfs comfortably exceed
// this on most distributions.
const lowSpaceThreshold = 64 << 20

var statfs = unix.Statfs

// warnIfLowSpace warns before an install when the ESP is close to full.
// The verified copier still catches the actual short write; this just
// gives the user a heads-up before files start moving.
func warnIfLowSpace(mountpoint string, w io.Writer) {
	var st unix.Statfs_t
	if err := statfs(mountpoint, &st); err != nil {
		return
	}
	free := uint64(st.Bsize) * st.Bavail
	if free < lowSpaceThreshold {
		fmt.Fprintf(w, "WARNING: only %d MiB free on %s, install may run out of space\n", free>>20, mountpoint)
	}
}
