// This file is part of sdbootctl
// SPDX-License-Identifier: GPL-3.0-only

package kernelmgr

import (
	"fmt"
	"strconv"

	"github.com/esptools/sdbootctl/loaderconf"
)

// ResolveTarget maps a user-supplied target to a kernel. A numeric target
// is a 1-based index into list (newest first); anything else is parsed as
// a kernel name.
func ResolveTarget(config *Config, store *loaderconf.Store, list []*Kernel, target string) (*Kernel, error) {
	if n, err := strconv.Atoi(target); err == nil {
		if n < 1 || n > len(list) {
			return nil, fmt.Errorf("%d: %w", n, ErrInvalidIndex)
		}
		return list[n-1], nil
	}
	return ParseKernel(config, target, store)
}

// ResolveTargets maps each user-supplied target through ResolveTarget.
func ResolveTargets(config *Config, store *loaderconf.Store, list []*Kernel, targets []string) ([]*Kernel, error) {
	kernels := make([]*Kernel, 0, len(targets))
	for _, target := range targets {
		kernel, err := ResolveTarget(config, store, list, target)
		if err != nil {
			return nil, err
		}
		kernels = append(kernels, kernel)
	}
	return kernels, nil
}
