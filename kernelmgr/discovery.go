// This file is part of sdbootctl
// SPDX-License-Identifier: GPL-3.0-only

package kernelmgr

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/esptools/sdbootctl/loaderconf"
)

// markerFiles prove a module directory belongs to a completely installed
// kernel package. Partially installed kernels are common during package
// operations and must not abort discovery.
var markerFiles = []string{"modules.dep", "modules.order", "modules.builtin"}

// ListAvailable scans the module tree and returns the available kernels,
// newest first. Incomplete or unparseable candidates are skipped with a
// warning.
func ListAvailable(config *Config, store *loaderconf.Store) ([]*Kernel, error) {
	entries, err := appFs.ReadDir(modulesPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", modulesPath, err)
	}

	var kernels []*Kernel
	for _, entry := range entries {
		name := entry.Name()
		if !hasMarkerFiles(filepath.Join(modulesPath, name)) {
			warnf("skipping incomplete kernel %s", name)
			continue
		}
		kernel, err := ParseKernel(config, name, store)
		if err != nil {
			warnf("skipping unidentified kernel %s: %v", name, err)
			continue
		}
		kernels = append(kernels, kernel)
	}

	sortKernels(kernels)
	return kernels, nil
}

func hasMarkerFiles(dir string) bool {
	for _, marker := range markerFiles {
		if !fileExists(filepath.Join(dir, marker)) {
			return false
		}
	}
	return true
}

// ListInstalled recovers the installed kernels from the ESP install
// directory by matching filenames against the image template, with the
// version portion as a capture group. There is no separate registry file;
// the ESP content is the source of truth. Results are newest first.
func ListInstalled(config *Config, store *loaderconf.Store) ([]*Kernel, error) {
	pattern, err := templateRegexp(config.VMLinux)
	if err != nil {
		return nil, err
	}

	entries, err := appFs.ReadDir(config.InstallDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot read %s: %w", config.InstallDir(), err)
	}

	var kernels []*Kernel
	for _, entry := range entries {
		m := pattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		kernel, err := ParseKernel(config, m[1], store)
		if err != nil {
			warnf("skipping unidentified file %s: %v", entry.Name(), err)
			continue
		}
		kernels = append(kernels, kernel)
	}

	sortKernels(kernels)
	return kernels, nil
}

// templateRegexp turns a filename template into an anchored pattern with
// the {VERSION} token as capture group.
func templateRegexp(template string) (*regexp.Regexp, error) {
	escaped := strings.ReplaceAll(regexp.QuoteMeta(template), regexp.QuoteMeta("{VERSION}"), `(.+)`)
	pattern, err := regexp.Compile("^" + escaped + "$")
	if err != nil {
		return nil, fmt.Errorf("invalid filename template %q: %w", template, err)
	}
	return pattern, nil
}
