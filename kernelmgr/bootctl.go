// This file is part of sdbootctl
// SPDX-License-Identifier: GPL-3.0-only

package kernelmgr

import (
	"bytes"
	"fmt"
	"os/exec"
)

// Runner runs external commands. Only success/failure and captured stderr
// are of interest.
type Runner interface {
	Run(name string, args ...string) error
}

type execRunner struct{}

func (execRunner) Run(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := bytes.TrimSpace(stderr.Bytes()); len(msg) > 0 {
			return fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// appRunner is our default Runner
var appRunner Runner = execRunner{}

// InstallLoader installs systemd-boot onto the ESP using the platform
// boot-install utility.
func InstallLoader(esp string) error {
	noticef("installing systemd-boot to %s", esp)
	return appRunner.Run("bootctl", "install", "--esp="+esp)
}
