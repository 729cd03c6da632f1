// This file is part of sdbootctl
// SPDX-License-Identifier: GPL-3.0-only

package kernelmgr

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/esptools/sdbootctl/loaderconf"
)

// LoadStore loads the loader configuration store for the configured ESP.
func LoadStore(config *Config) (*loaderconf.Store, error) {
	return loaderconf.Load(appFs, config.LoaderDir())
}

// Manager reconciles the kernels installed on the ESP with the kernels
// available in the module tree.
type Manager struct {
	config    *Config
	store     *loaderconf.Store
	available []*Kernel
	installed []*Kernel
}

// NewManager scans the module tree and the ESP and returns a manager over
// both lists, each sorted newest-first.
func NewManager(config *Config, store *loaderconf.Store) (*Manager, error) {
	available, err := ListAvailable(config, store)
	if err != nil {
		return nil, err
	}
	installed, err := ListInstalled(config, store)
	if err != nil {
		return nil, err
	}
	return &Manager{
		config:    config,
		store:     store,
		available: available,
		installed: installed,
	}, nil
}

// Available returns the available kernels, newest first.
func (m *Manager) Available() []*Kernel { return m.available }

// Installed returns the installed kernels, newest first.
func (m *Manager) Installed() []*Kernel { return m.installed }

// Update brings the installed set in line with the available set: every
// available kernel (capped to the configured keep count) is installed and
// gets fresh entries, obsolete kernels are removed, and the newest target
// becomes the default.
//
// Installs run before removals so a failed cleanup can never leave zero
// bootable entries. An install failure aborts the update; a removal
// failure is logged per kernel and does not block the rest.
func (m *Manager) Update() error {
	noticef("updating kernels and boot entries")

	targets := m.available
	if m.config.Keep > 0 && m.config.Keep < len(targets) {
		targets = targets[:m.config.Keep]
	}

	for _, kernel := range targets {
		if err := kernel.InstallAndMakeConfig(true, DenyAll); err != nil {
			return err
		}
	}

	for _, kernel := range m.installed {
		if kernelsContain(targets, kernel) {
			continue
		}
		if err := kernel.Remove(); err != nil {
			warnf("could not remove %s: %v", kernel.Name(), err)
		}
	}

	if len(targets) > 0 {
		return targets[0].SetDefault()
	}
	return nil
}

// Install installs a single kernel, writes its entries and optionally
// makes it the default, subject to confirmation.
func (m *Manager) Install(kernel *Kernel, force bool, confirm Confirmer) error {
	if err := kernel.InstallAndMakeConfig(force, confirm); err != nil {
		return err
	}

	makeDefault, err := confirm.Confirm(fmt.Sprintf("Set %s as the default boot entry?", kernel.Name()), false)
	if err != nil {
		return err
	}
	if makeDefault {
		return kernel.SetDefault()
	}
	return nil
}

// Remove removes a single kernel from the ESP.
func (m *Manager) Remove(kernel *Kernel) error {
	return kernel.Remove()
}

// Init installs the boot loader, creates the ESP directory layout and
// installs the newest available kernel as the default.
func (m *Manager) Init() error {
	if err := InstallLoader(m.config.ESPMountpoint); err != nil {
		return err
	}

	noticef("creating %s", m.config.InstallDir())
	if err := appFs.MkdirAll(m.config.InstallDir(), 0755); err != nil {
		return fmt.Errorf("cannot create %s: %w", m.config.InstallDir(), err)
	}
	if err := appFs.MkdirAll(m.config.EntriesDir(), 0755); err != nil {
		return fmt.Errorf("cannot create %s: %w", m.config.EntriesDir(), err)
	}

	if len(m.available) == 0 {
		return ErrEmptySelection
	}
	newest := m.available[0]
	if err := newest.InstallAndMakeConfig(true, DenyAll); err != nil {
		return err
	}
	return newest.SetDefault()
}

// SetTimeout writes the loader menu timeout.
func (m *Manager) SetTimeout(timeout uint32) error {
	noticef("setting loader menu timeout to %d", timeout)
	m.store.Conf.Timeout = &timeout
	return m.store.Write()
}

// PrintAvailable lists the available kernels, marking installed ones.
func (m *Manager) PrintAvailable(w io.Writer) {
	for _, kernel := range m.available {
		marker := "[ ]"
		if kernelsContain(m.installed, kernel) {
			marker = color.GreenString("[*]")
		}
		fmt.Fprintf(w, "%s %s\n", marker, kernel.Name())
	}
}

// PrintInstalled lists the installed kernels, marking the default entry.
func (m *Manager) PrintInstalled(w io.Writer) {
	for _, kernel := range m.installed {
		marker := "[ ]"
		if kernel.IsDefault() {
			marker = color.GreenString("[*]")
		}
		fmt.Fprintf(w, "%s %s\n", marker, kernel.Name())
	}
}
