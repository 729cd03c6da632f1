// This file is part of sdbootctl
// SPDX-License-Identifier: GPL-3.0-only

package kernelmgr

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/esptools/sdbootctl/loaderconf"
)

// Kernel is one discovered kernel version together with everything needed
// to install it to the ESP and manage its boot entries.
//
// All kernels of one invocation share a single loaderconf.Store so that
// default-pointer writes are observed by every instance.
type Kernel struct {
	Version Version

	vmlinux  string // expanded image filename
	initrd   string // expanded initramfs filename
	distro   string
	esp      string
	bootargs map[string]string // profile name -> kernel command line

	store *loaderconf.Store
}

// ParseKernel builds a Kernel from a module directory name or a
// user-supplied target string.
func ParseKernel(config *Config, name string, store *loaderconf.Store) (*Kernel, error) {
	version, err := ParseVersion(name)
	if err != nil {
		return nil, err
	}
	return &Kernel{
		Version:  version,
		vmlinux:  ExpandTemplate(config.VMLinux, name),
		initrd:   ExpandTemplate(config.Initrd, name),
		distro:   config.Distro,
		esp:      config.ESPMountpoint,
		bootargs: config.Bootargs,
		store:    store,
	}, nil
}

// Name returns the raw kernel name the kernel was parsed from.
func (k *Kernel) Name() string {
	return k.Version.String()
}

// Compare orders kernels by version.
func (k *Kernel) Compare(other *Kernel) int {
	return k.Version.Compare(other.Version)
}

// Equal reports whether two kernels are the same identity, including the
// local-version suffix.
func (k *Kernel) Equal(other *Kernel) bool {
	return k.Version.Equal(other.Version)
}

// EntryID returns the boot entry id for a boot-argument profile. The
// default profile uses the bare kernel name; other profiles append their
// name, keeping ids filesystem-safe and distinct.
func (k *Kernel) EntryID(profile string) string {
	if profile == "default" {
		return k.Name()
	}
	return k.Name() + "-" + profile
}

// profiles returns the configured profile names, default first, the rest
// sorted for deterministic output.
func (k *Kernel) profiles() []string {
	var rest []string
	for profile := range k.bootargs {
		if profile != "default" {
			rest = append(rest, profile)
		}
	}
	sort.Strings(rest)
	return append([]string{"default"}, rest...)
}

func (k *Kernel) installDir() string {
	return filepath.Join(k.esp, relDestPath)
}

func (k *Kernel) entriesDir() string {
	return filepath.Join(k.esp, relEntryPath)
}

// Install copies the kernel image, the initramfs and the CPU microcode to
// the ESP. A missing source initramfs is tolerated, some distributions do
// not ship one. A microcode image that disappeared from the source has its
// stale ESP copy removed so it cannot outlive its package.
func (k *Kernel) Install() error {
	destDir := k.installDir()
	if !fileExists(destDir) {
		return fmt.Errorf("%s does not exist: %w", destDir, ErrNotInitialized)
	}

	noticef("installing %s to %s", k.Name(), destDir)
	if _, err := MaybeUpdateFile(filepath.Join(destDir, k.vmlinux), filepath.Join(srcPath, k.vmlinux)); err != nil {
		return err
	}

	srcInitrd := filepath.Join(srcPath, k.initrd)
	if fileExists(srcInitrd) {
		if _, err := MaybeUpdateFile(filepath.Join(destDir, k.initrd), srcInitrd); err != nil {
			return err
		}
	}

	srcUcode := filepath.Join(srcPath, ucodeFile)
	destUcode := filepath.Join(destDir, ucodeFile)
	if fileExists(srcUcode) {
		noticef("installing CPU microcode")
		if _, err := MaybeUpdateFile(destUcode, srcUcode); err != nil {
			return err
		}
	} else if err := appFs.Remove(destUcode); err != nil && !os.IsNotExist(err) {
		warnf("could not remove stale %s: %v", destUcode, err)
	}

	return nil
}

// MakeConfig writes one boot entry per boot-argument profile. An existing
// entry file is only overwritten when force is set or the confirmer says
// yes; a declined overwrite skips that entry and is not an error.
func (k *Kernel) MakeConfig(force bool, confirm Confirmer) error {
	entriesDir := k.entriesDir()
	if !fileExists(entriesDir) {
		return fmt.Errorf("%s does not exist: %w", entriesDir, ErrNotInitialized)
	}

	for _, profile := range k.profiles() {
		entry := k.entry(profile)
		path := filepath.Join(entriesDir, entry.Filename())

		if fileExists(path) && !force {
			overwrite, err := confirm.Confirm(fmt.Sprintf("Overwrite %s?", path), false)
			if err != nil {
				return err
			}
			if !overwrite {
				noticef("not overwriting %s", path)
				continue
			}
			noticef("overwriting %s", path)
		}

		noticef("creating entry %s", entry.ID)
		if err := WriteFileVerified(path, entry.Render()); err != nil {
			return err
		}
	}
	return nil
}

// entry renders the Boot Loader Specification entry for a profile. Initrd
// line order matters: microcode must load before the real initramfs.
func (k *Kernel) entry(profile string) *loaderconf.Entry {
	destDir := k.installDir()

	title := fmt.Sprintf("%s (%s)", k.distro, k.Name())
	if profile != "default" {
		title += fmt.Sprintf(" (%s)", profile)
	}

	entry := &loaderconf.Entry{
		ID:      k.EntryID(profile),
		Title:   title,
		Linux:   filepath.Join("/", relDestPath, k.vmlinux),
		Options: k.bootargs[profile],
	}
	if fileExists(filepath.Join(destDir, ucodeFile)) {
		entry.Initrds = append(entry.Initrds, filepath.Join("/", relDestPath, ucodeFile))
	}
	if fileExists(filepath.Join(destDir, k.initrd)) {
		entry.Initrds = append(entry.Initrds, filepath.Join("/", relDestPath, k.initrd))
	}
	return entry
}

// Remove deletes the kernel image, the initramfs and every entry file
// booting this kernel, including entries written under profiles that have
// since been dropped from the configuration. Each deletion failure is a
// warning, not an error: the user may have cleaned up one of the
// artifacts already. The default pointer is cleared afterwards if it
// referenced this kernel.
func (k *Kernel) Remove() error {
	destDir := k.installDir()

	noticef("removing %s", k.Name())
	removeWithWarning(filepath.Join(destDir, k.vmlinux))
	removeWithWarning(filepath.Join(destDir, k.initrd))
	k.removeEntries()

	return k.RemoveDefault()
}

// removeEntries deletes the entry files of every configured profile, then
// sweeps the entries directory for leftovers written under profiles that
// have since been dropped from the configuration. A leftover is only
// deleted when its linux line references this kernel's image, which keeps
// "5.10.0-x" intact while "5.10.0" is being removed.
func (k *Kernel) removeEntries() {
	owned := make(map[string]bool)
	for _, profile := range k.profiles() {
		id := k.EntryID(profile)
		owned[id] = true
		removeWithWarning(filepath.Join(k.entriesDir(), id+".conf"))
	}

	linux := filepath.Join("/", relDestPath, k.vmlinux)
	files, err := appFs.ReadDir(k.entriesDir())
	if err != nil {
		if !os.IsNotExist(err) {
			warnf("%s: %v", k.entriesDir(), err)
		}
		return
	}
	for _, fi := range files {
		id := strings.TrimSuffix(fi.Name(), ".conf")
		if id == fi.Name() || owned[id] {
			continue
		}
		if !strings.HasPrefix(id, k.Name()+"-") {
			continue
		}
		path := filepath.Join(k.entriesDir(), fi.Name())
		entry, err := readEntryFile(path, id)
		if err != nil {
			warnf("%s: %v", path, err)
			continue
		}
		if entry.Linux == linux {
			removeWithWarning(path)
		}
	}
}

func readEntryFile(path string, id string) (*loaderconf.Entry, error) {
	f, err := appFs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return loaderconf.ParseEntry(id, data)
}

func removeWithWarning(path string) {
	if err := appFs.Remove(path); err != nil && !os.IsNotExist(err) {
		warnf("%s: %v", path, err)
	}
}

// SetDefault makes this kernel the entry booted without user interaction.
func (k *Kernel) SetDefault() error {
	noticef("setting %s as default boot entry", k.Name())
	k.store.Conf.Default = k.EntryID("default")
	return k.store.Write()
}

// RemoveDefault clears the default pointer, but only if it currently
// references one of this kernel's entries. Another kernel's default is
// never clobbered.
func (k *Kernel) RemoveDefault() error {
	if !k.IsDefault() {
		return nil
	}
	noticef("clearing default boot entry %s", k.store.Conf.Default)
	k.store.Conf.Default = ""
	return k.store.Write()
}

// IsDefault reports whether the default pointer references one of this
// kernel's entries.
func (k *Kernel) IsDefault() bool {
	if k.store.Conf.Default == "" {
		return false
	}
	for _, profile := range k.profiles() {
		if k.store.Conf.Default == k.EntryID(profile) {
			return true
		}
	}
	return false
}

// InstallAndMakeConfig installs the kernel files and writes the boot
// entries. The entries are not written when the install fails.
func (k *Kernel) InstallAndMakeConfig(force bool, confirm Confirmer) error {
	if err := k.Install(); err != nil {
		return err
	}
	return k.MakeConfig(force, confirm)
}

// sortKernels orders a kernel list newest-first.
func sortKernels(kernels []*Kernel) {
	sort.Slice(kernels, func(i, j int) bool {
		return kernels[i].Compare(kernels[j]) > 0
	})
}

// kernelsContain reports whether list holds a kernel equal to k.
func kernelsContain(list []*Kernel, k *Kernel) bool {
	for _, other := range list {
		if other.Equal(k) {
			return true
		}
	}
	return false
}
