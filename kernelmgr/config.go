// This file is part of sdbootctl
// SPDX-License-Identifier: GPL-3.0-only

package kernelmgr

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	// ConfPath is the runtime configuration file.
	ConfPath = "/etc/sdbootctl/config.toml"

	mountsPath = "/proc/mounts"

	// relDestPath is where kernel and initramfs images live on the ESP.
	relDestPath = "EFI/sdbootctl"
	// relEntryPath holds the Boot Loader Specification entry files.
	relEntryPath = "loader/entries"
	// relLoaderPath holds loader.conf.
	relLoaderPath = "loader"

	// srcPath is where the distribution drops kernel images.
	srcPath = "/boot"
	// modulesPath is scanned for installed kernel packages.
	modulesPath = "/usr/lib/modules"
	// ucodeFile is the CPU microcode image, loaded before the initramfs.
	ucodeFile = "intel-ucode.img"
)

// Config is the runtime configuration, read from ConfPath.
type Config struct {
	VMLinux       string            `toml:"VMLINUX"`
	Initrd        string            `toml:"INITRD"`
	Distro        string            `toml:"DISTRO"`
	ESPMountpoint string            `toml:"ESP_MOUNTPOINT"`
	Keep          int               `toml:"KEEP,omitempty"`
	Bootarg       string            `toml:"BOOTARG,omitempty"` // legacy scalar, migrated to BOOTARGS
	Bootargs      map[string]string `toml:"BOOTARGS"`
}

// DefaultConfig returns the built-in defaults written on first run.
func DefaultConfig() *Config {
	return &Config{
		VMLinux:       "vmlinuz-{VERSION}",
		Initrd:        "initramfs-{VERSION}.img",
		Distro:        "Linux",
		ESPMountpoint: "/efi",
		Bootargs:      map[string]string{"default": ""},
	}
}

// ExpandTemplate substitutes the literal {VERSION} token with the raw
// version string taken from the package name, so local-version suffixes
// survive byte-for-byte.
func ExpandTemplate(template, version string) string {
	return strings.ReplaceAll(template, "{VERSION}", version)
}

// LoadConfig reads and migrates the configuration file. When the file does
// not exist, defaults are written out and an error asks the user to review
// them, since a wrong ESP mountpoint must not go unnoticed.
func LoadConfig(path string) (*Config, error) {
	f, err := appFs.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("cannot open %s: %w", path, err)
		}
		if werr := DefaultConfig().Write(path); werr != nil {
			return nil, werr
		}
		return nil, fmt.Errorf("wrote default configuration, please review %s and rerun", path)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	cfg, migrated, err := ParseConfig(data, path)
	if err != nil {
		return nil, err
	}
	if migrated {
		if err := cfg.Write(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.fillBootargs(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseConfig parses config TOML data and applies migrations from older
// layouts. source is used in error messages. The second return reports
// whether a migration changed the configuration.
func ParseConfig(data []byte, source string) (*Config, bool, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, false, fmt.Errorf("invalid configuration %s: %w", source, err)
	}

	migrated := false

	// Older releases templated the version and local suffix separately.
	const oldToken, newToken = "{VERSION}-{LOCALVERSION}", "{VERSION}"
	if strings.Contains(cfg.VMLinux, oldToken) || strings.Contains(cfg.Initrd, oldToken) {
		cfg.VMLinux = strings.ReplaceAll(cfg.VMLinux, oldToken, newToken)
		cfg.Initrd = strings.ReplaceAll(cfg.Initrd, oldToken, newToken)
		migrated = true
	}

	// Scalar BOOTARG predates boot-argument profiles.
	if cfg.Bootarg != "" {
		if cfg.Bootargs == nil {
			cfg.Bootargs = map[string]string{}
		}
		cfg.Bootargs["default"] = cfg.Bootarg
		cfg.Bootarg = ""
		migrated = true
	}

	if _, ok := cfg.Bootargs["default"]; !ok {
		if cfg.Bootargs == nil {
			cfg.Bootargs = map[string]string{}
		}
		cfg.Bootargs["default"] = ""
		migrated = true
	}

	return &cfg, migrated, nil
}

// Write serializes the configuration to path.
func (c *Config) Write(path string) error {
	if err := appFs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("cannot create %s: %w", filepath.Dir(path), err)
	}
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("cannot serialize configuration: %w", err)
	}
	return WriteFileVerified(path, data)
}

// InstallDir is the image install directory on the ESP.
func (c *Config) InstallDir() string {
	return filepath.Join(c.ESPMountpoint, relDestPath)
}

// EntriesDir is the boot entry directory on the ESP.
func (c *Config) EntriesDir() string {
	return filepath.Join(c.ESPMountpoint, relEntryPath)
}

// LoaderDir is the loader configuration directory on the ESP.
func (c *Config) LoaderDir() string {
	return filepath.Join(c.ESPMountpoint, relLoaderPath)
}

// fillBootargs completes every profile with root= and rw parameters when
// missing, using the currently mounted root partition.
func (c *Config) fillBootargs() error {
	for profile, bootarg := range c.Bootargs {
		filled, err := fillNecessaryBootarg(bootarg)
		if err != nil {
			return err
		}
		c.Bootargs[profile] = filled
	}
	return nil
}

func fillNecessaryBootarg(bootarg string) (string, error) {
	hasRoot, hasRW := false, false
	for _, param := range strings.Fields(bootarg) {
		if strings.HasPrefix(param, "root=") {
			hasRoot = true
		} else if param == "rw" || param == "ro" {
			hasRW = true
		}
	}

	filled := strings.TrimSpace(bootarg)
	if !hasRoot {
		root, err := detectRootPartition()
		if err != nil {
			return "", err
		}
		filled = strings.TrimSpace(filled + " root=" + root)
	}
	if !hasRW {
		filled += " rw"
	}
	return strings.TrimSpace(filled), nil
}

// detectRootPartition finds the device mounted at / for generating the
// kernel command line.
func detectRootPartition() (string, error) {
	f, err := appFs.Open(mountsPath)
	if err != nil {
		return "", fmt.Errorf("cannot open %s: %w", mountsPath, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("cannot read %s: %w", mountsPath, err)
	}

	root := ""
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[1] == "/" {
			root = fields[0]
		}
	}
	return root, nil
}
