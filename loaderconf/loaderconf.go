// This file is part of sdbootctl
// SPDX-License-Identifier: GPL-3.0-only

// Package loaderconf reads and writes the systemd-boot loader configuration
// and the Boot Loader Specification entry files under the loader directory
// of an EFI System Partition.
package loaderconf

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Config is the parsed content of loader.conf.
//
// Only the default entry pointer and the menu timeout are interpreted;
// any other lines are preserved verbatim so that a write-back does not
// clobber settings we do not manage (console-mode, editor, ...).
type Config struct {
	Default string  // entry id, without the .conf suffix; empty means unset
	Timeout *uint32 // nil means unset

	extra []string
}

// ParseConfig parses loader.conf data.
func ParseConfig(data []byte) (*Config, error) {
	conf := &Config{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			conf.extra = append(conf.extra, line)
			continue
		}
		key, value, _ := strings.Cut(trimmed, " ")
		value = strings.TrimSpace(value)
		switch key {
		case "default":
			conf.Default = strings.TrimSuffix(value, ".conf")
		case "timeout":
			t, err := strconv.ParseUint(value, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("invalid timeout %q in loader.conf: %w", value, err)
			}
			timeout := uint32(t)
			conf.Timeout = &timeout
		default:
			conf.extra = append(conf.extra, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return conf, nil
}

// Render serializes the configuration back to loader.conf format.
func (c *Config) Render() []byte {
	var buf bytes.Buffer
	if c.Default != "" {
		fmt.Fprintf(&buf, "default %s\n", c.Default)
	}
	if c.Timeout != nil {
		fmt.Fprintf(&buf, "timeout %d\n", *c.Timeout)
	}
	for _, line := range c.extra {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}
