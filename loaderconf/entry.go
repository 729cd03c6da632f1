// This file is part of sdbootctl
// SPDX-License-Identifier: GPL-3.0-only

package loaderconf

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
)

// Entry is one Boot Loader Specification entry.
//
// Initrds are rendered in slice order; callers must list a microcode image
// before the real initramfs, as the firmware loads them in file order.
type Entry struct {
	ID      string // filename without the .conf suffix
	Title   string
	Linux   string
	Initrds []string
	Options string
}

// Filename returns the file name of the entry inside the entries directory.
func (e *Entry) Filename() string {
	return e.ID + ".conf"
}

// Render serializes the entry. Line order is fixed: title, linux, initrd
// lines, options.
func (e *Entry) Render() []byte {
	var buf bytes.Buffer
	if e.Title != "" {
		fmt.Fprintf(&buf, "title %s\n", e.Title)
	}
	if e.Linux != "" {
		fmt.Fprintf(&buf, "linux %s\n", e.Linux)
	}
	for _, initrd := range e.Initrds {
		fmt.Fprintf(&buf, "initrd %s\n", initrd)
	}
	if e.Options != "" {
		fmt.Fprintf(&buf, "options %s\n", e.Options)
	}
	return buf.Bytes()
}

// ParseEntry parses entry file data. The id is taken from the caller since
// it is derived from the filename, not the content.
func ParseEntry(id string, data []byte) (*Entry, error) {
	entry := &Entry{ID: id}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, _ := strings.Cut(line, " ")
		value = strings.TrimSpace(value)
		switch key {
		case "title":
			entry.Title = value
		case "linux":
			entry.Linux = value
		case "initrd":
			entry.Initrds = append(entry.Initrds, value)
		case "options":
			entry.Options = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entry, nil
}
