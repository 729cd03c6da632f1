// This file is part of sdbootctl
// SPDX-License-Identifier: GPL-3.0-only

package kernelmgr

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	debversion "github.com/knqyf263/go-deb-version"
)

// Version is a kernel package version parsed from a module directory name
// such as "5.15.12-100.fc34.x86_64" or "5.12.0-rc3-aosc-main".
//
// Grammar: MAJOR "." MINOR ["." PATCH] ["-rc" N] ["-" RELEASE] LOCAL
// where LOCAL is free text captured verbatim, leading separator included.
type Version struct {
	Major   uint64
	Minor   uint64
	Patch   uint64 // defaults to 0 when absent
	RC      string // "rcN"; empty for a final release
	Release *uint64
	Local   string

	raw string
}

var versionRe = regexp.MustCompile(`^(\d+)\.(\d+)(?:\.(\d+))?(?:-rc(\d+))?(?:-(\d+))?`)

// ParseVersion parses a kernel directory or package name. It is a pure
// function; the raw input is kept so filename templates can be expanded
// byte-for-byte.
func ParseVersion(name string) (Version, error) {
	m := versionRe.FindStringSubmatch(name)
	if m == nil {
		return Version{}, fmt.Errorf("%q: %w", name, ErrInvalidVersion)
	}

	v := Version{raw: name}
	v.Major, _ = strconv.ParseUint(m[1], 10, 64)
	v.Minor, _ = strconv.ParseUint(m[2], 10, 64)
	if m[3] != "" {
		v.Patch, _ = strconv.ParseUint(m[3], 10, 64)
	}
	if m[4] != "" {
		v.RC = "rc" + m[4]
	}
	if m[5] != "" {
		release, _ := strconv.ParseUint(m[5], 10, 64)
		v.Release = &release
	}
	v.Local = name[len(m[0]):]
	return v, nil
}

// String returns the name the version was parsed from.
func (v Version) String() string {
	if v.raw != "" {
		return v.raw
	}
	return v.Render()
}

// Render rebuilds the version string from its parsed fields. The numeric,
// rc and release portions round-trip through ParseVersion; the local
// suffix is appended verbatim.
func (v Version) Render() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.RC != "" {
		sb.WriteString("-" + v.RC)
	}
	if v.Release != nil {
		fmt.Fprintf(&sb, "-%d", *v.Release)
	}
	sb.WriteString(v.Local)
	return sb.String()
}

// Compare defines the total order over versions. It returns <0, 0 or >0.
//
// Numeric fields compare naturally. A final release ranks above its
// release candidates; rc tags compare by their number. A missing release
// counter counts as 0. Versions equal up to there are ordered by their
// local suffix: Debian version rules when both suffixes qualify, bytewise
// otherwise, so the order stays total and deterministic.
func (v Version) Compare(other Version) int {
	if c := compareUint(v.Major, other.Major); c != 0 {
		return c
	}
	if c := compareUint(v.Minor, other.Minor); c != 0 {
		return c
	}
	if c := compareUint(v.Patch, other.Patch); c != 0 {
		return c
	}
	if c := compareRC(v.RC, other.RC); c != 0 {
		return c
	}
	if c := compareUint(releaseOrZero(v.Release), releaseOrZero(other.Release)); c != 0 {
		return c
	}
	return compareLocal(v.Local, other.Local)
}

// Equal reports whether two versions are the same kernel identity. Unlike
// Compare it always covers the full input string, so two builds sharing a
// numeric version but differing by distro tag stay distinct.
func (v Version) Equal(other Version) bool {
	return v.String() == other.String()
}

func compareUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func releaseOrZero(release *uint64) uint64 {
	if release == nil {
		return 0
	}
	return *release
}

// compareRC orders release-candidate tags. No tag means a final release,
// which ranks above any candidate.
func compareRC(a, b string) int {
	if a == b {
		return 0
	}
	if a == "" {
		return 1
	}
	if b == "" {
		return -1
	}
	an, _ := strconv.ParseUint(strings.TrimPrefix(a, "rc"), 10, 64)
	bn, _ := strconv.ParseUint(strings.TrimPrefix(b, "rc"), 10, 64)
	return compareUint(an, bn)
}

func compareLocal(a, b string) int {
	if a == b {
		return 0
	}
	av, aerr := debversion.NewVersion(strings.TrimLeft(a, "-."))
	bv, berr := debversion.NewVersion(strings.TrimLeft(b, "-."))
	if aerr == nil && berr == nil {
		if av.LessThan(bv) {
			return -1
		}
		if av.GreaterThan(bv) {
			return 1
		}
	}
	return strings.Compare(a, b)
}
