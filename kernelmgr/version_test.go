// This file is part of sdbootctl
// SPDX-License-Identifier: GPL-3.0-only

package kernelmgr

import (
	"errors"
	"testing"

	"gopkg.in/check.v1"
)

func Test(t *testing.T) { check.TestingT(t) }

type versionSuite struct{}

var _ = check.Suite(&versionSuite{})

func (s *versionSuite) TestParseFedoraStyle(c *check.C) {
	v, err := ParseVersion("5.15.12-100.fc34.x86_64")
	c.Assert(err, check.IsNil)
	c.Check(v.Major, check.Equals, uint64(5))
	c.Check(v.Minor, check.Equals, uint64(15))
	c.Check(v.Patch, check.Equals, uint64(12))
	c.Check(v.RC, check.Equals, "")
	c.Assert(v.Release, check.NotNil)
	c.Check(*v.Release, check.Equals, uint64(100))
	c.Check(v.Local, check.Equals, ".fc34.x86_64")
	c.Check(v.String(), check.Equals, "5.15.12-100.fc34.x86_64")
}

func (s *versionSuite) TestParseDebianStyle(c *check.C) {
	v, err := ParseVersion("5.10.0-11-amd64")
	c.Assert(err, check.IsNil)
	c.Check(v.Major, check.Equals, uint64(5))
	c.Check(v.Minor, check.Equals, uint64(10))
	c.Check(v.Patch, check.Equals, uint64(0))
	c.Assert(v.Release, check.NotNil)
	c.Check(*v.Release, check.Equals, uint64(11))
	c.Check(v.Local, check.Equals, "-amd64")
}

func (s *versionSuite) TestParseReleaseCandidate(c *check.C) {
	v, err := ParseVersion("5.12.0-rc3-aosc-main")
	c.Assert(err, check.IsNil)
	c.Check(v.RC, check.Equals, "rc3")
	c.Check(v.Release, check.IsNil)
	c.Check(v.Local, check.Equals, "-aosc-main")
}

func (s *versionSuite) TestParseNoPatch(c *check.C) {
	v, err := ParseVersion("5.12-aosc-main")
	c.Assert(err, check.IsNil)
	c.Check(v.Patch, check.Equals, uint64(0))
	c.Check(v.Local, check.Equals, "-aosc-main")
}

func (s *versionSuite) TestParseInvalid(c *check.C) {
	for _, name := range []string{"linux-5.10", "extra", "", "5"} {
		_, err := ParseVersion(name)
		c.Check(errors.Is(err, ErrInvalidVersion), check.Equals, true,
			check.Commentf("name %q", name))
	}
}

func (s *versionSuite) TestRenderRoundTrip(c *check.C) {
	for _, name := range []string{
		"5.15.12-100.fc34.x86_64",
		"5.10.0-11-amd64",
		"5.12.0-rc3-aosc-main",
		"5.12-aosc-main",
	} {
		v, err := ParseVersion(name)
		c.Assert(err, check.IsNil)
		again, err := ParseVersion(v.Render())
		c.Assert(err, check.IsNil)
		c.Check(again.Major, check.Equals, v.Major)
		c.Check(again.Minor, check.Equals, v.Minor)
		c.Check(again.Patch, check.Equals, v.Patch)
		c.Check(again.RC, check.Equals, v.RC)
		c.Check(again.Local, check.Equals, v.Local)
	}
}

func (s *versionSuite) TestOrdering(c *check.C) {
	// each pair: left sorts above right
	pairs := [][2]string{
		{"5.15.0-x", "5.14.9-x"},
		{"5.14.10-x", "5.14.9-x"},
		{"6.0.0-x", "5.19.17-x"},
		{"5.15.0-x", "5.15.0-rc8-x"},   // final above its candidates
		{"5.15.0-rc10-x", "5.15.0-rc9-x"}, // rc numbers compare numerically
		{"5.10.0-12-amd64", "5.10.0-11-amd64"},
		{"5.10.0-11-amd64", "5.10.0-amd64"}, // missing release counts as 0
	}
	for _, pair := range pairs {
		a, err := ParseVersion(pair[0])
		c.Assert(err, check.IsNil)
		b, err := ParseVersion(pair[1])
		c.Assert(err, check.IsNil)
		c.Check(a.Compare(b) > 0, check.Equals, true, check.Commentf("%s > %s", pair[0], pair[1]))
		c.Check(b.Compare(a) < 0, check.Equals, true, check.Commentf("%s < %s", pair[1], pair[0]))
	}
}

func (s *versionSuite) TestLocalSuffixIdentity(c *check.C) {
	a, err := ParseVersion("5.15.0-aosc-main")
	c.Assert(err, check.IsNil)
	b, err := ParseVersion("5.15.0-amd64")
	c.Assert(err, check.IsNil)

	// distinct identities, but still totally ordered
	c.Check(a.Equal(b), check.Equals, false)
	c.Check(a.Compare(b) == 0, check.Equals, false)
	c.Check(a.Compare(b), check.Equals, -b.Compare(a))
	c.Check(a.Equal(a), check.Equals, true)
	c.Check(a.Compare(a), check.Equals, 0)
}
