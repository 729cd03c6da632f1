// This file is part of sdbootctl
// SPDX-License-Identifier: GPL-3.0-only

package loaderconf

import (
	"io"
	"os"

	"github.com/spf13/afero"
	"gopkg.in/check.v1"
)

type memFS struct {
	p afero.Fs
}

func (m memFS) Open(path string) (io.ReadSeekCloser, error)  { return m.p.Open(path) }
func (m memFS) Create(path string) (io.WriteCloser, error)   { return m.p.Create(path) }
func (m memFS) MkdirAll(path string, perm os.FileMode) error { return m.p.MkdirAll(path, perm) }

type storeSuite struct {
	fs memFS
}

var _ = check.Suite(&storeSuite{})

func (s *storeSuite) SetUpTest(c *check.C) {
	s.fs = memFS{afero.NewMemMapFs()}
}

func (s *storeSuite) TestLoadMissingFile(c *check.C) {
	store, err := Load(s.fs, "/efi/loader")
	c.Assert(err, check.IsNil)
	c.Check(store.Conf.Default, check.Equals, "")
	c.Check(store.Conf.Timeout, check.IsNil)
}

func (s *storeSuite) TestLoadModifyWrite(c *check.C) {
	err := afero.WriteFile(s.fs.p, "/efi/loader/loader.conf", []byte("default old\ntimeout 4\n"), 0644)
	c.Assert(err, check.IsNil)

	store, err := Load(s.fs, "/efi/loader")
	c.Assert(err, check.IsNil)
	c.Check(store.Conf.Default, check.Equals, "old")

	store.Conf.Default = "new"
	c.Assert(store.Write(), check.IsNil)

	data, err := afero.ReadFile(s.fs.p, "/efi/loader/loader.conf")
	c.Assert(err, check.IsNil)
	c.Check(string(data), check.Equals, "default new\ntimeout 4\n")
}

func (s *storeSuite) TestWriteCreatesLoaderDir(c *check.C) {
	store, err := Load(s.fs, "/efi/loader")
	c.Assert(err, check.IsNil)
	store.Conf.Default = "a"
	c.Assert(store.Write(), check.IsNil)

	data, err := afero.ReadFile(s.fs.p, "/efi/loader/loader.conf")
	c.Assert(err, check.IsNil)
	c.Check(string(data), check.Equals, "default a\n")
}
