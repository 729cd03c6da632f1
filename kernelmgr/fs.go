// This file is part of sdbootctl
// SPDX-License-Identifier: GPL-3.0-only

// Package kernelmgr identifies installed kernel packages and manages their
// images and boot entries on the EFI System Partition.
package kernelmgr

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
)

// FS abstracts away the filesystem.
//
// So we really wanted to use afero because it does all the magic for us, but it doubles
// our binary size, so that seems a tad much.
type FS interface {
	// Create behaves like os.Create()
	Create(path string) (io.WriteCloser, error)
	// MkdirAll behaves like os.MkdirAll()
	MkdirAll(path string, perm os.FileMode) error
	// Open behaves like os.Open()
	Open(path string) (io.ReadSeekCloser, error)
	// ReadDir behaves like os.ReadDir()
	ReadDir(path string) ([]os.DirEntry, error)
	// Remove behaves like os.Remove()
	Remove(path string) error
	// Stat behaves like os.Stat()
	Stat(path string) (os.FileInfo, error)
}

// realFS implements FS using the os package
type realFS struct{}

func (realFS) Create(path string) (io.WriteCloser, error)   { return os.Create(path) }
func (realFS) MkdirAll(path string, perm os.FileMode) error { return os.MkdirAll(path, perm) }
func (realFS) Open(path string) (io.ReadSeekCloser, error)  { return os.Open(path) }
func (realFS) ReadDir(path string) ([]os.DirEntry, error)   { return os.ReadDir(path) }
func (realFS) Remove(path string) error                     { return os.Remove(path) }
func (realFS) Stat(path string) (os.FileInfo, error)        { return os.Stat(path) }

// appFs is our default FS
var appFs FS = realFS{}

// MaybeUpdateFile copies src to dst if they differ.
//
// It returns true if the destination file was written. An existing
// destination with content identical to the source is left untouched.
// A short write deletes the partial destination and fails with
// ErrIncompleteWrite, so a half-copied kernel image can never survive
// an out-of-space condition.
func MaybeUpdateFile(dst string, src string) (bool, error) {
	srcFile, err := appFs.Open(src)
	if err != nil {
		return false, fmt.Errorf("could not open source file: %w", err)
	}
	defer srcFile.Close()

	if needUpdate, err := needUpdateFile(dst, src, srcFile); !needUpdate {
		return false, err
	}

	srcInfo, err := appFs.Stat(src)
	if err != nil {
		return false, fmt.Errorf("could not stat source file %s: %w", src, err)
	}

	dstFile, err := appFs.Create(dst)
	if err != nil {
		return false, fmt.Errorf("could not open %s for writing: %w", dst, err)
	}

	written, err := io.Copy(dstFile, srcFile)
	if cerr := dstFile.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		removePartial(dst)
		return false, fmt.Errorf("could not copy %s to %s: %w", src, dst, err)
	}
	if written != srcInfo.Size() {
		removePartial(dst)
		return false, fmt.Errorf("%s: wrote %d of %d bytes: %w", dst, written, srcInfo.Size(), ErrIncompleteWrite)
	}
	if err := verifyDestSize(dst, srcInfo.Size()); err != nil {
		return false, err
	}
	return true, nil
}

// WriteFileVerified writes data to path and confirms the full length
// landed on disk. Incomplete files are deleted and reported through
// ErrIncompleteWrite.
func WriteFileVerified(path string, data []byte) error {
	f, err := appFs.Create(path)
	if err != nil {
		return fmt.Errorf("could not open %s for writing: %w", path, err)
	}
	n, err := f.Write(data)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		removePartial(path)
		return fmt.Errorf("could not write %s: %w", path, err)
	}
	if n != len(data) {
		removePartial(path)
		return fmt.Errorf("%s: wrote %d of %d bytes: %w", path, n, len(data), ErrIncompleteWrite)
	}
	return verifyDestSize(path, int64(len(data)))
}

// verifyDestSize re-stats a freshly written file and checks the full
// length actually landed on disk. A mismatch deletes the partial file
// and fails with ErrIncompleteWrite.
func verifyDestSize(path string, want int64) error {
	info, err := appFs.Stat(path)
	if err != nil {
		return fmt.Errorf("could not stat %s after writing: %w", path, err)
	}
	if info.Size() != want {
		removePartial(path)
		return fmt.Errorf("%s: %d of %d bytes on disk: %w", path, info.Size(), want, ErrIncompleteWrite)
	}
	return nil
}

func removePartial(path string) {
	if err := appFs.Remove(path); err != nil && !os.IsNotExist(err) {
		warnf("could not remove partial file %s: %v", path, err)
	}
}

func needUpdateFile(dst string, src string, srcFile io.ReadSeeker) (bool, error) {
	// To keep things simple, but not have the files in memory, just hash them
	dstHash := sha256.New()
	srcHash := sha256.New()

	dstFile, err := appFs.Open(dst)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, fmt.Errorf("could not open destination file: %w", err)
	}

	defer dstFile.Close()

	if _, err := io.Copy(dstHash, dstFile); err != nil {
		return false, fmt.Errorf("could not hash destination file %s: %w", dst, err)
	}
	if _, err := io.Copy(srcHash, srcFile); err != nil {
		return false, fmt.Errorf("could not hash source file %s: %w", src, err)
	}
	if bytes.Equal(dstHash.Sum(nil), srcHash.Sum(nil)) {
		return false, nil
	}

	if _, err := srcFile.Seek(0, io.SeekStart); err != nil {
		return false, fmt.Errorf("could not seek in source file %s: %w", src, err)
	}

	return true, nil
}

func fileExists(path string) bool {
	_, err := appFs.Stat(path)
	return err == nil
}
