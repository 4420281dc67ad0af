// Package fsutil copies files and directory trees on an afero filesystem.
package fsutil

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// ErrNotDir indicates a tree copy source that is not a directory.
var ErrNotDir = errors.New("not a directory")

// CopyFile copies the contents of src to dst.
//
// The destination file is created with mode 0644 if it doesn't exist,
// or truncated if it does.
func CopyFile(fsys afero.Fs, src, dst string) error {
	sourceFile, err := fsys.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := fsys.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		destFile.Close()
		return err
	}
	return destFile.Close()
}

// CopyTree recursively copies the directory src to dst. dst must not exist;
// missing parents are created. Symbolic links are followed. File modes and
// modification times are preserved.
func CopyTree(fsys afero.Fs, src, dst string) error {
	if _, err := fsys.Stat(dst); err == nil {
		return &fs.PathError{Op: "copytree", Path: dst, Err: fs.ErrExist}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	info, err := fsys.Stat(src)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return &fs.PathError{Op: "copytree", Path: src, Err: ErrNotDir}
	}

	return copyDir(fsys, src, dst, info)
}

func copyDir(fsys afero.Fs, src, dst string, info fs.FileInfo) error {
	if err := fsys.MkdirAll(dst, info.Mode().Perm()); err != nil {
		return err
	}

	entries, err := afero.ReadDir(fsys, src)
	if err != nil {
		return err
	}
	for _, e := range entries {
		from := filepath.Join(src, e.Name())
		to := filepath.Join(dst, e.Name())

		st, err := fsys.Stat(from)
		if err != nil {
			return err
		}
		if st.IsDir() {
			if err := copyDir(fsys, from, to, st); err != nil {
				return err
			}
			continue
		}
		if err := copyFilePreserving(fsys, from, to, st); err != nil {
			return err
		}
	}

	return fsys.Chtimes(dst, info.ModTime(), info.ModTime())
}

func copyFilePreserving(fsys afero.Fs, src, dst string, info fs.FileInfo) error {
	if err := CopyFile(fsys, src, dst); err != nil {
		return err
	}
	if err := fsys.Chmod(dst, info.Mode().Perm()); err != nil {
		return err
	}
	return fsys.Chtimes(dst, info.ModTime(), info.ModTime())
}
