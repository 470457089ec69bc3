// Package sys holds the filesystem and process collaborators used while generating build files.
package sys

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"

	"github.com/agenium-scale/nsconfig/util"
)

// FS is the filesystem as seen by the interpreter and the backends.
type FS interface {
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm fs.FileMode) error
	MkdirAll(name string) error
	// Glob returns the sorted list of regular files matching pattern. `**` matches any number of directories.
	Glob(pattern string) ([]string, error)
	Exists(name string) bool
	IsDir(name string) bool
	Copy(src, dst string) error
	Abs(name string) (string, error)
}

// OSFileSystem is the FS backed by the operating system.
type OSFileSystem struct{}

func (OSFileSystem) ReadFile(name string) ([]byte, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read %q", name)
	}
	return data, nil
}

func (OSFileSystem) WriteFile(name string, data []byte, perm fs.FileMode) error {
	if err := os.WriteFile(name, data, perm); err != nil {
		return errors.Wrapf(err, "cannot write %q", name)
	}
	return nil
}

func (OSFileSystem) MkdirAll(name string) error {
	if err := os.MkdirAll(name, os.ModePerm); err != nil {
		return errors.Wrapf(err, "cannot create directory %q", name)
	}
	return nil
}

func (OSFileSystem) Glob(pattern string) ([]string, error) {
	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, errors.Wrapf(err, "invalid glob %q", pattern)
	}
	for i := range matches {
		matches[i] = filepath.ToSlash(matches[i])
	}
	sort.Strings(matches)
	return matches, nil
}

func (OSFileSystem) Exists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

func (OSFileSystem) IsDir(name string) bool {
	return util.DirExists(name)
}

func (OSFileSystem) Copy(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, "cannot open %q", src)
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, util.FileMode)
	if err != nil {
		return errors.Wrapf(err, "cannot create %q", dst)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.Wrapf(err, "cannot copy %q to %q", src, dst)
	}
	return errors.Wrapf(out.Close(), "cannot close %q", dst)
}

func (OSFileSystem) Abs(name string) (string, error) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return "", errors.Wrapf(err, "cannot resolve %q", name)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return filepath.ToSlash(abs), nil
}
