package sys

import (
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"
)

// MemFS is an in-memory FS. Paths are slash-separated, relative ones are resolved against Cwd.
type MemFS struct {
	Cwd   string
	Files map[string][]byte
	Modes map[string]fs.FileMode
	dirs  map[string]bool
}

// NewMemFS returns a MemFS holding the given files, keyed by path.
func NewMemFS(files map[string]string) *MemFS {
	m := &MemFS{
		Cwd:   "/work",
		Files: map[string][]byte{},
		Modes: map[string]fs.FileMode{},
		dirs:  map[string]bool{"/": true},
	}
	m.dirs[m.Cwd] = true
	for name, content := range files {
		m.put(m.clean(name), []byte(content), 0664)
	}
	return m
}

func (m *MemFS) clean(name string) string {
	if !path.IsAbs(name) {
		name = path.Join(m.Cwd, name)
	}
	return path.Clean(name)
}

func (m *MemFS) put(name string, data []byte, perm fs.FileMode) {
	m.Files[name] = data
	m.Modes[name] = perm
	for d := path.Dir(name); !m.dirs[d]; d = path.Dir(d) {
		m.dirs[d] = true
	}
}

// rel presents name the way it was asked for: relative to Cwd when the query was relative.
func (m *MemFS) rel(name string, relative bool) string {
	if !relative {
		return name
	}
	if name == m.Cwd {
		return "."
	}
	return strings.TrimPrefix(name, m.Cwd+"/")
}

func (m *MemFS) ReadFile(name string) ([]byte, error) {
	data, ok := m.Files[m.clean(name)]
	if !ok {
		return nil, errors.Wrapf(fs.ErrNotExist, "cannot read %q", name)
	}
	return data, nil
}

func (m *MemFS) WriteFile(name string, data []byte, perm fs.FileMode) error {
	name = m.clean(name)
	if !m.dirs[path.Dir(name)] {
		return errors.Wrapf(fs.ErrNotExist, "cannot write %q", name)
	}
	m.put(name, append([]byte(nil), data...), perm)
	return nil
}

func (m *MemFS) MkdirAll(name string) error {
	for d := m.clean(name); !m.dirs[d]; d = path.Dir(d) {
		m.dirs[d] = true
	}
	return nil
}

func (m *MemFS) Glob(pattern string) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, errors.Wrapf(doublestar.ErrBadPattern, "invalid glob %q", pattern)
	}
	relative := !path.IsAbs(pattern)
	abs := m.clean(pattern)
	var result []string
	for name := range m.Files {
		if ok, _ := doublestar.Match(abs, name); ok {
			result = append(result, m.rel(name, relative))
		}
	}
	sort.Strings(result)
	return result, nil
}

func (m *MemFS) Exists(name string) bool {
	name = m.clean(name)
	_, ok := m.Files[name]
	return ok || m.dirs[name]
}

func (m *MemFS) IsDir(name string) bool {
	return m.dirs[m.clean(name)]
}

func (m *MemFS) Copy(src, dst string) error {
	data, err := m.ReadFile(src)
	if err != nil {
		return err
	}
	return m.WriteFile(dst, data, 0664)
}

func (m *MemFS) Abs(name string) (string, error) {
	return m.clean(name), nil
}
