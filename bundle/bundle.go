// Package bundle resolves source clips by name from a fixed catalog.
package bundle

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrUnknownSource is returned for names that are not in the catalog.
var ErrUnknownSource = errors.New("unknown source")

// DefaultSource is the clip used when no source is named.
const DefaultSource = "IMG_HDR"

// DefaultSources maps the bundled source names to their file names.
func DefaultSources() map[string]string {
	return map[string]string{
		DefaultSource: "IMG_HDR.MOV",
	}
}

// Catalog is the fixed set of source clips shipped in a bundle directory.
type Catalog struct {
	dir   string
	files map[string]string
}

// NewCatalog creates a catalog over dir. Entries in files are added to, or
// replace, the default sources.
func NewCatalog(dir string, files map[string]string) *Catalog {
	c := &Catalog{dir: dir, files: DefaultSources()}
	for name, file := range files {
		c.files[name] = file
	}
	return c
}

// Dir returns the bundle directory.
func (c *Catalog) Dir() string {
	return c.dir
}

// Names returns the catalog's source names, sorted.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.files))
	for name := range c.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether name is in the catalog.
func (c *Catalog) Has(name string) bool {
	_, ok := c.files[name]
	return ok
}

// Path returns where the file for name is expected, without checking that
// it exists.
func (c *Catalog) Path(name string) (string, error) {
	file, ok := c.files[name]
	if !ok {
		return "", fmt.Errorf("%w %q (available: %s)", ErrUnknownSource, name, strings.Join(c.Names(), ", "))
	}
	if filepath.IsAbs(file) {
		return file, nil
	}
	return filepath.Join(c.dir, file), nil
}

// Resolve returns the path of the file for name. The file must exist and
// must not be a directory.
func (c *Catalog) Resolve(name string) (string, error) {
	path, err := c.Path(name)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("source %q: %w", name, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("source %q: %s is a directory", name, path)
	}
	return path, nil
}

// Entry is one catalog entry as listed by Entries.
type Entry struct {
	Name   string
	Path   string
	Exists bool
}

// Entries lists every source with its resolved path.
func (c *Catalog) Entries() []Entry {
	entries := make([]Entry, 0, len(c.files))
	for _, name := range c.Names() {
		path, _ := c.Path(name)
		_, err := c.Resolve(name)
		entries = append(entries, Entry{Name: name, Path: path, Exists: err == nil})
	}
	return entries
}
