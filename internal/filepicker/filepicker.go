// Package filepicker lists and resolves model files under a models directory.
package filepicker

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Extensions are the model formats offered for opening.
var Extensions = []string{".brep", ".rle", ".iges", ".igs", ".step", ".stp", ".stl"}

var (
	// ErrNotAllowed is returned for a file whose extension is not offered.
	ErrNotAllowed = errors.New("file type not allowed")
	// ErrOutsideRoot is returned for a name escaping the models directory.
	ErrOutsideRoot = errors.New("path outside models directory")
)

// Entry describes a model file relative to the models directory.
type Entry struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
}

// Allowed reports whether path has an offered extension, ignoring case.
func Allowed(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// List walks root and returns the allowed files sorted by name.
func List(root string) ([]Entry, error) {
	var out []Entry
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !Allowed(path) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		out = append(out, Entry{Name: filepath.ToSlash(rel), Size: info.Size(), ModTime: info.ModTime()})
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list models: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Resolve maps a slash-separated name from List to a file path under root.
func Resolve(root, name string) (string, error) {
	if name == "" || filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return "", ErrOutsideRoot
	}
	clean := filepath.Clean(filepath.FromSlash(name))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", ErrOutsideRoot
	}
	if !Allowed(clean) {
		return "", fmt.Errorf("%s: %w", name, ErrNotAllowed)
	}
	path := filepath.Join(root, clean)
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", name, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("resolve %s: not a regular file", name)
	}
	return path, nil
}
