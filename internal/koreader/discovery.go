package koreader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/mrlokans/koreader-highlights/internal/luatable"
	"github.com/mrlokans/koreader-highlights/internal/utils"
)

// SidecarPattern matches the metadata file inside a sidecar directory,
// e.g. metadata.epub.lua or metadata.pdf.lua.
const SidecarPattern = "metadata.*.lua"

// Discover walks root and returns the sorted paths of all sidecar metadata
// files. Unreadable subdirectories are skipped; an unreadable root is an
// error.
func Discover(fs afero.Fs, root string) ([]string, error) {
	info, err := fs.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("books directory %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("books directory %s: not a directory", root)
	}

	var paths []string
	err = afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			if path != root && strings.HasPrefix(info.Name(), ".") && !strings.HasSuffix(info.Name(), utils.SidecarSuffix) {
				return filepath.SkipDir
			}
			return nil
		}
		if IsSidecarFile(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	sort.Strings(paths)
	return paths, nil
}

// IsSidecarFile reports whether path names a metadata file inside a
// sidecar directory.
func IsSidecarFile(path string) bool {
	if !strings.HasSuffix(filepath.Dir(path), utils.SidecarSuffix) {
		return false
	}
	ok, _ := filepath.Match(SidecarPattern, filepath.Base(path))
	return ok
}

// Load reads, decodes and extracts one sidecar file.
func (e *Extractor) Load(fs afero.Fs, path string) (*Extraction, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	root, err := luatable.Decode(string(data), luatable.WithMaxDepth(e.maxDepth))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	return e.Extract(root, path)
}

// LoadFile is Load with default options.
func LoadFile(fs afero.Fs, path string) (*Extraction, error) {
	return NewExtractor().Load(fs, path)
}
