// ABOUTME: Package serialization contract for extracted archival bags
// ABOUTME: Resolves declared relative paths against the payload directory

package bag

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	// ErrMalformedPath indicates a declared path that escapes the
	// package's extract directory
	ErrMalformedPath = errors.New("bag: malformed payload path")
)

// Package is an extracted archival bag. Extraction itself happens
// elsewhere; consumers only see the exploded directory layout.
type Package interface {
	// ListFiles returns every payload file path, ordered
	ListFiles() ([]string, error)

	// ExtractDir returns the directory the bag was exploded into
	ExtractDir() string

	// BaseDir returns the bag's top-level directory, relative to ExtractDir
	BaseDir() string
}

// PayloadPath resolves a declared relative path against the package's
// payload directory (<extractDir>/<baseDir>/data/<rel>). A path that
// resolves outside the extract directory is malformed.
func PayloadPath(pkg Package, rel string) (string, error) {
	if pkg == nil {
		return "", errors.New("bag: nil package")
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if cleaned == "." || filepath.IsAbs(cleaned) ||
		cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrMalformedPath, rel)
	}
	return filepath.Join(pkg.ExtractDir(), pkg.BaseDir(), "data", cleaned), nil
}

// DetectBaseDir finds the bag's top-level directory under extractDir.
// An exploded bag holds exactly one directory entry at its root.
func DetectBaseDir(extractDir string) (string, error) {
	entries, err := os.ReadDir(extractDir)
	if err != nil {
		return "", fmt.Errorf("bag: reading extract dir: %w", err)
	}

	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, entry.Name())
		}
	}
	if len(dirs) != 1 {
		return "", fmt.Errorf("bag: extract dir %s holds %d directories, want 1", extractDir, len(dirs))
	}
	return dirs[0], nil
}

// ExplodedBag is a Package backed by an already-extracted directory tree
type ExplodedBag struct {
	extractDir string
	baseDir    string
}

// NewExplodedBag creates a package over <extractDir>/<baseDir>
func NewExplodedBag(extractDir, baseDir string) *ExplodedBag {
	return &ExplodedBag{extractDir: extractDir, baseDir: baseDir}
}

// ExtractDir returns the extraction directory
func (b *ExplodedBag) ExtractDir() string { return b.extractDir }

// BaseDir returns the bag's top-level directory name
func (b *ExplodedBag) BaseDir() string { return b.baseDir }

// PayloadDir returns the bag's payload directory
func (b *ExplodedBag) PayloadDir() string {
	return filepath.Join(b.extractDir, b.baseDir, "data")
}

// ListFiles walks the payload directory and returns every regular file,
// sorted by path. A missing payload directory yields an empty listing.
func (b *ExplodedBag) ListFiles() ([]string, error) {
	var files []string

	err := filepath.WalkDir(b.PayloadDir(), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("bag: listing payload: %w", err)
	}

	sort.Strings(files)
	return files, nil
}
