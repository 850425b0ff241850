// Package security guards the paths the report server reads from.
package security

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	// ErrInvalidArtifactName is returned for names that are not a plain
	// artifact file name.
	ErrInvalidArtifactName = errors.New("invalid artifact name")
	// ErrOutsideOutputDir is returned when a path resolves outside the
	// output directory it was requested from.
	ErrOutsideOutputDir = errors.New("path escapes output directory")
)

// ArtifactExtensions lists the file types the reporter writes.
var ArtifactExtensions = []string{".png", ".svg", ".pdf", ".html", ".csv"}

// ValidateArtifactName accepts a base name made of ASCII letters, digits,
// dot, underscore and dash, not starting with a dot, and carrying one of
// ArtifactExtensions.
func ValidateArtifactName(name string) error {
	if name == "" || len(name) > 255 || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidArtifactName, name)
	}
	for _, r := range name {
		ok := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
			r == '.' || r == '_' || r == '-'
		if !ok {
			return fmt.Errorf("%w: %q", ErrInvalidArtifactName, name)
		}
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range ArtifactExtensions {
		if ext == allowed {
			return nil
		}
	}
	return fmt.Errorf("%w: %q has unsupported extension", ErrInvalidArtifactName, name)
}

// Resolver canonicalises existing paths. fsutil.FileSystem satisfies it.
type Resolver interface {
	Resolve(name string) (string, error)
}

// WithinDir checks that the existing file at path resolves inside dir once
// r has followed symlinks on both sides. A missing path or dir is reported
// with the underlying fs.ErrNotExist.
func WithinDir(r Resolver, path, dir string) error {
	realDir, err := r.Resolve(dir)
	if err != nil {
		return err
	}
	realPath, err := r.Resolve(path)
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(realDir, realPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("%w: %s", ErrOutsideOutputDir, path)
	}
	return nil
}

// ResolveArtifact returns the path of an existing artifact in dir.
func ResolveArtifact(r Resolver, dir, name string) (string, error) {
	if err := ValidateArtifactName(name); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := WithinDir(r, path, dir); err != nil {
		return "", err
	}
	return path, nil
}
