// Package packager snapshots a repository working tree into a zip archive
// whose entries live under a single top-level directory.
package packager

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoArchiveName is returned when packaging is requested without a name.
var ErrNoArchiveName = errors.New("archive name is required")

// Options tunes packaging.
type Options struct {
	// Exclude holds doublestar patterns, relative to the repository root,
	// for paths left out of the archive. Empty keeps the whole tree.
	Exclude []string
	// TempDir is the parent of the staging and output directories. Empty
	// uses os.TempDir.
	TempDir string
}

// Archive is a packaged repository. The caller owns its temporary
// directories and must call Cleanup.
type Archive struct {
	// Path of the zip file, <output dir>/<Name>.zip.
	Path string
	// Name is the archive name and the top-level directory inside the zip.
	Name string

	stagingDir string
	outputDir  string
}

// Error is a packaging failure.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("packaging: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("packaging: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ValidateName checks that name can be used as a directory and file name.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrNoArchiveName
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid archive name %q", name)
	}
	return nil
}

// Package copies the tree at repoPath into a fresh staging directory named
// archiveName and zips it into a fresh output directory. On failure both
// directories are removed before returning.
func Package(repoPath, archiveName string, opts Options) (_ *Archive, err error) {
	if err := ValidateName(archiveName); err != nil {
		return nil, &Error{Op: "validate name", Err: err}
	}
	// The walk does not descend into a symlinked root, so copy from its target.
	root, err := filepath.EvalSymlinks(repoPath)
	if err != nil {
		return nil, &Error{Op: "resolve", Path: repoPath, Err: err}
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, &Error{Op: "stat", Path: repoPath, Err: err}
	}
	if !info.IsDir() {
		return nil, &Error{Op: "stat", Path: repoPath, Err: errors.New("not a directory")}
	}
	for _, p := range opts.Exclude {
		if !validPattern(p) {
			return nil, &Error{Op: "exclude", Err: fmt.Errorf("bad pattern %q", p)}
		}
	}

	a := &Archive{Name: archiveName}
	defer func() {
		if err != nil {
			_ = a.Cleanup()
		}
	}()

	a.stagingDir, err = os.MkdirTemp(opts.TempDir, "repocanvas-stage-")
	if err != nil {
		return nil, &Error{Op: "create staging dir", Err: err}
	}
	a.outputDir, err = os.MkdirTemp(opts.TempDir, "repocanvas-zip-")
	if err != nil {
		return nil, &Error{Op: "create output dir", Err: err}
	}

	staged := filepath.Join(a.stagingDir, archiveName)
	if err := copyTree(root, staged, opts.Exclude); err != nil {
		return nil, &Error{Op: "copy", Path: repoPath, Err: err}
	}

	a.Path = filepath.Join(a.outputDir, archiveName+".zip")
	if err := zipTree(a.stagingDir, archiveName, a.Path); err != nil {
		return nil, &Error{Op: "zip", Path: a.Path, Err: err}
	}
	return a, nil
}

// Cleanup removes the staging and output directories. It is safe to call
// more than once.
func (a *Archive) Cleanup() error {
	if a == nil {
		return nil
	}
	var errs []error
	for _, dir := range []*string{&a.stagingDir, &a.outputDir} {
		if *dir == "" {
			continue
		}
		if err := os.RemoveAll(*dir); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		*dir = ""
	}
	return errors.Join(errs...)
}

// Dirs returns the temporary directories still owned by the archive.
func (a *Archive) Dirs() []string {
	var dirs []string
	for _, d := range []string{a.stagingDir, a.outputDir} {
		if d != "" {
			dirs = append(dirs, d)
		}
	}
	return dirs
}
