package cli

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/roach88/agentmark/internal/config"
	"github.com/roach88/agentmark/internal/oracle"
	"github.com/roach88/agentmark/internal/tree"
)

// LoadMode controls how errors are handled during unit loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the units found under the given paths.
type LoadResult struct {
	Units     []*tree.Unit // every parsed unit, path order
	FileCount int          // number of unit files found
}

// Roots returns the units that compile to a document. Library units that
// only export fragments are compiled through their importers.
func (r *LoadResult) Roots() []*tree.Unit {
	var roots []*tree.Unit
	for _, u := range r.Units {
		if u.Root != nil {
			roots = append(roots, u)
		}
	}
	return roots
}

// LoadError represents an error that occurred while finding or reading
// units.
type LoadError struct {
	Code    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadUnits finds unit files under paths (files or directories) and parses
// them. A nil result means nothing could be loaded.
func LoadUnits(paths []string, mode LoadMode) (*LoadResult, []error) {
	files, err := FindUnitFiles(paths)
	if err != nil {
		return nil, []error{err}
	}
	if len(files) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no unit files found in %s", strings.Join(paths, ", "))}}
	}

	result := &LoadResult{FileCount: len(files)}
	var errs []error
	for _, f := range files {
		unit, err := tree.Load(f)
		if err != nil {
			errs = append(errs, err)
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		result.Units = append(result.Units, unit)
	}
	return result, errs
}

// FindUnitFiles expands paths into unit files. Directories are walked,
// skipping hidden directories and the project config file.
func FindUnitFiles(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if os.IsNotExist(err) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("path not found: %s", p)}
		}
		if err != nil {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing %s: %v", p, err)}
		}
		if !info.IsDir() {
			files = append(files, filepath.Clean(p))
			continue
		}

		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != p && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if tree.HasUnitExtension(path) && !isConfigFile(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning %s: %v", p, err)}
		}
	}
	slices.Sort(files)
	return slices.Compact(files), nil
}

func isConfigFile(path string) bool {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base)) == config.FileName
}

// loadTypes builds the type oracle from the configured .cue files.
func loadTypes(cfg *config.Config) (oracle.Oracle, error) {
	if len(cfg.Types) == 0 {
		return oracle.Empty, nil
	}
	types, err := oracle.LoadCUE(cfg.Types...)
	if err != nil {
		return nil, errors.WithHint(
			errors.Wrap(err, "load types"),
			"check the types entries in your config point at readable .cue files")
	}
	return types, nil
}

// Error code constants for failures outside the compiler.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No unit files found
	ErrCodeLoadFailed  = "E004" // Unit or types file could not be loaded
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeWriteFailed = "E007" // Artifact or ledger write error
)
