package testutil

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/roach88/agentmark/internal/tree"
)

// MemResolver serves units from memory. It satisfies compiler.Resolver.
type MemResolver struct {
	mu    sync.Mutex
	units map[string]*tree.Unit
	loads []string
}

// NewMemResolver creates an empty resolver.
func NewMemResolver() *MemResolver {
	return &MemResolver{units: make(map[string]*tree.Unit)}
}

// Add registers unit under its cleaned path.
func (r *MemResolver) Add(unit *tree.Unit) *MemResolver {
	r.mu.Lock()
	defer r.mu.Unlock()
	unit.Path = filepath.Clean(unit.Path)
	r.units[unit.Path] = unit
	return r
}

// AddSource parses src as a unit file stored at path. It panics on a syntax
// error, since test sources are fixed.
func (r *MemResolver) AddSource(path, src string) *tree.Unit {
	unit, err := tree.Parse(filepath.Clean(path), []byte(src))
	if err != nil {
		panic(err)
	}
	r.Add(unit)
	return unit
}

// LoadUnit returns the unit stored at path. A missing unit yields an error
// matching os.ErrNotExist.
func (r *MemResolver) LoadUnit(path string) (*tree.Unit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	path = filepath.Clean(path)
	r.loads = append(r.loads, path)
	unit, ok := r.units[path]
	if !ok {
		return nil, errors.Wrapf(os.ErrNotExist, "load unit %s", path)
	}
	return unit, nil
}

// Loads returns every path requested so far, in order.
func (r *MemResolver) Loads() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.loads...)
}
