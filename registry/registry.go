// Package registry holds named models so definitions can refer to each other
// by name ("@user"). A Registry is a goforma.Resolver.
package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"go.uber.org/multierr"

	goforma "github.com/reoring/goforma"
	"github.com/reoring/goforma/internal/docio"
	"github.com/reoring/goforma/modeldef"
)

var (
	// ErrNotFound is returned by Resolve for unknown names.
	ErrNotFound = errors.New("registry: model not found")
	// ErrDuplicate is returned by Register for names already taken.
	ErrDuplicate = errors.New("registry: model already registered")
)

// Registry maps names to models. It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	models map[string]goforma.Node
}

// New returns an empty registry.
func New() *Registry { return &Registry{models: map[string]goforma.Node{}} }

// Register stores n under name.
func (r *Registry) Register(name string, n goforma.Node) error {
	if name == "" || n == nil {
		return fmt.Errorf("registry: name and model are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.models[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicate, name)
	}
	r.models[name] = n
	return nil
}

// MustRegister is Register that panics on error.
func (r *Registry) MustRegister(name string, n goforma.Node) {
	if err := r.Register(name, n); err != nil {
		panic(err)
	}
}

// Resolve returns the model registered under name.
func (r *Registry) Resolve(name string) (goforma.Node, error) {
	r.mu.RLock()
	n, ok := r.models[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return n, nil
}

// Names lists registered names in ascending order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.models))
	for k := range r.models {
		out = append(out, k)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// LoadDir parses every .yaml, .yml and .json file directly under dir and
// registers it under its file name without extension. Every failing file is
// reported; files that parse are registered regardless.
func (r *Registry) LoadDir(fsys fs.FS, dir string, opts modeldef.Options) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("registry: %w", err)
	}
	var errs error
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(path.Ext(e.Name()))
		if ext != ".yaml" && ext != ".yml" && ext != ".json" {
			continue
		}
		p := path.Join(dir, e.Name())
		b, err := fs.ReadFile(fsys, p)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("registry: %s: %w", p, err))
			continue
		}
		m, err := modeldef.Parse(b, docio.FormatOf(e.Name()), opts)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("registry: %s: %w", p, err))
			continue
		}
		if err := r.Register(strings.TrimSuffix(e.Name(), path.Ext(e.Name())), m); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("registry: %s: %w", p, err))
		}
	}
	return errs
}
