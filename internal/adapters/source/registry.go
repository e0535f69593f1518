package source

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/gridfeed/gridfeed/internal/config"
)

// Factory builds an adapter from one source's configuration.
type Factory func(cfg config.SourceConfig) (Adapter, error)

// Registry maps source kinds to factories. Registration is explicit and
// config-driven; there is no runtime discovery.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register installs a factory for a source kind, replacing any previous one.
func (r *Registry) Register(kind string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[strings.ToLower(kind)] = f
}

// Build constructs adapters for every configured source not named in
// exclude, ordered by priority descending. The order is informational;
// execution order is decided by the orchestrator's pool. An unregistered
// kind is a configuration error.
func (r *Registry) Build(cfgs []config.SourceConfig, exclude []string) ([]Adapter, error) {
	excluded := make(map[string]struct{}, len(exclude))
	for _, name := range exclude {
		excluded[strings.ToLower(name)] = struct{}{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	adapters := make([]Adapter, 0, len(cfgs))
	for _, cfg := range cfgs {
		if _, skip := excluded[strings.ToLower(cfg.Name)]; skip {
			continue
		}
		factory, ok := r.factories[strings.ToLower(cfg.Kind)]
		if !ok {
			return nil, fmt.Errorf("%w: %q for source %q", ErrUnknownKind, cfg.Kind, cfg.Name)
		}
		adapter, err := factory(cfg)
		if err != nil {
			return nil, fmt.Errorf("build source %q: %w", cfg.Name, err)
		}
		adapters = append(adapters, adapter)
	}

	sort.SliceStable(adapters, func(i, j int) bool {
		return adapters[i].Priority() > adapters[j].Priority()
	})
	return adapters, nil
}
