// factory.go implements backend registration and construction. Backends
// self-register from their package init() so the factory has no compile-time
// knowledge of individual implementations.
package storage

import (
	"fmt"
	"sort"
	"sync"

	"github.com/atriumhq/atrium/internal/config"
)

// Factory constructs a TenantStore from application configuration.
type Factory func(cfg *config.Config) (TenantStore, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes a backend available under the given name. It panics on
// duplicate registration, which indicates a programming error in package
// init order.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("storage backend %q registered twice", name))
	}
	registry[name] = factory
}

// New constructs the backend selected by storage.default_backend.
func New(cfg *config.Config) (TenantStore, error) {
	registryMu.RLock()
	factory, ok := registry[cfg.Storage.DefaultBackend]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown storage backend %q (available: %v)", cfg.Storage.DefaultBackend, Available())
	}

	return factory(cfg)
}

// Available returns the registered backend names, sorted.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
