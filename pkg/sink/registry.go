package sink

import "sync"

var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
)

// Factory builds a Sink from an extension configuration block.
type Factory func(config map[string]interface{}) (Sink, error)

// Register makes an extension sink available under the given kind.
// Extension packages call this from init.
func Register(kind string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[kind] = factory
}

// Registered looks up the factory for an extension kind.
func Registered(kind string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := factories[kind]
	return f, ok
}
