package module

import (
	"slices"
	"sync"
)

// ports registered by main while wiring a binary; later modules resolve earlier ones by name
var (
	mu  sync.RWMutex
	reg = map[string]any{}
)

// Register stores the port set of the named module, replacing any previous one
func Register(name string, ports any) {
	mu.Lock()
	reg[name] = ports
	mu.Unlock()
}

// PortsAs returns the port set of name when it is registered with type T
func PortsAs[T any](name string) (T, bool) {
	mu.RLock()
	v, ok := reg[name]
	mu.RUnlock()
	out, ok2 := v.(T)
	return out, ok && ok2
}

// Names lists the registered module names in order
func Names() []string {
	mu.RLock()
	out := make([]string, 0, len(reg))
	for n := range reg {
		out = append(out, n)
	}
	mu.RUnlock()
	slices.Sort(out)
	return out
}

// Reset empties the registry
func Reset() {
	mu.Lock()
	reg = map[string]any{}
	mu.Unlock()
}
