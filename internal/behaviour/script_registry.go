package behaviour

import "sort"

type Constructor func() Behaviour

var registry = make(map[string]Constructor)

// Register makes a behaviour available by name, replacing any previous
// constructor of that name.
func Register(name string, constructor Constructor) {
	registry[name] = constructor
}

// Available lists the registered names in order.
func Available() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create returns a new behaviour, or nil for an unknown name.
func Create(name string) Behaviour {
	if constructor, exists := registry[name]; exists {
		return constructor()
	}
	return nil
}
