package clients

import (
	"fmt"
	"sort"
	"strings"

	"media-publisher/domain/repository"
)

// Registry maps platform identifiers to adapters. Registration happens once
// at startup; lookups after that are read-only and safe for concurrent use.
type Registry struct {
	adapters map[string]repository.IPlatform
}

func NewRegistry(adapters ...repository.IPlatform) repository.IPlatformRegistry {
	m := make(map[string]repository.IPlatform, len(adapters))
	for _, a := range adapters {
		m[strings.ToLower(a.Name())] = a
	}
	return &Registry{adapters: m}
}

func (r *Registry) Get(platform string) (repository.IPlatform, error) {
	adapter, ok := r.adapters[strings.ToLower(platform)]
	if !ok {
		names := make([]string, 0, len(r.adapters))
		for name := range r.adapters {
			names = append(names, name)
		}
		sort.Strings(names)
		return nil, fmt.Errorf("unsupported platform %q (supported: %s)", platform, strings.Join(names, ", "))
	}
	return adapter, nil
}
