// Package loader reads configuration sources into generic maps.
//
// Sources are merged with DeepMerge, later sources overriding earlier ones,
// before being decoded into typed configuration.
package loader

// Loader is a configuration source. A source that does not exist yields a
// nil map and a nil error.
type Loader interface {
	Load() (map[string]any, error)
}

// Func adapts a plain function to Loader.
type Func func() (map[string]any, error)

// Load calls f.
func (f Func) Load() (map[string]any, error) { return f() }

// Static returns a loader that always yields m.
func Static(m map[string]any) Loader {
	return Func(func() (map[string]any, error) { return m, nil })
}

// DeepMerge merges src into dst and returns dst. Nested tables merge key by
// key; any other value in src replaces the one in dst.
func DeepMerge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for k, v := range src {
		sub, ok := v.(map[string]any)
		if !ok {
			dst[k] = v
			continue
		}
		if cur, ok := dst[k].(map[string]any); ok {
			dst[k] = DeepMerge(cur, sub)
		} else {
			dst[k] = DeepMerge(nil, sub)
		}
	}
	return dst
}
