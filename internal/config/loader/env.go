package loader

import (
	"os"
	"strconv"
	"strings"
)

// EnvLoader reads explicitly mapped environment variables. Each variable
// names the dotted configuration key it sets, e.g. "jobs.workers".
type EnvLoader struct {
	keys   map[string]string
	lookup func(string) (string, bool)
}

// NewEnvLoader creates a loader for mapping of variable name to key.
func NewEnvLoader(mapping map[string]string) *EnvLoader {
	keys := make(map[string]string, len(mapping))
	for name, key := range mapping {
		keys[name] = key
	}
	return &EnvLoader{keys: keys, lookup: os.LookupEnv}
}

// AddMapping maps one more variable.
func (l *EnvLoader) AddMapping(name, key string) {
	l.keys[name] = key
}

// Load implements Loader. Variables that are set but empty still count.
func (l *EnvLoader) Load() (map[string]any, error) {
	var out map[string]any
	for name, key := range l.keys {
		raw, ok := l.lookup(name)
		if !ok {
			continue
		}
		if out == nil {
			out = make(map[string]any)
		}
		put(out, strings.Split(key, "."), scalar(raw))
	}
	return out, nil
}

// scalar guesses the type of an environment value. Integers win over
// booleans so "1" stays a number.
func scalar(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if strings.ContainsRune(s, '.') {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	switch strings.ToLower(s) {
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}
	return s
}

func put(m map[string]any, path []string, v any) {
	for _, p := range path[:len(path)-1] {
		sub, ok := m[p].(map[string]any)
		if !ok {
			sub = make(map[string]any)
			m[p] = sub
		}
		m = sub
	}
	m[path[len(path)-1]] = v
}
