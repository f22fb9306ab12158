package loader

import (
	"os"
	"strconv"
	"strings"
)

// Prefix is the prefix of all quizedit environment variables.
const Prefix = "QUIZEDIT_"

// EnvLoader loads configuration from environment variables.
//
// Values are typed after the default configuration: a variable whose path
// holds an integer default is parsed as an integer, and so on. Values that
// fail to parse are kept as strings so validation can report them.
type EnvLoader struct {
	prefix   string
	mapping  map[string]string // Env var -> config path
	defaults map[string]any
	lookup   func(string) (string, bool)
	environ  func() []string
}

// NewEnvLoader creates an environment loader typed after defaults.
func NewEnvLoader(defaults map[string]any) *EnvLoader {
	return &EnvLoader{
		prefix:   Prefix,
		mapping:  DefaultEnvMapping(),
		defaults: defaults,
		lookup:   os.LookupEnv,
		environ:  os.Environ,
	}
}

// DefaultEnvMapping returns the explicit variable to path mappings.
func DefaultEnvMapping() map[string]string {
	return map[string]string{
		"QUIZEDIT_LOG_LEVEL":   "logging.level",
		"QUIZEDIT_PROVIDER":    "ai.provider",
		"QUIZEDIT_MODEL":       "ai.model",
		"QUIZEDIT_BASE_URL":    "ai.base_url",
		"QUIZEDIT_API_KEY":     "ai.api_key",
		"QUIZEDIT_STORE":       "store.path",
		"QUIZEDIT_ADDR":        "server.addr",
		"QUIZEDIT_KIND":        "editor.kind",
		"QUIZEDIT_MAX_HISTORY": "editor.max_history",
	}
}

// AddMapping adds a custom environment variable mapping.
func (l *EnvLoader) AddMapping(envVar, configPath string) {
	l.mapping[envVar] = configPath
}

// Load reads environment variables and returns a configuration map.
// Empty values are treated as unset.
func (l *EnvLoader) Load() (map[string]any, error) {
	config := make(map[string]any)

	for env, path := range l.mapping {
		if val, ok := l.lookup(env); ok && val != "" {
			setByPath(config, path, l.parseValue(path, val))
		}
	}

	// QUIZEDIT_SERVER_ADDR -> server.addr
	for _, kv := range l.environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || value == "" || !strings.HasPrefix(name, l.prefix) {
			continue
		}
		if _, mapped := l.mapping[name]; mapped {
			continue
		}
		path, ok := l.envToPath(name)
		if !ok {
			continue
		}
		setByPath(config, path, l.parseValue(path, value))
	}
	return config, nil
}

// envToPath converts QUIZEDIT_EDITOR_MAX_HISTORY to editor.max_history.
func (l *EnvLoader) envToPath(env string) (string, bool) {
	section, key, ok := strings.Cut(strings.TrimPrefix(env, l.prefix), "_")
	if !ok || section == "" || key == "" {
		return "", false
	}
	return strings.ToLower(section) + "." + strings.ToLower(key), true
}

func (l *EnvLoader) parseValue(path, s string) any {
	def, ok := Lookup(l.defaults, path)
	if !ok {
		return s
	}
	switch def.(type) {
	case bool:
		switch strings.ToLower(s) {
		case "true", "yes", "on", "1":
			return true
		case "false", "no", "off", "0":
			return false
		}
	case int64, int:
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i
		}
	case float64:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return s
}

// setByPath sets a value in a nested map using a dot-separated path.
func setByPath(data map[string]any, path string, value any) {
	parts := splitPath(path)
	current := data
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}

func splitPath(path string) []string {
	return strings.Split(path, ".")
}
