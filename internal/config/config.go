// Package config loads quizedit configuration.
//
// Configuration is layered: built-in defaults, then an optional TOML file,
// then environment variables. The merged result is decoded into Config and
// validated.
//
//	[ai]
//	provider = "openrouter"
//	model = "google/gemini-2.5-flash"
//	timeout = "90s"
//
//	[store]
//	path = "~/.config/quizedit/state.json"
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/quizedit/internal/config/loader"
)

// Errors returned by configuration operations.
var (
	// ErrValidationFailed indicates the merged configuration is invalid.
	ErrValidationFailed = errors.New("validation failed")
)

// Provider names accepted in [ai] provider.
const (
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
	ProviderGemini     = "gemini"
)

// Document kinds accepted in [editor] kind.
var editorKinds = []string{"quiz", "mixed", "explanation", "lesson"}

// Config is the complete quizedit configuration.
type Config struct {
	AI      AI      `toml:"ai"`
	Store   Store   `toml:"store"`
	Logging Logging `toml:"logging"`
	Server  Server  `toml:"server"`
	Editor  Editor  `toml:"editor"`
}

// AI configures the chat provider used for checks and edits.
type AI struct {
	Provider    string   `toml:"provider"`
	Model       string   `toml:"model"`
	BaseURL     string   `toml:"base_url"` // Empty selects the provider's default endpoint
	APIKey      string   `toml:"api_key"`
	Temperature float64  `toml:"temperature"`
	Timeout     Duration `toml:"timeout"`
}

// Store configures persistence.
type Store struct {
	// Path of the JSON state file. Empty keeps state in memory.
	Path string `toml:"path"`
}

// Logging configures the application logger.
type Logging struct {
	Level string `toml:"level"`
	JSON  bool   `toml:"json"`
}

// Server configures the HTTP API.
type Server struct {
	Addr string `toml:"addr"`
}

// Editor configures editing sessions.
type Editor struct {
	Kind       string `toml:"kind"`
	MaxHistory int    `toml:"max_history"`
}

// Duration is a time.Duration written as a string ("90s") in TOML.
type Duration struct {
	time.Duration
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		AI: AI{
			Provider:    ProviderOpenRouter,
			Model:       "google/gemini-2.5-flash",
			Temperature: 0.2,
			Timeout:     Duration{90 * time.Second},
		},
		Store:   Store{Path: defaultStorePath()},
		Logging: Logging{Level: "info"},
		Server:  Server{Addr: "127.0.0.1:8080"},
		Editor:  Editor{Kind: "quiz", MaxHistory: 500},
	}
}

func defaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "quizedit", "state.json")
}

// Load builds the configuration from defaults, the TOML file at path (may
// be empty or missing) and the environment, then validates it.
func Load(path string) (Config, error) {
	return load(loader.NewTOMLLoader(path))
}

func load(file loader.Loader) (Config, error) {
	defaults, err := toMap(Default())
	if err != nil {
		return Config{}, err
	}

	fromFile, err := file.Load()
	if err != nil {
		return Config{}, err
	}

	fromEnv, err := loader.NewEnvLoader(defaults).Load()
	if err != nil {
		return Config{}, err
	}

	merged := loader.DeepMerge(loader.DeepMerge(defaults, fromFile), fromEnv)

	data, err := toml.Marshal(merged)
	if err != nil {
		return Config{}, fmt.Errorf("encoding merged config: %w", err)
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}

	cfg.AI.APIKey = resolveAPIKey(cfg.AI, os.Getenv)
	cfg.Store.Path = expandHome(cfg.Store.Path)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func toMap(c Config) (map[string]any, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encoding defaults: %w", err)
	}
	return loader.Parse("<defaults>", data)
}

// providerKeyEnv names the provider-specific API key variable.
var providerKeyEnv = map[string]string{
	ProviderOpenRouter: "OPENROUTER_API_KEY",
	ProviderOpenAI:     "OPENAI_API_KEY",
	ProviderAnthropic:  "ANTHROPIC_API_KEY",
	ProviderGemini:     "GEMINI_API_KEY",
}

// resolveAPIKey falls back to the provider's own variable when no key is
// configured.
func resolveAPIKey(ai AI, getenv func(string) string) string {
	if ai.APIKey != "" {
		return ai.APIKey
	}
	if name, ok := providerKeyEnv[strings.ToLower(ai.Provider)]; ok {
		return getenv(name)
	}
	return ""
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// Validate reports every invalid setting, joined into one error wrapping
// ErrValidationFailed.
func (c Config) Validate() error {
	var problems []string

	if _, ok := providerKeyEnv[strings.ToLower(c.AI.Provider)]; !ok {
		problems = append(problems, fmt.Sprintf("ai.provider: unknown provider %q", c.AI.Provider))
	}
	if c.AI.Temperature < 0 || c.AI.Temperature > 2 {
		problems = append(problems, fmt.Sprintf("ai.temperature: %v out of range [0, 2]", c.AI.Temperature))
	}
	if c.AI.Timeout.Duration < 0 {
		problems = append(problems, "ai.timeout: must not be negative")
	}
	if _, ok := ParseLevelName(c.Logging.Level); !ok {
		problems = append(problems, fmt.Sprintf("logging.level: unknown level %q", c.Logging.Level))
	}
	if !validKind(c.Editor.Kind) {
		problems = append(problems, fmt.Sprintf("editor.kind: must be one of %s", strings.Join(editorKinds, ", ")))
	}
	if c.Editor.MaxHistory < 0 {
		problems = append(problems, "editor.max_history: must not be negative")
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrValidationFailed, strings.Join(problems, "; "))
}

// ParseLevelName normalizes a logging level name.
func ParseLevelName(s string) (string, bool) {
	switch l := strings.ToLower(strings.TrimSpace(s)); l {
	case "debug", "info", "warn", "error":
		return l, true
	case "warning":
		return "warn", true
	}
	return "", false
}

func validKind(kind string) bool {
	for _, k := range editorKinds {
		if k == kind {
			return true
		}
	}
	return false
}
