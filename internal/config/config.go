// Package config loads tsbridge settings from .tsbridge/config.{json,toml,yaml}
// with TSBRIDGE_* environment overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"tsbridge/internal/defaults"
	"tsbridge/internal/engine"
	"tsbridge/internal/paths"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TSBRIDGE"

// Config is the complete tsbridge configuration.
type Config struct {
	Languages   map[string]LanguageConfig `json:"languages" mapstructure:"languages"`
	Worker      WorkerConfig              `json:"worker" mapstructure:"worker"`
	Diagnostics DiagnosticsConfig         `json:"diagnostics" mapstructure:"diagnostics"`
	Format      FormatConfig              `json:"format" mapstructure:"format"`
	Logging     LoggingConfig             `json:"logging" mapstructure:"logging"`

	// Root is the directory the configuration was loaded for.
	Root string `json:"-" mapstructure:"-"`
}

// LanguageConfig is the language-service configuration of one language.
type LanguageConfig struct {
	CompilerOptions map[string]interface{}      `json:"compilerOptions" mapstructure:"compilerOptions"`
	ExtraLibs       []string                    `json:"extraLibs" mapstructure:"extraLibs"`
	Diagnostics     defaults.DiagnosticsOptions `json:"diagnostics" mapstructure:"diagnostics"`
}

// WorkerConfig selects how workers are run.
type WorkerConfig struct {
	Mode             string   `json:"mode" mapstructure:"mode"`
	Command          string   `json:"command" mapstructure:"command"`
	Args             []string `json:"args" mapstructure:"args"`
	IdleTimeoutMs    int      `json:"idleTimeoutMs" mapstructure:"idleTimeoutMs"`
	RequestTimeoutMs int      `json:"requestTimeoutMs" mapstructure:"requestTimeoutMs"`
}

// DiagnosticsConfig tunes the validation loop.
type DiagnosticsConfig struct {
	DebounceMs int `json:"debounceMs" mapstructure:"debounceMs"`
}

// FormatConfig is the formatting profile.
type FormatConfig struct {
	TabSize      int  `json:"tabSize" mapstructure:"tabSize" toml:"tabSize"`
	InsertSpaces bool `json:"insertSpaces" mapstructure:"insertSpaces" toml:"insertSpaces"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// Worker modes.
const (
	ModeInProcess = "inprocess"
	ModeProcess   = "process"
)

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Languages: map[string]LanguageConfig{
			"typescript": {
				CompilerOptions: map[string]interface{}{
					"allowNonTsExtensions": true,
					"target":               "latest",
				},
				ExtraLibs: []string{},
			},
			"javascript": {
				CompilerOptions: map[string]interface{}{
					"allowNonTsExtensions": true,
					"allowJs":              true,
					"target":               "latest",
				},
				ExtraLibs: []string{},
			},
		},
		Worker: WorkerConfig{
			Mode:             ModeInProcess,
			Args:             []string{"worker", "--stdio"},
			IdleTimeoutMs:    2 * 60 * 1000,
			RequestTimeoutMs: 30 * 1000,
		},
		Diagnostics: DiagnosticsConfig{DebounceMs: 500},
		Format:      FormatConfig{TabSize: 4, InsertSpaces: true},
		Logging:     LoggingConfig{Format: "human", Level: "info"},
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	d := DefaultConfig()
	v.SetDefault("worker.mode", d.Worker.Mode)
	v.SetDefault("worker.command", d.Worker.Command)
	v.SetDefault("worker.args", d.Worker.Args)
	v.SetDefault("worker.idleTimeoutMs", d.Worker.IdleTimeoutMs)
	v.SetDefault("worker.requestTimeoutMs", d.Worker.RequestTimeoutMs)
	v.SetDefault("diagnostics.debounceMs", d.Diagnostics.DebounceMs)
	v.SetDefault("format.tabSize", d.Format.TabSize)
	v.SetDefault("format.insertSpaces", d.Format.InsertSpaces)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.level", d.Logging.Level)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the configuration for root. A missing file yields the defaults
// with environment overrides applied.
func Load(root string) (*Config, error) {
	v := newViper()
	v.SetConfigName("config")
	v.AddConfigPath(paths.ConfigDir(root))
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return finish(v, root)
}

// LoadFile reads an explicit configuration file; its format follows the
// extension.
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	root := filepath.Dir(path)
	if filepath.Base(root) == paths.ConfigDirName {
		root = filepath.Dir(root)
	}
	return finish(v, root)
}

func finish(v *viper.Viper, root string) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Root = root

	langs := DefaultConfig().Languages
	for id, lc := range cfg.Languages {
		base := langs[id]
		if lc.CompilerOptions == nil {
			lc.CompilerOptions = base.CompilerOptions
		} else {
			lc.CompilerOptions = canonicalOptions(lc.CompilerOptions)
		}
		if lc.ExtraLibs == nil {
			lc.ExtraLibs = []string{}
		}
		langs[id] = lc
	}
	cfg.Languages = langs

	if profile, ok, err := LoadFormatProfile(root); err != nil {
		return nil, err
	} else if ok {
		cfg.Format = profile
	}
	return &cfg, nil
}

// Save writes the configuration to .tsbridge/config.json
func (c *Config) Save(root string) error {
	dir := paths.ConfigDir(root)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), append(data, '\n'), 0o644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Worker.Mode {
	case ModeInProcess:
	case ModeProcess:
		if c.Worker.Command == "" {
			return &ConfigError{Field: "worker.command", Message: "required when worker.mode is process"}
		}
	default:
		return &ConfigError{Field: "worker.mode", Message: fmt.Sprintf("unknown mode %q", c.Worker.Mode)}
	}
	if c.Worker.IdleTimeoutMs < 0 {
		return &ConfigError{Field: "worker.idleTimeoutMs", Message: "must not be negative"}
	}
	if c.Worker.RequestTimeoutMs < 0 {
		return &ConfigError{Field: "worker.requestTimeoutMs", Message: "must not be negative"}
	}
	if c.Diagnostics.DebounceMs < 0 {
		return &ConfigError{Field: "diagnostics.debounceMs", Message: "must not be negative"}
	}
	if c.Format.TabSize <= 0 {
		return &ConfigError{Field: "format.tabSize", Message: "must be positive"}
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return &ConfigError{Field: "logging.level", Message: fmt.Sprintf("unknown level %q", c.Logging.Level)}
	}
	switch c.Logging.Format {
	case "", "human", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: fmt.Sprintf("unknown format %q", c.Logging.Format)}
	}
	for id, lc := range c.Languages {
		if t, ok := lc.CompilerOptions["target"]; ok {
			if _, err := engine.ParseScriptTarget(t); err != nil {
				return &ConfigError{Field: "languages." + id + ".compilerOptions.target", Message: err.Error()}
			}
		}
	}
	return nil
}

// ExtraLibContents reads the extra library files of a language. Relative
// paths are resolved against the configuration root; the returned map is
// keyed by the path as configured.
func (c *Config) ExtraLibContents(language string) (map[string]string, error) {
	out := map[string]string{}
	for _, p := range c.Languages[language].ExtraLibs {
		full := p
		if !filepath.IsAbs(full) {
			full = filepath.Join(c.Root, full)
		}
		b, err := os.ReadFile(full)
		if err != nil {
			return nil, fmt.Errorf("extra lib %s: %w", p, err)
		}
		out[p] = string(b)
	}
	return out, nil
}

// Apply pushes a language's settings into d as a single change.
func (c *Config) Apply(language string, d *defaults.Defaults) error {
	libs, err := c.ExtraLibContents(language)
	if err != nil {
		return err
	}
	lc := c.Languages[language]
	d.Replace(engine.CompilerOptions(lc.CompilerOptions), libs, lc.Diagnostics)
	return nil
}

// knownOptions restores the case of compiler option names, which viper
// folds to lower case.
var knownOptions = func() map[string]string {
	names := []string{
		"allowJs", "allowNonTsExtensions", "checkJs", "declaration", "experimentalDecorators",
		"jsx", "lib", "module", "moduleResolution", "newLine", "noEmit", "noEmitOnError",
		"noImplicitAny", "noLib", "outDir", "removeComments", "sourceMap", "strict", "target",
	}
	m := make(map[string]string, len(names))
	for _, n := range names {
		m[strings.ToLower(n)] = n
	}
	return m
}()

func canonicalOptions(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		if name, ok := knownOptions[strings.ToLower(k)]; ok {
			k = name
		}
		out[k] = v
	}
	return out
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
