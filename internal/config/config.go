// Package config loads the token engine's settings from a TOML or YAML
// file and TOKENITER_* environment variables.
//
// Precedence, lowest first: built-in defaults, the config file, the
// environment. Command-line flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dshills/tokeniter/internal/lexer"
	"github.com/dshills/tokeniter/internal/logging"
	"github.com/dshills/tokeniter/internal/tokencache"
)

// Config is the complete set of settings.
type Config struct {
	Log   LogConfig   `toml:"log" yaml:"log"`
	Cache CacheConfig `toml:"cache" yaml:"cache"`
	Lexer LexerConfig `toml:"lexer" yaml:"lexer"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level string `toml:"level" yaml:"level"`
	Color bool   `toml:"color" yaml:"color"`
}

// CacheConfig configures the line token cache.
type CacheConfig struct {
	// MaxLines bounds the cached lines; 0 means unbounded.
	MaxLines int `toml:"max_lines" yaml:"max_lines"`
	// EvictionBatch is the number of extra lines dropped per eviction.
	EvictionBatch int `toml:"eviction_batch" yaml:"eviction_batch"`
	// Propagation is one of "none", "lazy" or "eager".
	Propagation string `toml:"propagation" yaml:"propagation"`
	Strict      bool   `toml:"strict" yaml:"strict"`
}

// LexerConfig selects and decorates the lexer.
type LexerConfig struct {
	// Language forces a lexer; empty means choose by file extension.
	Language string `toml:"language" yaml:"language"`
	// Scripts are Lua lexer files registered before lookup.
	Scripts []string `toml:"scripts" yaml:"scripts"`
	Memoize bool     `toml:"memoize" yaml:"memoize"`
	MemoTTL Duration `toml:"memo_ttl" yaml:"memo_ttl"`
	// ScriptTimeout bounds each call into a Lua lexer.
	ScriptTimeout Duration `toml:"script_timeout" yaml:"script_timeout"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level: "info",
			Color: true,
		},
		Cache: CacheConfig{
			EvictionBatch: tokencache.DefaultConfig().EvictionBatchSize,
			Propagation:   tokencache.PropagateLazy.String(),
		},
		Lexer: LexerConfig{
			MemoTTL:       Duration(5 * time.Minute),
			ScriptTimeout: Duration(time.Second),
		},
	}
}

// Validate checks every setting. It returns all violations joined; each is
// a *ValidationError.
func (c *Config) Validate() error {
	var errs []error
	bad := func(path, msg string, v any) {
		errs = append(errs, &ValidationError{Path: path, Message: msg, Value: v})
	}

	if _, ok := logging.ParseLevel(c.Log.Level); !ok {
		bad("log.level", "must be debug, info, warn or error", c.Log.Level)
	}
	if c.Cache.MaxLines < 0 {
		bad("cache.max_lines", "must not be negative", c.Cache.MaxLines)
	}
	if c.Cache.EvictionBatch < 0 {
		bad("cache.eviction_batch", "must not be negative", c.Cache.EvictionBatch)
	}
	if _, err := tokencache.ParsePropagation(c.Cache.Propagation); err != nil {
		bad("cache.propagation", "must be none, lazy or eager", c.Cache.Propagation)
	}
	if c.Lexer.MemoTTL < 0 {
		bad("lexer.memo_ttl", "must not be negative", c.Lexer.MemoTTL)
	}
	if c.Lexer.ScriptTimeout < 0 {
		bad("lexer.script_timeout", "must not be negative", c.Lexer.ScriptTimeout)
	}
	for i, s := range c.Lexer.Scripts {
		if s == "" {
			bad(fmt.Sprintf("lexer.scripts[%d]", i), "must not be empty", s)
		}
	}
	return errors.Join(errs...)
}

// Logging returns the logger configuration. The config must be valid.
func (c *Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level, _ = logging.ParseLevel(c.Log.Level)
	cfg.Color = c.Log.Color
	return cfg
}

// CacheOptions returns the options for tokencache.New. The config must be
// valid.
func (c *Config) CacheOptions() []tokencache.Option {
	p, _ := tokencache.ParsePropagation(c.Cache.Propagation)
	return []tokencache.Option{
		tokencache.WithConfig(tokencache.Config{
			MaxLines:          c.Cache.MaxLines,
			EvictionBatchSize: c.Cache.EvictionBatch,
			Propagation:       p,
			Strict:            c.Cache.Strict,
		}),
	}
}

// Decorate applies the configured lexer decorators to l.
func (c *Config) Decorate(l lexer.Lexer) lexer.Lexer {
	if !c.Lexer.Memoize {
		return l
	}
	return lexer.Memoize(l, time.Duration(c.Lexer.MemoTTL))
}

// Duration is a time.Duration written as a string such as "90s" in config
// files.
type Duration time.Duration

// String implements fmt.Stringer.
func (d Duration) String() string {
	return time.Duration(d).String()
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
	*d = Duration(v)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}
