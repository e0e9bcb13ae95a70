package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TOKENITER_"

// envSetting binds one environment variable to a setting.
type envSetting struct {
	path string
	set  func(c *Config, v string) error
}

// envSettings maps TOKENITER_LOG_LEVEL style names to settings.
var envSettings = map[string]envSetting{
	"LOG_LEVEL": {"log.level", func(c *Config, v string) error {
		c.Log.Level = v
		return nil
	}},
	"LOG_COLOR": {"log.color", func(c *Config, v string) error {
		return parseBool(v, &c.Log.Color)
	}},
	"CACHE_MAX_LINES": {"cache.max_lines", func(c *Config, v string) error {
		return parseInt(v, &c.Cache.MaxLines)
	}},
	"CACHE_EVICTION_BATCH": {"cache.eviction_batch", func(c *Config, v string) error {
		return parseInt(v, &c.Cache.EvictionBatch)
	}},
	"CACHE_PROPAGATION": {"cache.propagation", func(c *Config, v string) error {
		c.Cache.Propagation = v
		return nil
	}},
	"CACHE_STRICT": {"cache.strict", func(c *Config, v string) error {
		return parseBool(v, &c.Cache.Strict)
	}},
	"LEXER_LANGUAGE": {"lexer.language", func(c *Config, v string) error {
		c.Lexer.Language = v
		return nil
	}},
	"LEXER_SCRIPTS": {"lexer.scripts", func(c *Config, v string) error {
		c.Lexer.Scripts = filepath.SplitList(v)
		return nil
	}},
	"LEXER_MEMOIZE": {"lexer.memoize", func(c *Config, v string) error {
		return parseBool(v, &c.Lexer.Memoize)
	}},
	"LEXER_MEMO_TTL": {"lexer.memo_ttl", func(c *Config, v string) error {
		return c.Lexer.MemoTTL.UnmarshalText([]byte(v))
	}},
	"LEXER_SCRIPT_TIMEOUT": {"lexer.script_timeout", func(c *Config, v string) error {
		return c.Lexer.ScriptTimeout.UnmarshalText([]byte(v))
	}},
}

// EnvName returns the environment variable overriding the dotted setting
// path, e.g. "cache.max_lines" -> "TOKENITER_CACHE_MAX_LINES".
func EnvName(path string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(path, ".", "_"))
}

// ApplyEnv overlays settings from environment variables found by lookup.
// Empty values are treated as set. A malformed value is reported as a
// *ValidationError naming the setting.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	for name, s := range envSettings {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			continue
		}
		if err := s.set(c, v); err != nil {
			errs = append(errs, &ValidationError{
				Path:    s.path,
				Message: fmt.Sprintf("bad value in %s%s: %v", EnvPrefix, name, err),
				Value:   v,
			})
		}
	}
	return errors.Join(errs...)
}

func parseBool(s string, dst *bool) error {
	switch strings.ToLower(s) {
	case "true", "yes", "on", "1":
		*dst = true
	case "false", "no", "off", "0", "":
		*dst = false
	default:
		return fmt.Errorf("not a boolean: %q", s)
	}
	return nil
}

func parseInt(s string, dst *int) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}
