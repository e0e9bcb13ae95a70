package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/tokeniter/internal/document"
	"github.com/dshills/tokeniter/internal/lexer"
	"github.com/dshills/tokeniter/internal/logging"
	"github.com/dshills/tokeniter/internal/tokencache"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "lazy", cfg.Cache.Propagation)
	assert.Equal(t, 64, cfg.Cache.EvictionBatch)
	assert.Equal(t, 5*time.Minute, time.Duration(cfg.Lexer.MemoTTL))
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		path string
		want Format
		err  bool
	}{
		{"a.toml", FormatTOML, false},
		{"a.TOML", FormatTOML, false},
		{"dir/a.yaml", FormatYAML, false},
		{"a.yml", FormatYAML, false},
		{"a.json", "", true},
		{"a", "", true},
	}
	for _, tt := range tests {
		got, err := FormatOf(tt.path)
		if tt.err {
			assert.True(t, errors.Is(err, ErrUnknownFormat), tt.path)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestLoadFileTOML(t *testing.T) {
	path := writeFile(t, "tokeniter.toml", `
[log]
level = "debug"

[cache]
max_lines = 500
propagation = "eager"
strict = true

[lexer]
language = "python"
scripts = ["a.lua", "b.lua"]
memoize = true
memo_ttl = "90s"
`)
	cfg := Default()
	require.NoError(t, cfg.LoadFile(path))
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Color, "absent keys keep defaults")
	assert.Equal(t, 500, cfg.Cache.MaxLines)
	assert.Equal(t, 64, cfg.Cache.EvictionBatch)
	assert.Equal(t, "eager", cfg.Cache.Propagation)
	assert.True(t, cfg.Cache.Strict)
	assert.Equal(t, "python", cfg.Lexer.Language)
	assert.Equal(t, []string{"a.lua", "b.lua"}, cfg.Lexer.Scripts)
	assert.True(t, cfg.Lexer.Memoize)
	assert.Equal(t, 90*time.Second, time.Duration(cfg.Lexer.MemoTTL))
}

func TestLoadFileYAML(t *testing.T) {
	path := writeFile(t, "tokeniter.yaml", `
log:
  color: false
cache:
  max_lines: 20
  propagation: none
lexer:
  memo_ttl: 2m
  script_timeout: 250ms
`)
	cfg := Default()
	require.NoError(t, cfg.LoadFile(path))
	require.NoError(t, cfg.Validate())

	assert.False(t, cfg.Log.Color)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 20, cfg.Cache.MaxLines)
	assert.Equal(t, "none", cfg.Cache.Propagation)
	assert.Equal(t, 2*time.Minute, time.Duration(cfg.Lexer.MemoTTL))
	assert.Equal(t, 250*time.Millisecond, time.Duration(cfg.Lexer.ScriptTimeout))
}

func TestLoadFileEmptyYAML(t *testing.T) {
	path := writeFile(t, "empty.yml", "")
	cfg := Default()
	require.NoError(t, cfg.LoadFile(path))
	assert.Equal(t, Default(), cfg)
}

func TestLoadFileErrors(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		err := Default().LoadFile(filepath.Join(t.TempDir(), "nope.toml"))
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})

	t.Run("unknown extension", func(t *testing.T) {
		err := Default().LoadFile(writeFile(t, "c.ini", "x=1"))
		assert.True(t, errors.Is(err, ErrUnknownFormat))
	})

	t.Run("bad toml", func(t *testing.T) {
		err := Default().LoadFile(writeFile(t, "c.toml", "[cache]\nmax_lines = \n"))
		var pe *ParseError
		require.True(t, errors.As(err, &pe))
		assert.Positive(t, pe.Line)
		assert.Contains(t, pe.Error(), "c.toml")
	})

	t.Run("unknown toml key", func(t *testing.T) {
		err := Default().LoadFile(writeFile(t, "c.toml", "[cache]\nsize = 3\n"))
		var pe *ParseError
		assert.True(t, errors.As(err, &pe))
	})

	t.Run("unknown yaml key", func(t *testing.T) {
		err := Default().LoadFile(writeFile(t, "c.yaml", "cache:\n  size: 3\n"))
		var pe *ParseError
		assert.True(t, errors.As(err, &pe))
	})

	t.Run("bad duration", func(t *testing.T) {
		err := Default().LoadFile(writeFile(t, "c.yaml", "lexer:\n  memo_ttl: soon\n"))
		var pe *ParseError
		assert.True(t, errors.As(err, &pe))
	})
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvName("log.level"):         "warn",
		EnvName("cache.max_lines"):   "7",
		EnvName("cache.propagation"): "NONE",
		EnvName("cache.strict"):      "yes",
		EnvName("lexer.scripts"):     strings.Join([]string{"x.lua", "y.lua"}, string(os.PathListSeparator)),
		EnvName("lexer.memo_ttl"):    "1s",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(lookup))
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 7, cfg.Cache.MaxLines)
	assert.Equal(t, "NONE", cfg.Cache.Propagation)
	assert.True(t, cfg.Cache.Strict)
	assert.Equal(t, []string{"x.lua", "y.lua"}, cfg.Lexer.Scripts)
	assert.Equal(t, time.Second, time.Duration(cfg.Lexer.MemoTTL))
}

func TestApplyEnvErrors(t *testing.T) {
	env := map[string]string{
		"TOKENITER_CACHE_MAX_LINES": "many",
		"TOKENITER_LOG_COLOR":       "maybe",
	}
	cfg := Default()
	err := cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidationFailed))
	assert.Contains(t, err.Error(), "cache.max_lines")
	assert.Contains(t, err.Error(), "log.color")
}

func TestLoadPrecedence(t *testing.T) {
	path := writeFile(t, "tokeniter.toml", "[cache]\nmax_lines = 10\nstrict = true\n")
	t.Setenv("TOKENITER_CACHE_MAX_LINES", "30")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Cache.MaxLines, "environment beats file")
	assert.True(t, cfg.Cache.Strict, "file beats default")
}

func TestLoadValidates(t *testing.T) {
	t.Setenv("TOKENITER_CACHE_PROPAGATION", "sometimes")
	_, err := Load("")
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "cache.propagation", ve.Path)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "loud"
	cfg.Cache.MaxLines = -1
	cfg.Cache.Propagation = "eventually"
	cfg.Lexer.MemoTTL = Duration(-time.Second)
	cfg.Lexer.Scripts = []string{""}

	err := cfg.Validate()
	require.Error(t, err)
	for _, path := range []string{"log.level", "cache.max_lines", "cache.propagation", "lexer.memo_ttl", "lexer.scripts[0]"} {
		assert.Contains(t, err.Error(), path)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	for _, format := range []Format{FormatTOML, FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			want := Default()
			want.Cache.MaxLines = 12
			want.Lexer.Scripts = []string{"a.lua"}
			want.Lexer.MemoTTL = Duration(3 * time.Second)

			var buf bytes.Buffer
			require.NoError(t, want.Encode(&buf, format))
			assert.Contains(t, buf.String(), "max_lines")

			got := &Config{}
			require.NoError(t, got.Decode("buffer", &buf, format))
			assert.Equal(t, want, got)
		})
	}
}

func TestDerivedSettings(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "error"
	cfg.Log.Color = false
	lc := cfg.Logging()
	assert.Equal(t, logging.LevelError, lc.Level)
	assert.False(t, lc.Color)

	l, ok := lexer.DefaultRegistry().GetByLanguage("go")
	require.True(t, ok)
	assert.Equal(t, l, cfg.Decorate(l))

	cfg.Lexer.Memoize = true
	m, ok := cfg.Decorate(l).(*lexer.MemoLexer)
	require.True(t, ok)
	assert.Equal(t, l, m.Unwrap())

	cfg.Cache.Propagation = "eager"
	c, err := tokencache.New(document.New("x"), l, cfg.CacheOptions()...)
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, tokencache.PropagateEager, c.Policy())
}
