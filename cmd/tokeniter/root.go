package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dshills/tokeniter/internal/config"
	"github.com/dshills/tokeniter/internal/document"
	"github.com/dshills/tokeniter/internal/lexer"
	"github.com/dshills/tokeniter/internal/lexer/lua"
	"github.com/dshills/tokeniter/internal/logging"
	"github.com/dshills/tokeniter/internal/tokencache"
)

// rootOptions holds the persistent flags.
type rootOptions struct {
	configPath string
	logLevel   string
	language   string
	scripts    []string
	color      string
}

// app is the state shared by all subcommands, built before any of them
// runs.
type app struct {
	cfg      *config.Config
	log      *logging.Logger
	registry *lexer.Registry
	scripts  []*lua.Lexer
	color    bool
}

// newRootCmd builds the command tree. The returned app must be closed once
// the command has run, whether or not it failed.
func newRootCmd() (*cobra.Command, *app) {
	opts := &rootOptions{}
	a := &app{}

	root := &cobra.Command{
		Use:          "tokeniter",
		Short:        "Incremental line tokenizer and token iterators",
		Long:         `tokeniter lexes files line by line through a token cache and walks the cached tokens by position, selection or cursor.`,
		Version:      fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd, opts)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "config file (.toml, .yaml or .yml)")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level (debug|info|warn|error)")
	pf.StringVarP(&opts.language, "lang", "l", "", "lexer language (default: by file extension)")
	pf.StringSliceVar(&opts.scripts, "script", nil, "Lua lexer script to register (repeatable)")
	pf.StringVar(&opts.color, "color", "auto", "colorize output (auto|on|off)")

	root.AddCommand(
		newTokensCmd(a),
		newAtCmd(a),
		newFromCmd(a),
		newSelectCmd(a),
		newWalkCmd(a),
		newWatchCmd(a),
		newLangsCmd(a),
		newConfigCmd(a),
	)
	return root, a
}

// setup loads the configuration, applies flag overrides and registers the
// configured Lua lexers.
func (a *app) setup(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	if flags.Changed("lang") {
		cfg.Lexer.Language = opts.language
	}
	cfg.Lexer.Scripts = append(cfg.Lexer.Scripts, opts.scripts...)

	switch opts.color {
	case "on":
		a.color = true
	case "off":
		a.color = false
	case "auto":
		a.color = isTerminal(cmd.OutOrStdout())
	default:
		return fmt.Errorf("invalid --color %q (want auto, on or off)", opts.color)
	}
	color.NoColor = !a.color
	if flags.Changed("color") {
		cfg.Log.Color = a.color
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	lc := cfg.Logging()
	lc.Output = cmd.ErrOrStderr()
	a.log = logging.New(lc)

	a.registry = lexer.DefaultRegistry()
	for _, path := range cfg.Lexer.Scripts {
		lx, err := lua.Load(path,
			lua.WithTimeout(time.Duration(cfg.Lexer.ScriptTimeout)),
			lua.WithLogger(a.log),
		)
		if err != nil {
			a.close()
			return err
		}
		a.scripts = append(a.scripts, lx)
		a.registry.Register(lx)
		a.log.Debug("registered %s lexer from %s", lx.Language(), path)
	}
	return nil
}

// close releases the Lua lexers loaded by setup.
func (a *app) close() {
	for _, lx := range a.scripts {
		if n := lx.Failures(); n > 0 {
			a.log.Warn("%s lexer failed on %d lines: %v", lx.Language(), n, lx.Err())
		}
		_ = lx.Close()
	}
	a.scripts = nil
}

// openFile reads path into a document and attaches a token cache using the
// configured lexer.
func (a *app) openFile(path string) (*tokencache.Cache, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return a.openText(path, string(data))
}

func (a *app) openText(path, text string) (*tokencache.Cache, error) {
	lx, err := a.registry.Lookup(a.cfg.Lexer.Language, path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc := document.New(text)
	opts := append(a.cfg.CacheOptions(),
		tokencache.WithLogger(a.log.WithField("file", filepath.Base(path))))
	return tokencache.New(doc, a.cfg.Decorate(lx), opts...)
}

// parsePos parses a document position given as a byte offset ("120") or
// as a 1-based line and 0-based byte column ("4:2").
func parsePos(doc *document.Document, s string) (document.ByteOffset, error) {
	lineStr, colStr, ok := strings.Cut(s, ":")
	if !ok {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid position %q", s)
		}
		return n, nil
	}
	line, err := strconv.Atoi(lineStr)
	if err != nil || line < 1 || line > doc.LineCount() {
		return 0, fmt.Errorf("invalid line in position %q", s)
	}
	col, err := strconv.Atoi(colStr)
	l := doc.Line(line - 1)
	if err != nil || col < 0 || col > l.Len() {
		return 0, fmt.Errorf("invalid column in position %q", s)
	}
	return l.Position() + document.ByteOffset(col), nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
