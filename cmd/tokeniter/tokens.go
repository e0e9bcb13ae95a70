package main

import (
	"fmt"
	"runtime"

	"github.com/davecgh/go-spew/spew"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/tokeniter/internal/tokencache"
	"github.com/dshills/tokeniter/internal/tokeniter"
)

type tokensOptions struct {
	line   int
	format string
	kind   string
	dump   bool
	stats  bool
	jobs   int
}

func newTokensCmd(a *app) *cobra.Command {
	opts := &tokensOptions{}
	cmd := &cobra.Command{
		Use:   "tokens [flags] FILE...",
		Short: "Print the tokens of one or more files",
		Long: `Tokens lexes each file through a token cache and prints its tokens.
Files are processed concurrently, each with its own document and cache.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTokens(cmd, args, opts)
		},
	}
	f := cmd.Flags()
	f.IntVar(&opts.line, "line", 0, "only print this line (1-based)")
	f.StringVarP(&opts.format, "format", "f", "text", "output format (text|yaml|msgpack)")
	f.StringVarP(&opts.kind, "kind", "k", "", "only print tokens whose type fuzzily matches")
	f.BoolVar(&opts.dump, "dump", false, "dump the raw records and cache statistics")
	f.BoolVar(&opts.stats, "stats", false, "log cache statistics per file")
	f.IntVarP(&opts.jobs, "jobs", "j", 0, "files lexed in parallel (default: GOMAXPROCS)")
	return cmd
}

func (a *app) runTokens(cmd *cobra.Command, paths []string, opts *tokensOptions) error {
	jobs := opts.jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	records := make([]fileRecord, len(paths))
	stats := make([]tokencache.Stats, len(paths))

	g, gctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(min(jobs, len(paths)))
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c, err := a.openFile(path)
			if err != nil {
				return err
			}
			defer c.Close()

			rec, err := collectTokens(c, path, opts)
			if err != nil {
				return err
			}
			records[i] = rec
			stats[i] = c.Stats()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.stats {
		for i, s := range stats {
			a.log.Info("%s: %d lines lexed, %d cached, hit rate %.2f", paths[i], s.Lexed, s.Lines, s.HitRate)
		}
	}
	if opts.dump {
		spew.Fdump(out, records, stats)
		return nil
	}
	return writeFiles(out, opts.format, records)
}

// collectTokens gathers the tokens of one file, honouring the line and
// kind filters.
func collectTokens(c *tokencache.Cache, path string, opts *tokensOptions) (fileRecord, error) {
	doc := c.Document()
	rec := fileRecord{
		Path:     path,
		Language: c.Lexer().Language(),
		Lines:    doc.LineCount(),
	}
	keep := func(typ string) bool {
		return opts.kind == "" || fuzzy.MatchNormalizedFold(opts.kind, typ)
	}

	if opts.line != 0 {
		if opts.line < 1 || opts.line > doc.LineCount() {
			return rec, fmt.Errorf("%s: line %d out of range 1-%d", path, opts.line, doc.LineCount())
		}
		line := doc.Line(opts.line - 1)
		for _, t := range c.Tokens(line) {
			if keep(t.Type.String()) {
				rec.Tokens = append(rec.Tokens, newTokenRecord(line, t))
			}
		}
		rec.EndState = c.EndState(line).Key()
		return rec, nil
	}

	for line, t := range tokeniter.AllTokens(c) {
		if keep(t.Type.String()) {
			rec.Tokens = append(rec.Tokens, newTokenRecord(line, t))
		}
	}
	rec.EndState = c.EndState(doc.Last()).Key()
	return rec, nil
}
