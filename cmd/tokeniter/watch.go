package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/tokeniter/internal/reload"
	"github.com/dshills/tokeniter/internal/tokencache"
)

func newWatchCmd(a *app) *cobra.Command {
	var delay time.Duration
	cmd := &cobra.Command{
		Use:   "watch FILE",
		Short: "Re-tokenize a file incrementally as it changes on disk",
		Long: `Watch keeps a file's document and token cache alive. Each time the file
is saved only the changed lines are replaced, and the cache reports how many
lines had to be lexed again.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			c, err := a.openFile(path)
			if err != nil {
				return err
			}
			defer c.Close()

			r, err := reload.New(c.Document(), path,
				reload.WithDelay(delay),
				reload.WithLogger(a.log),
			)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			prev := retokenize(c)
			fmt.Fprintf(out, "%s: %d lines, %d lexed\n", path, prev.Lines, prev.Lexed)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return r.Watch(ctx, func(res reload.Result) {
				s := retokenize(c)
				fmt.Fprintf(out, "revision %d: %d edits (-%d +%d bytes), %d lexed, %d reverified, %d lines\n",
					res.Revision, res.Edits, res.Removed, res.Inserted,
					s.Lexed-prev.Lexed, s.Reverified-prev.Reverified, c.Document().LineCount())
				prev = s
			})
		},
	}
	cmd.Flags().DurationVar(&delay, "delay", reload.DefaultDelay, "coalesce file events for this long")
	return cmd
}

// retokenize reads every line through the cache and returns its statistics.
func retokenize(c *tokencache.Cache) tokencache.Stats {
	for line := range c.Document().Lines() {
		c.Tokens(line)
	}
	return c.Stats()
}
