package main

import (
	"errors"
	"fmt"
	"iter"

	"github.com/spf13/cobra"

	"github.com/dshills/tokeniter/internal/token"
	"github.com/dshills/tokeniter/internal/tokeniter"
)

func newWalkCmd(a *app) *cobra.Command {
	var (
		back     bool
		count    int
		lineOnly bool
	)
	cmd := &cobra.Command{
		Use:   "walk FILE POS",
		Short: "Step a token runner forward or backward from a position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.openFile(args[0])
			if err != nil {
				return err
			}
			defer c.Close()

			pos, err := parsePos(c.Document(), args[1])
			if err != nil {
				return err
			}
			r, err := tokeniter.NewRunnerAt(c, pos)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if t, err := r.Token(); err == nil {
				fmt.Fprint(out, "* ")
				writeToken(out, newTokenRecord(r.Line(), t))
			} else if !errors.Is(err, tokeniter.ErrNoCurrentToken) {
				return err
			}

			var steps iter.Seq[token.Token]
			switch {
			case back && lineOnly:
				steps = r.BackwardLine()
			case back:
				steps = r.Backward()
			case lineOnly:
				steps = r.ForwardLine()
			default:
				steps = r.Forward()
			}
			n := 0
			for t := range steps {
				fmt.Fprint(out, "  ")
				writeToken(out, newTokenRecord(r.Line(), t))
				if n++; n == count {
					break
				}
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.BoolVarP(&back, "back", "b", false, "walk backward")
	f.IntVarP(&count, "count", "n", 10, "number of steps (0: to the end)")
	f.BoolVar(&lineOnly, "line", false, "stay on the starting line")
	return cmd
}
