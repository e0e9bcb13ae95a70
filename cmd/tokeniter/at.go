package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/tokeniter/internal/tokeniter"
)

func newAtCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "at FILE POS",
		Short: "Show the token index, partition and lexer state at a position",
		Long: `At locates a position, given as a byte offset or LINE:COL, and shows
the index of the token under it, how the line's tokens split around it and
the lexer state there.`,
		Args: cobra.ExactArgs(2),
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
			line, p, err := tokeniter.PartitionAt(c, pos)
			if err != nil {
				return err
			}
			_, index, _ := tokeniter.IndexAt(c, pos)
			col := int(pos - line.Position())

			out := cmd.OutOrStdout()
			writeCaret(out, line, col)
			fmt.Fprintf(out, "position: %d (line %d, column %d)\n", pos, line.Index()+1, col)
			fmt.Fprintf(out, "index:    %d of %d\n", index, len(c.Tokens(line)))
			fmt.Fprintf(out, "left:     %s\n", tokenTexts(p.Left))
			if p.Middle != nil {
				fmt.Fprintf(out, "middle:   %q\n", p.Middle.Text)
			}
			fmt.Fprintf(out, "right:    %s\n", tokenTexts(p.Right))

			// The state at pos is the line's start state followed through
			// every token ending at or before pos.
			state := c.StateAtStart(line)
			fmt.Fprintf(out, "line state: %s\n", stateColor.Sprint(state.Key()))
			for _, t := range p.Left {
				state.Follow(t)
			}
			fmt.Fprintf(out, "state:      %s\n", stateColor.Sprint(state.Key()))

			r, err := tokeniter.NewRunnerAt(c, pos)
			if err != nil {
				return err
			}
			tok, err := r.Token()
			switch {
			case errors.Is(err, tokeniter.ErrNoCurrentToken):
				fmt.Fprintln(out, "token:    none")
			case err != nil:
				return err
			default:
				sel, _ := r.Cursor(0, -1)
				fmt.Fprintf(out, "token:    %s %q at %s\n", typeColor.Sprint(tok.Type), tok.Text, sel)
			}
			return nil
		},
	}
}
