package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/tokeniter/internal/tokeniter"
)

var boundaries = map[string]tokeniter.Boundary{
	tokeniter.StartAfter.String():       tokeniter.StartAfter,
	tokeniter.StartOverlapping.String(): tokeniter.StartOverlapping,
	tokeniter.StartTouching.String():    tokeniter.StartTouching,
}

func newFromCmd(a *app) *cobra.Command {
	var (
		boundary string
		lines    int
	)
	cmd := &cobra.Command{
		Use:   "from FILE POS",
		Short: "Print the tokens from a position to the end of the file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, ok := boundaries[boundary]
			if !ok {
				return fmt.Errorf("invalid --boundary %q (want after, overlapping or touching)", boundary)
			}
			c, err := a.openFile(args[0])
			if err != nil {
				return err
			}
			defer c.Close()

			pos, err := parsePos(c.Document(), args[1])
			if err != nil {
				return err
			}
			first, err := c.Document().FindLine(pos)
			if err != nil {
				return err
			}
			window, err := tokeniter.FromPosition(c, pos, c.StateAtStart(first), b)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			n := 0
			for lt := range window.All() {
				fmt.Fprintf(out, "line %d, state %s\n", lt.Line().Index()+1, stateColor.Sprint(window.Tracker().Key()))
				for t := range lt.All() {
					writeToken(out, newTokenRecord(lt.Line(), t))
				}
				if n++; n == lines {
					break
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&boundary, "boundary", "b", "after", "first-line tokens to include (after|overlapping|touching)")
	cmd.Flags().IntVarP(&lines, "lines", "n", 0, "stop after this many lines (0: all)")
	return cmd
}
