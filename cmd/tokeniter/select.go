package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/tokeniter/internal/document"
	"github.com/dshills/tokeniter/internal/tokeniter"
)

func newSelectCmd(a *app) *cobra.Command {
	var strict, withState bool
	cmd := &cobra.Command{
		Use:   "select FILE START END",
		Short: "Print the tokens within a selection",
		Long: `Select prints the tokens between two positions, each given as a byte
offset or LINE:COL. By default tokens overlapping either end are included;
with --strict only tokens lying entirely inside the selection are.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.openFile(args[0])
			if err != nil {
				return err
			}
			defer c.Close()

			doc := c.Document()
			start, err := parsePos(doc, args[1])
			if err != nil {
				return err
			}
			end, err := parsePos(doc, args[2])
			if err != nil {
				return err
			}
			sel := document.NewSelection(start, end)

			src, err := tokeniter.SourceSelection(c, sel, withState, !strict)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for t := range src.All() {
				fmt.Fprintf(out, "%s\t", src.Cursor(t, 0, -1))
				writeToken(out, newTokenRecord(src.Line(), t))
			}
			if withState {
				fmt.Fprintf(out, "state: %s\n", stateColor.Sprint(src.State().Key()))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "only tokens entirely inside the selection")
	cmd.Flags().BoolVar(&withState, "state", false, "print the lexer state after the last token")
	return cmd
}
