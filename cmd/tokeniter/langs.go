package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/tokeniter/internal/config"
)

func newLangsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "langs",
		Short: "List the available lexers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, name := range a.registry.Languages() {
				l, _ := a.registry.GetByLanguage(name)
				fmt.Fprintf(out, "%-10s %s\n", name, strings.Join(l.FileExtensions(), " "))
			}
			return nil
		},
	}
}

func newConfigCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cfg.Encode(cmd.OutOrStdout(), config.Format(format))
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(config.FormatTOML), "output format (toml|yaml)")
	return cmd
}
