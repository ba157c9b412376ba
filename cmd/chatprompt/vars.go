package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

func (a *app) varsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vars <name|file.yaml>",
		Short: "List the variables a prompt expects",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tpl, err := a.load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, name := range tpl.InputVariables() {
				fmt.Fprintln(out, name)
			}
			for _, name := range tpl.OptionalVariables() {
				fmt.Fprintf(out, "%s (optional)\n", name)
			}
			partials := tpl.PartialVariables()
			keys := make([]string, 0, len(partials))
			for k := range partials {
				keys = append(keys, k)
			}
			slices.Sort(keys)
			for _, k := range keys {
				fmt.Fprintf(out, "%s (partial)\n", k)
			}
			return nil
		},
	}
}
