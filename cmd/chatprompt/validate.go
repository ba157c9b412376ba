package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var errValidation = errors.New("some manifests failed validation")

func (a *app) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Parse every manifest in the prompts directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := a.registry()
			if err != nil {
				return err
			}
			names, err := reg.List(cmd.Context())
			if err != nil {
				return err
			}
			env := a.v.GetString("env")
			out := cmd.OutOrStdout()
			failed := 0
			for _, name := range names {
				if _, err := reg.GetTemplate(cmd.Context(), name, env); err != nil {
					failed++
					a.logger.Error().Err(err).Str("name", name).Msg("invalid manifest")
					fmt.Fprintf(out, "FAIL %s: %v\n", name, err)
					continue
				}
				fmt.Fprintf(out, "ok   %s\n", name)
			}
			if failed > 0 {
				return fmt.Errorf("%w: %d of %d", errValidation, failed, len(names))
			}
			return nil
		},
	}
}
