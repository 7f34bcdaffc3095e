package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"IrrigationSentinel/internal/render"
)

func paramsCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "params",
		Short: "Print the effective parameter set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, *cfgPath)
			if err != nil {
				return err
			}
			p, err := cfg.Parameters()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.Parameters(p))
			return nil
		},
	}
	addParameterFlags(cmd)
	return cmd
}
