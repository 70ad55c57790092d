package main

import (
	"github.com/spf13/cobra"
)

func newPoolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "pool v2|v3",
		Short:     "Print a pool snapshot as JSON, suitable for --pool-file",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"v2", "v3"},
		RunE: func(cmd *cobra.Command, args []string) error {
			protocol, err := protocolArg(args[0])
			if err != nil {
				return err
			}
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.sync()
			state, err := loadPool(cmd.Context(), cmd, e, protocol)
			if err != nil {
				return err
			}
			return printJSON(cmd, state)
		},
	}
	addPoolFlags(cmd)
	return cmd
}
