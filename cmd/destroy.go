package cmd

import (
	"github.com/spf13/cobra"

	"github.com/emaland/gpulaunch/internal/offer"
)

func newDestroyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "destroy <machine_id>",
		Short: "Destroy an instance",
		Long:  `Destroy an instance. Prints {"result": true} when the marketplace confirms it.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res := launcher.Destroy(cmd.Context(), offer.Handle(args[0]))
			return printResult(cmd.OutOrStdout(), res.OK)
		},
	}
}
