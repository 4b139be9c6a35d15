package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLaunchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "launch <offer-id>",
		Short: "Launch an instance on a specific offer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return launchOffer(cmd, args[0])
		},
	}
}

func launchOffer(cmd *cobra.Command, offerID string) error {
	entry := logger.WithField("offer", offerID)
	entry.Info("launching")

	handle, err := launcher.Market().Launch(cmd.Context(), offerID)
	if err != nil {
		return fmt.Errorf("launching offer %s: %w", offerID, err)
	}

	entry.WithField("handle", handle).Info("launched")
	return printResult(cmd.OutOrStdout(), handle.String())
}
