package cmd

import (
	"github.com/spf13/cobra"

	"github.com/emaland/gpulaunch/internal/offer"
)

func addCriteriaFlags(cmd *cobra.Command, c *offer.Criteria) {
	d := offer.DefaultCriteria()
	cmd.Flags().StringVar(&c.GPUName, "gpu_name", d.GPUName, "GPU model, e.g. RTX_3090")
	cmd.Flags().Float64Var(&c.MinReliability, "reliability", d.MinReliability, "Minimum host reliability (0-1, exclusive)")
	cmd.Flags().IntVar(&c.NumGPUs, "num_gpus", d.NumGPUs, "Number of GPUs")
	cmd.Flags().IntVar(&c.MinRAMGB, "min_ram_gb", d.MinRAMGB, "Minimum system RAM (GB)")
	cmd.Flags().Float64Var(&c.MaxUSDPerHour, "max_usd_per_hr", d.MaxUSDPerHour, "Max price $/hr")
}

func newTryLaunchCmd() *cobra.Command {
	var criteria offer.Criteria

	cmd := &cobra.Command{
		Use:   "try_launch",
		Short: "Launch an instance on the first offer under the price ceiling",
		Long: `Search the marketplace, drop offers above --max_usd_per_hr and launch the
first remaining one. Prints {"result": "<instance id>"} or {"result": null}.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := criteria.Validate(); err != nil {
				return err
			}
			res := launcher.TryLaunch(cmd.Context(), criteria)
			handle, ok := res.LaunchedHandle()
			if !ok {
				return printResult(cmd.OutOrStdout(), nil)
			}
			return printResult(cmd.OutOrStdout(), handle.String())
		},
	}
	addCriteriaFlags(cmd, &criteria)
	return cmd
}
