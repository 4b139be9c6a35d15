package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/emaland/gpulaunch/internal/offer"
)

func newSearchCmd() *cobra.Command {
	var (
		criteria offer.Criteria
		columns  string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "List offers under the price ceiling without launching",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := criteria.Validate(); err != nil {
				return err
			}
			offers, err := launcher.Offers(cmd.Context(), criteria)
			if err != nil {
				return err
			}
			return printOffers(cmd, offers, columns, limit)
		},
	}

	addCriteriaFlags(cmd, &criteria)
	cmd.Flags().StringVar(&columns, "columns", "", "Comma-separated columns to show (default: all)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Max rows to display")

	return cmd
}

func printOffers(cmd *cobra.Command, offers []offer.Offer, columns string, limit int) error {
	out := cmd.OutOrStdout()
	if len(offers) == 0 {
		fmt.Fprintln(out, "No offers match the given filters.")
		return nil
	}

	cols := offers[0].Columns
	if columns != "" {
		cols = strings.Split(columns, ",")
	}
	if limit > 0 && len(offers) > limit {
		offers = offers[:limit]
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(cols, "\t"))
	for _, o := range offers {
		row := make([]string, len(cols))
		for i, c := range cols {
			row[i] = o.Get(strings.TrimSpace(c))
			if row[i] == "" {
				row[i] = "-"
			}
		}
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	return w.Flush()
}
