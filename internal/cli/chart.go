package cli

import (
	"github.com/spf13/cobra"

	"session-vwap/internal/app"
)

var (
	chartOutput string
	chartTitle  string
)

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Render close, VWAP, bands, volume and labels for a session window",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ChartOptions{
			FilterOptions: filterOptions(cmd, chartOutput),
			Title:         chartTitle,
		}
		return getApp().Chart(cmd.Context(), opts)
	},
}

func init() {
	addWindowFlags(chartCmd)
	chartCmd.Flags().StringVarP(&chartOutput, "output", "o", "", "Output PNG (defaults to chart.output)")
	chartCmd.Flags().StringVar(&chartTitle, "title", "", "Chart title")
}
