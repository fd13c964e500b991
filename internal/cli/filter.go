package cli

import (
	"github.com/spf13/cobra"

	"session-vwap/internal/app"
)

var (
	filterInput  string
	filterDate   string
	filterDays   int
	filterOutput string
)

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Extract the sessions ending at --date from an enriched table",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Filter(cmd.Context(), filterOptions(cmd, filterOutput))
	},
}

// filterOptions falls back to filter.days when --days is not given.
func filterOptions(cmd *cobra.Command, output string) app.FilterOptions {
	days := getApp().Config.Filter.Days
	if cmd.Flags().Changed("days") {
		days = filterDays
	}
	return app.FilterOptions{
		Input:  filterInput,
		Date:   filterDate,
		Days:   days,
		Output: output,
	}
}

func addWindowFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&filterInput, "input", "", "Enriched table (defaults to the analyze output)")
	cmd.Flags().StringVar(&filterDate, "date", "", "Last session of the window, YYYY-MM-DD")
	cmd.Flags().IntVar(&filterDays, "days", 2, "Calendar days before --date to include")
}

func init() {
	addWindowFlags(filterCmd)
	filterCmd.Flags().StringVarP(&filterOutput, "output", "o", "", "Output CSV (defaults to filter.output)")
}
