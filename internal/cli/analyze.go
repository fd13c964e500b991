package cli

import (
	"github.com/spf13/cobra"

	"session-vwap/internal/app"
)

var (
	analyzeOutDir   string
	analyzeLookback int
	analyzeBuffer   string
	analyzeQuiet    bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [bars.csv]",
	Short: "Compute session VWAP/bands, label sessions and backtest the buffer rule",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.AnalyzeOptions{
			OutputDir: analyzeOutDir,
			Buffer:    analyzeBuffer,
			Quiet:     analyzeQuiet,
		}
		if len(args) == 1 {
			opts.Input = args[0]
		}
		if cmd.Flags().Changed("lookback-days") {
			opts.LookbackDays = &analyzeLookback
		}
		return getApp().Analyze(cmd.Context(), opts)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeOutDir, "out", "", "Output directory (overrides output.dir)")
	analyzeCmd.Flags().IntVar(&analyzeLookback, "lookback-days", 0, "Keep only the last N days of bars, 0 keeps all")
	analyzeCmd.Flags().StringVar(&analyzeBuffer, "buffer", "", "Entry buffer in points (overrides backtest.buffer_points)")
	analyzeCmd.Flags().BoolVarP(&analyzeQuiet, "quiet", "q", false, "Do not print the summary")
}
