package cli

import (
	"github.com/spf13/cobra"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-notify",
	Short: "重新推送最近一次分析摘要, 用于验证推送通道",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().SimulateNotify(cmd.Context())
	},
}
