package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trubeko66/tg-export/config"
)

var rootCmd = &cobra.Command{
	Use:   "tg-export",
	Short: "Export media from Telegram channels under adaptive rate control",
	Run:   Run,
}

func init() {
	config.RegisterFlags(rootCmd)
}

func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println(err)
	}
}
