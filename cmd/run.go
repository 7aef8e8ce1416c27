package cmd

import (
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/trubeko66/tg-export/client"
	"github.com/trubeko66/tg-export/common/cache"
	"github.com/trubeko66/tg-export/config"
)

func Run(cmd *cobra.Command, _ []string) {
	ctx := cmd.Context()
	logger := log.NewWithOptions(os.Stdout, log.Options{
		Level:           log.InfoLevel,
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
	})
	ctx = log.WithContext(ctx, logger)

	if err := config.Init(ctx, config.GetConfigFile(cmd)); err != nil {
		logger.Fatal("Config load failed", "error", err)
	}
	cfg := config.C()

	sizes, err := cache.New(cfg.Cache.TTL, cfg.Cache.Capacity)
	if err != nil {
		logger.Fatal("Cache init failed", "error", err)
	}

	logger.Info("🚀 Starting export", "channel", cfg.Export.Channel, "workers", cfg.Governor.InitialWorkers)
	if err := client.NewExporter(cfg, sizes, logger).Run(ctx); err != nil {
		logger.Fatal("Export failed", "error", err)
	}
	logger.Info("Exit complete")
}
