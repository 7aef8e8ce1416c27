package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func RegisterFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	flags.StringP("config", "c", "", "config file path")
	flags.String("channel", "", "channel username to export")
	flags.StringP("output", "o", "", "output directory")
	flags.Int("limit", 0, "max messages to scan (0 = all)")

	// Governor configuration
	flags.IntP("max-workers", "w", 0, "governor: max concurrent downloads")
	flags.Int("initial-workers", 0, "governor: initial concurrent downloads")
	flags.Duration("min-delay", 0, "governor: minimum inter-dispatch delay")
	flags.Duration("max-delay", 0, "governor: maximum inter-dispatch delay")

	// Cache configuration
	flags.Duration("cache-ttl", 0, "size cache TTL")
	flags.Int("cache-capacity", 0, "size cache capacity")

	// Telegram configuration
	flags.Int("telegram-app-id", 0, "telegram app id")
	flags.String("telegram-app-hash", "", "telegram app hash")
	flags.String("telegram-session", "", "telegram session file path")

	// Export configuration
	flags.Int("threads", 0, "per-file download threads")
	flags.String("overwrite-policy", "", "overwrite policy (overwrite|rename|skip)")
	flags.Bool("dedupe", false, "detect duplicate media by content hash")

	bindFlags(cmd)
}

func bindFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	viper.BindPFlag("export.channel", flags.Lookup("channel"))
	viper.BindPFlag("export.output_dir", flags.Lookup("output"))
	viper.BindPFlag("export.limit", flags.Lookup("limit"))
	viper.BindPFlag("export.threads", flags.Lookup("threads"))
	viper.BindPFlag("export.overwrite_policy", flags.Lookup("overwrite-policy"))
	viper.BindPFlag("export.dedupe", flags.Lookup("dedupe"))

	viper.BindPFlag("governor.max_workers", flags.Lookup("max-workers"))
	viper.BindPFlag("governor.initial_workers", flags.Lookup("initial-workers"))
	viper.BindPFlag("governor.min_delay", flags.Lookup("min-delay"))
	viper.BindPFlag("governor.max_delay", flags.Lookup("max-delay"))

	viper.BindPFlag("cache.ttl", flags.Lookup("cache-ttl"))
	viper.BindPFlag("cache.capacity", flags.Lookup("cache-capacity"))

	viper.BindPFlag("telegram.app_id", flags.Lookup("telegram-app-id"))
	viper.BindPFlag("telegram.app_hash", flags.Lookup("telegram-app-hash"))
	viper.BindPFlag("telegram.session", flags.Lookup("telegram-session"))
}

func GetConfigFile(cmd *cobra.Command) string {
	configFile, _ := cmd.Flags().GetString("config")
	return configFile
}
