package config

import "github.com/spf13/cobra"

// RegisterFlags registers common CLI flags on the provided root command
func RegisterFlags(cmd *cobra.Command) {
	if cmd == nil {
		return
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress all output except errors")
	cmd.PersistentFlags().Bool("json", false, "Log in JSON format")
	cmd.PersistentFlags().String("proxy", "", "Outbound HTTP/SOCKS5 proxy (e.g., http://localhost:8080)")
	cmd.PersistentFlags().String("timeout", "30s", "Hard timeout for direct HTTP requests")
	cmd.PersistentFlags().String("user-agent", "", "Custom user agent string")
	cmd.PersistentFlags().String("sites", "", "Path to the per-site YAML configuration")
	cmd.PersistentFlags().String("data-dir", "", "Directory holding ledgers and summaries")
	cmd.PersistentFlags().Int("batch-size", 0, "Override automatic batch sizing")
	cmd.PersistentFlags().Int("workers", 0, "Detail enrichment concurrency (1 = sequential)")
	cmd.PersistentFlags().Bool("ignore-robots", false, "Skip robots.txt checks")
}
