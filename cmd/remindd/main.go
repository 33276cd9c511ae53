// Remindd is the reminder daemon for the kelasbot group assistant.
//
// It owns the task/settings snapshots, scans deadlines every sweep interval,
// and publishes due reminders to NATS for the chat bridge to relay. Inbound
// admin commands arrive over NATS from the same bridge.
//
// Usage:
//
//	# Start with defaults (config.yaml optional)
//	remindd serve
//
//	# Configure via file or environment
//	remindd serve --config /etc/remindd/config.yaml
//	REMINDD_SWEEP_INTERVAL=1m remindd serve
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "remindd",
	Short: "Deadline reminder daemon for student group chats",
	Long: `remindd tracks coursework deadlines per group chat and publishes tiered
reminders (1 week down to 30 minutes before the deadline) to NATS, where the
chat bridge relays them to the messaging platform.`,
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reminder daemon",
	RunE:  runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("remindd\n")
		fmt.Printf("Version:    %s\n", version)
		fmt.Printf("Commit:     %s\n", gitCommit)
		fmt.Printf("Build Date: %s\n", buildDate)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
