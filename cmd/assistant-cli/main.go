// cmd/assistant-cli/main.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	verbose    bool
	configPath string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "assistant-cli",
	Short: "Talk to the real-estate office assistant from a terminal",
	Long: `assistant-cli runs the conversational router in-process.

Available subcommands:
  chat     - Interactive conversation, one line per turn
  analyze  - Print the intent and entities detected in a text
  activity - Print or update the job worker's registry entry`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: configs/config.yaml discovery)")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(activityCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
