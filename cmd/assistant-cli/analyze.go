package main

import (
	"encoding/json"
	"strings"

	"realestate-assistant/internal/assistant/classify"

	"github.com/spf13/cobra"
)

// analyzeCmd prints the classifier's view of a text
var analyzeCmd = &cobra.Command{
	Use:   "analyze [text]",
	Short: "Print the intent and entities detected in a text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		analysis := classify.Default().Analyze(strings.Join(args, " "))
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(analysis)
	},
}
