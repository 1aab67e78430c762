package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"realestate-assistant/internal/common/config"
	hm "realestate-assistant/internal/workers/assistant/handle-message"
	"realestate-assistant/pkg/registry"

	"github.com/spf13/cobra"
)

var activityOut string

// activityCmd prints or updates the activity registry entry of the job worker
var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Print the job worker's activity registry entry",
	Long: `Print the registry entry of the assistant job worker.

With --out the entry is upserted into that registry file, which is created
when missing.`,
	RunE: runActivity,
}

func init() {
	activityCmd.Flags().StringVarP(&activityOut, "out", "o", "", "Registry file to update")
}

func runActivity(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "config unavailable, using worker defaults: %v\n", err)
		cfg = &config.Config{}
	}
	version := cfg.App.Version
	if version == "" {
		version = "dev"
	}
	activity := hm.Activity(hm.LoadConfig(cfg), version)

	if activityOut == "" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(activity)
	}
	return upsertActivity(activityOut, version, activity)
}

func upsertActivity(path, version string, activity registry.Activity) error {
	reg, err := registry.LoadRegistry(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		reg = registry.New(version, time.Now())
	case err != nil:
		return fmt.Errorf("load registry %s: %w", path, err)
	default:
		reg.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	}
	reg.Upsert(activity)
	return reg.Save(path)
}
