package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/entidb/entidb/internal/database"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print collection, segment and sequence statistics",
	RunE:  runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	db, err := database.Open(flagDir, nil, openLogger())
	if err != nil {
		return err
	}
	defer db.Close()

	stats := db.Stats()
	fmt.Printf("directory:        %s\n", flagDir)
	fmt.Printf("collections:      %d\n", stats.Collections)
	fmt.Printf("live entities:    %s\n", humanize.Comma(int64(stats.LiveEntities)))
	fmt.Printf("tombstones:       %s\n", humanize.Comma(int64(stats.TombstonedCount)))
	fmt.Printf("segments:         %d\n", stats.SegmentCount)
	fmt.Printf("last sequence:    %d\n", stats.LastSequence)
	fmt.Printf("schema version:   %d\n", db.SchemaVersion())
	if alerts := db.Metrics().ErrorTracker().GetCriticalAlerts(); len(alerts) > 0 {
		fmt.Printf("critical alerts:  %d (most recent: %s)\n", len(alerts), alerts[len(alerts)-1].Description)
	}
	fmt.Println()
	fmt.Println("collections:")
	for _, c := range db.ListCollections() {
		fmt.Printf("  %-24s id=%-6d status=%d created=%s\n", c.Name, c.ID, c.Status, c.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
	}
	return nil
}
