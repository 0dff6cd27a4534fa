package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/entidb/entidb/internal/database"
)

var compactDryRun bool

var compactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Rewrite live records into a fresh segment and retire the old ones",
	RunE:  runCompact,
}

func init() {
	compactCmd.Flags().BoolVar(&compactDryRun, "dry-run", false, "report what would be compacted without writing anything")
	rootCmd.AddCommand(compactCmd)
}

func runCompact(cmd *cobra.Command, args []string) error {
	db, err := database.Open(flagDir, nil, openLogger())
	if err != nil {
		return err
	}
	defer db.Close()

	stats := db.Stats()
	if compactDryRun {
		fmt.Printf("would compact %d segments (%d live, %d tombstoned)\n",
			stats.SegmentCount, stats.LiveEntities, stats.TombstonedCount)
		return nil
	}

	if err := db.Compact(); err != nil {
		return err
	}
	after := db.Stats()
	fmt.Printf("compacted: segments %d -> %d\n", stats.SegmentCount, after.SegmentCount)
	return nil
}
