package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/entidb/entidb/internal/database"
)

var backupOut string

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Checkpoint and write a compressed archive of the database",
	RunE:  runBackup,
}

func init() {
	backupCmd.Flags().StringVar(&backupOut, "out", "", "archive path (defaults to <dir>.backup)")
	rootCmd.AddCommand(backupCmd)
}

func runBackup(cmd *cobra.Command, args []string) error {
	db, err := database.Open(flagDir, nil, openLogger())
	if err != nil {
		return err
	}
	defer db.Close()

	var archive []byte
	if err := retryIO(func() error {
		var err error
		archive, err = db.Backup()
		return err
	}); err != nil {
		db.Metrics().RecordError(err)
		return err
	}

	out := backupOut
	if out == "" {
		out = flagDir + ".backup"
	}
	if err := retryIO(func() error {
		return os.WriteFile(out, archive, 0o644)
	}); err != nil {
		db.Metrics().RecordError(err)
		return err
	}
	fmt.Printf("wrote %s (%s)\n", out, humanize.Bytes(uint64(len(archive))))
	return nil
}
