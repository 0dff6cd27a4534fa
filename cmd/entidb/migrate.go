package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/entidb/entidb/internal/database"
	"github.com/entidb/entidb/internal/errors"
)

var migrateTo uint64

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Set the client-opaque schema version",
	RunE:  runMigrate,
}

func init() {
	migrateCmd.Flags().Uint64Var(&migrateTo, "to", 0, "target schema version (required, must not move backward)")
	_ = migrateCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	db, err := database.Open(flagDir, nil, openLogger())
	if err != nil {
		return err
	}
	defer db.Close()

	current := db.SchemaVersion()
	if migrateTo < current {
		return errors.InvalidArgument("entidb migrate", errors.ErrInvalidArgument)
	}
	if err := db.SetSchemaVersion(migrateTo); err != nil {
		return err
	}
	fmt.Printf("schema version: %d -> %d\n", current, migrateTo)
	return nil
}
