package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/entidb/entidb/internal/database"
	"github.com/entidb/entidb/internal/errors"
)

var restoreMerge string

var restoreCmd = &cobra.Command{
	Use:   "restore <archive>",
	Short: "Extract a backup archive into --dir",
	Args:  cobra.ExactArgs(1),
	RunE:  runRestore,
}

func init() {
	restoreCmd.Flags().StringVar(&restoreMerge, "merge", "fail", "merge policy when --dir is non-empty: fail or overwrite")
	rootCmd.AddCommand(restoreCmd)
}

func runRestore(cmd *cobra.Command, args []string) error {
	var data []byte
	if err := retryIO(func() error {
		var err error
		data, err = os.ReadFile(args[0])
		return err
	}); err != nil {
		return err
	}

	var policy database.MergePolicy
	switch restoreMerge {
	case "fail":
		policy = database.MergeFailIfExists
	case "overwrite":
		policy = database.MergeOverwrite
	default:
		return errors.InvalidArgument("entidb restore", errors.ErrInvalidArgument)
	}

	if err := retryIO(func() error {
		return database.Restore(flagDir, data, policy)
	}); err != nil {
		return err
	}
	fmt.Printf("restored %s into %s\n", args[0], flagDir)
	return nil
}
