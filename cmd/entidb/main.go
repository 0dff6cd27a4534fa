// Command entidb is the operator CLI for an entidb database directory:
// inspect, verify, compact, dump-oplog, backup, restore and migrate, each
// a thin wrapper around the internal/database.Database operations a
// program embedding the engine would call directly.
//
// Grounded on the teacher's cmd/docdb/main.go for the exit-code-on-error
// shape, but restructured around github.com/spf13/cobra (one subcommand
// per verb, its own file, registered from init()) the way cmd/warren does
// in the rest of the pack, since this binary talks to the engine as an
// embedded library rather than over the teacher's Unix-socket IPC.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/entidb/entidb/internal/errors"
	"github.com/entidb/entidb/internal/logger"
)

var (
	flagDir      string
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:   "entidb",
	Short: "Operator tooling for an entidb database directory",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "entidb:", err)
		os.Exit(exitCodeFor(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDir, "dir", "./data", "database directory")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "log level (debug, info, warn, error)")
}

func openLogger() *logger.Logger {
	level := logger.LevelWarn
	switch flagLogLevel {
	case "debug":
		level = logger.LevelDebug
	case "info":
		level = logger.LevelInfo
	case "error":
		level = logger.LevelError
	}
	return logger.New(os.Stderr, level, "entidb-cli")
}

// exitCodeFor maps the error taxonomy to a process exit code: 0 is
// reserved for success by cobra itself, so only non-nil errors reach here.
func exitCodeFor(err error) int {
	switch errors.KindOf(err) {
	case errors.KindNotFound:
		return 10
	case errors.KindInvalidArgument:
		return 11
	case errors.KindIoError:
		return 12
	case errors.KindCorruption:
		return 13
	case errors.KindTransaction:
		return 14
	case errors.KindVersionMismatch:
		return 15
	default:
		return 1
	}
}
