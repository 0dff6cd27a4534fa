// Command entidbsh is an interactive shell for put/get/delete/list/changes
// commands against an embedded entidb directory, for ad-hoc exploration
// during development.
//
// Grounded on the teacher's cmd/docdbsh/main.go for the read-parse-execute
// loop and dot-command convention, with the line editor swapped from a
// bare bufio.Reader to github.com/peterh/liner (history + Ctrl-C handling
// the way the rest of the pack's cmd/sloty/main.go uses it), since the
// teacher's version talks to a remote socket session this shell has no
// equivalent of.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/peterh/liner"

	"github.com/entidb/entidb/cmd/entidbsh/parser"
	"github.com/entidb/entidb/cmd/entidbsh/shell"
	"github.com/entidb/entidb/internal/database"
	"github.com/entidb/entidb/internal/logger"
)

func main() {
	dir := flag.String("dir", "./data", "database directory")
	flag.Parse()

	db, err := database.Open(*dir, nil, logger.Default())
	if err != nil {
		fmt.Fprintln(os.Stderr, "entidbsh:", err)
		os.Exit(1)
	}
	defer db.Close()

	sh := shell.New(db)

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	historyPath := filepath.Join(os.TempDir(), "entidbsh_history")
	if f, err := os.Open(historyPath); err == nil {
		line.ReadHistory(f)
		f.Close()
	}

	fmt.Println("entidb shell. Type '.help' for commands, '.exit' to quit.")
	for {
		input, err := line.Prompt(fmt.Sprintf("entidb[%s]> ", sh.GetCollection()))
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println()
				break
			}
			fmt.Fprintln(os.Stderr, "read error:", err)
			continue
		}
		if input == "" {
			continue
		}
		line.AppendHistory(input)
		sh.AddToHistory(input)

		cmd, err := parser.Parse(input)
		if err != nil {
			fmt.Println("ERROR:", err)
			continue
		}

		result := sh.Execute(cmd)
		if result.IsExit() {
			break
		}
		result.Print(os.Stdout)
	}

	if f, err := os.Create(historyPath); err == nil {
		line.WriteHistory(f)
		f.Close()
	}
}
