// Package commands holds the outcomes of the REPL's dot-commands: the Result
// interface, its implementations and their rendering. The dot-commands
// themselves are dispatched by package shell against an embedded
// *database.Database.
//
// Adapted from the teacher's cmd/docdbsh/commands/commands.go: the Result
// interface (Print/IsExit) and one-struct-per-outcome shape are kept
// verbatim, retargeted from opaque payload bytes to canonical-CBOR
// codec.Value rendering.
package commands

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/entidb/entidb/internal/codec"
	"github.com/entidb/entidb/internal/types"
)

// Result is the outcome of one dot-command: printable, and able to signal
// that the REPL loop should stop.
type Result interface {
	Print(w io.Writer)
	IsExit() bool
}

type baseResult struct{}

func (baseResult) IsExit() bool { return false }

type ErrorResult struct {
	baseResult
	Err string
}

func (r ErrorResult) Print(w io.Writer) { fmt.Fprintln(w, "ERROR:", r.Err) }

type ExitResult struct{ baseResult }

func (r ExitResult) Print(w io.Writer) {}
func (r ExitResult) IsExit() bool      { return true }

type OKResult struct {
	baseResult
	Lines []string
}

func (r OKResult) Print(w io.Writer) {
	for _, l := range r.Lines {
		fmt.Fprintln(w, l)
	}
}

// HelpResult prints the dot-command reference.
type HelpResult struct{ baseResult }

func (r HelpResult) Print(w io.Writer) {
	fmt.Fprintln(w, "entidb shell commands:")
	fmt.Fprintln(w, "  .help                         show this message")
	fmt.Fprintln(w, "  .exit / .quit                 leave the shell")
	fmt.Fprintln(w, "  .use <collection>             set the current collection")
	fmt.Fprintln(w, "  .collections                  list registered collections")
	fmt.Fprintln(w, "  .put <entity-id> <payload>    put into the current collection")
	fmt.Fprintln(w, "  .get <entity-id>              get from the current collection")
	fmt.Fprintln(w, "  .delete <entity-id>           delete from the current collection")
	fmt.Fprintln(w, "  .list                         list live entity ids and values")
	fmt.Fprintln(w, "  .count                        count live entities")
	fmt.Fprintln(w, "  .begin / .commit / .rollback  multi-op transaction control")
	fmt.Fprintln(w, "  .changes <since>              poll the change feed")
	fmt.Fprintln(w, "  .schema [<version>]           get or set the schema version")
	fmt.Fprintln(w, "  .checkpoint / .compact        maintenance verbs")
	fmt.Fprintln(w, "  .stats                        print engine statistics")
	fmt.Fprintln(w, "  .pretty [on|off]              set the pretty flag (value rendering ignores it)")
	fmt.Fprintln(w, "  .create-hash-index <name>     declare a hash index on the current collection")
	fmt.Fprintln(w, "  .create-ordered-index <name>  declare an ordered (range) index")
	fmt.Fprintln(w, "  .index-insert <name> <key> <id>   add (key, id) to a hash index")
	fmt.Fprintln(w, "  .index-remove <name> <key> <id>   drop (key, id) from a hash index")
	fmt.Fprintln(w, "  .index-lookup <name> <key>        equality lookup on a hash index")
	fmt.Fprintln(w, "  .index-range <name> <lo> <hi>     range scan on an ordered index, '-' for unbounded")
	fmt.Fprintln(w, "  .history                      show recent commands")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "payload prefixes: raw:\"text\"  hex:deadbeef  json:{\"k\":1}")
}

// renderValue renders a decoded codec.Value back to a readable string.
func renderValue(v codec.Value) string {
	switch v.Kind {
	case codec.KindNull:
		return "null"
	case codec.KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case codec.KindInt:
		return fmt.Sprintf("%d", v.Int)
	case codec.KindText:
		return fmt.Sprintf("%q", v.Text)
	case codec.KindBytes:
		return fmt.Sprintf("hex:%x", v.Bytes)
	case codec.KindArray:
		parts := make([]string, len(v.Array))
		for i, e := range v.Array {
			parts[i] = renderValue(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case codec.KindMap:
		entries := make([]string, len(v.Map))
		for i, e := range v.Map {
			entries[i] = renderValue(e.Key) + ": " + renderValue(e.Value)
		}
		return "{" + strings.Join(entries, ", ") + "}"
	default:
		return "<unknown>"
	}
}

// RenderPayload decodes raw canonical-CBOR payload bytes for display,
// falling back to a hex dump if it does not decode (e.g. a payload written
// by another client in a format this shell doesn't expect).
func RenderPayload(payload []byte) string {
	v, err := codec.Decode(payload)
	if err != nil {
		return fmt.Sprintf("hex:%x", payload)
	}
	return renderValue(v)
}

// ChangeKindString renders a change-feed event kind.
func ChangeKindString(k types.ChangeKind) string {
	if k == types.ChangeDelete {
		return "DELETE"
	}
	return "PUT"
}

// SortedEntityIDs returns ids in ascending byte order for stable .list output.
func SortedEntityIDs(ids []types.EntityID) []types.EntityID {
	out := append([]types.EntityID(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i].Compare(out[j]) < 0 })
	return out
}
