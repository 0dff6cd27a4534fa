// Package shell holds the REPL's session state and dispatches each parsed
// dot-command to the embedded database.
//
// Adapted from the teacher's cmd/docdbsh/shell/shell.go: the
// currentCollection/pretty/history fields and BeginTx/CommitTx/RollbackTx
// bookkeeping are kept, retargeted from a socket client.Client to a direct
// *database.Database, and from the teacher's document-id/collection-path
// commands to this engine's put/get/delete/list/count/changes/schema verbs.
package shell

import (
	"fmt"
	"sync"

	"github.com/entidb/entidb/cmd/entidbsh/commands"
	"github.com/entidb/entidb/cmd/entidbsh/parser"
	"github.com/entidb/entidb/internal/codec"
	"github.com/entidb/entidb/internal/database"
	"github.com/entidb/entidb/internal/txn"
	"github.com/entidb/entidb/internal/types"
)

// Shell holds one REPL session's state around an embedded database.
type Shell struct {
	mu sync.Mutex

	db                *database.Database
	currentCollection string
	tx                *txn.Tx
	pretty            bool
	history           []string
}

// New builds a shell session bound to an already-open database.
func New(db *database.Database) *Shell {
	return &Shell{db: db, currentCollection: "default"}
}

func (s *Shell) SetCollection(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name == "" {
		name = "default"
	}
	s.currentCollection = name
}

func (s *Shell) GetCollection() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentCollection
}

func (s *Shell) SetPretty(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pretty = v
}

func (s *Shell) GetPretty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pretty
}

func (s *Shell) AddToHistory(cmd string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, cmd)
	if len(s.history) > 100 {
		s.history = s.history[1:]
	}
}

func (s *Shell) GetHistory() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Shell) IsTxActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx != nil
}

// Execute dispatches one parsed command against the shell's database.
func (s *Shell) Execute(cmd *parser.Command) commands.Result {
	switch cmd.Name {
	case ".help":
		return commands.HelpResult{}
	case ".exit", ".quit":
		return commands.ExitResult{}
	case ".use":
		return s.cmdUse(cmd)
	case ".collections":
		return s.cmdCollections()
	case ".put":
		return s.cmdPut(cmd)
	case ".get":
		return s.cmdGet(cmd)
	case ".delete":
		return s.cmdDelete(cmd)
	case ".list":
		return s.cmdList()
	case ".count":
		return s.cmdCount()
	case ".begin":
		return s.cmdBegin()
	case ".commit":
		return s.cmdCommit()
	case ".rollback":
		return s.cmdRollback()
	case ".changes":
		return s.cmdChanges(cmd)
	case ".schema":
		return s.cmdSchema(cmd)
	case ".checkpoint":
		return s.cmdCheckpoint()
	case ".compact":
		return s.cmdCompact()
	case ".stats":
		return s.cmdStats()
	case ".pretty":
		return s.cmdPretty(cmd)
	case ".create-hash-index":
		return s.cmdCreateIndex(cmd, types.IndexHash)
	case ".create-ordered-index":
		return s.cmdCreateIndex(cmd, types.IndexOrdered)
	case ".index-insert":
		return s.cmdIndexInsert(cmd)
	case ".index-remove":
		return s.cmdIndexRemove(cmd)
	case ".index-lookup":
		return s.cmdIndexLookup(cmd)
	case ".index-range":
		return s.cmdIndexRange(cmd)
	case ".history":
		return commands.OKResult{Lines: s.GetHistory()}
	default:
		return commands.ErrorResult{Err: fmt.Sprintf("unknown command: %s", cmd.Name)}
	}
}

func errResult(err error) commands.Result {
	return commands.ErrorResult{Err: err.Error()}
}

func (s *Shell) cmdUse(cmd *parser.Command) commands.Result {
	if err := parser.ValidateArgs(cmd, 1); err != nil {
		return errResult(err)
	}
	s.SetCollection(cmd.Args[0])
	return commands.OKResult{Lines: []string{"collection: " + s.GetCollection()}}
}

func (s *Shell) cmdCollections() commands.Result {
	var lines []string
	for _, c := range s.db.ListCollections() {
		lines = append(lines, fmt.Sprintf("%s (id=%d)", c.Name, c.ID))
	}
	return commands.OKResult{Lines: lines}
}

func (s *Shell) cmdPut(cmd *parser.Command) commands.Result {
	if err := parser.ValidateArgs(cmd, 2); err != nil {
		return errResult(err)
	}
	id, err := types.ParseEntityIDString(cmd.Args[0])
	if err != nil {
		return errResult(err)
	}
	value, err := parser.DecodePayload(cmd.Args[1])
	if err != nil {
		return errResult(err)
	}
	payload := codec.Encode(value)

	s.mu.Lock()
	tx := s.tx
	s.mu.Unlock()

	collection := s.GetCollection()
	if tx != nil {
		collID, err := s.db.Collection(collection)
		if err != nil {
			return errResult(err)
		}
		if err := tx.Put(collID, id, payload); err != nil {
			return errResult(err)
		}
		return commands.OKResult{Lines: []string{"OK (buffered in open transaction)"}}
	}
	if err := s.db.Put(collection, id, payload); err != nil {
		return errResult(err)
	}
	return commands.OKResult{Lines: []string{"OK"}}
}

func (s *Shell) cmdGet(cmd *parser.Command) commands.Result {
	if err := parser.ValidateArgs(cmd, 1); err != nil {
		return errResult(err)
	}
	id, err := types.ParseEntityIDString(cmd.Args[0])
	if err != nil {
		return errResult(err)
	}

	s.mu.Lock()
	tx := s.tx
	s.mu.Unlock()

	var payload []byte
	var ok bool
	if tx != nil {
		payload, ok, err = s.db.GetTx(tx, s.GetCollection(), id)
	} else {
		payload, ok, err = s.db.Get(s.GetCollection(), id)
	}
	if err != nil {
		return errResult(err)
	}
	if !ok {
		return commands.OKResult{Lines: []string{"(not found)"}}
	}
	return commands.OKResult{Lines: []string{commands.RenderPayload(payload)}}
}

func (s *Shell) cmdDelete(cmd *parser.Command) commands.Result {
	if err := parser.ValidateArgs(cmd, 1); err != nil {
		return errResult(err)
	}
	id, err := types.ParseEntityIDString(cmd.Args[0])
	if err != nil {
		return errResult(err)
	}

	s.mu.Lock()
	tx := s.tx
	s.mu.Unlock()

	collection := s.GetCollection()
	if tx != nil {
		collID, err := s.db.Collection(collection)
		if err != nil {
			return errResult(err)
		}
		if err := tx.Delete(collID, id); err != nil {
			return errResult(err)
		}
		return commands.OKResult{Lines: []string{"OK (buffered in open transaction)"}}
	}
	if err := s.db.Delete(collection, id); err != nil {
		return errResult(err)
	}
	return commands.OKResult{Lines: []string{"OK"}}
}

func (s *Shell) cmdList() commands.Result {
	entities, err := s.db.List(s.GetCollection())
	if err != nil {
		return errResult(err)
	}
	byID := make(map[types.EntityID][]byte, len(entities))
	ids := make([]types.EntityID, 0, len(entities))
	for _, e := range entities {
		byID[e.ID] = e.Payload
		ids = append(ids, e.ID)
	}
	var lines []string
	for _, id := range commands.SortedEntityIDs(ids) {
		lines = append(lines, fmt.Sprintf("%s %s", id, commands.RenderPayload(byID[id])))
	}
	return commands.OKResult{Lines: lines}
}

func (s *Shell) cmdCount() commands.Result {
	n, err := s.db.Count(s.GetCollection())
	if err != nil {
		return errResult(err)
	}
	return commands.OKResult{Lines: []string{fmt.Sprintf("%d", n)}}
}

func (s *Shell) cmdBegin() commands.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx != nil {
		return errResult(fmt.Errorf("transaction already active"))
	}
	tx, err := s.db.Begin()
	if err != nil {
		return errResult(err)
	}
	s.tx = tx
	return commands.OKResult{Lines: []string{"BEGIN"}}
}

func (s *Shell) cmdCommit() commands.Result {
	s.mu.Lock()
	tx := s.tx
	s.tx = nil
	s.mu.Unlock()
	if tx == nil {
		return errResult(fmt.Errorf("no active transaction"))
	}
	seq, err := s.db.Commit(tx)
	if err != nil {
		return errResult(err)
	}
	return commands.OKResult{Lines: []string{fmt.Sprintf("COMMIT sequence=%d", seq)}}
}

func (s *Shell) cmdRollback() commands.Result {
	s.mu.Lock()
	tx := s.tx
	s.tx = nil
	s.mu.Unlock()
	if tx == nil {
		return errResult(fmt.Errorf("no active transaction"))
	}
	if err := s.db.Abort(tx); err != nil {
		return errResult(err)
	}
	return commands.OKResult{Lines: []string{"ROLLBACK"}}
}

func (s *Shell) cmdChanges(cmd *parser.Command) commands.Result {
	var since uint64
	if len(cmd.Args) > 0 {
		v, err := parser.ParseUint64(cmd.Args[0])
		if err != nil {
			return errResult(err)
		}
		since = v
	}
	events := s.db.PollChanges(types.Sequence(since), 50)
	var lines []string
	for _, e := range events {
		lines = append(lines, fmt.Sprintf("%d\t%s\t%s", e.Sequence, commands.ChangeKindString(e.Kind), e.EntityID))
	}
	return commands.OKResult{Lines: lines}
}

func (s *Shell) cmdSchema(cmd *parser.Command) commands.Result {
	if len(cmd.Args) == 0 {
		return commands.OKResult{Lines: []string{fmt.Sprintf("%d", s.db.SchemaVersion())}}
	}
	v, err := parser.ParseUint64(cmd.Args[0])
	if err != nil {
		return errResult(err)
	}
	if err := s.db.SetSchemaVersion(v); err != nil {
		return errResult(err)
	}
	return commands.OKResult{Lines: []string{fmt.Sprintf("schema version set to %d", v)}}
}

func (s *Shell) cmdCheckpoint() commands.Result {
	if err := s.db.Checkpoint(); err != nil {
		return errResult(err)
	}
	return commands.OKResult{Lines: []string{"checkpoint complete"}}
}

func (s *Shell) cmdCompact() commands.Result {
	if err := s.db.Compact(); err != nil {
		return errResult(err)
	}
	return commands.OKResult{Lines: []string{"compaction complete"}}
}

func (s *Shell) cmdStats() commands.Result {
	st := s.db.Stats()
	return commands.OKResult{Lines: []string{
		fmt.Sprintf("collections:   %d", st.Collections),
		fmt.Sprintf("live:          %d", st.LiveEntities),
		fmt.Sprintf("tombstones:    %d", st.TombstonedCount),
		fmt.Sprintf("segments:      %d", st.SegmentCount),
		fmt.Sprintf("last sequence: %d", st.LastSequence),
	}}
}

func (s *Shell) cmdPretty(cmd *parser.Command) commands.Result {
	if len(cmd.Args) == 0 {
		return commands.OKResult{Lines: []string{fmt.Sprintf("pretty: %v", s.GetPretty())}}
	}
	s.SetPretty(cmd.Args[0] == "on")
	return commands.OKResult{Lines: []string{fmt.Sprintf("pretty: %v", s.GetPretty())}}
}
