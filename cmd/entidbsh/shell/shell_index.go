package shell

import (
	"fmt"

	"github.com/entidb/entidb/cmd/entidbsh/commands"
	"github.com/entidb/entidb/cmd/entidbsh/parser"
	"github.com/entidb/entidb/internal/codec"
	"github.com/entidb/entidb/internal/types"
)

// cmdCreateIndex handles ".create-hash-index <name>" and
// ".create-ordered-index <name>" against the current collection.
func (s *Shell) cmdCreateIndex(cmd *parser.Command, kind types.IndexKind) commands.Result {
	if err := parser.ValidateArgs(cmd, 1); err != nil {
		return errResult(err)
	}
	collection := s.GetCollection()
	var err error
	if kind == types.IndexOrdered {
		err = s.db.CreateOrderedIndex(collection, cmd.Args[0])
	} else {
		err = s.db.CreateHashIndex(collection, cmd.Args[0])
	}
	if err != nil {
		return errResult(err)
	}
	return commands.OKResult{Lines: []string{"OK"}}
}

// cmdIndexInsert handles ".index-insert <name> <key> <entity_id>", inserting
// outside any commit barrier; the shell's .put has no way to attach index
// updates to a write.
func (s *Shell) cmdIndexInsert(cmd *parser.Command) commands.Result {
	if err := parser.ValidateArgs(cmd, 3); err != nil {
		return errResult(err)
	}
	key, id, err := parseIndexKeyAndID(cmd.Args[1], cmd.Args[2])
	if err != nil {
		return errResult(err)
	}
	if err := s.db.IndexInsert(s.GetCollection(), cmd.Args[0], key, id); err != nil {
		return errResult(err)
	}
	return commands.OKResult{Lines: []string{"OK"}}
}

// cmdIndexRemove handles ".index-remove <name> <key> <entity_id>".
func (s *Shell) cmdIndexRemove(cmd *parser.Command) commands.Result {
	if err := parser.ValidateArgs(cmd, 3); err != nil {
		return errResult(err)
	}
	key, id, err := parseIndexKeyAndID(cmd.Args[1], cmd.Args[2])
	if err != nil {
		return errResult(err)
	}
	if err := s.db.IndexRemove(s.GetCollection(), cmd.Args[0], key, id); err != nil {
		return errResult(err)
	}
	return commands.OKResult{Lines: []string{"OK"}}
}

// cmdIndexLookup handles ".index-lookup <name> <key>".
func (s *Shell) cmdIndexLookup(cmd *parser.Command) commands.Result {
	if err := parser.ValidateArgs(cmd, 2); err != nil {
		return errResult(err)
	}
	key, err := encodedIndexKey(cmd.Args[1])
	if err != nil {
		return errResult(err)
	}
	ids, err := s.db.IndexLookup(s.GetCollection(), cmd.Args[0], key)
	if err != nil {
		return errResult(err)
	}
	return idListResult(ids)
}

// cmdIndexRange handles ".index-range <name> <lo> <hi>"; "-" for lo or hi
// means unbounded on that side.
func (s *Shell) cmdIndexRange(cmd *parser.Command) commands.Result {
	if err := parser.ValidateArgs(cmd, 3); err != nil {
		return errResult(err)
	}
	lo, err := optionalIndexKey(cmd.Args[1])
	if err != nil {
		return errResult(err)
	}
	hi, err := optionalIndexKey(cmd.Args[2])
	if err != nil {
		return errResult(err)
	}
	ids, err := s.db.IndexRange(s.GetCollection(), cmd.Args[0], lo, hi)
	if err != nil {
		return errResult(err)
	}
	return idListResult(ids)
}

func idListResult(ids []types.EntityID) commands.Result {
	var lines []string
	for _, id := range commands.SortedEntityIDs(ids) {
		lines = append(lines, id.String())
	}
	return commands.OKResult{Lines: lines}
}

func encodedIndexKey(literal string) ([]byte, error) {
	value, err := parser.DecodePayload(literal)
	if err != nil {
		return nil, err
	}
	return codec.Encode(value), nil
}

func optionalIndexKey(literal string) ([]byte, error) {
	if literal == "-" {
		return nil, nil
	}
	return encodedIndexKey(literal)
}

func parseIndexKeyAndID(keyLiteral, idLiteral string) ([]byte, types.EntityID, error) {
	key, err := encodedIndexKey(keyLiteral)
	if err != nil {
		return nil, types.EntityID{}, err
	}
	id, err := types.ParseEntityIDString(idLiteral)
	if err != nil {
		return nil, types.EntityID{}, fmt.Errorf("invalid entity id: %w", err)
	}
	return key, id, nil
}
