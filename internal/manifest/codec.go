package manifest

import (
	"bytes"
	"io"

	"github.com/entidb/entidb/internal/codec"
	"github.com/entidb/entidb/internal/errors"
	"github.com/entidb/entidb/internal/types"
)

func newReader(b []byte) io.Reader { return bytes.NewReader(b) }

func (m *Manifest) encode() codec.Value {
	collections := make([]codec.MapEntry, 0, len(m.Collections))
	for name, id := range m.Collections {
		meta := m.CollectionMeta[id]
		entry := codec.Map([]codec.MapEntry{
			{Key: codec.Text("id"), Value: codec.Int(int64(id))},
			{Key: codec.Text("name"), Value: codec.Text(name)},
			{Key: codec.Text("created_at_unix"), Value: codec.Int(meta.CreatedAt.Unix())},
			{Key: codec.Text("status"), Value: codec.Int(int64(meta.Status))},
		})
		collections = append(collections, codec.MapEntry{Key: codec.Text(name), Value: entry})
	}

	sealed := make([]codec.Value, 0, len(m.SealedSegments))
	for _, id := range m.SealedSegments {
		sealed = append(sealed, codec.Int(int64(id)))
	}

	return codec.Map([]codec.MapEntry{
		{Key: codec.Text("format_version"), Value: codec.Int(int64(m.FormatVersion))},
		{Key: codec.Text("next_collection"), Value: codec.Int(int64(m.NextCollection))},
		{Key: codec.Text("active_segment_id"), Value: codec.Int(int64(m.ActiveSegmentID))},
		{Key: codec.Text("last_sequence"), Value: codec.Int(int64(m.LastSequence))},
		{Key: codec.Text("last_checkpoint"), Value: codec.Int(int64(m.LastCheckpoint))},
		{Key: codec.Text("schema_version"), Value: codec.Int(int64(m.SchemaVersion))},
		{Key: codec.Text("collections"), Value: codec.Map(collections)},
		{Key: codec.Text("sealed_segments"), Value: codec.Array(sealed)},
	})
}

func decodeManifest(v codec.Value) (*Manifest, error) {
	if v.Kind != codec.KindMap {
		return nil, errors.Corruption("manifest.decode", errors.ErrManifestCorrupt)
	}
	m := New("")
	for _, e := range v.Map {
		if e.Key.Kind != codec.KindText {
			continue
		}
		switch e.Key.Text {
		case "format_version":
			m.FormatVersion = uint64(e.Value.Int)
		case "next_collection":
			m.NextCollection = types.CollectionID(e.Value.Int)
		case "active_segment_id":
			m.ActiveSegmentID = uint64(e.Value.Int)
		case "last_sequence":
			m.LastSequence = types.Sequence(e.Value.Int)
		case "last_checkpoint":
			m.LastCheckpoint = types.Sequence(e.Value.Int)
		case "schema_version":
			m.SchemaVersion = uint64(e.Value.Int)
		case "collections":
			if e.Value.Kind != codec.KindMap {
				continue
			}
			for _, ce := range e.Value.Map {
				entry, err := decodeCollectionEntry(ce.Value)
				if err != nil {
					return nil, err
				}
				m.Collections[entry.Name] = entry.ID
				m.CollectionMeta[entry.ID] = entry
			}
		case "sealed_segments":
			if e.Value.Kind != codec.KindArray {
				continue
			}
			for _, se := range e.Value.Array {
				m.SealedSegments = append(m.SealedSegments, uint64(se.Int))
			}
		}
	}
	return m, nil
}

func decodeCollectionEntry(v codec.Value) (types.CollectionMeta, error) {
	if v.Kind != codec.KindMap {
		return types.CollectionMeta{}, errors.Corruption("manifest.decode", errors.ErrManifestCorrupt)
	}
	var meta types.CollectionMeta
	for _, e := range v.Map {
		if e.Key.Kind != codec.KindText {
			continue
		}
		switch e.Key.Text {
		case "id":
			meta.ID = types.CollectionID(e.Value.Int)
		case "name":
			meta.Name = e.Value.Text
		case "created_at_unix":
			meta.CreatedAt = unixTime(e.Value.Int)
		case "status":
			meta.Status = types.DBStatus(e.Value.Int)
		}
	}
	return meta, nil
}
