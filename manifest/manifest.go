// Package manifest is the trace-manifest data model and its JSON
// encoding (spec §6, "Trace manifest (JSON)"), ported directly from the
// structure of the original's dtl/manifest.py.
package manifest

import (
	"encoding/json"

	"github.com/bwhmather/dtl/pos"
	"github.com/google/uuid"
)

// Column names a single traced array within a Snapshot.
type Column struct {
	Name  string
	Array uuid.UUID
}

// Snapshot is the observable state of a table after some statement or
// expression, tagged with the source span that produced it.
type Snapshot struct {
	Start   pos.Position
	End     pos.Position
	Columns []Column
}

// Mapping is the common shape of every row-correspondence relation
// between two traced arrays; the concrete variant determines which
// index arrays (if any) are attached.
type Mapping interface {
	isMapping()
}

// IdentityMapping: row i of Src corresponds exactly to row i of Tgt.
type IdentityMapping struct {
	Src, Tgt uuid.UUID
}

func (IdentityMapping) isMapping() {}

// ManyToOneMapping: row i of Src maps to row TgtIndex[i] of Tgt.
type ManyToOneMapping struct {
	Src, Tgt uuid.UUID
	TgtIndex uuid.UUID
}

func (ManyToOneMapping) isMapping() {}

// OneToManyMapping: row j of Tgt came from row SrcIndex[j] of Src.
type OneToManyMapping struct {
	Src, Tgt uuid.UUID
	SrcIndex uuid.UUID
}

func (OneToManyMapping) isMapping() {}

// ManyToManyMapping: aligned index arrays enumerate (src row, tgt row)
// correspondences.
type ManyToManyMapping struct {
	Src, Tgt           uuid.UUID
	SrcIndex, TgtIndex uuid.UUID
}

func (ManyToManyMapping) isMapping() {}

// Manifest is the full trace manifest for one evaluated script.
type Manifest struct {
	Source    string
	Snapshots []Snapshot
	Mappings  []Mapping
}

type jsonPosition struct {
	Lineno int `json:"lineno"`
	Column int `json:"column"`
}

func positionToJSON(p pos.Position) jsonPosition {
	return jsonPosition{Lineno: p.Line, Column: p.Column}
}

type jsonColumn struct {
	Name  string `json:"name"`
	Array string `json:"array"`
}

type jsonSnapshot struct {
	Start   jsonPosition `json:"start"`
	End     jsonPosition `json:"end"`
	Columns []jsonColumn `json:"columns"`
}

func snapshotToJSON(s Snapshot) jsonSnapshot {
	cols := make([]jsonColumn, len(s.Columns))
	for i, c := range s.Columns {
		cols[i] = jsonColumn{Name: c.Name, Array: c.Array.String()}
	}
	return jsonSnapshot{
		Start:   positionToJSON(s.Start),
		End:     positionToJSON(s.End),
		Columns: cols,
	}
}

func mappingToJSON(m Mapping) any {
	switch mm := m.(type) {
	case IdentityMapping:
		return map[string]any{
			"src_array": mm.Src.String(),
			"tgt_array": mm.Tgt.String(),
		}
	case ManyToOneMapping:
		return map[string]any{
			"src_array":       mm.Src.String(),
			"tgt_array":       mm.Tgt.String(),
			"tgt_index_array": mm.TgtIndex.String(),
		}
	case OneToManyMapping:
		return map[string]any{
			"src_array":       mm.Src.String(),
			"tgt_array":       mm.Tgt.String(),
			"src_index_array": mm.SrcIndex.String(),
		}
	case ManyToManyMapping:
		return map[string]any{
			"src_array":       mm.Src.String(),
			"tgt_array":       mm.Tgt.String(),
			"src_index_array": mm.SrcIndex.String(),
			"tgt_index_array": mm.TgtIndex.String(),
		}
	default:
		panic("manifest: unhandled Mapping variant")
	}
}

type jsonManifest struct {
	Source    string         `json:"source"`
	Snapshots []jsonSnapshot `json:"snapshots"`
	Mappings  []any          `json:"mappings"`
}

// MarshalJSON renders the manifest in the wire format from spec §6.
func (m *Manifest) MarshalJSON() ([]byte, error) {
	snapshots := make([]jsonSnapshot, len(m.Snapshots))
	for i, s := range m.Snapshots {
		snapshots[i] = snapshotToJSON(s)
	}
	mappings := make([]any, len(m.Mappings))
	for i, mm := range m.Mappings {
		mappings[i] = mappingToJSON(mm)
	}
	return json.Marshal(jsonManifest{
		Source:    m.Source,
		Snapshots: snapshots,
		Mappings:  mappings,
	})
}
