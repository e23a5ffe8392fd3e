package manifest

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bwhmather/dtl/pos"
)

func TestMarshalJSONIncludesSnapshotsAndSource(t *testing.T) {
	arr := uuid.New()
	m := &Manifest{
		Source: "EXPORT SELECT x FROM IMPORT 'a' TO 'out';",
		Snapshots: []Snapshot{
			{
				Start:   pos.Position{Line: 1, Column: 1},
				End:     pos.Position{Line: 1, Column: 40},
				Columns: []Column{{Name: "x", Array: arr}},
			},
		},
	}

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, m.Source, decoded["source"])
	snapshots := decoded["snapshots"].([]any)
	require.Len(t, snapshots, 1)
	snap := snapshots[0].(map[string]any)
	cols := snap["columns"].([]any)
	require.Len(t, cols, 1)
	col := cols[0].(map[string]any)
	assert.Equal(t, "x", col["name"])
	assert.Equal(t, arr.String(), col["array"])
}

func TestMarshalJSONEncodesEveryMappingKind(t *testing.T) {
	src, tgt, idx := uuid.New(), uuid.New(), uuid.New()
	m := &Manifest{
		Mappings: []Mapping{
			IdentityMapping{Src: src, Tgt: tgt},
			ManyToOneMapping{Src: src, Tgt: tgt, TgtIndex: idx},
			OneToManyMapping{Src: src, Tgt: tgt, SrcIndex: idx},
			ManyToManyMapping{Src: src, Tgt: tgt, SrcIndex: idx, TgtIndex: idx},
		},
	}

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	mappings := decoded["mappings"].([]any)
	require.Len(t, mappings, 4)

	identity := mappings[0].(map[string]any)
	assert.NotContains(t, identity, "src_index_array")
	assert.NotContains(t, identity, "tgt_index_array")

	manyToOne := mappings[1].(map[string]any)
	assert.Equal(t, idx.String(), manyToOne["tgt_index_array"])

	oneToMany := mappings[2].(map[string]any)
	assert.Equal(t, idx.String(), oneToMany["src_index_array"])

	manyToMany := mappings[3].(map[string]any)
	assert.Equal(t, idx.String(), manyToMany["src_index_array"])
	assert.Equal(t, idx.String(), manyToMany["tgt_index_array"])
}

func TestMarshalJSONPanicsOnUnhandledMappingVariant(t *testing.T) {
	type unknownMapping struct{ Mapping }
	m := &Manifest{Mappings: []Mapping{unknownMapping{}}}

	assert.Panics(t, func() {
		_, _ = json.Marshal(m)
	})
}
