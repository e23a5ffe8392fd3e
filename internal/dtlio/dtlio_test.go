package dtlio

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bwhmather/dtl/arrayrt"
	"github.com/bwhmather/dtl/manifest"
)

func writeInputTable(t *testing.T, dir, location string, order []string, columns map[string]columnFile) {
	t.Helper()
	tf := tableFile{Order: order, Columns: columns}
	data, err := json.Marshal(tf)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, location+".json"), data, 0o644))
}

func mustEncode(t *testing.T, a arrayrt.Array) columnFile {
	t.Helper()
	cf, err := encodeColumn(a)
	require.NoError(t, err)
	return cf
}

func TestLoadInputDirRoundTripsInt64TextAndBoolColumns(t *testing.T) {
	dir := t.TempDir()
	writeInputTable(t, dir, "people", []string{"id", "name", "active"}, map[string]columnFile{
		"id":     mustEncode(t, arrayrt.Int64Array{1, 2}),
		"name":   mustEncode(t, arrayrt.TextArray{"alice", "bob"}),
		"active": mustEncode(t, arrayrt.BoolArray{true, false}),
	})

	importer, err := LoadInputDir(dir)
	require.NoError(t, err)

	names, err := importer.ColumnNames("people")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "active"}, names)

	col, err := importer.Column("people", "name")
	require.NoError(t, err)
	assert.Equal(t, arrayrt.TextArray{"alice", "bob"}, col)

	n, err := importer.Len("people")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestLoadInputDirIgnoresNonJSONFiles(t *testing.T) {
	dir := t.TempDir()
	writeInputTable(t, dir, "people", []string{"id"}, map[string]columnFile{
		"id": mustEncode(t, arrayrt.Int64Array{1}),
	})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("not a table"), 0o644))

	importer, err := LoadInputDir(dir)
	require.NoError(t, err)

	_, err = importer.ColumnNames("README")
	assert.Error(t, err)
	_, err = importer.ColumnNames("people")
	assert.NoError(t, err)
}

func TestLoadInputDirRejectsMissingColumn(t *testing.T) {
	dir := t.TempDir()
	writeInputTable(t, dir, "broken", []string{"id", "missing"}, map[string]columnFile{
		"id": mustEncode(t, arrayrt.Int64Array{1}),
	})

	_, err := LoadInputDir(dir)
	assert.Error(t, err)
}

func TestDumpOutputDirWritesSortedColumns(t *testing.T) {
	dir := t.TempDir()
	exporter := arrayrt.NewMemoryExporter()
	require.NoError(t, exporter.Export("out", map[string]arrayrt.Array{
		"b": arrayrt.Int64Array{2},
		"a": arrayrt.Int64Array{1},
	}))

	require.NoError(t, DumpOutputDir(dir, exporter))

	data, err := os.ReadFile(filepath.Join(dir, "out.json"))
	require.NoError(t, err)

	var tf tableFile
	require.NoError(t, json.Unmarshal(data, &tf))
	assert.Equal(t, []string{"a", "b"}, tf.Order)
}

func TestDumpOutputDirThenLoadInputDirRoundTrips(t *testing.T) {
	dir := t.TempDir()
	exporter := arrayrt.NewMemoryExporter()
	require.NoError(t, exporter.Export("roundtrip", map[string]arrayrt.Array{
		"x": arrayrt.DoubleArray{1.5, 2.5},
	}))
	require.NoError(t, DumpOutputDir(dir, exporter))

	importer, err := LoadInputDir(dir)
	require.NoError(t, err)
	col, err := importer.Column("roundtrip", "x")
	require.NoError(t, err)
	assert.Equal(t, arrayrt.DoubleArray{1.5, 2.5}, col)
}

func TestDumpTraceDirWritesManifestAndArrays(t *testing.T) {
	dir := t.TempDir()
	tracer := arrayrt.NewMemoryTracer()
	id := uuid.New()
	require.NoError(t, tracer.TraceArray(id, arrayrt.Int64Array{1, 2, 3}))
	require.NoError(t, tracer.WriteManifest(&manifest.Manifest{Source: "EXPORT ...;"}))

	require.NoError(t, DumpTraceDir(dir, tracer))

	manifestData, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	require.NoError(t, err)
	assert.Contains(t, string(manifestData), "EXPORT ...;")

	arrayData, err := os.ReadFile(filepath.Join(dir, "arrays", id.String()+".json"))
	require.NoError(t, err)
	var tf tableFile
	require.NoError(t, json.Unmarshal(arrayData, &tf))
	assert.Equal(t, "INT64", tf.Columns["values"].DType)
}
