// Package dtlio is the on-disk columnar format used by cmd/dtl: one
// JSON file per table, keyed by location/sink/array-uuid. Spec §6
// explicitly delegates the exact wire format to the array runtime; this
// package is that choice for the reference in-memory runtime
// (arrayrt.MemoryRuntime).
package dtlio

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bwhmather/dtl/arrayrt"
	"github.com/bwhmather/dtl/manifest"
)

type columnFile struct {
	DType  string          `json:"dtype"`
	Values json.RawMessage `json:"values"`
}

type tableFile struct {
	Order   []string              `json:"order"`
	Columns map[string]columnFile `json:"columns"`
}

func encodeColumn(a arrayrt.Array) (columnFile, error) {
	var (
		data []byte
		err  error
	)
	switch v := a.(type) {
	case arrayrt.BoolArray:
		data, err = json.Marshal([]bool(v))
	case arrayrt.Int32Array:
		data, err = json.Marshal([]int32(v))
	case arrayrt.Int64Array:
		data, err = json.Marshal([]int64(v))
	case arrayrt.DoubleArray:
		data, err = json.Marshal([]float64(v))
	case arrayrt.TextArray:
		data, err = json.Marshal([]string(v))
	case arrayrt.BytesArray:
		data, err = json.Marshal([][]byte(v))
	case arrayrt.IndexArray:
		data, err = json.Marshal([]uint64(v))
	case arrayrt.TimestampArray:
		data, err = json.Marshal([]time.Time(v))
	case arrayrt.DateArray:
		data, err = json.Marshal([]time.Time(v))
	default:
		return columnFile{}, fmt.Errorf("dtlio: unsupported array type %T", a)
	}
	if err != nil {
		return columnFile{}, err
	}
	return columnFile{DType: a.DType().String(), Values: data}, nil
}

func decodeColumn(cf columnFile) (arrayrt.Array, error) {
	switch cf.DType {
	case "BOOL":
		var vs []bool
		if err := json.Unmarshal(cf.Values, &vs); err != nil {
			return nil, err
		}
		return arrayrt.BoolArray(vs), nil
	case "INT32":
		var vs []int32
		if err := json.Unmarshal(cf.Values, &vs); err != nil {
			return nil, err
		}
		return arrayrt.Int32Array(vs), nil
	case "INT64":
		var vs []int64
		if err := json.Unmarshal(cf.Values, &vs); err != nil {
			return nil, err
		}
		return arrayrt.Int64Array(vs), nil
	case "DOUBLE":
		var vs []float64
		if err := json.Unmarshal(cf.Values, &vs); err != nil {
			return nil, err
		}
		return arrayrt.DoubleArray(vs), nil
	case "TEXT":
		var vs []string
		if err := json.Unmarshal(cf.Values, &vs); err != nil {
			return nil, err
		}
		return arrayrt.TextArray(vs), nil
	case "BYTES":
		var vs [][]byte
		if err := json.Unmarshal(cf.Values, &vs); err != nil {
			return nil, err
		}
		return arrayrt.BytesArray(vs), nil
	case "INDEX":
		var vs []uint64
		if err := json.Unmarshal(cf.Values, &vs); err != nil {
			return nil, err
		}
		return arrayrt.IndexArray(vs), nil
	case "TIMESTAMP":
		var vs []time.Time
		if err := json.Unmarshal(cf.Values, &vs); err != nil {
			return nil, err
		}
		return arrayrt.TimestampArray(vs), nil
	case "DATE":
		var vs []time.Time
		if err := json.Unmarshal(cf.Values, &vs); err != nil {
			return nil, err
		}
		return arrayrt.DateArray(vs), nil
	default:
		return nil, fmt.Errorf("dtlio: unsupported dtype %q", cf.DType)
	}
}

// LoadInputDir reads every "<location>.json" file under dir into a
// MemoryImporter.
func LoadInputDir(dir string) (*arrayrt.MemoryImporter, error) {
	importer := arrayrt.NewMemoryImporter()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("dtlio: read input dir %q: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		location := strings.TrimSuffix(entry.Name(), ".json")

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("dtlio: read input table %q: %w", location, err)
		}

		var tf tableFile
		if err := json.Unmarshal(data, &tf); err != nil {
			return nil, fmt.Errorf("dtlio: parse input table %q: %w", location, err)
		}

		columns := make(map[string]arrayrt.Array, len(tf.Order))
		for _, name := range tf.Order {
			cf, ok := tf.Columns[name]
			if !ok {
				return nil, fmt.Errorf("dtlio: input table %q: column %q listed in order but missing", location, name)
			}
			arr, err := decodeColumn(cf)
			if err != nil {
				return nil, fmt.Errorf("dtlio: input table %q column %q: %w", location, name, err)
			}
			columns[name] = arr
		}
		importer.AddTable(location, tf.Order, columns)
	}

	return importer, nil
}

// DumpOutputDir writes every table the exporter collected as
// "<name>.json" under dir.
func DumpOutputDir(dir string, exporter *arrayrt.MemoryExporter) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("dtlio: create output dir %q: %w", dir, err)
	}

	for name, cols := range exporter.Tables() {
		order := make([]string, 0, len(cols))
		for cname := range cols {
			order = append(order, cname)
		}
		sort.Strings(order)

		tf := tableFile{Order: order, Columns: make(map[string]columnFile, len(cols))}
		for _, cname := range order {
			cf, err := encodeColumn(cols[cname])
			if err != nil {
				return fmt.Errorf("dtlio: export table %q column %q: %w", name, cname, err)
			}
			tf.Columns[cname] = cf
		}

		data, err := json.MarshalIndent(tf, "", "  ")
		if err != nil {
			return fmt.Errorf("dtlio: encode export table %q: %w", name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, name+".json"), data, 0o644); err != nil {
			return fmt.Errorf("dtlio: write export table %q: %w", name, err)
		}
	}

	return nil
}

// DumpTraceDir writes the trace manifest and every traced array under
// dir: "manifest.json" plus one "arrays/<uuid>.json" per array, each a
// single-column table named "values" (spec §6).
func DumpTraceDir(dir string, tracer *arrayrt.MemoryTracer) error {
	arraysDir := filepath.Join(dir, "arrays")
	if err := os.MkdirAll(arraysDir, 0o755); err != nil {
		return fmt.Errorf("dtlio: create trace dir %q: %w", arraysDir, err)
	}

	if tracer.Manifest != nil {
		data, err := marshalManifestIndent(tracer.Manifest)
		if err != nil {
			return fmt.Errorf("dtlio: encode trace manifest: %w", err)
		}
		if err := os.WriteFile(filepath.Join(dir, "manifest.json"), data, 0o644); err != nil {
			return fmt.Errorf("dtlio: write trace manifest: %w", err)
		}
	}

	for id, arr := range tracer.Arrays() {
		cf, err := encodeColumn(arr)
		if err != nil {
			return fmt.Errorf("dtlio: encode traced array %s: %w", id, err)
		}
		tf := tableFile{Order: []string{"values"}, Columns: map[string]columnFile{"values": cf}}
		data, err := json.MarshalIndent(tf, "", "  ")
		if err != nil {
			return fmt.Errorf("dtlio: encode traced array %s: %w", id, err)
		}
		path := filepath.Join(arraysDir, id.String()+".json")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("dtlio: write traced array %s: %w", id, err)
		}
	}

	return nil
}

func marshalManifestIndent(m *manifest.Manifest) ([]byte, error) {
	compact, err := m.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var buf []byte
	buf, err = json.MarshalIndent(json.RawMessage(compact), "", "  ")
	return buf, err
}
