package arrayrt

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/bwhmather/dtl/ir"
	"github.com/bwhmather/dtl/manifest"
	"github.com/google/uuid"
)

// --- Concrete array representations -----------------------------------------

type BoolArray []bool

func (a BoolArray) DType() ir.DType { return ir.BOOL }
func (a BoolArray) Len() int        { return len(a) }

type Int32Array []int32

func (a Int32Array) DType() ir.DType { return ir.INT32 }
func (a Int32Array) Len() int        { return len(a) }

type Int64Array []int64

func (a Int64Array) DType() ir.DType { return ir.INT64 }
func (a Int64Array) Len() int        { return len(a) }

type DoubleArray []float64

func (a DoubleArray) DType() ir.DType { return ir.DOUBLE }
func (a DoubleArray) Len() int        { return len(a) }

type TextArray []string

func (a TextArray) DType() ir.DType { return ir.TEXT }
func (a TextArray) Len() int        { return len(a) }

type BytesArray [][]byte

func (a BytesArray) DType() ir.DType { return ir.BYTES }
func (a BytesArray) Len() int        { return len(a) }

// IndexArray holds non-negative row positions into some other array.
type IndexArray []uint64

func (a IndexArray) DType() ir.DType { return ir.INDEX }
func (a IndexArray) Len() int        { return len(a) }

type TimestampArray []time.Time

func (a TimestampArray) DType() ir.DType { return ir.TIMESTAMP }
func (a TimestampArray) Len() int        { return len(a) }

type DateArray []time.Time

func (a DateArray) DType() ir.DType { return ir.DATE }
func (a DateArray) Len() int        { return len(a) }

// --- Runtime -----------------------------------------------------------------

// MemoryRuntime is a reference Runtime implementation built directly on
// Go slices. It exists because no columnar-array library in the example
// pack is present as buildable, non-test source; see DESIGN.md.
type MemoryRuntime struct{}

func NewMemoryRuntime() *MemoryRuntime { return &MemoryRuntime{} }

func (MemoryRuntime) Filter(arr, mask Array) (Array, error) {
	maskArr, ok := mask.(BoolArray)
	if !ok {
		return nil, fmt.Errorf("arrayrt: Filter mask must be BOOL, got %s", mask.DType())
	}
	if maskArr.Len() != arr.Len() {
		return nil, fmt.Errorf("arrayrt: Filter length mismatch: array has %d rows, mask has %d", arr.Len(), maskArr.Len())
	}

	switch a := arr.(type) {
	case BoolArray:
		return BoolArray(filterSlice(a, maskArr)), nil
	case Int32Array:
		return Int32Array(filterSlice(a, maskArr)), nil
	case Int64Array:
		return Int64Array(filterSlice(a, maskArr)), nil
	case DoubleArray:
		return DoubleArray(filterSlice(a, maskArr)), nil
	case TextArray:
		return TextArray(filterSlice(a, maskArr)), nil
	case BytesArray:
		return BytesArray(filterSlice(a, maskArr)), nil
	case IndexArray:
		return IndexArray(filterSlice(a, maskArr)), nil
	case TimestampArray:
		return TimestampArray(filterSlice(a, maskArr)), nil
	case DateArray:
		return DateArray(filterSlice(a, maskArr)), nil
	default:
		return nil, fmt.Errorf("arrayrt: Filter: unsupported array type %T", arr)
	}
}

func filterSlice[T any](s []T, mask BoolArray) []T {
	out := make([]T, 0, len(s))
	for i, v := range s {
		if mask[i] {
			out = append(out, v)
		}
	}
	return out
}

func (MemoryRuntime) Take(arr, indexes Array) (Array, error) {
	idx, ok := indexes.(IndexArray)
	if !ok {
		return nil, fmt.Errorf("arrayrt: Take indexes must be INDEX, got %s", indexes.DType())
	}

	switch a := arr.(type) {
	case BoolArray:
		return takeSlice(a, idx)
	case Int32Array:
		return takeTyped[int32](Int32Array(nil), a, idx)
	case Int64Array:
		return takeTyped[int64](Int64Array(nil), a, idx)
	case DoubleArray:
		return takeTyped[float64](DoubleArray(nil), a, idx)
	case TextArray:
		return takeTyped[string](TextArray(nil), a, idx)
	case BytesArray:
		out, err := takeSliceErr(a, idx)
		if err != nil {
			return nil, err
		}
		return BytesArray(out), nil
	case IndexArray:
		out, err := takeSliceErr([]uint64(a), idx)
		if err != nil {
			return nil, err
		}
		return IndexArray(out), nil
	case TimestampArray:
		out, err := takeSliceErr([]time.Time(a), idx)
		if err != nil {
			return nil, err
		}
		return TimestampArray(out), nil
	case DateArray:
		out, err := takeSliceErr([]time.Time(a), idx)
		if err != nil {
			return nil, err
		}
		return DateArray(out), nil
	default:
		return nil, fmt.Errorf("arrayrt: Take: unsupported array type %T", arr)
	}
}

// takeTyped gives the Int32/Int64/Double/Text Take paths one shared,
// bounds-checked gather that converts back to the named array type,
// instead of repeating the check for every element dtype.
func takeTyped[T any, A ~[]T](_ A, s []T, idx IndexArray) (Array, error) {
	out, err := takeSliceErr(s, idx)
	if err != nil {
		return nil, err
	}
	return A(out), nil
}

func takeSlice(a BoolArray, idx IndexArray) (Array, error) {
	out, err := takeSliceErr([]bool(a), idx)
	if err != nil {
		return nil, err
	}
	return BoolArray(out), nil
}

func takeSliceErr[T any](s []T, idx IndexArray) ([]T, error) {
	out := make([]T, len(idx))
	for i, ix := range idx {
		if int(ix) >= len(s) {
			return nil, fmt.Errorf("arrayrt: Take index %d out of range for array of length %d", ix, len(s))
		}
		out[i] = s[ix]
	}
	return out, nil
}

type numeric interface {
	~int32 | ~int64 | ~float64
}

func binOp[T numeric](a, b []T, op func(T, T) T) ([]T, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("arrayrt: operand length mismatch: %d vs %d", len(a), len(b))
	}
	out := make([]T, len(a))
	for i := range a {
		out[i] = op(a[i], b[i])
	}
	return out, nil
}

func (MemoryRuntime) arith(a, b Array, op func(x, y float64) float64, opInt func(x, y int64) int64, opI32 func(x, y int32) int32, name string) (Array, error) {
	switch av := a.(type) {
	case Int32Array:
		bv, ok := b.(Int32Array)
		if !ok {
			return nil, fmt.Errorf("arrayrt: %s: dtype mismatch %s vs %s", name, a.DType(), b.DType())
		}
		out, err := binOp([]int32(av), []int32(bv), opI32)
		if err != nil {
			return nil, err
		}
		return Int32Array(out), nil
	case Int64Array:
		bv, ok := b.(Int64Array)
		if !ok {
			return nil, fmt.Errorf("arrayrt: %s: dtype mismatch %s vs %s", name, a.DType(), b.DType())
		}
		out, err := binOp([]int64(av), []int64(bv), opInt)
		if err != nil {
			return nil, err
		}
		return Int64Array(out), nil
	case DoubleArray:
		bv, ok := b.(DoubleArray)
		if !ok {
			return nil, fmt.Errorf("arrayrt: %s: dtype mismatch %s vs %s", name, a.DType(), b.DType())
		}
		out, err := binOp([]float64(av), []float64(bv), op)
		if err != nil {
			return nil, err
		}
		return DoubleArray(out), nil
	default:
		return nil, fmt.Errorf("arrayrt: %s: unsupported dtype %s", name, a.DType())
	}
}

func (m MemoryRuntime) Add(a, b Array) (Array, error) {
	return m.arith(a, b,
		func(x, y float64) float64 { return x + y },
		func(x, y int64) int64 { return x + y },
		func(x, y int32) int32 { return x + y },
		"Add")
}

func (m MemoryRuntime) Subtract(a, b Array) (Array, error) {
	return m.arith(a, b,
		func(x, y float64) float64 { return x - y },
		func(x, y int64) int64 { return x - y },
		func(x, y int32) int32 { return x - y },
		"Subtract")
}

func (m MemoryRuntime) Multiply(a, b Array) (Array, error) {
	return m.arith(a, b,
		func(x, y float64) float64 { return x * y },
		func(x, y int64) int64 { return x * y },
		func(x, y int32) int32 { return x * y },
		"Multiply")
}

func (m MemoryRuntime) Divide(a, b Array) (Array, error) {
	return m.arith(a, b,
		func(x, y float64) float64 { return x / y },
		func(x, y int64) int64 { return x / y },
		func(x, y int32) int32 { return x / y },
		"Divide")
}

func (MemoryRuntime) Equal(a, b Array) (Array, error) {
	if a.Len() != b.Len() {
		return nil, fmt.Errorf("arrayrt: Equal length mismatch: %d vs %d", a.Len(), b.Len())
	}
	n := a.Len()
	out := make(BoolArray, n)

	switch av := a.(type) {
	case BoolArray:
		bv, ok := b.(BoolArray)
		if !ok {
			return nil, fmt.Errorf("arrayrt: Equal: dtype mismatch %s vs %s", a.DType(), b.DType())
		}
		for i := range av {
			out[i] = av[i] == bv[i]
		}
	case Int32Array:
		bv, ok := b.(Int32Array)
		if !ok {
			return nil, fmt.Errorf("arrayrt: Equal: dtype mismatch %s vs %s", a.DType(), b.DType())
		}
		for i := range av {
			out[i] = av[i] == bv[i]
		}
	case Int64Array:
		bv, ok := b.(Int64Array)
		if !ok {
			return nil, fmt.Errorf("arrayrt: Equal: dtype mismatch %s vs %s", a.DType(), b.DType())
		}
		for i := range av {
			out[i] = av[i] == bv[i]
		}
	case DoubleArray:
		bv, ok := b.(DoubleArray)
		if !ok {
			return nil, fmt.Errorf("arrayrt: Equal: dtype mismatch %s vs %s", a.DType(), b.DType())
		}
		for i := range av {
			out[i] = av[i] == bv[i]
		}
	case TextArray:
		bv, ok := b.(TextArray)
		if !ok {
			return nil, fmt.Errorf("arrayrt: Equal: dtype mismatch %s vs %s", a.DType(), b.DType())
		}
		for i := range av {
			out[i] = av[i] == bv[i]
		}
	case BytesArray:
		bv, ok := b.(BytesArray)
		if !ok {
			return nil, fmt.Errorf("arrayrt: Equal: dtype mismatch %s vs %s", a.DType(), b.DType())
		}
		for i := range av {
			out[i] = bytes.Equal(av[i], bv[i])
		}
	case IndexArray:
		bv, ok := b.(IndexArray)
		if !ok {
			return nil, fmt.Errorf("arrayrt: Equal: dtype mismatch %s vs %s", a.DType(), b.DType())
		}
		for i := range av {
			out[i] = av[i] == bv[i]
		}
	default:
		return nil, fmt.Errorf("arrayrt: Equal: unsupported dtype %s", a.DType())
	}

	return out, nil
}

func (MemoryRuntime) Sum(mask Array) (int, error) {
	maskArr, ok := mask.(BoolArray)
	if !ok {
		return 0, fmt.Errorf("arrayrt: Sum expects a BOOL array, got %s", mask.DType())
	}
	count := 0
	for _, v := range maskArr {
		if v {
			count++
		}
	}
	return count, nil
}

func (MemoryRuntime) JoinLeftIndex(a, b int) (Array, error) {
	if a < 0 || b < 0 {
		return nil, fmt.Errorf("arrayrt: JoinLeftIndex: negative operand %d,%d", a, b)
	}
	out := make(IndexArray, a*b)
	for i := range out {
		out[i] = uint64(i / b)
	}
	return out, nil
}

func (MemoryRuntime) JoinRightIndex(a, b int) (Array, error) {
	if a < 0 || b < 0 {
		return nil, fmt.Errorf("arrayrt: JoinRightIndex: negative operand %d,%d", a, b)
	}
	out := make(IndexArray, a*b)
	for i := range out {
		out[i] = uint64(i % b)
	}
	return out, nil
}

func (MemoryRuntime) Range(n int) (Array, error) {
	if n < 0 {
		return nil, fmt.Errorf("arrayrt: Range: negative length %d", n)
	}
	out := make(IndexArray, n)
	for i := range out {
		out[i] = uint64(i)
	}
	return out, nil
}

func (MemoryRuntime) Broadcast(value any, n int, dtype ir.DType) (Array, error) {
	if n < 0 {
		return nil, fmt.Errorf("arrayrt: Broadcast: negative length %d", n)
	}
	switch dtype {
	case ir.BOOL:
		v, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("arrayrt: Broadcast: expected bool, got %T", value)
		}
		out := make(BoolArray, n)
		for i := range out {
			out[i] = v
		}
		return out, nil
	case ir.INT32:
		v, ok := value.(int32)
		if !ok {
			return nil, fmt.Errorf("arrayrt: Broadcast: expected int32, got %T", value)
		}
		out := make(Int32Array, n)
		for i := range out {
			out[i] = v
		}
		return out, nil
	case ir.INT64:
		v, ok := value.(int64)
		if !ok {
			return nil, fmt.Errorf("arrayrt: Broadcast: expected int64, got %T", value)
		}
		out := make(Int64Array, n)
		for i := range out {
			out[i] = v
		}
		return out, nil
	case ir.DOUBLE:
		v, ok := value.(float64)
		if !ok {
			return nil, fmt.Errorf("arrayrt: Broadcast: expected float64, got %T", value)
		}
		out := make(DoubleArray, n)
		for i := range out {
			out[i] = v
		}
		return out, nil
	case ir.TEXT:
		v, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("arrayrt: Broadcast: expected string, got %T", value)
		}
		out := make(TextArray, n)
		for i := range out {
			out[i] = v
		}
		return out, nil
	case ir.BYTES:
		v, ok := value.([]byte)
		if !ok {
			return nil, fmt.Errorf("arrayrt: Broadcast: expected []byte, got %T", value)
		}
		out := make(BytesArray, n)
		for i := range out {
			out[i] = v
		}
		return out, nil
	default:
		return nil, fmt.Errorf("arrayrt: Broadcast: unsupported dtype %s", dtype)
	}
}

// --- Importer / Exporter / Tracer --------------------------------------------

// MemoryImporter serves input tables held entirely in memory, keyed by
// location string.
type MemoryImporter struct {
	tables map[string]map[string]Array
	order  map[string][]string
}

func NewMemoryImporter() *MemoryImporter {
	return &MemoryImporter{
		tables: make(map[string]map[string]Array),
		order:  make(map[string][]string),
	}
}

// AddTable registers a table at location with the given columns, in
// order (order matters for wildcard expansion during lowering).
func (m *MemoryImporter) AddTable(location string, columnOrder []string, columns map[string]Array) {
	m.tables[location] = columns
	m.order[location] = columnOrder
}

// ColumnNames returns the ordered column names of the table at
// location, for lowering's schema lookup.
func (m *MemoryImporter) ColumnNames(location string) ([]string, error) {
	names, ok := m.order[location]
	if !ok {
		return nil, fmt.Errorf("arrayrt: no input table registered at %q", location)
	}
	return names, nil
}

// ColumnDType returns the dtype of a column without materialising it,
// for lowering.
func (m *MemoryImporter) ColumnDType(location, name string) (ir.DType, error) {
	table, ok := m.tables[location]
	if !ok {
		return 0, fmt.Errorf("arrayrt: no input table registered at %q", location)
	}
	col, ok := table[name]
	if !ok {
		return 0, fmt.Errorf("arrayrt: no column %q on input table %q", name, location)
	}
	return col.DType(), nil
}

func (m *MemoryImporter) Len(location string) (int, error) {
	table, ok := m.tables[location]
	if !ok {
		return 0, fmt.Errorf("arrayrt: no input table registered at %q", location)
	}
	for _, col := range table {
		return col.Len(), nil
	}
	return 0, nil
}

func (m *MemoryImporter) Column(location, name string) (Array, error) {
	table, ok := m.tables[location]
	if !ok {
		return nil, fmt.Errorf("arrayrt: no input table registered at %q", location)
	}
	col, ok := table[name]
	if !ok {
		return nil, fmt.Errorf("arrayrt: no column %q on input table %q", name, location)
	}
	return col, nil
}

// MemoryExporter captures exported tables in memory, for the CLI to
// flush to disk and tests to assert against directly.
type MemoryExporter struct {
	mu      sync.Mutex
	outputs map[string]map[string]Array
}

func NewMemoryExporter() *MemoryExporter {
	return &MemoryExporter{outputs: make(map[string]map[string]Array)}
}

func (m *MemoryExporter) Export(name string, columns map[string]Array) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outputs[name] = columns
	return nil
}

func (m *MemoryExporter) Table(name string) (map[string]Array, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.outputs[name]
	return t, ok
}

// Tables returns every table exported so far, keyed by sink name.
func (m *MemoryExporter) Tables() map[string]map[string]Array {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]map[string]Array, len(m.outputs))
	for k, v := range m.outputs {
		out[k] = v
	}
	return out
}

// MemoryTracer captures traced arrays and the final manifest in memory.
type MemoryTracer struct {
	mu       sync.Mutex
	arrays   map[uuid.UUID]Array
	Manifest *manifest.Manifest
}

func NewMemoryTracer() *MemoryTracer {
	return &MemoryTracer{arrays: make(map[uuid.UUID]Array)}
}

func (m *MemoryTracer) TraceArray(id uuid.UUID, arr Array) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.arrays[id] = arr
	return nil
}

func (m *MemoryTracer) WriteManifest(manifest *manifest.Manifest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Manifest = manifest
	return nil
}

func (m *MemoryTracer) Array(id uuid.UUID) (Array, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.arrays[id]
	return a, ok
}

// Arrays returns every array traced so far, keyed by its manifest uuid.
func (m *MemoryTracer) Arrays() map[uuid.UUID]Array {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[uuid.UUID]Array, len(m.arrays))
	for k, v := range m.arrays {
		out[k] = v
	}
	return out
}
