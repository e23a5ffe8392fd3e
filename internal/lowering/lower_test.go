package lowering

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bwhmather/dtl/arrayrt"
	"github.com/bwhmather/dtl/ir"
	"github.com/bwhmather/dtl/parser"
)

func lower(t *testing.T, script string, importer *arrayrt.MemoryImporter) *ir.Program {
	t.Helper()
	stmts, err := parser.Parse(script)
	require.NoError(t, err)
	prog, err := Lower(stmts, importer)
	require.NoError(t, err)
	return prog
}

func peopleImporter() *arrayrt.MemoryImporter {
	importer := arrayrt.NewMemoryImporter()
	importer.AddTable("people.csv", []string{"id", "name", "age"}, map[string]arrayrt.Array{
		"id":   arrayrt.Int64Array{1, 2, 3},
		"name": arrayrt.TextArray{"alice", "bob", "carol"},
		"age":  arrayrt.Int64Array{30, 25, 40},
	})
	return importer
}

func lastTable(prog *ir.Program) ir.Table {
	return prog.Tables[len(prog.Tables)-1]
}

// S1: renaming a column with an alias lowers to the same array, under
// the new name.
func TestLowerRename(t *testing.T) {
	prog := lower(t, `EXPORT SELECT name AS full_name FROM IMPORT 'people.csv' TO 'out.csv';`, peopleImporter())

	table := lastTable(prog)
	cols := table.Columns()
	require.Len(t, cols, 1)
	assert.Equal(t, "full_name", cols[0].Name)

	imp, ok := cols[0].Expression.(*ir.Import)
	require.True(t, ok)
	assert.Equal(t, "name", imp.Name)
}

// S2: a computed column introduces a Binary node and keeps the
// existing columns.
func TestLowerAddColumnViaFunction(t *testing.T) {
	prog := lower(t, `EXPORT SELECT id, add(age, 1) AS next_age FROM IMPORT 'people.csv' TO 'out.csv';`, peopleImporter())

	table := lastTable(prog)
	cols := table.Columns()
	require.Len(t, cols, 2)
	assert.Equal(t, "id", cols[0].Name)
	assert.Equal(t, "next_age", cols[1].Name)

	bin, ok := cols[1].Expression.(*ir.Binary)
	require.True(t, ok)
	assert.Equal(t, ir.OpAdd, bin.Op)
}

func TestLowerWildcardExpandsAllColumns(t *testing.T) {
	prog := lower(t, `EXPORT SELECT * FROM IMPORT 'people.csv' TO 'out.csv';`, peopleImporter())

	cols := lastTable(prog).Columns()
	require.Len(t, cols, 3)
	assert.Equal(t, []string{"id", "name", "age"}, []string{cols[0].Name, cols[1].Name, cols[2].Name})
}

func TestLowerWhereProducesWhereNodesSharingOneShape(t *testing.T) {
	prog := lower(t, `EXPORT SELECT id, name FROM IMPORT 'people.csv' WHERE age = age TO 'out.csv';`, peopleImporter())

	cols := lastTable(prog).Columns()
	require.Len(t, cols, 2)

	w0, ok := cols[0].Expression.(*ir.Where)
	require.True(t, ok)
	w1, ok := cols[1].Expression.(*ir.Where)
	require.True(t, ok)

	assert.Same(t, w0.Shape(), w1.Shape())
}

func TestLowerJoinOnEquality(t *testing.T) {
	importer := peopleImporter()
	importer.AddTable("orders.csv", []string{"person_id", "total"}, map[string]arrayrt.Array{
		"person_id": arrayrt.Int64Array{1, 2},
		"total":     arrayrt.Int64Array{100, 200},
	})

	prog := lower(t, `
		EXPORT SELECT p.name, o.total
		FROM IMPORT 'people.csv' p
		JOIN IMPORT 'orders.csv' o ON p.id = o.person_id
		TO 'out.csv';
	`, importer)

	cols := lastTable(prog).Columns()
	require.Len(t, cols, 2)
	assert.Equal(t, "name", cols[0].Name)
	assert.Equal(t, "total", cols[1].Name)

	// Both sides of the join are filtered by the same WhereShape
	// (the equi-join mask), so their shapes must be pointer-identical.
	assert.Same(t, cols[0].Expression.Shape(), cols[1].Expression.Shape())
}

func TestLowerUndefinedColumnIsCompileError(t *testing.T) {
	stmts, err := parser.Parse(`EXPORT SELECT missing FROM IMPORT 'people.csv' TO 'out.csv';`)
	require.NoError(t, err)
	_, err = Lower(stmts, peopleImporter())
	assert.Error(t, err)
}

func TestLowerUndefinedTableIsCompileError(t *testing.T) {
	stmts, err := parser.Parse(`EXPORT SELECT * FROM nonexistent TO 'out.csv';`)
	require.NoError(t, err)
	_, err = Lower(stmts, peopleImporter())
	assert.Error(t, err)
}

func TestLowerGroupByIsNotImplemented(t *testing.T) {
	stmts, err := parser.Parse(`EXPORT SELECT id FROM IMPORT 'people.csv' GROUP BY id TO 'out.csv';`)
	require.NoError(t, err)
	_, err = Lower(stmts, peopleImporter())
	assert.Error(t, err)
}

func TestLowerComparisonOperatorsOtherThanEqualAreNotImplemented(t *testing.T) {
	stmts, err := parser.Parse(`EXPORT SELECT * FROM IMPORT 'people.csv' WHERE age < 40 TO 'out.csv';`)
	require.NoError(t, err)
	_, err = Lower(stmts, peopleImporter())
	assert.Error(t, err)
}

func TestLowerWithBindingIsReusable(t *testing.T) {
	prog := lower(t, `
		WITH adults AS SELECT * FROM IMPORT 'people.csv' WHERE age = age;
		EXPORT SELECT * FROM adults TO 'out.csv';
	`, peopleImporter())

	cols := lastTable(prog).Columns()
	require.Len(t, cols, 3)
}
