package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bwhmather/dtl/ir"
)

func TestCandidatesForBinaryAreIdentity(t *testing.T) {
	shape := ir.NewImportShape("a.csv")
	x := ir.NewImportColumn(shape, "x", ir.INT64)
	y := ir.NewImportColumn(shape, "y", ir.INT64)
	sum := ir.NewAdd(x, y)

	candidates := GenerateCandidates([]ir.Expression{x, y, sum})
	require.Len(t, candidates, 2)
	for _, c := range candidates {
		assert.Equal(t, Identity, c.Kind)
		assert.Same(t, sum, c.Tgt)
	}
}

func TestCandidatesForWhereAreManyToMany(t *testing.T) {
	shape := ir.NewImportShape("a.csv")
	mask := ir.NewImportColumn(shape, "active", ir.BOOL)
	source := ir.NewImportColumn(shape, "x", ir.INT64)
	where := ir.NewWhere(source, mask)

	candidates := GenerateCandidates([]ir.Expression{mask, source, where})
	require.Len(t, candidates, 2)
	for _, c := range candidates {
		assert.Equal(t, ManyToMany, c.Kind)
		assert.NotNil(t, c.SrcIndex)
		assert.NotNil(t, c.TgtIndex)
	}
}

// S3/S4 precedence and associativity are parser-level properties;
// mapping only sees the resulting IR, so here we check Compose
// eliminates an intermediate Binary node and leaves a root-to-root
// Identity mapping.
func TestComposeEliminatesIntermediateBinaryNode(t *testing.T) {
	shape := ir.NewImportShape("a.csv")
	x := ir.NewImportColumn(shape, "x", ir.INT64)
	one := ir.NewIntLit(1, ir.INT64, shape)
	step1 := ir.NewAdd(x, one)
	step2 := ir.NewAdd(step1, one)

	mappings, err := Compose([]ir.Expression{x, step2})
	require.NoError(t, err)

	require.Len(t, mappings, 1)
	assert.Equal(t, Identity, mappings[0].Kind)
	assert.Same(t, x, mappings[0].Src)
	assert.Same(t, step2, mappings[0].Tgt)
}

func TestComposeManyToManyThroughWhere(t *testing.T) {
	shape := ir.NewImportShape("a.csv")
	mask := ir.NewImportColumn(shape, "active", ir.BOOL)
	source := ir.NewImportColumn(shape, "x", ir.INT64)
	where := ir.NewWhere(source, mask)

	mappings, err := Compose([]ir.Expression{source, where})
	require.NoError(t, err)

	require.Len(t, mappings, 1)
	assert.Equal(t, ManyToMany, mappings[0].Kind)
	assert.Same(t, source, mappings[0].Src)
	assert.Same(t, ir.ArrayExpression(where), mappings[0].Tgt)
	assert.NotNil(t, mappings[0].SrcIndex)
	assert.NotNil(t, mappings[0].TgtIndex)
}

func TestComposeManyToManyOfManyToMany(t *testing.T) {
	// Build A --where--> B --where--> C and check Compose produces a
	// single synthetic-join ManyToMany straight from A to C, composed
	// through composeManyToMany's synthetic equi-join.
	shape := ir.NewImportShape("a.csv")
	maskAB := ir.NewImportColumn(shape, "m1", ir.BOOL)
	a := ir.NewImportColumn(shape, "x", ir.INT64)
	b := ir.NewWhere(a, maskAB)

	maskBCShape := ir.NewImportShape("b.csv")
	maskBC := ir.NewImportColumn(maskBCShape, "m2", ir.BOOL)
	c := ir.NewWhere(b, maskBC)

	mappings, err := Compose([]ir.Expression{a, c})
	require.NoError(t, err)

	require.Len(t, mappings, 1)
	assert.Equal(t, ManyToMany, mappings[0].Kind)
	assert.Same(t, a, mappings[0].Src)
	assert.Same(t, ir.ArrayExpression(c), mappings[0].Tgt)
	assert.NotNil(t, mappings[0].SrcIndex)
	assert.NotNil(t, mappings[0].TgtIndex)
}

// Regression test for a node-elimination ordering bug: when B is
// eliminated, the direct A->B edge must not survive in A's adjacency
// list just because A is a root that is never itself visited by the
// elimination loop.
func TestComposeDoesNotLeakEdgeIntoEliminatedNode(t *testing.T) {
	shape := ir.NewImportShape("a.csv")
	a := ir.NewImportColumn(shape, "x", ir.INT64)
	one := ir.NewIntLit(1, ir.INT64, shape)
	b := ir.NewAdd(a, one)
	c := ir.NewAdd(b, one)

	mappings, err := Compose([]ir.Expression{a, c})
	require.NoError(t, err)

	require.Len(t, mappings, 1)
	assert.Same(t, a, mappings[0].Src)
	assert.Same(t, ir.ArrayExpression(c), mappings[0].Tgt)
}

func TestComposeRootOnlySetIsEmpty(t *testing.T) {
	shape := ir.NewImportShape("a.csv")
	x := ir.NewImportColumn(shape, "x", ir.INT64)

	mappings, err := Compose([]ir.Expression{x})
	require.NoError(t, err)
	assert.Empty(t, mappings)
}
