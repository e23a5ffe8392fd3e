package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShapeIdentityNotStructural(t *testing.T) {
	// Invariant I4: two independently constructed, structurally
	// identical shapes are never ==.
	a := NewImportShape("people.csv")
	b := NewImportShape("people.csv")
	assert.NotSame(t, a, b)

	var ea, eb ShapeExpression = a, b
	assert.NotEqual(t, ea, eb)
}

func TestNewBinaryPanicsOnShapeMismatch(t *testing.T) {
	shapeA := NewImportShape("a.csv")
	shapeB := NewImportShape("b.csv")
	x := NewIntLit(1, INT64, shapeA)
	y := NewIntLit(2, INT64, shapeB)

	assert.Panics(t, func() { NewAdd(x, y) })
}

func TestNewBinaryPanicsOnDTypeMismatch(t *testing.T) {
	shape := NewImportShape("a.csv")
	x := NewIntLit(1, INT64, shape)
	y := NewFloatLit(2, shape)

	assert.Panics(t, func() { NewAdd(x, y) })
}

func TestNewBinarySucceedsWithSharedShape(t *testing.T) {
	shape := NewImportShape("a.csv")
	x := NewIntLit(1, INT64, shape)
	y := NewIntLit(2, INT64, shape)

	sum := NewAdd(x, y)
	assert.Equal(t, INT64, sum.DType())
	assert.Same(t, shape, sum.Shape())
}

func TestNewWhereColumnSharesShape(t *testing.T) {
	shape := NewImportShape("a.csv")
	col := NewImportColumn(shape, "active", BOOL)
	mask := col

	whereShape := NewWhereShape(mask)
	source1 := NewImportColumn(shape, "x", INT64)
	source2 := NewImportColumn(shape, "y", INT64)

	w1 := NewWhereColumn(whereShape, source1, mask)
	w2 := NewWhereColumn(whereShape, source2, mask)

	assert.Same(t, w1.Shape(), w2.Shape())
	// Two Where nodes sharing a WhereShape can now be combined by a
	// binary op, since their shapes compare == by pointer.
	assert.NotPanics(t, func() { NewEqualTo(w1, w2) })
}

func TestNewWherePanicsOnNonBoolMask(t *testing.T) {
	shape := NewImportShape("a.csv")
	notBool := NewImportColumn(shape, "x", INT64)
	source := NewImportColumn(shape, "y", INT64)

	assert.Panics(t, func() { NewWhere(source, notBool) })
}

func TestPickRequiresIndexDType(t *testing.T) {
	shape := NewImportShape("a.csv")
	source := NewImportColumn(shape, "x", INT64)
	notIndex := NewImportColumn(shape, "y", INT64)

	assert.Panics(t, func() { NewPick(source, notIndex) })
}

func TestTraverseDepthFirstOrdersDependenciesBeforeDependents(t *testing.T) {
	shapeA := NewImportShape("a.csv")
	x := NewImportColumn(shapeA, "x", INT64)
	y := NewImportColumn(shapeA, "y", INT64)
	sum := NewAdd(x, y)

	order := TraverseDepthFirst([]Expression{sum})

	indexOf := func(e Expression) int {
		for i, n := range order {
			if n == e {
				return i
			}
		}
		return -1
	}

	require.GreaterOrEqual(t, indexOf(x), 0)
	require.GreaterOrEqual(t, indexOf(y), 0)
	require.GreaterOrEqual(t, indexOf(sum), 0)
	assert.Less(t, indexOf(x), indexOf(sum))
	assert.Less(t, indexOf(y), indexOf(sum))
}

func TestTraverseDepthFirstVisitsSharedNodeOnce(t *testing.T) {
	shape := NewImportShape("a.csv")
	x := NewImportColumn(shape, "x", INT64)
	left := NewAdd(x, x)
	right := NewSubtract(x, x)

	order := TraverseDepthFirst([]Expression{left, right})

	count := 0
	for _, n := range order {
		if n == Expression(x) {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestDTypeString(t *testing.T) {
	assert.Equal(t, "BOOL", BOOL.String())
	assert.Equal(t, "INDEX", INDEX.String())
	assert.Equal(t, "UNKNOWN", DType(999).String())
}

func TestBinaryOpEqualToYieldsBool(t *testing.T) {
	shape := NewImportShape("a.csv")
	x := NewImportColumn(shape, "x", INT64)
	y := NewImportColumn(shape, "y", INT64)

	eq := NewEqualTo(x, y)
	assert.Equal(t, BOOL, eq.DType())

	add := NewAdd(x, y)
	assert.Equal(t, INT64, add.DType())
}
