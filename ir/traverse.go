package ir

// TraverseDepthFirst yields every node reachable from roots exactly
// once, with every dependency yielded before its dependents
// (reverse-postorder). It uses an explicit work stack rather than
// recursion so arbitrarily deep DAGs do not overflow the Go call stack
// (spec §4.1, property P1).
func TraverseDepthFirst(roots []Expression) []Expression {
	visited := make(map[Expression]bool, len(roots)*4)
	var order []Expression

	type frame struct {
		node Expression
		deps []Expression
		next int
	}

	var stack []*frame
	for _, root := range roots {
		if visited[root] {
			continue
		}
		visited[root] = true
		stack = append(stack, &frame{node: root, deps: root.dependencies()})

		for len(stack) > 0 {
			top := stack[len(stack)-1]
			if top.next < len(top.deps) {
				dep := top.deps[top.next]
				top.next++
				if dep == nil || visited[dep] {
					continue
				}
				visited[dep] = true
				stack = append(stack, &frame{node: dep, deps: dep.dependencies()})
				continue
			}

			order = append(order, top.node)
			stack = stack[:len(stack)-1]
		}
	}

	return order
}

// Map rebuilds the DAG rooted at roots, applying fn to each node after
// its children have already been rewritten, memoised by identity so a
// shared sub-expression is rewritten (and fn-ed) only once. This is a
// pure optimisation hook (spec §4.1, §9) — no optimiser pass ships in
// this repository, but deduplication of structurally-identical nodes is
// exactly fn == identity plus a canonicalising cache keyed by a
// structural fingerprint, which a caller can layer on top of this.
func Map(fn func(Expression) Expression, roots []Expression) []Expression {
	order := TraverseDepthFirst(roots)
	memo := make(map[Expression]Expression, len(order))

	lookup := func(e Expression) Expression {
		if e == nil {
			return nil
		}
		if r, ok := memo[e]; ok {
			return r
		}
		return e
	}

	for _, node := range order {
		memo[node] = fn(rewriteChildren(node, lookup))
	}

	out := make([]Expression, len(roots))
	for i, root := range roots {
		out[i] = lookup(root)
	}
	return out
}

// rewriteChildren returns a copy of node with each direct child replaced
// by lookup(child); it has a case for every Expression variant, and a
// variant without a case panics at run time rather than silently
// skipping rewriting.
func rewriteChildren(node Expression, lookup func(Expression) Expression) Expression {
	arr := func(e ArrayExpression) ArrayExpression {
		if e == nil {
			return nil
		}
		return lookup(e).(ArrayExpression)
	}
	shp := func(e ShapeExpression) ShapeExpression {
		if e == nil {
			return nil
		}
		return lookup(e).(ShapeExpression)
	}

	switch n := node.(type) {
	case *ImportShape:
		return &ImportShape{Location: n.Location}
	case *WhereShape:
		return &WhereShape{Mask: arr(n.Mask)}
	case *JoinShape:
		return &JoinShape{A: shp(n.A), B: shp(n.B)}
	case *BoolLit:
		return &BoolLit{Value: n.Value, ShapeExpr: shp(n.ShapeExpr)}
	case *IntLit:
		return &IntLit{Value: n.Value, DT: n.DT, ShapeExpr: shp(n.ShapeExpr)}
	case *FloatLit:
		return &FloatLit{Value: n.Value, ShapeExpr: shp(n.ShapeExpr)}
	case *TextLit:
		return &TextLit{Value: n.Value, ShapeExpr: shp(n.ShapeExpr)}
	case *BytesLit:
		return &BytesLit{Value: n.Value, ShapeExpr: shp(n.ShapeExpr)}
	case *Import:
		return &Import{Location: n.Location, Name: n.Name, DT: n.DT, shape: shp(n.shape).(*ImportShape)}
	case *Where:
		return &Where{Source: arr(n.Source), Mask: arr(n.Mask), shape: shp(n.shape).(*WhereShape)}
	case *Pick:
		return &Pick{Source: arr(n.Source), Indexes: arr(n.Indexes)}
	case *Range:
		return &Range{ShapeExpr: shp(n.ShapeExpr)}
	case *JoinLeft:
		return &JoinLeft{A: shp(n.A), B: shp(n.B), shape: shp(n.shape).(*JoinShape)}
	case *JoinRight:
		return &JoinRight{A: shp(n.A), B: shp(n.B), shape: shp(n.shape).(*JoinShape)}
	case *Binary:
		return &Binary{Op: n.Op, SourceA: arr(n.SourceA), SourceB: arr(n.SourceB)}
	case *JoinLeftEqual:
		return &JoinLeftEqual{A: arr(n.A), B: arr(n.B), shape: shp(n.shape).(*WhereShape)}
	case *JoinRightEqual:
		return &JoinRightEqual{A: arr(n.A), B: arr(n.B), shape: shp(n.shape).(*WhereShape)}
	default:
		panic("ir: rewriteChildren: unhandled Expression variant")
	}
}
