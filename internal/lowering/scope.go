// Package lowering implements AST→IR lowering (spec §4.3): turning a
// parsed *ast.StatementList into an *ir.Program, given a SchemaImporter
// that can describe input table shapes.
package lowering

import "github.com/bwhmather/dtl/ir"

// DefaultNamespace is the sentinel namespace ("None" in the spec) that
// every column carries until a SELECT broadens it with a table or join
// alias. Unqualified column references resolve against it.
const DefaultNamespace = ""

// binding is one column of a Scope: its name, the set of namespaces
// under which it is currently reachable, and the array it lowers to.
type binding struct {
	name       string
	namespaces map[string]bool
	expr       ir.ArrayExpression
}

// Scope is the lowering-time table shape described in spec §3.4: an
// ordered list of (name, namespaces, ArrayExpression) triples. It is
// never persisted into the Program; it exists only while lowering a
// table expression.
type Scope struct {
	bindings []binding
}

// NewScope builds a Scope from parallel names and expressions, each
// reachable only under the default namespace.
func NewScope(names []string, exprs []ir.ArrayExpression) Scope {
	bindings := make([]binding, len(names))
	for i, name := range names {
		bindings[i] = binding{
			name:       name,
			namespaces: map[string]bool{DefaultNamespace: true},
			expr:       exprs[i],
		}
	}
	return Scope{bindings: bindings}
}

// Names returns the scope's column names, in order.
func (s Scope) Names() []string {
	names := make([]string, len(s.bindings))
	for i, b := range s.bindings {
		names[i] = b.name
	}
	return names
}

// Exprs returns the scope's column expressions, in order.
func (s Scope) Exprs() []ir.ArrayExpression {
	exprs := make([]ir.ArrayExpression, len(s.bindings))
	for i, b := range s.bindings {
		exprs[i] = b.expr
	}
	return exprs
}

// Len reports how many columns the scope has.
func (s Scope) Len() int { return len(s.bindings) }

// FirstShape returns the shape of the scope's first column, used to
// broadcast literals; ok is false for an empty scope.
func (s Scope) FirstShape() (ir.ShapeExpression, bool) {
	if len(s.bindings) == 0 {
		return nil, false
	}
	return s.bindings[0].expr.Shape(), true
}

// Lookup returns the array bound to name under namespace: the first
// binding (in scope order) whose name matches and whose namespace set
// contains namespace. ok is false if nothing matches.
func (s Scope) Lookup(namespace, name string) (ir.ArrayExpression, bool) {
	for _, b := range s.bindings {
		if b.name == name && b.namespaces[namespace] {
			return b.expr, true
		}
	}
	return nil, false
}

// WithNamespace returns a copy of the scope where every column also
// carries the given extra namespace, in addition to whatever
// namespaces it already had.
func (s Scope) WithNamespace(namespace string) Scope {
	out := make([]binding, len(s.bindings))
	for i, b := range s.bindings {
		ns := make(map[string]bool, len(b.namespaces)+1)
		for k := range b.namespaces {
			ns[k] = true
		}
		ns[namespace] = true
		out[i] = binding{name: b.name, namespaces: ns, expr: b.expr}
	}
	return Scope{bindings: out}
}

// StripNamespaces returns a copy of the scope where every column is
// reachable only under DefaultNamespace — used when a table expression
// is bound by WITH or consumed by EXPORT, at which point its internal
// table/join aliases stop being meaningful (spec §4.3).
func (s Scope) StripNamespaces() Scope {
	out := make([]binding, len(s.bindings))
	for i, b := range s.bindings {
		out[i] = binding{
			name:       b.name,
			namespaces: map[string]bool{DefaultNamespace: true},
			expr:       b.expr,
		}
	}
	return Scope{bindings: out}
}

// mapExprs returns a copy of the scope with every column's expression
// replaced by rewrite(expr), namespaces and names unchanged. Used to
// Pick every column of a scope through a shared index array (join
// rebuilding) or filter it through a shared mask (WHERE rebuilding).
func (s Scope) mapExprs(rewrite func(ir.ArrayExpression) ir.ArrayExpression) Scope {
	out := make([]binding, len(s.bindings))
	for i, b := range s.bindings {
		out[i] = binding{name: b.name, namespaces: b.namespaces, expr: rewrite(b.expr)}
	}
	return Scope{bindings: out}
}

// concat returns a scope with other's bindings appended after the
// receiver's own, used to rejoin a join's two sides after masking.
func (s Scope) concat(other Scope) Scope {
	out := make([]binding, 0, len(s.bindings)+len(other.bindings))
	out = append(out, s.bindings...)
	out = append(out, other.bindings...)
	return Scope{bindings: out}
}

// appendColumn returns a copy of the scope with an extra (name, expr)
// binding appended under DefaultNamespace. lowerSelect does not use it;
// it accumulates its column list in local slices.
func (s Scope) appendColumn(name string, expr ir.ArrayExpression) Scope {
	out := make([]binding, len(s.bindings), len(s.bindings)+1)
	copy(out, s.bindings)
	out = append(out, binding{
		name:       name,
		namespaces: map[string]bool{DefaultNamespace: true},
		expr:       expr,
	})
	return Scope{bindings: out}
}
