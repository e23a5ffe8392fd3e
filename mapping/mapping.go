// Package mapping implements the mapping algebra of spec §4.4: per-node
// candidate row-correspondence mappings, and their composition into a
// minimal set of mappings between root arrays for the trace manifest.
package mapping

import (
	"fmt"

	"github.com/bwhmather/dtl/ir"
)

// Kind identifies which of the four row-correspondence shapes a Mapping
// carries (spec §3.5). Candidate generation and composition in this
// package only ever produce Identity and ManyToMany — the spec
// explicitly allows keeping those two as "a minimum viable set,
// matching current behavior" (§4.4) — but the type covers the full
// closed set so a manifest writer can represent all four.
type Kind int

const (
	Identity Kind = iota
	ManyToOne
	OneToMany
	ManyToMany
)

func (k Kind) String() string {
	switch k {
	case Identity:
		return "Identity"
	case ManyToOne:
		return "ManyToOne"
	case OneToMany:
		return "OneToMany"
	case ManyToMany:
		return "ManyToMany"
	default:
		return "UnknownKind"
	}
}

// Mapping connects Src to Tgt (spec §3.5). SrcIndex/TgtIndex are nil
// for Identity, and for ManyToOne/OneToMany only the relevant one of
// the pair is set; ManyToMany sets both.
type Mapping struct {
	Kind     Kind
	Src, Tgt ir.ArrayExpression
	SrcIndex ir.ArrayExpression
	TgtIndex ir.ArrayExpression
}

// GenerateCandidates builds the per-node candidate mappings of spec
// §4.4's table for every node in nodes. nodes is expected to already be
// a dependency-closed set, typically ir.TraverseDepthFirst's output.
func GenerateCandidates(nodes []ir.Expression) []Mapping {
	var out []Mapping
	for _, n := range nodes {
		switch node := n.(type) {
		case *ir.Where:
			out = append(out, candidatesForWhere(node)...)
		case *ir.Pick:
			out = append(out, candidatesForPick(node)...)
		case *ir.Binary:
			out = append(out, candidatesForBinary(node)...)
		}
	}
	return out
}

func candidatesForWhere(node *ir.Where) []Mapping {
	whereShape, ok := node.Shape().(*ir.WhereShape)
	if !ok {
		panic("mapping: Where node's own shape is not a *ir.WhereShape")
	}

	rangeOverMask := ir.NewRange(node.Mask.Shape())
	srcIndex := ir.NewWhereColumn(whereShape, rangeOverMask, node.Mask)
	tgtIndex := ir.NewRange(node.Shape())

	return []Mapping{
		{Kind: ManyToMany, Src: node.Mask, Tgt: node, SrcIndex: srcIndex, TgtIndex: tgtIndex},
		{Kind: ManyToMany, Src: node.Source, Tgt: node, SrcIndex: srcIndex, TgtIndex: tgtIndex},
	}
}

func candidatesForPick(node *ir.Pick) []Mapping {
	rangeOverOut := ir.NewRange(node.Shape())
	return []Mapping{
		{Kind: Identity, Src: node.Indexes, Tgt: node},
		{Kind: ManyToMany, Src: node.Source, Tgt: node, SrcIndex: rangeOverOut, TgtIndex: node.Indexes},
	}
}

func candidatesForBinary(node *ir.Binary) []Mapping {
	return []Mapping{
		{Kind: Identity, Src: node.SourceA, Tgt: node},
		{Kind: Identity, Src: node.SourceB, Tgt: node},
	}
}

// Compose eliminates every non-root ArrayExpression from the candidate
// mapping graph by transitive composition (spec §4.4), returning the
// mappings that remain between root arrays.
func Compose(roots []ir.Expression) ([]Mapping, error) {
	order := ir.TraverseDepthFirst(roots)
	candidates := GenerateCandidates(order)

	rootSet := make(map[ir.Expression]bool, len(roots))
	for _, r := range roots {
		rootSet[r] = true
	}

	outEdges := make(map[ir.Expression][]*Mapping)
	inEdges := make(map[ir.Expression][]*Mapping)
	addEdge := func(m *Mapping) {
		outEdges[m.Src] = append(outEdges[m.Src], m)
		inEdges[m.Tgt] = append(inEdges[m.Tgt], m)
	}
	for i := range candidates {
		addEdge(&candidates[i])
	}

	// Nodes are eliminated in reverse topological order: dependents
	// before their dependencies. By the time a node's turn comes, every
	// edge leaving it has already been folded through its (already
	// eliminated) successors down to a root-terminal edge, so nothing
	// later in the pass needs to revisit it. Eliminating in forward
	// order instead would let edges freshly composed through a node
	// come to rest on an already-visited predecessor and never be
	// folded further.
	for i := len(order) - 1; i >= 0; i-- {
		node := order[i]
		if rootSet[node] {
			continue
		}
		incoming := inEdges[node]
		outgoing := outEdges[node]
		delete(inEdges, node)
		delete(outEdges, node)

		// Detach these edges from the adjacency lists of the nodes on
		// their other end too, so a root's outEdges never keeps a
		// stale reference to a node eliminated here.
		for _, m := range incoming {
			outEdges[m.Src] = removeMapping(outEdges[m.Src], m)
		}
		for _, m := range outgoing {
			inEdges[m.Tgt] = removeMapping(inEdges[m.Tgt], m)
		}

		if len(incoming) == 0 || len(outgoing) == 0 {
			continue
		}
		for _, mIn := range incoming {
			for _, mOut := range outgoing {
				composed, err := compose(mIn, mOut)
				if err != nil {
					return nil, err
				}
				addEdge(composed)
			}
		}
	}

	var final []Mapping
	for _, edges := range outEdges {
		for _, m := range edges {
			final = append(final, *m)
		}
	}
	return final, nil
}

// removeMapping returns list with the first occurrence of target removed,
// by pointer identity.
func removeMapping(list []*Mapping, target *Mapping) []*Mapping {
	for i, m := range list {
		if m == target {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// compose combines an incoming edge (src → node) with an outgoing edge
// (node → tgt) sharing the eliminated node, per spec §4.4's composition
// rules.
func compose(mIn, mOut *Mapping) (*Mapping, error) {
	switch {
	case mIn.Kind == Identity && mOut.Kind == Identity:
		return &Mapping{Kind: Identity, Src: mIn.Src, Tgt: mOut.Tgt}, nil

	case mIn.Kind == Identity && mOut.Kind == ManyToMany:
		return &Mapping{
			Kind: ManyToMany, Src: mIn.Src, Tgt: mOut.Tgt,
			SrcIndex: mOut.SrcIndex, TgtIndex: mOut.TgtIndex,
		}, nil

	case mIn.Kind == ManyToMany && mOut.Kind == Identity:
		return &Mapping{
			Kind: ManyToMany, Src: mIn.Src, Tgt: mOut.Tgt,
			SrcIndex: mIn.SrcIndex, TgtIndex: mIn.TgtIndex,
		}, nil

	case mIn.Kind == ManyToMany && mOut.Kind == ManyToMany:
		return composeManyToMany(mIn, mOut), nil

	default:
		return nil, fmt.Errorf("mapping: unsupported composition of %s and %s", mIn.Kind, mOut.Kind)
	}
}

// composeManyToMany builds the synthetic equi-join of spec §4.4:
// ManyToMany(A→B; sA,tB) ∘ ManyToMany(B→C; sB,tC) = ManyToMany(A→C),
// matching rows of B that tB and sB both reference.
func composeManyToMany(mIn, mOut *Mapping) *Mapping {
	sA, tB := mIn.SrcIndex, mIn.TgtIndex
	sB, tC := mOut.SrcIndex, mOut.TgtIndex

	full := ir.NewJoinShape(tB.Shape(), sB.Shape())
	left := ir.NewJoinLeftWithShape(full, tB.Shape(), sB.Shape())
	right := ir.NewJoinRightWithShape(full, tB.Shape(), sB.Shape())

	mask := ir.NewEqualTo(ir.NewPick(tB, left), ir.NewPick(sB, right))
	whereShape := ir.NewWhereShape(mask)

	filteredLeft := ir.NewWhereColumn(whereShape, left, mask)
	filteredRight := ir.NewWhereColumn(whereShape, right, mask)

	return &Mapping{
		Kind:     ManyToMany,
		Src:      mIn.Src,
		Tgt:      mOut.Tgt,
		SrcIndex: ir.NewPick(sA, filteredLeft),
		TgtIndex: ir.NewPick(tC, filteredRight),
	}
}
