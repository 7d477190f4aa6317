package graph

import (
	"fmt"

	"github.com/naudhr/tup/internal/ir"
)

// Cluster is a coalesced group of nodes sharing the same parent directory
// and type, produced by Combine for display purposes only; it is never
// persisted.
type Cluster struct {
	ID      string
	Parent  ir.Tupid
	Type    ir.NodeType
	Members []ir.Tupid
}

// CombinedGraph is the display-oriented result of Combine: clusters
// standing in for their member nodes, plus edges rewritten to point at
// cluster ids wherever either endpoint was coalesced.
type CombinedGraph struct {
	Clusters   map[string]*Cluster
	Singletons map[ir.Tupid]ir.Node
	Edges      []CombinedEdge
}

// CombinedEdge mirrors Edge but with string endpoints: a coalesced node is
// replaced by its cluster id ("cluster:<parent>:<type>"), any other node
// is rendered as "node:<id>".
type CombinedEdge struct {
	From string
	To   string
	Kind EdgeKind
}

func clusterKey(parent ir.Tupid, typ ir.NodeType) string {
	return fmt.Sprintf("cluster:%d:%s", parent, typ)
}

func endpointKey(id ir.Tupid) string {
	return fmt.Sprintf("node:%d", id)
}

// Combine coalesces clusters of nodes sharing the same directory and type
// into a single visual node, per spec.md 4.F step 5. Clusters of size one
// are left as plain singleton nodes rather than pointless one-member
// clusters.
func Combine(g *Graph) *CombinedGraph {
	byKey := make(map[string]*Cluster)
	memberOf := make(map[ir.Tupid]string)

	for _, n := range g.Nodes {
		key := clusterKey(n.ParentID, n.Type)
		c, ok := byKey[key]
		if !ok {
			c = &Cluster{ID: key, Parent: n.ParentID, Type: n.Type}
			byKey[key] = c
		}
		c.Members = append(c.Members, n.ID)
		memberOf[n.ID] = key
	}

	cg := &CombinedGraph{
		Clusters:   make(map[string]*Cluster),
		Singletons: make(map[ir.Tupid]ir.Node),
	}
	for key, c := range byKey {
		if len(c.Members) > 1 {
			cg.Clusters[key] = c
		} else {
			cg.Singletons[c.Members[0]] = g.Nodes[c.Members[0]]
		}
	}

	endpoint := func(id ir.Tupid) string {
		key := memberOf[id]
		if c, ok := cg.Clusters[key]; ok {
			return c.ID
		}
		return endpointKey(id)
	}

	seen := make(map[CombinedEdge]bool)
	for _, e := range g.Edges {
		ce := CombinedEdge{From: endpoint(e.From), To: endpoint(e.To), Kind: e.Kind}
		if ce.From == ce.To || seen[ce] {
			continue
		}
		seen[ce] = true
		cg.Edges = append(cg.Edges, ce)
	}
	return cg
}
