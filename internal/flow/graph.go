package flow

import (
	"sort"

	"github.com/reifydb/reifydb/internal/diagnostic"
	"github.com/reifydb/reifydb/internal/keycode"
)

// twoSidedOperator is implemented by operators with two distinct
// upstreams (currently only JoinOperator) that cannot be driven through
// the single-input Operator interface.
type twoSidedOperator interface {
	ProcessLeft(FlowChange) ([]FlowChange, error)
	ProcessRight(FlowChange) ([]FlowChange, error)
}

// node is one operator instance wired into a Graph, together with the
// upstream node ids it consumes from (empty for a source node fed
// directly from CDC).
type node struct {
	id       keycode.FlowNodeId
	op       Operator
	upstream []keycode.FlowNodeId
}

// Graph is a flow's operator DAG (§4.10): nodes are keyed by
// FlowNodeId, edges run from each node's declared upstream ids to
// itself, and Feed pushes one external change through the graph,
// fanning out to every downstream node in topological order.
type Graph struct {
	nodes       map[keycode.FlowNodeId]*node
	downstreams map[keycode.FlowNodeId][]keycode.FlowNodeId
}

// NewGraph builds an empty flow graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:       map[keycode.FlowNodeId]*node{},
		downstreams: map[keycode.FlowNodeId][]keycode.FlowNodeId{},
	}
}

// AddNode registers op under id, consuming from the given upstream node
// ids (none for a graph source). For a two-sided operator (currently
// only a JoinOperator), upstream[0] feeds ProcessLeft and upstream[1]
// feeds ProcessRight.
func (g *Graph) AddNode(id keycode.FlowNodeId, op Operator, upstream ...keycode.FlowNodeId) {
	g.nodes[id] = &node{id: id, op: op, upstream: upstream}
	for _, u := range upstream {
		g.downstreams[u] = append(g.downstreams[u], id)
	}
}

// Feed pushes one change into sourceID's operator and propagates every
// resulting output change to each downstream node, recursively, until
// every reachable node has processed it. It returns the outputs of
// every leaf node (one with no downstream consumers) produced along
// the way, in the deterministic order their owning nodes were visited.
func (g *Graph) Feed(sourceID keycode.FlowNodeId, change FlowChange) ([]FlowChange, error) {
	n, ok := g.nodes[sourceID]
	if !ok {
		return nil, diagnostic.New(diagnostic.CodeFlowInvariant, "unknown flow node").WithNote("feed target not registered")
	}
	out, err := n.op.Process(change)
	if err != nil {
		return nil, err
	}
	return g.propagate(sourceID, out)
}

func (g *Graph) propagate(fromID keycode.FlowNodeId, changes []FlowChange) ([]FlowChange, error) {
	downstream := g.downstreams[fromID]
	if len(downstream) == 0 {
		return changes, nil
	}

	ids := append([]keycode.FlowNodeId(nil), downstream...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var leaves []FlowChange
	for _, id := range ids {
		n := g.nodes[id]
		side := sideOf(n, fromID)
		for _, c := range changes {
			out, err := g.dispatch(n, side, c)
			if err != nil {
				return nil, err
			}
			next, err := g.propagate(id, out)
			if err != nil {
				return nil, err
			}
			leaves = append(leaves, next...)
		}
	}
	return leaves, nil
}

// side distinguishes a two-sided operator's two upstreams by the
// position of fromID in the node's declared upstream list.
type side int

const (
	sideSingle side = iota
	sideLeft
	sideRight
)

func sideOf(n *node, fromID keycode.FlowNodeId) side {
	if _, ok := n.op.(twoSidedOperator); !ok {
		return sideSingle
	}
	for i, u := range n.upstream {
		if u == fromID {
			if i == 0 {
				return sideLeft
			}
			return sideRight
		}
	}
	return sideLeft
}

func (g *Graph) dispatch(n *node, s side, change FlowChange) ([]FlowChange, error) {
	if two, ok := n.op.(twoSidedOperator); ok {
		if s == sideRight {
			return two.ProcessRight(change)
		}
		return two.ProcessLeft(change)
	}
	return n.op.Process(change)
}
