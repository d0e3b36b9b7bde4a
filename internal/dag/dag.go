// Package dag builds and topologically sorts the node graph a
// PipelineDefinition describes, so the runner can fan nodes out in
// dependency order instead of walking the definition's Edges repeatedly.
package dag

import (
	"fmt"
	"sort"

	"github.com/arabicverse/qasida/internal/engine"
)

// DAG is the built, validated graph behind one PipelineDefinition.
type DAG struct {
	nodes     map[string]*engine.NodeDefinition
	children  map[string][]string
	parents   map[string][]string
	topoOrder []string
}

// Build constructs a DAG from def, returning an error if it references an
// unknown node or contains a cycle.
func Build(def *engine.PipelineDefinition) (*DAG, error) {
	d := &DAG{
		nodes:    make(map[string]*engine.NodeDefinition),
		children: make(map[string][]string),
		parents:  make(map[string][]string),
	}

	for i := range def.Nodes {
		n := &def.Nodes[i]
		if _, exists := d.nodes[n.ID]; exists {
			return nil, fmt.Errorf("duplicate node ID: %s", n.ID)
		}
		d.nodes[n.ID] = n
	}

	edges := def.Edges
	if len(edges) == 0 {
		// Spec §4.1's build contract describes the pipeline as a plain
		// ordered list of node specs run "for each node in order" — no
		// edges at all. When the config omits Edges we preserve that
		// default by auto-chaining nodes sequentially in declaration
		// order; explicit Edges are only needed to describe a graph
		// richer than a straight line (parallel branches, fan-in).
		for i := 1; i < len(def.Nodes); i++ {
			edges = append(edges, engine.EdgeDefinition{From: def.Nodes[i-1].ID, To: def.Nodes[i].ID})
		}
	}

	for _, e := range edges {
		if _, ok := d.nodes[e.From]; !ok {
			return nil, fmt.Errorf("edge references unknown node: %s", e.From)
		}
		if _, ok := d.nodes[e.To]; !ok {
			return nil, fmt.Errorf("edge references unknown node: %s", e.To)
		}
		d.children[e.From] = append(d.children[e.From], e.To)
		d.parents[e.To] = append(d.parents[e.To], e.From)
	}

	order, err := d.topoSort()
	if err != nil {
		return nil, err
	}
	d.topoOrder = order
	return d, nil
}

func (d *DAG) topoSort() ([]string, error) {
	inDegree := make(map[string]int)
	for id := range d.nodes {
		inDegree[id] = 0
	}
	for _, children := range d.children {
		for _, c := range children {
			inDegree[c]++
		}
	}
	var queue []string
	for id, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)
	var order []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)
		for _, c := range d.children[node] {
			inDegree[c]--
			if inDegree[c] == 0 {
				queue = append(queue, c)
			}
		}
		sort.Strings(queue)
	}
	if len(order) != len(d.nodes) {
		return nil, fmt.Errorf("cycle detected in pipeline graph")
	}
	return order, nil
}

// TopologicalOrder returns node IDs in an order where every node follows
// all of its parents.
func (d *DAG) TopologicalOrder() []string { return d.topoOrder }

// Children returns nodeID's downstream node IDs.
func (d *DAG) Children(nodeID string) []string { return d.children[nodeID] }

// Parents returns nodeID's upstream node IDs.
func (d *DAG) Parents(nodeID string) []string { return d.parents[nodeID] }

// Node returns the NodeDefinition for id.
func (d *DAG) Node(id string) *engine.NodeDefinition { return d.nodes[id] }

// Roots returns the node IDs with no parents.
func (d *DAG) Roots() []string {
	var roots []string
	for id := range d.nodes {
		if len(d.parents[id]) == 0 {
			roots = append(roots, id)
		}
	}
	sort.Strings(roots)
	return roots
}
