package ecoscope

import "strings"

// maxPaths bounds how many routes Path reports.
const maxPaths = 5

// Hop is one traversed service graph edge.
type Hop struct {
	From       string `json:"from"`
	To         string `json:"to"`
	Via        string `json:"via"`
	Capability string `json:"capability,omitempty"`
}

// GraphPath is a route through the service graph, one hop per edge.
type GraphPath struct {
	Hops []Hop `json:"hops"`
}

// Nodes returns the node labels along the path, source first.
func (p GraphPath) Nodes() []string {
	if len(p.Hops) == 0 {
		return nil
	}
	nodes := []string{p.Hops[0].From}
	for _, h := range p.Hops {
		nodes = append(nodes, h.To)
	}
	return nodes
}

// PathResult is the answer to Path. When no route exists, Direct lists any
// edge between the two nodes in either direction; Found is false only when
// both are empty.
type PathResult struct {
	From   string      `json:"from"`
	To     string      `json:"to"`
	Found  bool        `json:"found"`
	Paths  []GraphPath `json:"paths"`
	Direct []Edge      `json:"direct,omitempty"`
}

// Graph lists node's outbound and inbound edges, duplicates included. Node
// labels are free text and need not name a known repo. A node with no edges
// gets suggestions of similar labels.
func (q *QueryBuilder) Graph(node string) *GraphResult {
	node = strings.TrimSpace(node)
	res := &GraphResult{
		Node:     node,
		Outbound: q.idx.forward[node],
		Inbound:  q.idx.backward[node],
	}
	if res.Empty() {
		res.Suggestions = Closest(node, q.idx.nodes, suggestionLimit)
	}
	return res
}

// Path finds routes from one node to another.
func (q *QueryBuilder) Path(from, to string) *PathResult {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	res := &PathResult{From: from, To: to}
	if from == to {
		return res
	}

	res.Paths = q.idx.findPaths(from, to)
	if len(res.Paths) == 0 {
		for _, e := range q.idx.edges {
			if (e.From == from && e.To == to) || (e.From == to && e.To == from) {
				res.Direct = append(res.Direct, e)
			}
		}
	}
	res.Found = len(res.Paths) > 0 || len(res.Direct) > 0
	return res
}

// findPaths runs a breadth-first search over forward adjacency. Every node,
// the source included, is marked visited when first enqueued, so at most one
// shortest route reaches each intermediate node. The destination is never
// marked, which lets each distinct edge into it complete its own path. The
// search stops after maxPaths paths or when the frontier empties.
func (idx *index) findPaths(from, to string) []GraphPath {
	type frontier struct {
		node string
		hops []Hop
	}

	visited := map[string]bool{from: true}
	queue := []frontier{{node: from}}
	var paths []GraphPath

	for len(queue) > 0 && len(paths) < maxPaths {
		cur := queue[0]
		queue = queue[1:]

		for _, e := range idx.forward[cur.node] {
			hops := make([]Hop, len(cur.hops), len(cur.hops)+1)
			copy(hops, cur.hops)
			hops = append(hops, Hop{From: e.From, To: e.To, Via: e.Via, Capability: e.Capability})

			if e.To == to {
				paths = append(paths, GraphPath{Hops: hops})
				if len(paths) == maxPaths {
					break
				}
				continue
			}
			if !visited[e.To] {
				visited[e.To] = true
				queue = append(queue, frontier{node: e.To, hops: hops})
			}
		}
	}
	return paths
}
