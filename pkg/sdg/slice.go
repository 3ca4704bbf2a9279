package sdg

import (
	"container/list"

	"github.com/l3aro/dfg-linearity-query/pkg/linearity"
)

// Select reduces the graph to the subgraph described by opt. The filter is
// applied to the full graph first; focusing then walks backward from the
// focus signal through at most Depth levels of predecessors within the
// filtered graph. Depth 0 keeps the focus signal alone. Edges survive only
// when both endpoints are retained.
//
// info must cover every node of g; the analyzer's annotation table does.
func Select(g *Graph, info map[string]NodeInfo, opt SelectOptions) (*Subgraph, error) {
	work := g
	switch opt.Filter {
	case FilterNone:
	case FilterLinear:
		work = g.Induced(func(n string) bool { return info[n].Verdict == linearity.Linear })
	case FilterNonlinear:
		work = g.Induced(func(n string) bool { return info[n].Verdict == linearity.Nonlinear })
	}

	if opt.Focus != "" {
		if !work.HasNode(opt.Focus) {
			return nil, &UnknownSignalError{Signal: opt.Focus, Filtered: g.HasNode(opt.Focus)}
		}
		visited := backwardSlice(work, opt.Focus, opt.Depth)
		work = work.Induced(func(n string) bool { return visited[n] })
	}

	sub := &Subgraph{
		Nodes: make([]SubNode, 0, work.NodeCount()),
		Edges: work.Edges(),
	}
	for _, n := range work.Nodes() {
		ni := info[n]
		sub.Nodes = append(sub.Nodes, SubNode{
			Name:    n,
			Verdict: ni.Verdict,
			Reason:  ni.Reason,
			Kind:    ni.Kind,
			HasExpr: ni.HasExpr,
		})
	}
	return sub, nil
}

// backwardSlice collects root and its predecessors up to depth levels out,
// breadth first. Nodes already reached at a shorter distance are not
// revisited, so cycles terminate.
func backwardSlice(g *Graph, root string, depth int) map[string]bool {
	dist := map[string]int{root: 0}
	queue := list.New()
	queue.PushBack(root)

	for queue.Len() > 0 {
		front := queue.Front()
		queue.Remove(front)
		node := front.Value.(string)

		if dist[node] == depth {
			continue
		}
		for _, pred := range g.Preds(node) {
			if _, seen := dist[pred]; seen {
				continue
			}
			dist[pred] = dist[node] + 1
			queue.PushBack(pred)
		}
	}

	visited := make(map[string]bool, len(dist))
	for n := range dist {
		visited[n] = true
	}
	return visited
}
