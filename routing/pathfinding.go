package routing

import (
	"container/heap"
	"errors"
	"fmt"
	"slices"
)

type frontierItem struct {
	id       string
	priority float64 // cost so far plus heuristic
	cost     float64
	index    int
}

type frontier []*frontierItem

func (f frontier) Len() int           { return len(f) }
func (f frontier) Less(i, j int) bool { return f[i].priority < f[j].priority }
func (f frontier) Swap(i, j int) {
	f[i], f[j] = f[j], f[i]
	f[i].index = i
	f[j].index = j
}

func (f *frontier) Push(x any) {
	item := x.(*frontierItem)
	item.index = len(*f)
	*f = append(*f, item)
}

func (f *frontier) Pop() any {
	old := *f
	n := len(old)
	item := old[n-1]
	item.index = -1
	*f = old[:n-1]
	return item
}

// ShortestPath returns the lowest-latency path from start to goal.
// A nil heuristic gives Dijkstra; Graph.LowerBound towards goal gives A*.
func ShortestPath(g *Graph, start, goal string, heuristic func(string) float64) (Path, error) {
	if _, ok := g.Nodes[start]; !ok {
		return Path{}, fmt.Errorf("%w %s", ErrUnknownNode, start)
	}
	if _, ok := g.Nodes[goal]; !ok {
		return Path{}, fmt.Errorf("%w %s", ErrUnknownNode, goal)
	}
	if heuristic == nil {
		heuristic = func(string) float64 { return 0 }
	}

	best := map[string]float64{start: 0}
	prev := make(map[string]string)
	settled := make(map[string]bool)

	open := &frontier{}
	heap.Push(open, &frontierItem{id: start, priority: heuristic(start)})

	for open.Len() > 0 {
		current := heap.Pop(open).(*frontierItem)
		if settled[current.id] {
			continue
		}
		settled[current.id] = true

		if current.id == goal {
			return g.measure(unwind(prev, start, goal))
		}

		for _, l := range g.Links[current.id] {
			if _, ok := g.Nodes[l.To]; !ok || settled[l.To] {
				continue
			}
			cost := current.cost + l.LatencyMS
			if known, ok := best[l.To]; ok && cost >= known {
				continue
			}
			best[l.To] = cost
			prev[l.To] = current.id
			heap.Push(open, &frontierItem{id: l.To, priority: cost + heuristic(l.To), cost: cost})
		}
	}

	return Path{}, fmt.Errorf("%w from %s to %s", ErrNoRoute, start, goal)
}

func unwind(prev map[string]string, start, goal string) []string {
	nodes := []string{goal}
	for id := goal; id != start; {
		id = prev[id]
		nodes = append(nodes, id)
	}
	slices.Reverse(nodes)
	return nodes
}

// AlternativeRoutes returns up to k loopless paths from start to goal in increasing latency (Yen's algorithm).
func AlternativeRoutes(g *Graph, start, goal string, k int) ([]Path, error) {
	if k <= 0 {
		return nil, errors.New("routing: k must be positive")
	}

	first, err := ShortestPath(g, start, goal, nil)
	if err != nil {
		return nil, err
	}

	accepted := []Path{first}
	var candidates []Path

	for len(accepted) < k {
		last := accepted[len(accepted)-1].Nodes
		for i := 0; i < len(last)-1; i++ {
			root := last[:i+1]
			spur := g.Clone()

			for _, p := range accepted {
				if len(p.Nodes) > i+1 && slices.Equal(p.Nodes[:i+1], root) {
					spur.RemoveLink(p.Nodes[i], p.Nodes[i+1])
				}
			}
			for _, id := range root[:i] {
				spur.RemoveNode(id)
			}

			tail, err := ShortestPath(spur, root[i], goal, nil)
			if err != nil {
				continue
			}

			nodes := append(slices.Clone(root[:i]), tail.Nodes...)
			candidate, err := g.measure(nodes)
			if err != nil || containsPath(accepted, nodes) || containsPath(candidates, nodes) {
				continue
			}
			candidates = append(candidates, candidate)
		}

		if len(candidates) == 0 {
			break
		}
		slices.SortStableFunc(candidates, func(a, b Path) int {
			switch {
			case a.LatencyMS < b.LatencyMS:
				return -1
			case a.LatencyMS > b.LatencyMS:
				return 1
			default:
				return 0
			}
		})
		accepted = append(accepted, candidates[0])
		candidates = candidates[1:]
	}

	return accepted, nil
}

func containsPath(paths []Path, nodes []string) bool {
	for _, p := range paths {
		if slices.Equal(p.Nodes, nodes) {
			return true
		}
	}
	return false
}
