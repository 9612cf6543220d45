// Package routing finds latency-ordered paths between ground stations through satellites
// whose links clear the reference ellipsoid.
package routing

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/example/groundtrack/ellipsoid"
	"github.com/example/groundtrack/visibility"
)

// NodeType differentiates between satellites and ground stations.
type NodeType string

const (
	// Satellite represents an on-orbit node.
	Satellite NodeType = "satellite"
	// Ground represents a ground station node.
	Ground NodeType = "ground"
)

// SpeedOfLightKMPerS is the propagation speed used for link latency.
const SpeedOfLightKMPerS = 299792.458

var (
	// ErrUnknownNode is returned when a path endpoint is not in the graph.
	ErrUnknownNode = errors.New("routing: unknown node")
	// ErrNoRoute is returned when the endpoints are not connected.
	ErrNoRoute = errors.New("routing: no route available")
)

// Node is a satellite or ground station at a body-fixed position (km).
type Node struct {
	ID       string
	Type     NodeType
	Position r3.Vec
}

// Link is a directed line-of-sight hop.
type Link struct {
	From      string
	To        string
	RangeKm   float64
	LatencyMS float64
}

// Graph holds the line-of-sight links between nodes at one instant.
type Graph struct {
	Nodes map[string]Node
	Links map[string][]Link
}

// LatencyMS converts a slant range into one-way light time in milliseconds.
func LatencyMS(rangeKm float64) float64 {
	return rangeKm / SpeedOfLightKMPerS * 1000
}

// BuildGraph links every pair of nodes that can see each other past shape.
// Satellite pairs need a clear segment; ground/satellite pairs must also satisfy
// the elevation mask (radians) at the station. Stations never link directly.
func BuildGraph(shape ellipsoid.Shape, nodes []Node, elevationMask float64) (*Graph, error) {
	g := &Graph{Nodes: make(map[string]Node, len(nodes)), Links: make(map[string][]Link)}
	for _, n := range nodes {
		if n.ID == "" {
			return nil, errors.New("routing: node ID cannot be empty")
		}
		if _, dup := g.Nodes[n.ID]; dup {
			return nil, fmt.Errorf("routing: duplicate node ID %s", n.ID)
		}
		g.Nodes[n.ID] = n
	}

	for i := range nodes {
		for j := i + 1; j < len(nodes); j++ {
			if linked(shape, nodes[i], nodes[j], elevationMask) {
				g.connect(nodes[i], nodes[j])
			}
		}
	}
	return g, nil
}

func linked(shape ellipsoid.Shape, a, b Node, mask float64) bool {
	switch {
	case a.Type == Satellite && b.Type == Satellite:
		return visibility.SatelliteToSatelliteVisible(shape, a.Position, b.Position)
	case a.Type == Ground && b.Type == Satellite:
		return visibility.GroundToSatelliteVisible(shape, a.Position, b.Position, mask)
	case a.Type == Satellite && b.Type == Ground:
		return visibility.GroundToSatelliteVisible(shape, b.Position, a.Position, mask)
	default:
		return false
	}
}

func (g *Graph) connect(a, b Node) {
	rng := visibility.SlantRange(a.Position, b.Position)
	latency := LatencyMS(rng)
	g.Links[a.ID] = append(g.Links[a.ID], Link{From: a.ID, To: b.ID, RangeKm: rng, LatencyMS: latency})
	g.Links[b.ID] = append(g.Links[b.ID], Link{From: b.ID, To: a.ID, RangeKm: rng, LatencyMS: latency})
}

// Clone returns a deep copy that can be pruned without touching g.
func (g *Graph) Clone() *Graph {
	out := &Graph{Nodes: make(map[string]Node, len(g.Nodes)), Links: make(map[string][]Link, len(g.Links))}
	for id, n := range g.Nodes {
		out.Nodes[id] = n
	}
	for id, links := range g.Links {
		out.Links[id] = append([]Link(nil), links...)
	}
	return out
}

// RemoveLink deletes the directed link from→to if present.
func (g *Graph) RemoveLink(from, to string) {
	kept := make([]Link, 0, len(g.Links[from]))
	for _, l := range g.Links[from] {
		if l.To != to {
			kept = append(kept, l)
		}
	}
	if len(kept) == 0 {
		delete(g.Links, from)
		return
	}
	g.Links[from] = kept
}

// RemoveNode removes a node and every link touching it.
func (g *Graph) RemoveNode(id string) {
	delete(g.Nodes, id)
	delete(g.Links, id)
	for from := range g.Links {
		g.RemoveLink(from, id)
	}
}

// LowerBound returns the straight-line light time (ms) between two nodes, an admissible A* heuristic.
// Unknown nodes yield zero.
func (g *Graph) LowerBound(from, to string) float64 {
	a, okA := g.Nodes[from]
	b, okB := g.Nodes[to]
	if !okA || !okB {
		return 0
	}
	return LatencyMS(visibility.SlantRange(a.Position, b.Position))
}

// Path is an ordered hop sequence with its totals.
type Path struct {
	Nodes      []string `json:"nodes"`
	RangeKm    float64  `json:"rangeKm"`
	LatencyMS  float64  `json:"latencyMs"`
	LongestHop float64  `json:"longestHopKm"`
}

func (g *Graph) link(from, to string) (Link, bool) {
	for _, l := range g.Links[from] {
		if l.To == to {
			return l, true
		}
	}
	return Link{}, false
}

// measure totals a hop sequence over g.
func (g *Graph) measure(nodes []string) (Path, error) {
	p := Path{Nodes: nodes}
	for i := 1; i < len(nodes); i++ {
		l, ok := g.link(nodes[i-1], nodes[i])
		if !ok {
			return Path{}, fmt.Errorf("routing: no link %s -> %s", nodes[i-1], nodes[i])
		}
		p.RangeKm += l.RangeKm
		p.LatencyMS += l.LatencyMS
		p.LongestHop = math.Max(p.LongestHop, l.RangeKm)
	}
	return p, nil
}
