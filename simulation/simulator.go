package simulation

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/golang/geo/s2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/example/groundtrack/coverage"
	"github.com/example/groundtrack/ellipsoid"
	"github.com/example/groundtrack/groundtrack"
	"github.com/example/groundtrack/orbits"
	"github.com/example/groundtrack/routing"
	"github.com/example/groundtrack/visibility"
)

// EventType enumerates the categories of frontend updates emitted by the simulator.
type EventType string

const (
	// EventTracksUpdated signals that ground tracks or station visibility changed.
	EventTracksUpdated EventType = "tracks_updated"
	// EventCoverageUpdated indicates coverage metrics were recomputed.
	EventCoverageUpdated EventType = "coverage_updated"
)

var (
	errUnknownSatellite = errors.New("unknown satellite")
	errUnknownStation   = errors.New("unknown ground station")
)

// IsUnknownNode reports whether err names a satellite or station the simulator does not know.
func IsUnknownNode(err error) bool {
	return errors.Is(err, errUnknownSatellite) || errors.Is(err, errUnknownStation)
}

// Event is published whenever the simulator recomputes state that should be pushed to the UI.
type Event struct {
	Type     EventType
	Snapshot Snapshot
}

// Satellite is an orbiting sensor whose footprint is centered on its ground-track point.
type Satellite struct {
	ID                string
	Elements          orbits.KeplerianElements
	FootprintRadiusKm float64 // zero derives the radius from altitude and elevation mask
	LinkStrength      float64
	Active            bool
}

// GroundStation is a fixed site on the body, in geodetic coordinates.
type GroundStation struct {
	ID       string
	Location s2.LatLng
	HeightKm float64
}

// Config wires a simulator with nodes and modeling parameters.
type Config struct {
	Shape          ellipsoid.Shape
	Epoch          time.Time
	Satellites     []Satellite
	GroundStations []GroundStation
	GridConfig     coverage.GridConfig
	ElevationMask  float64 // radians
}

// TrackPoint is the current sub-satellite point of one satellite.
type TrackPoint struct {
	ID         string  `json:"id"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	AltitudeKm float64 `json:"altitudeKm"`
	Sunlit     bool    `json:"sunlit"`
	RadiusKm   float64 `json:"footprintRadiusKm"`
}

// StationView lists the satellites a ground station can currently see.
type StationView struct {
	ID      string   `json:"id"`
	Visible []string `json:"visible"`
}

// StationRoute is the lowest-latency path between two ground stations through visible satellites.
type StationRoute struct {
	From      string   `json:"from"`
	To        string   `json:"to"`
	Reachable bool     `json:"reachable"`
	Hops      []string `json:"hops,omitempty"`
	LatencyMS float64  `json:"latencyMs"`
}

// Snapshot captures the constellation state and metrics exposed to the frontend.
type Snapshot struct {
	Timestamp          time.Time              `json:"timestamp"`
	ActiveSatellites   []string               `json:"activeSatellites"`
	DisabledSatellites []string               `json:"disabledSatellites"`
	Tracks             []TrackPoint           `json:"tracks"`
	Stations           []StationView          `json:"stations"`
	Routes             []StationRoute         `json:"routes"`
	Coverage           coverage.Summary       `json:"coverage"`
	Heatmap            []coverage.HeatmapCell `json:"heatmap"`
}

type station struct {
	GroundStation
	position r3.Vec
}

// Simulator advances the constellation clock, recomputes tracks/visibility/coverage, and broadcasts updates.
type Simulator struct {
	mu            sync.Mutex
	shape         ellipsoid.Shape
	clock         time.Time
	elevationMask float64
	gridConfig    coverage.GridConfig
	satellites    map[string]*Satellite
	ground        map[string]station
	events        chan Event
	snapshot      Snapshot
	graph         *routing.Graph
}

// NewSimulator constructs a simulator from the provided configuration and computes the initial state.
func NewSimulator(cfg Config) (*Simulator, error) {
	if err := cfg.Shape.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.GridConfig.Validate(); err != nil {
		return nil, err
	}
	if len(cfg.Satellites) == 0 {
		return nil, errors.New("simulation requires at least one satellite")
	}
	if len(cfg.GroundStations) == 0 {
		return nil, errors.New("simulation requires at least one ground station")
	}

	sats := make(map[string]*Satellite, len(cfg.Satellites))
	for i := range cfg.Satellites {
		sat := cfg.Satellites[i]
		if sat.ID == "" {
			return nil, errors.New("satellite ID cannot be empty")
		}
		if _, exists := sats[sat.ID]; exists {
			return nil, fmt.Errorf("duplicate satellite ID %s", sat.ID)
		}
		if err := sat.Elements.Validate(); err != nil {
			return nil, fmt.Errorf("satellite %s: %w", sat.ID, err)
		}
		sat.Active = true
		sats[sat.ID] = &sat
	}

	ground := make(map[string]station, len(cfg.GroundStations))
	for _, gs := range cfg.GroundStations {
		if gs.ID == "" {
			return nil, errors.New("ground station ID cannot be empty")
		}
		if _, exists := ground[gs.ID]; exists {
			return nil, fmt.Errorf("duplicate ground station ID %s", gs.ID)
		}
		if _, exists := sats[gs.ID]; exists {
			return nil, fmt.Errorf("ground station ID %s collides with a satellite", gs.ID)
		}
		ground[gs.ID] = station{GroundStation: gs, position: cfg.Shape.SurfacePoint(gs.Location, gs.HeightKm)}
	}

	sim := &Simulator{
		shape:         cfg.Shape,
		clock:         cfg.Epoch,
		elevationMask: cfg.ElevationMask,
		gridConfig:    cfg.GridConfig,
		satellites:    sats,
		ground:        ground,
		events:        make(chan Event, 8),
	}

	if _, err := sim.recomputeLocked(); err != nil {
		return nil, err
	}

	return sim, nil
}

// NewDemoSimulator builds a small constellation useful for manual testing of the API server.
func NewDemoSimulator(shape ellipsoid.Shape, elevationMask float64) *Simulator {
	epoch := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
	r := shape.EquatorialRadius

	cfg := Config{
		Shape:         shape,
		Epoch:         epoch,
		GridConfig:    coverage.GridConfig{LatStep: 30, LonStep: 30},
		ElevationMask: elevationMask,
		Satellites: []Satellite{
			{ID: "sat-alpha", Elements: orbits.KeplerianElements{SemiMajorAxis: r + 550, Inclination: 0.9, Epoch: epoch}, LinkStrength: 1},
			{ID: "sat-beta", Elements: orbits.KeplerianElements{SemiMajorAxis: r + 800, Inclination: 1.7, RAAN: 1.2, MeanAnomaly: 2, Epoch: epoch}, LinkStrength: 0.8},
			{ID: "sat-gamma", Elements: orbits.KeplerianElements{SemiMajorAxis: r + 1200, Eccentricity: 0.02, Inclination: 0.2, MeanAnomaly: 4, Epoch: epoch}, FootprintRadiusKm: 1500, LinkStrength: 0.5},
		},
		GroundStations: []GroundStation{
			{ID: "svalbard", Location: s2.LatLngFromDegrees(78.23, 15.39), HeightKm: 0.5},
			{ID: "singapore", Location: s2.LatLngFromDegrees(1.35, 103.82)},
			{ID: "santiago", Location: s2.LatLngFromDegrees(-33.45, -70.67), HeightKm: 0.57},
		},
	}

	sim, err := NewSimulator(cfg)
	if err != nil {
		// The demo should never fail; panic to surface configuration issues.
		panic(err)
	}
	return sim
}

// Events exposes a read-only channel of simulator updates for streaming to the frontend.
func (s *Simulator) Events() <-chan Event {
	return s.events
}

// Snapshot returns the latest computed state.
func (s *Simulator) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// Now returns the simulated time.
func (s *Simulator) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock
}

// Step advances the simulated clock by dt and recomputes the constellation.
func (s *Simulator) Step(dt time.Duration) (Snapshot, error) {
	if dt < 0 {
		return Snapshot{}, errors.New("step duration cannot be negative")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	previous := s.clock
	s.clock = s.clock.Add(dt)
	snap, err := s.recomputeLocked()
	if err != nil {
		s.clock = previous
		return Snapshot{}, err
	}
	return snap, nil
}

// DisableSatellite marks a satellite inactive and recomputes the constellation.
func (s *Simulator) DisableSatellite(id string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sat, ok := s.satellites[id]
	if !ok {
		return Snapshot{}, fmt.Errorf("%w %s", errUnknownSatellite, id)
	}
	sat.Active = false
	return s.recomputeLocked()
}

// RemoveSatellite deletes a satellite entirely and recomputes the constellation.
func (s *Simulator) RemoveSatellite(id string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.satellites[id]; !ok {
		return Snapshot{}, fmt.Errorf("%w %s", errUnknownSatellite, id)
	}
	delete(s.satellites, id)
	return s.recomputeLocked()
}

// Routes returns up to k station-to-station paths at the current simulated time, lowest latency first.
// Unconnected stations yield an empty list; unknown IDs are an error.
func (s *Simulator) Routes(from, to string, k int) ([]routing.Path, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range []string{from, to} {
		if _, ok := s.ground[id]; !ok {
			return nil, fmt.Errorf("%w %s", errUnknownStation, id)
		}
	}

	paths, err := routing.AlternativeRoutes(s.graph, from, to, k)
	if errors.Is(err, routing.ErrNoRoute) {
		return []routing.Path{}, nil
	}
	return paths, err
}

// Recompute forces tracks, visibility, and coverage to refresh without advancing time.
func (s *Simulator) Recompute() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recomputeLocked()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (s *Simulator) recomputeLocked() (Snapshot, error) {
	activeIDs := make([]string, 0, len(s.satellites))
	disabledIDs := make([]string, 0)
	tracks := make([]TrackPoint, 0, len(s.satellites))
	footprints := make([]coverage.Footprint, 0, len(s.satellites))
	positions := make(map[string]r3.Vec, len(s.satellites))
	meanRadius := s.shape.MeanRadius()

	for _, id := range sortedKeys(s.satellites) {
		sat := s.satellites[id]
		if !sat.Active {
			disabledIDs = append(disabledIDs, id)
			continue
		}

		point, err := groundtrack.Sample(s.shape, sat.Elements, s.clock)
		if err != nil {
			return Snapshot{}, fmt.Errorf("satellite %s: %w", id, err)
		}

		radius := sat.FootprintRadiusKm
		if radius == 0 {
			radius = coverage.VisibleRadiusKm(meanRadius, point.AltitudeKm, s.elevationMask)
		}

		activeIDs = append(activeIDs, id)
		positions[id] = point.Position
		footprints = append(footprints, coverage.Footprint{Center: point.LatLng, RadiusKm: radius, LinkStrength: sat.LinkStrength})
		tracks = append(tracks, TrackPoint{
			ID:         id,
			Latitude:   point.LatLng.Lat.Degrees(),
			Longitude:  point.LatLng.Lng.Degrees(),
			AltitudeKm: point.AltitudeKm,
			Sunlit:     point.Sunlit,
			RadiusKm:   radius,
		})
	}

	stations := make([]StationView, 0, len(s.ground))
	for _, id := range sortedKeys(s.ground) {
		gs := s.ground[id]
		visible := make([]string, 0)
		for _, satID := range activeIDs {
			if visibility.GroundToSatelliteVisible(s.shape, gs.position, positions[satID], s.elevationMask) {
				visible = append(visible, satID)
			}
		}
		stations = append(stations, StationView{ID: id, Visible: visible})
	}

	graph, routes, err := s.routeStationsLocked(activeIDs, positions)
	if err != nil {
		return Snapshot{}, err
	}

	grid, err := coverage.NewCoverageGrid(s.gridConfig, s.shape)
	if err != nil {
		return Snapshot{}, err
	}
	grid.ApplyFootprints(footprints)

	snapshot := Snapshot{
		Timestamp:          s.clock,
		ActiveSatellites:   activeIDs,
		DisabledSatellites: disabledIDs,
		Tracks:             tracks,
		Stations:           stations,
		Routes:             routes,
		Coverage:           grid.Summarize(),
		Heatmap:            grid.HeatmapData(),
	}

	s.snapshot = snapshot
	s.graph = graph

	s.publishEvent(EventTracksUpdated, snapshot)
	s.publishEvent(EventCoverageUpdated, snapshot)

	return snapshot, nil
}

// routeStationsLocked links active satellites and stations and finds the best path for every station pair.
func (s *Simulator) routeStationsLocked(activeIDs []string, positions map[string]r3.Vec) (*routing.Graph, []StationRoute, error) {
	stationIDs := sortedKeys(s.ground)
	nodes := make([]routing.Node, 0, len(activeIDs)+len(stationIDs))
	for _, id := range activeIDs {
		nodes = append(nodes, routing.Node{ID: id, Type: routing.Satellite, Position: positions[id]})
	}
	for _, id := range stationIDs {
		nodes = append(nodes, routing.Node{ID: id, Type: routing.Ground, Position: s.ground[id].position})
	}

	graph, err := routing.BuildGraph(s.shape, nodes, s.elevationMask)
	if err != nil {
		return nil, nil, err
	}

	routes := make([]StationRoute, 0)
	for i, from := range stationIDs {
		for _, to := range stationIDs[i+1:] {
			route := StationRoute{From: from, To: to}
			path, err := routing.ShortestPath(graph, from, to, func(id string) float64 { return graph.LowerBound(id, to) })
			switch {
			case err == nil:
				route.Reachable = true
				route.Hops = path.Nodes
				route.LatencyMS = path.LatencyMS
			case !errors.Is(err, routing.ErrNoRoute):
				return nil, nil, err
			}
			routes = append(routes, route)
		}
	}
	return graph, routes, nil
}

func (s *Simulator) publishEvent(eventType EventType, snapshot Snapshot) {
	select {
	case s.events <- Event{Type: eventType, Snapshot: snapshot}:
	default:
		// Drop the event when the channel is full to avoid blocking the caller.
	}
}
