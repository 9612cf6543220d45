package coverage

import (
	"errors"
	"math"

	"github.com/golang/geo/s2"

	"github.com/example/groundtrack/ellipsoid"
)

// GridConfig controls the sampling resolution for coverage aggregation.
type GridConfig struct {
	LatStep float64 // degrees between latitude samples
	LonStep float64 // degrees between longitude samples
}

// Validate ensures the configuration is usable for generating a grid.
func (c GridConfig) Validate() error {
	if c.LatStep <= 0 || c.LonStep <= 0 {
		return errors.New("grid steps must be positive")
	}
	if c.LatStep > 180 || c.LonStep > 360 {
		return errors.New("grid steps are too large to tile the globe")
	}
	return nil
}

// Footprint is the patch of ground a sensor services, centered on its ground-track point.
type Footprint struct {
	Center       s2.LatLng
	RadiusKm     float64 // ground distance from Center
	LinkStrength float64 // arbitrary unit; larger indicates better link margin
}

// Cell captures aggregated coverage metrics for a single grid point.
type Cell struct {
	Center        s2.LatLng
	CoverageCount int
	StrongestLink float64
}

// Covered reports whether the cell is serviced by at least one footprint.
func (c Cell) Covered() bool {
	return c.CoverageCount > 0
}

// CoverageGrid holds the generated cells and supports aggregation of footprints.
type CoverageGrid struct {
	Config   GridConfig
	radiusKm float64
	cells    []Cell
}

// NewCoverageGrid builds a globe-spanning grid with the provided resolution.
// Cells are centered halfway into each step, beginning at -90/-180 degrees.
// Ground distances are measured on a sphere of the shape's mean radius.
func NewCoverageGrid(config GridConfig, shape ellipsoid.Shape) (*CoverageGrid, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := shape.Validate(); err != nil {
		return nil, err
	}

	var cells []Cell
	for lat := -90.0 + config.LatStep/2; lat < 90.0; lat += config.LatStep {
		for lon := -180.0 + config.LonStep/2; lon < 180.0; lon += config.LonStep {
			cells = append(cells, Cell{Center: s2.LatLngFromDegrees(lat, lon)})
		}
	}

	return &CoverageGrid{Config: config, radiusKm: shape.MeanRadius(), cells: cells}, nil
}

// ApplyFootprints increments coverage metrics for cells inside the provided footprints.
func (g *CoverageGrid) ApplyFootprints(footprints []Footprint) {
	for i := range g.cells {
		cell := &g.cells[i]
		for _, footprint := range footprints {
			if footprint.RadiusKm <= 0 {
				continue
			}
			if g.GroundDistanceKm(cell.Center, footprint.Center) <= footprint.RadiusKm {
				cell.CoverageCount++
				if footprint.LinkStrength > cell.StrongestLink {
					cell.StrongestLink = footprint.LinkStrength
				}
			}
		}
	}
}

// GroundDistanceKm returns the great-circle distance between two points on the grid's sphere.
func (g *CoverageGrid) GroundDistanceKm(a, b s2.LatLng) float64 {
	return a.Distance(b).Radians() * g.radiusKm
}

// VisibleRadiusKm returns the ground radius, measured from the sub-satellite point, inside which a
// satellite at altitudeKm stands at least elevationMask radians above the horizon of a sphere of radiusKm.
func VisibleRadiusKm(radiusKm, altitudeKm, elevationMask float64) float64 {
	if radiusKm <= 0 || altitudeKm <= 0 {
		return 0
	}
	cosMask := math.Cos(elevationMask)
	centralAngle := math.Acos(radiusKm*cosMask/(radiusKm+altitudeKm)) - elevationMask
	if centralAngle <= 0 {
		return 0
	}
	return centralAngle * radiusKm
}

// Summary captures high-level visibility statistics for the grid.
type Summary struct {
	TotalCells       int         `json:"totalCells"`
	CoveredCells     int         `json:"coveredCells"`
	CoveragePercent  float64     `json:"coveragePercent"`
	UncoveredSamples []GapSample `json:"uncoveredSamples"`
}

// GapSample represents a gap in coverage suitable for surfacing on a heatmap.
type GapSample struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Summarize returns coverage statistics and gap locations.
func (g *CoverageGrid) Summarize() Summary {
	var covered int
	gaps := make([]GapSample, 0)

	for _, cell := range g.cells {
		if cell.Covered() {
			covered++
		} else {
			gaps = append(gaps, GapSample{Lat: cell.Center.Lat.Degrees(), Lon: cell.Center.Lng.Degrees()})
		}
	}

	total := len(g.cells)
	percent := 0.0
	if total > 0 {
		percent = (float64(covered) / float64(total)) * 100.0
	}

	return Summary{
		TotalCells:       total,
		CoveredCells:     covered,
		CoveragePercent:  percent,
		UncoveredSamples: gaps,
	}
}

// HeatmapCell is a frontend-friendly payload describing a cell's coverage strength.
type HeatmapCell struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Covered  bool    `json:"covered"`
	Count    int     `json:"count"`
	Strength float64 `json:"strength"`
}

// HeatmapData exports coverage information formatted for the UI heatmap.
func (g *CoverageGrid) HeatmapData() []HeatmapCell {
	heatmap := make([]HeatmapCell, 0, len(g.cells))
	for _, cell := range g.cells {
		heatmap = append(heatmap, HeatmapCell{
			Lat:      cell.Center.Lat.Degrees(),
			Lon:      cell.Center.Lng.Degrees(),
			Covered:  cell.Covered(),
			Count:    cell.CoverageCount,
			Strength: cell.StrongestLink,
		})
	}
	return heatmap
}

// Cells exposes a copy of the grid cells to callers that need to inspect raw results.
func (g *CoverageGrid) Cells() []Cell {
	out := make([]Cell, len(g.cells))
	copy(out, g.cells)
	return out
}
