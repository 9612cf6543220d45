package visibility

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/example/groundtrack/ellipsoid"
)

// occlusionEpsilon trims the segment ends so endpoints resting on the surface do not block themselves.
const occlusionEpsilon = 1e-9

// SlantRange returns the straight-line distance between two positions.
func SlantRange(a, b r3.Vec) float64 {
	return r3.Norm(r3.Sub(b, a))
}

// Elevation computes the elevation angle (radians) of a target relative to the geodetic horizon at ground.
// A positive elevation indicates the target is above the local horizon.
func Elevation(shape ellipsoid.Shape, ground, target r3.Vec) float64 {
	toTarget := r3.Sub(target, ground)
	up := shape.Normal(ground)

	return math.Asin(r3.Dot(toTarget, up) / r3.Norm(toTarget))
}

// MeetsElevationMask returns true when the target is at or above the provided elevation mask (radians).
func MeetsElevationMask(shape ellipsoid.Shape, ground, target r3.Vec, mask float64) bool {
	return Elevation(shape, ground, target) >= mask
}

// GroundToSatelliteVisible returns true when a ground point has line of sight to a satellite.
// Visibility requires clearing the body and satisfying the provided elevation mask (radians).
func GroundToSatelliteVisible(shape ellipsoid.Shape, ground, satellite r3.Vec, elevationMask float64) bool {
	if !MeetsElevationMask(shape, ground, satellite, elevationMask) {
		return false
	}

	return !SegmentOccluded(shape, ground, satellite)
}

// SatelliteToSatelliteVisible returns true when the segment between two satellites does not cross the body.
func SatelliteToSatelliteVisible(shape ellipsoid.Shape, a, b r3.Vec) bool {
	return !SegmentOccluded(shape, a, b)
}

// SegmentOccluded reports whether the open segment p0→p1 passes through the body.
// Tangent segments and coincident endpoints are not occluded.
func SegmentOccluded(shape ellipsoid.Shape, p0, p1 r3.Vec) bool {
	ray := ellipsoid.NewRay(p0, r3.Sub(p1, p0))
	t1, t2, ok, err := ellipsoid.Roots(ray, shape)
	if err != nil || !ok || t1 == t2 {
		return false
	}

	return inOpenSegment(t1) || inOpenSegment(t2)
}

func inOpenSegment(t float64) bool {
	return t > occlusionEpsilon && t < 1-occlusionEpsilon
}
