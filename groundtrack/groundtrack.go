// Package groundtrack projects orbiting satellites onto a reference ellipsoid by casting their nadir rays.
package groundtrack

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/golang/geo/s2"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/sidereal"
	"github.com/soniakeys/meeus/v3/solar"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/example/groundtrack/ellipsoid"
	"github.com/example/groundtrack/orbits"
)

var (
	// ErrNoGroundIntersection is returned when the nadir ray does not reach the surface.
	ErrNoGroundIntersection = errors.New("groundtrack: nadir ray does not reach the surface")
	// ErrBelowSurface is returned for satellite positions inside the body.
	ErrBelowSurface = errors.New("groundtrack: position is inside the body")
)

// Point is a single ground-track sample.
type Point struct {
	Time       time.Time
	Position   r3.Vec    // satellite, body-fixed kilometers
	Surface    r3.Vec    // sub-satellite point, body-fixed kilometers
	LatLng     s2.LatLng // geodetic coordinates of Surface
	AltitudeKm float64   // length of the nadir ray to Surface
	Sunlit     bool
}

// EarthRotationAngle returns the Greenwich mean sidereal angle (radians) at t.
func EarthRotationAngle(t time.Time) float64 {
	jd := julian.TimeToJD(t.UTC())
	return sidereal.Mean(jd).Angle().Rad()
}

// InertialToFixed rotates an inertial position into the body-fixed frame at t.
func InertialToFixed(p r3.Vec, t time.Time) r3.Vec {
	sinG, cosG := math.Sincos(EarthRotationAngle(t))
	return r3.Vec{
		X: p.X*cosG + p.Y*sinG,
		Y: -p.X*sinG + p.Y*cosG,
		Z: p.Z,
	}
}

// SunDirection returns the body-fixed unit vector toward the Sun at t.
func SunDirection(t time.Time) r3.Vec {
	ra, dec := solar.ApparentEquatorial(julian.TimeToJD(t.UTC()))
	inertial := r3.Vec{
		X: dec.Cos() * ra.Cos(),
		Y: dec.Cos() * ra.Sin(),
		Z: dec.Sin(),
	}
	return InertialToFixed(inertial, t)
}

// SubSatellitePoint casts the geocentric nadir ray from a body-fixed position onto the surface.
func SubSatellitePoint(shape ellipsoid.Shape, position r3.Vec) (Point, error) {
	if err := shape.Validate(); err != nil {
		return Point{}, fmt.Errorf("groundtrack: %w", err)
	}
	if shape.Contains(position) {
		return Point{}, ErrBelowSurface
	}

	hit, err := ellipsoid.Intersect(ellipsoid.NewRay(position, r3.Scale(-1, position)), shape)
	if err != nil {
		return Point{}, fmt.Errorf("groundtrack: %w", err)
	}
	if !hit.Hit() {
		return Point{}, fmt.Errorf("%w: %s", ErrNoGroundIntersection, hit.Reason)
	}

	ll, _ := shape.Geodetic(hit.Point)
	return Point{
		Position:   position,
		Surface:    hit.Point,
		LatLng:     ll,
		AltitudeKm: r3.Norm(r3.Sub(position, hit.Point)),
	}, nil
}

// Sample propagates the elements to t and returns the sub-satellite point.
func Sample(shape ellipsoid.Shape, elements orbits.KeplerianElements, t time.Time) (Point, error) {
	if err := elements.Validate(); err != nil {
		return Point{}, fmt.Errorf("groundtrack: %w", err)
	}

	fixed := InertialToFixed(elements.At(t).Position(), t)
	point, err := SubSatellitePoint(shape, fixed)
	if err != nil {
		return Point{}, err
	}

	point.Time = t
	point.Sunlit = r3.Dot(shape.Normal(point.Surface), SunDirection(t)) > 0
	return point, nil
}

// Track samples count ground-track points starting at start, step apart.
func Track(shape ellipsoid.Shape, elements orbits.KeplerianElements, start time.Time, step time.Duration, count int) ([]Point, error) {
	if count < 0 {
		return nil, errors.New("groundtrack: sample count cannot be negative")
	}

	points := make([]Point, 0, count)
	for i := 0; i < count; i++ {
		point, err := Sample(shape, elements, start.Add(time.Duration(i)*step))
		if err != nil {
			return nil, err
		}
		points = append(points, point)
	}
	return points, nil
}
