package ellipsoid

import (
	"errors"
	"math"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrInvalidEccentricity is returned for shapes whose eccentricity lies outside [0, 1).
	ErrInvalidEccentricity = errors.New("ellipsoid: eccentricity must satisfy 0 <= e < 1")
	// ErrInvalidRadius is returned for shapes whose equatorial radius is not a positive finite number.
	ErrInvalidRadius = errors.New("ellipsoid: equatorial radius must be positive and finite")
)

// Shape is an oblate spheroid of revolution about the z axis, centered on the frame origin.
type Shape struct {
	EquatorialRadius float64 // kilometers
	Eccentricity     float64 // unitless, 0 <= e < 1
}

// Earth is the reference Earth ellipsoid in kilometers.
var Earth = Shape{EquatorialRadius: 6378.1363, Eccentricity: 0.081819221456}

// NewShape builds a validated shape.
func NewShape(equatorialRadius, eccentricity float64) (Shape, error) {
	s := Shape{EquatorialRadius: equatorialRadius, Eccentricity: eccentricity}
	if err := s.Validate(); err != nil {
		return Shape{}, err
	}
	return s, nil
}

// Validate ensures the shape describes a real oblate spheroid.
// Eccentricity is checked first so an invalid shape never reaches the quadratic solve.
func (s Shape) Validate() error {
	e := s.Eccentricity
	if math.IsNaN(e) || e < 0 || e >= 1 {
		return ErrInvalidEccentricity
	}
	r := s.EquatorialRadius
	if math.IsNaN(r) || math.IsInf(r, 0) || r <= 0 {
		return ErrInvalidRadius
	}
	return nil
}

// e2 returns the squared eccentricity.
func (s Shape) e2() float64 {
	return s.Eccentricity * s.Eccentricity
}

// polarScale is 1/(1-e²), the weight applied to z² in the implicit surface equation.
func (s Shape) polarScale() float64 {
	return 1 / (1 - s.e2())
}

// PolarRadius returns the semi-minor axis b = R·sqrt(1-e²).
func (s Shape) PolarRadius() float64 {
	return s.EquatorialRadius * math.Sqrt(1-s.e2())
}

// Flattening returns f = 1 - b/R.
func (s Shape) Flattening() float64 {
	return 1 - math.Sqrt(1-s.e2())
}

// MeanRadius returns the IUGG arithmetic mean radius (2R + b) / 3.
func (s Shape) MeanRadius() float64 {
	return (2*s.EquatorialRadius + s.PolarRadius()) / 3
}

// Residual evaluates x²/R² + y²/R² + z²/(R²(1-e²)) - 1.
// It is zero on the surface, negative inside and positive outside.
func (s Shape) Residual(p r3.Vec) float64 {
	r2 := s.EquatorialRadius * s.EquatorialRadius
	return (p.X*p.X+p.Y*p.Y+p.Z*p.Z*s.polarScale())/r2 - 1
}

// Contains reports whether p lies inside or on the surface.
func (s Shape) Contains(p r3.Vec) bool {
	return s.Residual(p) <= 0
}

// Normal returns the outward unit normal of the level surface through p.
// On the ellipsoid surface this is the geodetic "up" direction.
func (s Shape) Normal(p r3.Vec) r3.Vec {
	return r3.Unit(r3.Vec{X: p.X, Y: p.Y, Z: p.Z * s.polarScale()})
}

// primeVerticalRadius returns N(φ) = R / sqrt(1 - e² sin²φ).
func (s Shape) primeVerticalRadius(sinLat float64) float64 {
	return s.EquatorialRadius / math.Sqrt(1-s.e2()*sinLat*sinLat)
}

// SurfacePoint converts geodetic coordinates and an ellipsoidal height (kilometers)
// to a Cartesian position in the body frame.
func (s Shape) SurfacePoint(ll s2.LatLng, heightKm float64) r3.Vec {
	sinLat, cosLat := math.Sincos(ll.Lat.Radians())
	sinLon, cosLon := math.Sincos(ll.Lng.Radians())
	n := s.primeVerticalRadius(sinLat)

	return r3.Vec{
		X: (n + heightKm) * cosLat * cosLon,
		Y: (n + heightKm) * cosLat * sinLon,
		Z: (n*(1-s.e2()) + heightKm) * sinLat,
	}
}

// Geodetic converts a Cartesian position to geodetic latitude/longitude and ellipsoidal height (kilometers).
// Points on the surface resolve exactly on the first estimate; elsewhere a fixed-point refinement is used.
func (s Shape) Geodetic(p r3.Vec) (s2.LatLng, float64) {
	e2 := s.e2()
	lon := math.Atan2(p.Y, p.X)
	rho := math.Hypot(p.X, p.Y)

	if rho < 1e-12*s.EquatorialRadius {
		lat := math.Pi / 2
		if p.Z < 0 {
			lat = -lat
		}
		return s2.LatLng{Lat: s1.Angle(lat), Lng: s1.Angle(lon)}, math.Abs(p.Z) - s.PolarRadius()
	}

	lat := math.Atan2(p.Z, rho*(1-e2))
	var height float64
	for i := 0; i < 20; i++ {
		sinLat, cosLat := math.Sincos(lat)
		n := s.primeVerticalRadius(sinLat)
		height = rho/cosLat - n
		next := math.Atan2(p.Z, rho*(1-e2*n/(n+height)))
		if math.Abs(next-lat) < 1e-15 {
			lat = next
			break
		}
		lat = next
	}

	sinLat, cosLat := math.Sincos(lat)
	height = rho/cosLat - s.primeVerticalRadius(sinLat)
	return s2.LatLng{Lat: s1.Angle(lat), Lng: s1.Angle(lon)}, height
}
