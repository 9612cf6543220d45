package visibility

import (
	"math"
	"testing"

	"github.com/golang/geo/s2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/example/groundtrack/ellipsoid"
)

var earth = ellipsoid.Earth

func TestSlantRange(t *testing.T) {
	a := r3.Vec{X: earth.EquatorialRadius}
	b := r3.Vec{X: earth.EquatorialRadius + 1000}

	got := SlantRange(a, b)
	want := 1000.0

	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("slant range mismatch: got %f, want %f", got, want)
	}
}

func TestElevationAndMask(t *testing.T) {
	ground := r3.Vec{X: earth.EquatorialRadius}
	horizonSat := r3.Vec{X: earth.EquatorialRadius, Z: 500}

	elev := Elevation(earth, ground, horizonSat)
	if math.Abs(elev) > 1e-9 {
		t.Fatalf("expected horizon elevation ~0, got %f", elev)
	}

	if !GroundToSatelliteVisible(earth, ground, horizonSat, 0) {
		t.Fatalf("satellite on horizon should be visible when mask is zero")
	}

	if GroundToSatelliteVisible(earth, ground, horizonSat, 1e-3) {
		t.Fatalf("satellite on horizon should not pass a positive elevation mask")
	}
}

func TestElevationUsesGeodeticVertical(t *testing.T) {
	ll := s2.LatLngFromDegrees(45, 0)
	ground := earth.SurfacePoint(ll, 0)
	zenith := earth.SurfacePoint(ll, 800)

	if elev := Elevation(earth, ground, zenith); math.Abs(elev-math.Pi/2) > 1e-6 {
		t.Fatalf("satellite above the geodetic vertical should sit at zenith, got %f rad", elev)
	}

	// Straight out along the geocentric radius is slightly off zenith on an oblate body.
	radial := r3.Scale(1+800/r3.Norm(ground), ground)
	if elev := Elevation(earth, ground, radial); math.Abs(elev-math.Pi/2) < 1e-4 {
		t.Fatalf("geocentric radial should not be the geodetic zenith at mid latitude, got %f rad", elev)
	}
}

func TestGroundToSatelliteLineOfSight(t *testing.T) {
	ground := r3.Vec{X: earth.EquatorialRadius}
	overhead := r3.Vec{X: earth.EquatorialRadius + 500}
	blocked := r3.Vec{X: -(earth.EquatorialRadius + 500)}

	if !GroundToSatelliteVisible(earth, ground, overhead, 0) {
		t.Fatalf("overhead satellite should be visible")
	}

	if GroundToSatelliteVisible(earth, ground, blocked, 0) {
		t.Fatalf("satellite through the body should be blocked")
	}
	if !SegmentOccluded(earth, ground, blocked) {
		t.Fatalf("segment through the body should be occluded regardless of mask")
	}
}

func TestSatelliteToSatelliteLineOfSight(t *testing.T) {
	highAltitude := earth.EquatorialRadius + 3000
	satA := r3.Vec{X: highAltitude}
	satB := r3.Vec{Y: highAltitude}

	if !SatelliteToSatelliteVisible(earth, satA, satB) {
		t.Fatalf("high-altitude cross link should clear the body")
	}

	satC := r3.Vec{X: earth.EquatorialRadius + 500}
	satD := r3.Vec{X: -(earth.EquatorialRadius + 500)}

	if SatelliteToSatelliteVisible(earth, satC, satD) {
		t.Fatalf("cross-body satellite link should be blocked")
	}
}

func TestOblatenessClearsPolarLink(t *testing.T) {
	// The chord at this height clears the flattened pole but would cut a sphere of equatorial radius.
	z := earth.PolarRadius() + 10
	a := r3.Vec{X: -3000, Z: z}
	b := r3.Vec{X: 3000, Z: z}

	if !SatelliteToSatelliteVisible(earth, a, b) {
		t.Fatalf("link above the pole should clear the oblate body")
	}

	sphere := ellipsoid.Shape{EquatorialRadius: earth.EquatorialRadius}
	if SatelliteToSatelliteVisible(sphere, a, b) {
		t.Fatalf("the same link should be blocked by a sphere of equatorial radius")
	}
}

func TestPolarVisibility(t *testing.T) {
	polarGround := r3.Vec{Z: earth.PolarRadius()}
	polarSat := r3.Vec{Z: earth.PolarRadius() + 800}

	if elev := Elevation(earth, polarGround, polarSat); math.Abs(elev-math.Pi/2) > 1e-6 {
		t.Fatalf("expected near-zenith elevation at pole, got %f", elev)
	}

	if !GroundToSatelliteVisible(earth, polarGround, polarSat, 0.2) {
		t.Fatalf("polar overhead satellite should exceed elevation mask")
	}
}

func TestHorizonIsNotBlocked(t *testing.T) {
	ground := r3.Vec{X: earth.EquatorialRadius}
	tangentSat := r3.Vec{X: earth.EquatorialRadius, Z: 1000}

	if SegmentOccluded(earth, ground, tangentSat) {
		t.Fatalf("tangent path should not be considered intersecting the body")
	}
}

func TestCoincidentEndpointsAreNotOccluded(t *testing.T) {
	p := r3.Vec{X: earth.EquatorialRadius + 10}
	if SegmentOccluded(earth, p, p) {
		t.Fatalf("a zero-length segment cannot be occluded")
	}
}
