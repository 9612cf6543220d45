package orbits

import (
	"errors"
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// EarthMu is the standard gravitational parameter for Earth in km^3/s^2.
	EarthMu = 398600.4418
	twoPi   = 2 * math.Pi
)

var (
	// ErrInvalidSemiMajorAxis is returned for orbits with a non-positive semi-major axis.
	ErrInvalidSemiMajorAxis = errors.New("orbits: semi-major axis must be positive")
	// ErrInvalidEccentricity is returned for open or negative-eccentricity orbits.
	ErrInvalidEccentricity = errors.New("orbits: eccentricity must satisfy 0 <= e < 1")
)

// KeplerianElements represents classical orbital elements referenced to an epoch.
type KeplerianElements struct {
	SemiMajorAxis       float64   // kilometers
	Eccentricity        float64   // unitless, 0 <= e < 1
	Inclination         float64   // radians
	RAAN                float64   // radians
	ArgumentOfPeriapsis float64   // radians
	MeanAnomaly         float64   // radians at Epoch
	Epoch               time.Time // reference epoch
	Mu                  float64   // gravitational parameter, km^3/s^2; zero selects EarthMu
}

// Validate rejects elements that do not describe a closed orbit.
func (k KeplerianElements) Validate() error {
	if !(k.SemiMajorAxis > 0) || math.IsInf(k.SemiMajorAxis, 0) {
		return ErrInvalidSemiMajorAxis
	}
	if math.IsNaN(k.Eccentricity) || k.Eccentricity < 0 || k.Eccentricity >= 1 {
		return ErrInvalidEccentricity
	}
	return nil
}

func (k KeplerianElements) mu() float64 {
	if k.Mu == 0 {
		return EarthMu
	}
	return k.Mu
}

// MeanMotion returns the mean motion (rad/s) for the orbit.
func (k KeplerianElements) MeanMotion() float64 {
	return math.Sqrt(k.mu() / math.Pow(k.SemiMajorAxis, 3))
}

// Period returns the orbital period.
func (k KeplerianElements) Period() time.Duration {
	return time.Duration(twoPi / k.MeanMotion() * float64(time.Second))
}

// Propagate advances the mean anomaly using a Keplerian two-body model by the provided duration.
func (k KeplerianElements) Propagate(dt time.Duration) KeplerianElements {
	propagated := k
	propagated.Epoch = k.Epoch.Add(dt)
	propagated.MeanAnomaly = normalizeAngle(k.MeanAnomaly + k.MeanMotion()*dt.Seconds())

	return propagated
}

// At propagates the elements to an absolute time.
func (k KeplerianElements) At(t time.Time) KeplerianElements {
	return k.Propagate(t.Sub(k.Epoch))
}

// Position returns the inertial position (kilometers) at the elements' epoch.
// The perifocal position is rotated by argument of periapsis, inclination and RAAN.
func (k KeplerianElements) Position() r3.Vec {
	e := k.Eccentricity
	eccentric := EccentricAnomalyFromMean(k.MeanAnomaly, e)
	sinE, cosE := math.Sincos(eccentric)

	xp := k.SemiMajorAxis * (cosE - e)
	yp := k.SemiMajorAxis * math.Sqrt(1-e*e) * sinE

	sinO, cosO := math.Sincos(k.RAAN)
	sinI, cosI := math.Sincos(k.Inclination)
	sinW, cosW := math.Sincos(k.ArgumentOfPeriapsis)

	return r3.Vec{
		X: (cosO*cosW-sinO*sinW*cosI)*xp + (-cosO*sinW-sinO*cosW*cosI)*yp,
		Y: (sinO*cosW+cosO*sinW*cosI)*xp + (-sinO*sinW+cosO*cosW*cosI)*yp,
		Z: (sinW*sinI)*xp + (cosW*sinI)*yp,
	}
}

// MeanAnomalyFromEccentric computes mean anomaly M from eccentric anomaly E.
func MeanAnomalyFromEccentric(eccentricAnomaly, eccentricity float64) float64 {
	if eccentricity == 0 {
		return normalizeAngle(eccentricAnomaly)
	}

	return normalizeAngle(eccentricAnomaly - eccentricity*math.Sin(eccentricAnomaly))
}

// TrueAnomalyFromEccentric converts an eccentric anomaly to the true anomaly.
func TrueAnomalyFromEccentric(eccentricAnomaly, eccentricity float64) float64 {
	if eccentricity == 0 {
		return normalizeAngle(eccentricAnomaly)
	}

	sinE, cosE := math.Sincos(eccentricAnomaly)
	numerator := math.Sqrt(1-eccentricity*eccentricity) * sinE

	return normalizeAngle(math.Atan2(numerator, cosE-eccentricity))
}

// EccentricAnomalyFromMean solves Kepler's equation for the eccentric anomaly using Newton-Raphson iteration.
func EccentricAnomalyFromMean(meanAnomaly, eccentricity float64) float64 {
	if eccentricity == 0 {
		return normalizeAngle(meanAnomaly)
	}

	M := normalizeAngle(meanAnomaly)
	E := initialGuess(M, eccentricity)
	for i := 0; i < 50; i++ {
		delta := (E - eccentricity*math.Sin(E) - M) / (1 - eccentricity*math.Cos(E))
		E -= delta

		if math.Abs(delta) < 1e-12 {
			break
		}
	}

	return normalizeAngle(E)
}

// TrueAnomalyFromMean converts mean anomaly directly to true anomaly.
func TrueAnomalyFromMean(meanAnomaly, eccentricity float64) float64 {
	return TrueAnomalyFromEccentric(EccentricAnomalyFromMean(meanAnomaly, eccentricity), eccentricity)
}

func normalizeAngle(angle float64) float64 {
	wrapped := math.Mod(angle, twoPi)
	if wrapped < 0 {
		wrapped += twoPi
	}
	return wrapped
}

func initialGuess(meanAnomaly, eccentricity float64) float64 {
	if eccentricity < 0.8 {
		return meanAnomaly
	}
	if meanAnomaly < math.Pi {
		return meanAnomaly + eccentricity/2
	}
	return meanAnomaly - eccentricity/2
}
