// Package ellipsoid intersects rays with oblate spheroid reference bodies such as the Earth.
package ellipsoid

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrDegenerateDirection is returned when the ray direction is the zero vector.
	ErrDegenerateDirection = errors.New("ellipsoid: degenerate ray: zero direction vector")
	// ErrNonFiniteRay is returned when a ray component is NaN or infinite.
	ErrNonFiniteRay = errors.New("ellipsoid: ray components must be finite")
	// ErrOutOfRange is returned when the solve cannot be carried out in float64 range,
	// for example when the origin is so far away that its squared distance overflows.
	ErrOutOfRange = errors.New("ellipsoid: ray is outside the representable range")
)

// Ray is a half-line origin + t·direction for t >= 0, expressed in the ellipsoid-centered frame.
// The direction need not be normalized; T in an Intersection is scaled accordingly.
type Ray struct {
	Origin    r3.Vec
	Direction r3.Vec
}

// NewRay creates a new ray
func NewRay(origin, direction r3.Vec) Ray {
	return Ray{Origin: origin, Direction: direction}
}

// At returns the point at parameter t along the ray
func (r Ray) At(t float64) r3.Vec {
	return r3.Add(r.Origin, r3.Scale(t, r.Direction))
}

func (r Ray) finite() bool {
	return finite(r.Origin.X, r.Origin.Y, r.Origin.Z, r.Direction.X, r.Direction.Y, r.Direction.Z)
}

// Outcome tells whether a ray reached the surface.
type Outcome int

const (
	// OutcomeHit means the ray meets the surface at a non-negative parameter.
	OutcomeHit Outcome = iota + 1
	// OutcomeMiss means no forward intersection exists; Reason says why.
	OutcomeMiss
)

func (o Outcome) String() string {
	switch o {
	case OutcomeHit:
		return "hit"
	case OutcomeMiss:
		return "miss"
	default:
		return "unknown"
	}
}

// MissReason explains an OutcomeMiss.
type MissReason int

const (
	// DiscriminantNegative means the ray's infinite line never meets the ellipsoid.
	DiscriminantNegative MissReason = iota + 1
	// BothRootsNegative means the ellipsoid lies entirely behind the ray origin.
	BothRootsNegative
)

func (m MissReason) String() string {
	switch m {
	case DiscriminantNegative:
		return "discriminant negative"
	case BothRootsNegative:
		return "both roots negative"
	default:
		return ""
	}
}

// Intersection is the result of casting a ray at a shape.
// T and Point are only meaningful when Outcome is OutcomeHit.
type Intersection struct {
	Outcome Outcome
	Reason  MissReason
	T       float64
	Point   r3.Vec
}

// Hit reports whether the ray reached the surface.
func (i Intersection) Hit() bool {
	return i.Outcome == OutcomeHit
}

// coefficients substitutes the ray into the implicit surface equation, yielding a·t² + b·t + c = 0.
func coefficients(ray Ray, shape Shape) (a, b, c float64) {
	k := shape.polarScale()
	d, o := ray.Direction, ray.Origin
	r := shape.EquatorialRadius

	a = d.X*d.X + d.Y*d.Y + d.Z*d.Z*k
	b = 2 * (d.X*o.X + d.Y*o.Y + d.Z*o.Z*k)
	c = o.X*o.X + o.Y*o.Y + o.Z*o.Z*k - r*r
	return a, b, c
}

// normalized rescales the direction so its largest component has magnitude 1.
// Parameters of the returned ray divide by scale to map back onto the input ray.
func (r Ray) normalized() (unit Ray, scale float64) {
	d := r.Direction
	scale = math.Max(math.Abs(d.X), math.Max(math.Abs(d.Y), math.Abs(d.Z)))
	if scale == 1 {
		return r, 1
	}
	unit = Ray{Origin: r.Origin, Direction: r3.Vec{X: d.X / scale, Y: d.Y / scale, Z: d.Z / scale}}
	return unit, scale
}

// solve validates its input and returns the roots of the normalized ray.
func solve(ray Ray, shape Shape) (unit Ray, scale, t1, t2 float64, ok bool, err error) {
	if err := shape.Validate(); err != nil {
		return Ray{}, 0, 0, 0, false, err
	}
	if !ray.finite() {
		return Ray{}, 0, 0, 0, false, ErrNonFiniteRay
	}
	if ray.Direction == (r3.Vec{}) {
		return Ray{}, 0, 0, 0, false, ErrDegenerateDirection
	}

	unit, scale = ray.normalized()
	a, b, c := coefficients(unit, shape)
	discriminant := b*b - 4*a*c
	if !finite(a, b, c, discriminant) {
		return Ray{}, 0, 0, 0, false, ErrOutOfRange
	}
	if discriminant < 0 {
		return unit, scale, 0, 0, false, nil
	}

	// a >= 1 after normalization, so t1 <= t2.
	sqrtD := math.Sqrt(discriminant)
	denom := 2 * a
	t1 = (-b - sqrtD) / denom
	t2 = (-b + sqrtD) / denom
	return unit, scale, t1, t2, true, nil
}

// Roots returns both ray parameters at which the ray's line meets the surface, in ascending order.
// ok is false when the discriminant is negative. Roots behind the origin are included.
func Roots(ray Ray, shape Shape) (t1, t2 float64, ok bool, err error) {
	_, scale, u1, u2, ok, err := solve(ray, shape)
	if err != nil || !ok {
		return 0, 0, ok, err
	}

	t1, t2 = u1/scale, u2/scale
	if !finite(t1, t2) {
		return 0, 0, false, ErrOutOfRange
	}
	return t1, t2, true, nil
}

// Intersect returns the first point where the ray meets the surface of shape.
// A miss is a normal outcome reported through Intersection; invalid input is reported as an error.
// A tangent ray (zero discriminant) counts as a hit.
func Intersect(ray Ray, shape Shape) (Intersection, error) {
	unit, scale, t1, t2, ok, err := solve(ray, shape)
	if err != nil {
		return Intersection{}, err
	}
	if !ok {
		return Intersection{Outcome: OutcomeMiss, Reason: DiscriminantNegative}, nil
	}

	u := t1
	if u < 0 {
		u = t2
	}
	if u < 0 {
		return Intersection{Outcome: OutcomeMiss, Reason: BothRootsNegative}, nil
	}

	t, point := u/scale, unit.At(u)
	if !finite(t, point.X, point.Y, point.Z) {
		return Intersection{}, ErrOutOfRange
	}
	return Intersection{Outcome: OutcomeHit, T: t, Point: point}, nil
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
