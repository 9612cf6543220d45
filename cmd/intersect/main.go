// Command intersect prints where a ray first meets the reference ellipsoid.
//
// Usage:
//
//	intersect [-radius R] [-eccentricity E] dx dy dz ox oy oz
//
// The exit status is 0 on a hit, 3 on a miss, 2 on bad arguments and 1 when
// the solver rejects its input.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/example/groundtrack/ellipsoid"
	"github.com/example/groundtrack/internal/config"
)

const (
	exitHit     = 0
	exitFailure = 1
	exitUsage   = 2
	exitMiss    = 3
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	os.Exit(run(os.Args[1:], cfg.Shape, os.Stdout, os.Stderr))
}

func run(args []string, defaults ellipsoid.Shape, stdout, stderr io.Writer) int {
	ray, shape, err := parseArgs(args, defaults, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(stderr, err)
		}
		return exitUsage
	}

	hit, err := ellipsoid.Intersect(ray, shape)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFailure
	}

	if !hit.Hit() {
		switch hit.Reason {
		case ellipsoid.DiscriminantNegative:
			fmt.Fprintln(stdout, "No intersection: discriminant < 0.")
		default:
			fmt.Fprintln(stdout, "No intersection: d < 0.")
		}
		return exitMiss
	}

	for _, c := range []float64{hit.Point.X, hit.Point.Y, hit.Point.Z} {
		fmt.Fprintln(stdout, strconv.FormatFloat(c, 'g', -1, 64))
	}
	return exitHit
}

func parseArgs(args []string, defaults ellipsoid.Shape, stderr io.Writer) (ellipsoid.Ray, ellipsoid.Shape, error) {
	fs := flag.NewFlagSet("intersect", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: intersect [-radius R] [-eccentricity E] dx dy dz ox oy oz")
		fs.PrintDefaults()
	}

	shape := defaults
	fs.Float64Var(&shape.EquatorialRadius, "radius", defaults.EquatorialRadius, "equatorial radius of the body (km)")
	fs.Float64Var(&shape.Eccentricity, "eccentricity", defaults.Eccentricity, "first eccentricity of the body")

	if err := fs.Parse(separatePositional(args)); err != nil {
		return ellipsoid.Ray{}, ellipsoid.Shape{}, err
	}

	if fs.NArg() != 6 {
		fs.Usage()
		return ellipsoid.Ray{}, ellipsoid.Shape{}, fmt.Errorf("expected 6 numbers, got %d", fs.NArg())
	}

	var v [6]float64
	for i, raw := range fs.Args() {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			fs.Usage()
			return ellipsoid.Ray{}, ellipsoid.Shape{}, fmt.Errorf("argument %d: %q is not a finite number", i+1, raw)
		}
		v[i] = f
	}

	direction := r3.Vec{X: v[0], Y: v[1], Z: v[2]}
	origin := r3.Vec{X: v[3], Y: v[4], Z: v[5]}
	return ellipsoid.NewRay(origin, direction), shape, nil
}

// separatePositional inserts "--" before the first numeric argument so that
// negative components such as -1 are not mistaken for flags.
func separatePositional(args []string) []string {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			return args
		}
		if _, err := strconv.ParseFloat(arg, 64); err == nil || !strings.HasPrefix(arg, "-") {
			out := make([]string, 0, len(args)+1)
			out = append(out, args[:i]...)
			out = append(out, "--")
			return append(out, args[i:]...)
		}
		if !strings.Contains(arg, "=") {
			i++ // flag value
		}
	}
	return args
}
