package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/example/groundtrack/ellipsoid"
)

// Environment variables read by Load.
const (
	EnvAddr             = "GROUNDTRACK_ADDR"
	EnvRadius           = "GROUNDTRACK_RADIUS_KM"
	EnvEccentricity     = "GROUNDTRACK_ECCENTRICITY"
	EnvElevationMaskDeg = "GROUNDTRACK_ELEVATION_MASK_DEG"
)

// DefaultAddr is the API listen address used when none is configured.
const DefaultAddr = ":8080"

// Config holds process-level settings shared by the binaries.
type Config struct {
	Addr          string
	Shape         ellipsoid.Shape
	ElevationMask float64 // radians
}

// Load reads the given .env files (".env" when none are named) and then the process environment.
// A missing default .env file is not an error.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load .env: %w", err)
		}
	} else if err := godotenv.Load(files...); err != nil {
		return Config{}, fmt.Errorf("config: load %v: %w", files, err)
	}

	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from a variable lookup function, applying defaults for unset variables.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := Config{Addr: DefaultAddr, Shape: ellipsoid.Earth}

	if v, ok := lookup(EnvAddr); ok && v != "" {
		cfg.Addr = v
	}

	radius, err := floatVar(lookup, EnvRadius, ellipsoid.Earth.EquatorialRadius)
	if err != nil {
		return Config{}, err
	}
	eccentricity, err := floatVar(lookup, EnvEccentricity, ellipsoid.Earth.Eccentricity)
	if err != nil {
		return Config{}, err
	}
	cfg.Shape, err = ellipsoid.NewShape(radius, eccentricity)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	maskDeg, err := floatVar(lookup, EnvElevationMaskDeg, 0)
	if err != nil {
		return Config{}, err
	}
	if math.IsNaN(maskDeg) || maskDeg < 0 || maskDeg >= 90 {
		return Config{}, fmt.Errorf("config: %s must be in [0, 90), got %v", EnvElevationMaskDeg, maskDeg)
	}
	cfg.ElevationMask = maskDeg * math.Pi / 180

	return cfg, nil
}

func floatVar(lookup func(string) (string, bool), name string, fallback float64) (float64, error) {
	v, ok := lookup(name)
	if !ok || v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", name, err)
	}
	return f, nil
}
