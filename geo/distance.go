package geo

import (
	"fmt"
	"math"
	"strings"
)

// DefaultEarthRadiusKm is the mean earth radius used when a Calculator
// does not set one.
const DefaultEarthRadiusKm = 6371.0088

// Measure computes the distance in kilometres between two coordinates.
//
// Implementations must be pure: no side effects and no shared mutable state,
// so a single Measure can be invoked concurrently by every worker of an executor.
type Measure interface {
	Distance(a, b Coordinate) (float64, error)
}

// DistanceFunc adapts an ordinary function to the Measure interface.
type DistanceFunc func(a, b Coordinate) (float64, error)

// Distance calls f(a, b).
func (f DistanceFunc) Distance(a, b Coordinate) (float64, error) {
	return f(a, b)
}

// Formula enumerates the built-in distance formulas.
type Formula int

const (
	Haversine Formula = iota
	Equirectangular
)

var formulaNames = map[Formula]string{
	Haversine:       "haversine",
	Equirectangular: "equirectangular",
}

func (f Formula) String() string {
	if name, ok := formulaNames[f]; ok {
		return name
	}
	return fmt.Sprintf("formula(%d)", int(f))
}

// ParseFormula resolves a formula by its case-insensitive name.
func ParseFormula(name string) (Formula, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for f, fname := range formulaNames {
		if fname == n {
			return f, nil
		}
	}
	return 0, &ValidationError{Field: "formula", Value: name, Reason: "unknown formula"}
}

// Formulas lists every built-in formula in declaration order.
func Formulas() []Formula {
	return []Formula{Haversine, Equirectangular}
}

// Calculator is a Measure fully described by data: a formula and an earth
// radius. Because it carries no code it can be shipped to another process,
// which is what the multi-process executor relies on.
type Calculator struct {
	Formula  Formula
	RadiusKm float64 // zero means DefaultEarthRadiusKm
}

// Radius returns the effective earth radius in kilometres.
func (c Calculator) Radius() float64 {
	if c.RadiusKm == 0 {
		return DefaultEarthRadiusKm
	}
	return c.RadiusKm
}

// Distance implements Measure.
func (c Calculator) Distance(a, b Coordinate) (float64, error) {
	switch c.Formula {
	case Haversine:
		return HaversineKm(a, b, c.Radius()), nil
	case Equirectangular:
		return EquirectangularKm(a, b, c.Radius()), nil
	default:
		return 0, fmt.Errorf("unsupported formula %s", c.Formula)
	}
}

// HaversineKm returns the great-circle distance between a and b on a sphere of
// the given radius.
func HaversineKm(a, b Coordinate, radiusKm float64) float64 {
	lat1, lng1 := a.radians()
	lat2, lng2 := b.radians()

	dLat := lat2 - lat1
	dLng := lng2 - lng1
	h := math.Pow(math.Sin(dLat*0.5), 2) + math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dLng*0.5), 2)
	// Rounding can leave h just outside [0, 1] for near-antipodal points.
	h = math.Min(1, math.Max(0, h))

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return radiusKm * c
}

// EquirectangularKm approximates the distance between a and b by projecting
// both onto a plane tangent at their mean latitude. It trades accuracy over
// long separations for fewer trigonometric calls.
func EquirectangularKm(a, b Coordinate, radiusKm float64) float64 {
	lat1, lng1 := a.radians()
	lat2, lng2 := b.radians()

	x := (lng2 - lng1) * math.Cos((lat1+lat2)/2)
	y := lat2 - lat1
	return math.Sqrt(x*x+y*y) * radiusKm
}
