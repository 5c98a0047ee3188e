package geo

import "math"

const (
	MinLatitude  = -90.0
	MaxLatitude  = 90.0
	MinLongitude = -180.0
	MaxLongitude = 180.0
)

// Coordinate is an immutable latitude/longitude pair in decimal degrees.
// The zero value is the point (0, 0), which is valid.
type Coordinate struct {
	lat float64
	lon float64
}

// NewCoordinate validates and builds a Coordinate.
//
// Latitude must lie in [-90, 90] and longitude in [-180, 180], both inclusive.
// NaN values are rejected. Any violation returns a *ValidationError.
func NewCoordinate(latitude, longitude float64) (Coordinate, error) {
	if math.IsNaN(latitude) || latitude < MinLatitude || latitude > MaxLatitude {
		return Coordinate{}, &ValidationError{
			Field:  "latitude",
			Value:  latitude,
			Reason: "must be between -90 and 90 inclusive",
		}
	}
	if math.IsNaN(longitude) || longitude < MinLongitude || longitude > MaxLongitude {
		return Coordinate{}, &ValidationError{
			Field:  "longitude",
			Value:  longitude,
			Reason: "must be between -180 and 180 inclusive",
		}
	}
	return Coordinate{lat: latitude, lon: longitude}, nil
}

// MustCoordinate is like NewCoordinate but panics on invalid input.
// Intended for constants and tests.
func MustCoordinate(latitude, longitude float64) Coordinate {
	c, err := NewCoordinate(latitude, longitude)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Coordinate) Latitude() float64  { return c.lat }
func (c Coordinate) Longitude() float64 { return c.lon }

// radians returns the coordinate as (φ, λ) in radians.
func (c Coordinate) radians() (float64, float64) {
	return c.lat * math.Pi / 180, c.lon * math.Pi / 180
}

// Point is an immutable labeled coordinate.
type Point struct {
	Label      string
	Coordinate Coordinate
}

// NewPoint validates the label and coordinate and returns a Point.
// The label must be non-empty; duplicate labels across points are allowed.
func NewPoint(label string, latitude, longitude float64) (Point, error) {
	if label == "" {
		return Point{}, &ValidationError{Field: "label", Reason: "must not be empty"}
	}
	c, err := NewCoordinate(latitude, longitude)
	if err != nil {
		return Point{}, err
	}
	return Point{Label: label, Coordinate: c}, nil
}

// MustPoint is like NewPoint but panics on invalid input.
func MustPoint(label string, latitude, longitude float64) Point {
	p, err := NewPoint(label, latitude, longitude)
	if err != nil {
		panic(err)
	}
	return p
}
