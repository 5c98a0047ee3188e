// Package geo provides the value types and distance formulas used to build
// a distance matrix: validated coordinates, labeled points and the Measure
// capability that turns a pair of coordinates into a distance in kilometres.
//
// # Basic Usage
//
//	a, _ := geo.NewPoint("A", 0, 0)
//	b, _ := geo.NewPoint("B", 0, 90)
//	calc := geo.Calculator{Formula: geo.Haversine}
//	d, err := calc.Distance(a.Coordinate, b.Coordinate)
//
// # Formulas
//
//   - Haversine: great-circle distance on a sphere, accurate at every scale
//   - Equirectangular: planar small-angle approximation, cheaper to compute but
//     increasingly inaccurate as the separation between points grows
//
// Every Measure must be pure and safe to call from many goroutines at once.
package geo
