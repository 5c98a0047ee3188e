package matrix

import (
	"fmt"
	"math"

	"github.com/utkarsh5026/distmatrix/geo"
	"github.com/utkarsh5026/distmatrix/internal/pairs"
)

// measure computes one pair. A panicking Measure is reported as a
// ComputationError instead of unwinding the worker.
func measure(m geo.Measure, p pairs.Pair[geo.Point]) (rec Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = pairError(p, fmt.Errorf("measure panicked: %v", r))
		}
	}()

	d, err := m.Distance(p.First.Coordinate, p.Second.Coordinate)
	if err != nil {
		return Record{}, pairError(p, err)
	}
	return newRecord(p, d)
}

func newRecord(p pairs.Pair[geo.Point], d float64) (Record, error) {
	if math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
		return Record{}, pairError(p, fmt.Errorf("invalid distance %v", d))
	}
	return Record{
		Origin:           p.First.Label,
		Destination:      p.Second.Label,
		Distance:         d,
		OriginIndex:      p.I,
		DestinationIndex: p.J,
	}, nil
}

func pairError(p pairs.Pair[geo.Point], err error) *ComputationError {
	return &ComputationError{Origin: p.First.Label, Destination: p.Second.Label, Err: err}
}
