package matrix

import (
	"context"

	"github.com/utkarsh5026/distmatrix/geo"
	"github.com/utkarsh5026/distmatrix/internal/pairs"
)

// sequentialExecutor measures pairs one at a time on the calling goroutine.
// It is the reference every other strategy is compared against.
type sequentialExecutor struct{}

func (sequentialExecutor) Execute(ctx context.Context, points []geo.Point, m geo.Measure) ([]Record, error) {
	out := make([]Record, 0, pairs.Count(len(points)))
	for p := range pairs.Generate(points) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := measure(m, p)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
