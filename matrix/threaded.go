package matrix

import (
	"context"

	conc "github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/utkarsh5026/distmatrix/geo"
	"github.com/utkarsh5026/distmatrix/internal/pairs"
)

// threadedExecutor starts one goroutine per pair with no upper bound and
// gathers results in a shared collector. The result order is the order in
// which goroutines finish.
type threadedExecutor struct {
	conf *config
}

func (e *threadedExecutor) Execute(ctx context.Context, points []geo.Point, m geo.Measure) ([]Record, error) {
	out := NewCollector(pairs.Count(len(points)))

	p := conc.New().WithErrors().WithContext(ctx)
	if e.conf.policy == FailFast {
		p = p.WithCancelOnError().WithFirstError()
	}

	for pr := range pairs.Generate(points) {
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rec, err := measure(m, pr)
			if err != nil {
				if e.conf.policy == BestEffort {
					e.conf.logger.Warn("pair dropped",
						zap.String("origin", pr.First.Label),
						zap.String("destination", pr.Second.Label),
						zap.Error(err))
					return nil
				}
				return err
			}
			out.add(rec)
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out.Records(), nil
}
