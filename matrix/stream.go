package matrix

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/utkarsh5026/distmatrix/geo"
	"github.com/utkarsh5026/distmatrix/internal/pairs"
	"github.com/utkarsh5026/distmatrix/internal/queue"
)

// Source yields points one at a time. Next returns io.EOF once the input is
// exhausted.
type Source interface {
	Next(ctx context.Context) (geo.Point, error)
}

// Sink receives records as they are produced.
type Sink interface {
	Write(ctx context.Context, r Record) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, r Record) error

// Write calls f(ctx, r).
func (f SinkFunc) Write(ctx context.Context, r Record) error {
	return f(ctx, r)
}

// SliceSource is a Source over an in-memory slice.
type SliceSource struct {
	points []geo.Point
	next   int
}

// NewSliceSource returns a Source yielding points in order.
func NewSliceSource(points []geo.Point) *SliceSource {
	return &SliceSource{points: points}
}

// Next returns the next point, or io.EOF.
func (s *SliceSource) Next(ctx context.Context) (geo.Point, error) {
	if err := ctx.Err(); err != nil {
		return geo.Point{}, err
	}
	if s.next >= len(s.points) {
		return geo.Point{}, io.EOF
	}
	p := s.points[s.next]
	s.next++
	return p, nil
}

// Pipeline computes a distance matrix over a stream of points with three
// concurrent stages joined by bounded queues:
//
//	Source -> produce -> points -> calculate -> records -> consume -> Sink
//
// The calculate stage pairs each arriving point with every point before it,
// so once k points have been read exactly k·(k-1)/2 records exist, and no
// record involving point j is emitted before point j was read. Records reach
// the Sink grouped by their later point: (0,1), (0,2), (1,2), (0,3) ...
//
// End of input is signalled by closing the queue, not by an in-band marker.
// The first error in any stage cancels the other two and is returned by Run.
type Pipeline struct {
	measure geo.Measure
	conf    *config
}

// NewPipeline returns a Pipeline measuring with m. It honours WithLogger and
// WithStreamBuffers.
func NewPipeline(m geo.Measure, opts ...Option) *Pipeline {
	return &Pipeline{measure: m, conf: newConfig(opts...)}
}

// Run drains src through the pipeline into sink and returns when every
// record has been written or a stage fails.
func (p *Pipeline) Run(ctx context.Context, src Source, sink Sink) error {
	if p.measure == nil {
		return errors.New("nil measure")
	}

	points, err := queue.New[geo.Point](p.conf.pointBuffer)
	if err != nil {
		return &ResourceError{Op: "create point queue", Err: err}
	}
	records, err := queue.New[Record](p.conf.recordBuffer)
	if err != nil {
		return &ResourceError{Op: "create record queue", Err: err}
	}

	var read, written int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := produce(gctx, src, points)
		read = n
		return err
	})
	g.Go(func() error {
		return calculate(gctx, p.measure, points, records)
	})
	g.Go(func() error {
		n, err := consume(gctx, records, sink)
		written = n
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}

	p.conf.logger.Debug("stream finished", zap.Int("points", read), zap.Int("records", written))
	return nil
}

func produce(ctx context.Context, src Source, out *queue.Queue[geo.Point]) (int, error) {
	n := 0
	for {
		pt, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			out.Close()
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("read point %d: %w", n+1, err)
		}
		if err := out.Put(ctx, pt); err != nil {
			return n, err
		}
		n++
	}
}

func calculate(ctx context.Context, m geo.Measure, in *queue.Queue[geo.Point], out *queue.Queue[Record]) error {
	var acc pairs.Accumulator[geo.Point]
	for {
		pt, err := in.Get(ctx)
		if errors.Is(err, queue.ErrClosed) {
			out.Close()
			return nil
		}
		if err != nil {
			return err
		}

		for pr := range acc.Add(pt) {
			rec, err := measure(m, pr)
			if err != nil {
				return err
			}
			if err := out.Put(ctx, rec); err != nil {
				return err
			}
		}
		in.TaskDone()
	}
}

func consume(ctx context.Context, in *queue.Queue[Record], sink Sink) (int, error) {
	n := 0
	for {
		rec, err := in.Get(ctx)
		if errors.Is(err, queue.ErrClosed) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		if err := sink.Write(ctx, rec); err != nil {
			return n, fmt.Errorf("write record %s -> %s: %w", rec.Origin, rec.Destination, err)
		}
		n++
		in.TaskDone()
	}
}

// streamExecutor materialises a Pipeline run over an in-memory slice.
type streamExecutor struct {
	conf *config
}

func (e *streamExecutor) Execute(ctx context.Context, points []geo.Point, m geo.Measure) ([]Record, error) {
	out := NewCollector(pairs.Count(len(points)))
	pl := &Pipeline{measure: m, conf: e.conf}
	if err := pl.Run(ctx, NewSliceSource(points), out); err != nil {
		return nil, err
	}
	records := out.Records()
	SortByGeneration(records)
	return records, nil
}
