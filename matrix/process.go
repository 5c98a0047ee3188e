package matrix

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/utkarsh5026/distmatrix/geo"
	"github.com/utkarsh5026/distmatrix/internal/pairs"
	"github.com/utkarsh5026/distmatrix/internal/procpool"
)

// MaybeServeWorker turns the current process into a Process-strategy worker
// when it was launched as one, and exits when the parent closes its input.
// Otherwise it returns immediately. Call it first thing in main (and in
// TestMain of packages that exercise the Process strategy).
func MaybeServeWorker() {
	if procpool.IsWorker() {
		os.Exit(procpool.Main())
	}
}

// processExecutor runs measurements in child processes. Each pool worker owns
// one child, so a child never sees concurrent requests.
type processExecutor struct {
	conf *config
}

func (e *processExecutor) Execute(ctx context.Context, points []geo.Point, m geo.Measure) ([]Record, error) {
	calc, ok := portable(m)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrNotPortable, m)
	}

	total := pairs.Count(len(points))
	if total == 0 {
		return []Record{}, nil
	}
	workers := min(e.conf.workers, total)

	cmd, err := e.command()
	if err != nil {
		return nil, &ResourceError{Op: "resolve worker command", Err: err}
	}

	procs, err := startProcesses(ctx, cmd, workers)
	if err != nil {
		return nil, err
	}
	defer e.closeAll(procs)

	formula := calc.Formula.String()
	out := NewCollector(total)
	err = runPooled(ctx, e.conf, workers, points,
		func(_ context.Context, workerID int, p pairs.Pair[geo.Point]) error {
			proc := procs[workerID]
			resp, err := proc.Call(procpool.Request{
				Formula:  formula,
				RadiusKm: calc.RadiusKm,
				A:        [2]float64{p.First.Coordinate.Latitude(), p.First.Coordinate.Longitude()},
				B:        [2]float64{p.Second.Coordinate.Latitude(), p.Second.Coordinate.Longitude()},
			})
			if err != nil {
				return &ResourceError{Op: fmt.Sprintf("worker process %d", proc.Pid()), Err: err}
			}
			if resp.Error != "" {
				return pairError(p, errors.New(resp.Error))
			}
			rec, err := newRecord(p, resp.Distance)
			if err != nil {
				return err
			}
			out.add(rec)
			return nil
		})
	if err != nil {
		return nil, err
	}
	return out.Records(), nil
}

func (e *processExecutor) command() (procpool.Command, error) {
	if len(e.conf.workerCmd) > 0 {
		return procpool.Command{Path: e.conf.workerCmd[0], Args: e.conf.workerCmd[1:]}, nil
	}
	return procpool.SelfCommand()
}

func (e *processExecutor) closeAll(procs []*procpool.Process) {
	for _, p := range procs {
		if err := p.Close(); err != nil {
			e.conf.logger.Debug("worker process exited with error", zap.Int("pid", p.Pid()), zap.Error(err))
		}
	}
}

func startProcesses(ctx context.Context, cmd procpool.Command, n int) ([]*procpool.Process, error) {
	procs := make([]*procpool.Process, 0, n)
	for range n {
		p, err := procpool.Start(ctx, cmd)
		if err != nil {
			for _, started := range procs {
				_ = started.Close()
			}
			return nil, &ResourceError{Op: "start worker process", Err: err}
		}
		procs = append(procs, p)
	}
	return procs, nil
}

// portable reports whether m can be rebuilt inside a child process.
func portable(m geo.Measure) (geo.Calculator, bool) {
	switch c := m.(type) {
	case geo.Calculator:
		return c, true
	case *geo.Calculator:
		if c != nil {
			return *c, true
		}
	}
	return geo.Calculator{}, false
}
