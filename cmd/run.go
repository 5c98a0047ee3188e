package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/utkarsh5026/distmatrix/internal/config"
	"github.com/utkarsh5026/distmatrix/internal/csvio"
	"github.com/utkarsh5026/distmatrix/internal/logger"
	"github.com/utkarsh5026/distmatrix/internal/pairs"
	"github.com/utkarsh5026/distmatrix/internal/store"
	"github.com/utkarsh5026/distmatrix/matrix"
)

// NewRunCommand computes one distance matrix.
func NewRunCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [input.csv]",
		Short: "Compute the distance matrix of a CSV file",
		Long: `Compute the distance between every unordered pair of points in the input file.

Output rows are "origin,destination,distance_km". Without --output the result is
written to output.csv next to the input. With --database-url the records are also
stored under a new run id.`,
		Args: cobra.MaximumNArgs(1),
		PreRun: func(cmd *cobra.Command, args []string) {
			flags := cmd.Flags()
			for _, key := range []string{
				config.InputKey, config.OutputKey, config.StrategyKey, config.FormulaKey,
				config.RadiusKey, config.WorkersKey, config.BufferKey, config.FailurePolicyKey,
				config.RateLimitKey, config.CPUAffinityKey, config.DatabaseURLKey, config.MetricsAddrKey,
			} {
				mustBindPFlag(v, key, flags.Lookup(key))
			}
			bindLogFlags(v, cmd)
			if len(args) == 1 {
				v.Set(config.InputKey, args[0])
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := config.FromViper(v).Resolve()
			if err != nil {
				return err
			}
			return runMatrix(cmd.Context(), settings, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringP(config.InputKey, "i", "", "input CSV of label,latitude,longitude rows")
	flags.StringP(config.OutputKey, "o", "", "output CSV (default: output.csv next to the input)")
	flags.StringP(config.StrategyKey, "s", matrix.Pooled.String(), "execution strategy: sequential, threaded, pool, process or stream")
	flags.String(config.FormulaKey, "haversine", "distance formula: haversine or equirectangular")
	flags.Float64(config.RadiusKey, 6371.0088, "earth radius in kilometres")
	flags.IntP(config.WorkersKey, "w", 0, "pool workers or child processes (default: GOMAXPROCS)")
	flags.Int(config.BufferKey, 0, "task queue capacity, and stream queue capacity (default: workers)")
	flags.String(config.FailurePolicyKey, matrix.FailFast.String(), "on a failed pair: 'fail-fast' or 'best-effort' (pool and process)")
	flags.Float64(config.RateLimitKey, 0, "maximum pairs started per second by pool workers (0 = unlimited)")
	flags.Bool(config.CPUAffinityKey, false, "pin each pool worker to one CPU")
	flags.String(config.DatabaseURLKey, "", "also store records in sqlite:// or postgres:// database")
	flags.String(config.MetricsAddrKey, "", "serve Prometheus metrics on this address while running, e.g. ':9090'")

	// NOTE: if you add a new flag here, add the binding in PreRun

	return cmd
}

func executorOptions(s config.Settings, log *zap.Logger) []matrix.Option {
	opts := []matrix.Option{
		matrix.WithWorkers(s.Workers),
		matrix.WithTaskBuffer(s.Buffer),
		matrix.WithFailurePolicy(s.Policy),
		matrix.WithLogger(log),
	}
	if s.Buffer > 0 {
		opts = append(opts, matrix.WithStreamBuffers(s.Buffer, s.Buffer))
	}
	if s.RateLimit > 0 {
		opts = append(opts, matrix.WithRateLimit(s.RateLimit, max(1, int(s.RateLimit))))
	}
	if s.CPUAffinity {
		opts = append(opts, matrix.WithCPUAffinity())
	}
	return opts
}

func runMatrix(ctx context.Context, s config.Settings, stdout io.Writer) error {
	log, err := logger.New(s.LogFormat, s.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if s.MetricsAddr != "" {
		stop := serveMetrics(s.MetricsAddr, log)
		defer stop()
	}

	out, err := csvio.CreateFile(s.OutputPath)
	if err != nil {
		return err
	}
	defer out.Abort()

	sinks := multiSink{out}

	var run *store.Run
	if s.DatabaseURL != "" {
		st, err := store.Open(ctx, s.DatabaseURL)
		if err != nil {
			return err
		}
		defer st.Close()

		run, err = st.BeginRun(ctx, s.Strategy.String(), s.Calculator.Formula.String())
		if err != nil {
			return err
		}
		defer func() { _ = run.Rollback() }()
		sinks = append(sinks, run)
	}

	start := time.Now()
	if s.Strategy == matrix.Stream {
		err = streamMatrix(ctx, s, log, sinks)
	} else {
		err = executeMatrix(ctx, s, log, sinks)
	}
	if err != nil {
		return err
	}

	if run != nil {
		if err := run.Commit(); err != nil {
			return err
		}
	}
	if err := out.Commit(); err != nil {
		return err
	}

	log.Info("output written",
		zap.String("path", s.OutputPath),
		zap.Int("records", out.Count()),
		zap.Duration("elapsed", time.Since(start)))

	fmt.Fprintf(stdout, "wrote %d records to %s\n", out.Count(), s.OutputPath)
	if run != nil {
		fmt.Fprintf(stdout, "stored as run %s\n", run.ID())
	}
	return nil
}

func executeMatrix(ctx context.Context, s config.Settings, log *zap.Logger, sink matrix.Sink) error {
	points, err := csvio.ReadFile(ctx, s.Input)
	if err != nil {
		return err
	}

	exec, err := matrix.New(s.Strategy, executorOptions(s, log)...)
	if err != nil {
		return err
	}
	records, err := exec.Execute(ctx, points, s.Calculator)
	if err != nil {
		return err
	}

	if want := pairs.Count(len(points)); len(records) < want {
		log.Warn("result is incomplete", zap.Int("records", len(records)), zap.Int("expected", want))
	}

	matrix.SortByGeneration(records)
	for _, r := range records {
		if err := sink.Write(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func streamMatrix(ctx context.Context, s config.Settings, log *zap.Logger, sink matrix.Sink) error {
	f, err := os.Open(s.Input)
	if err != nil {
		return err
	}
	defer f.Close()

	return matrix.NewPipeline(s.Calculator, executorOptions(s, log)...).Run(ctx, csvio.NewReader(f), sink)
}

// multiSink writes every record to each sink in turn.
type multiSink []matrix.Sink

func (m multiSink) Write(ctx context.Context, r matrix.Record) error {
	for _, s := range m {
		if err := s.Write(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func serveMetrics(addr string, log *zap.Logger) (stop func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
