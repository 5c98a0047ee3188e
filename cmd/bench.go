package cmd

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/utkarsh5026/distmatrix/geo"
	"github.com/utkarsh5026/distmatrix/internal/config"
	"github.com/utkarsh5026/distmatrix/internal/logger"
	"github.com/utkarsh5026/distmatrix/internal/pairs"
	"github.com/utkarsh5026/distmatrix/matrix"
)

const (
	pointsFlag     = "points"
	seedFlag       = "seed"
	iterationsFlag = "iterations"
	strategiesFlag = "strategies"
	noProgressFlag = "no-progress"
)

var (
	bold  = color.New(color.Bold)
	green = color.New(color.FgGreen)
	red   = color.New(color.FgRed)
)

// NewBenchCommand times every strategy on the same random input.
func NewBenchCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Compare execution strategies on random points",
		Args:  cobra.NoArgs,
		PreRun: func(cmd *cobra.Command, _ []string) {
			flags := cmd.Flags()
			mustBindPFlag(v, config.WorkersKey, flags.Lookup(config.WorkersKey))
			mustBindPFlag(v, config.FormulaKey, flags.Lookup(config.FormulaKey))
			bindLogFlags(v, cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			n, _ := flags.GetInt(pointsFlag)
			seed, _ := flags.GetUint64(seedFlag)
			iterations, _ := flags.GetInt(iterationsFlag)
			names, _ := flags.GetStringSlice(strategiesFlag)
			noProgress, _ := flags.GetBool(noProgressFlag)

			strategies, err := parseStrategies(names)
			if err != nil {
				return err
			}
			formula, err := geo.ParseFormula(v.GetString(config.FormulaKey))
			if err != nil {
				return err
			}
			log, err := logger.New(v.GetString(config.LogFormatKey), v.GetString(config.LogLevelKey))
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			b := bench{
				points:     randomPoints(n, seed),
				measure:    geo.Calculator{Formula: formula},
				iterations: max(iterations, 1),
				opts:       []matrix.Option{matrix.WithWorkers(v.GetInt(config.WorkersKey)), matrix.WithLogger(log)},
			}
			if !noProgress {
				b.bar = makeProgressBar(len(strategies) * b.iterations)
			}

			results := b.run(cmd.Context(), strategies)
			renderBench(cmd.OutOrStdout(), len(b.points), results)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.Int(pointsFlag, 300, "number of random points")
	flags.Uint64(seedFlag, 1, "random seed for the generated points")
	flags.Int(iterationsFlag, 3, "runs per strategy; the median is reported")
	flags.StringSlice(strategiesFlag, nil, "strategies to compare (default: all)")
	flags.Bool(noProgressFlag, false, "do not draw a progress bar")
	flags.IntP(config.WorkersKey, "w", 0, "pool workers or child processes (default: GOMAXPROCS)")
	flags.String(config.FormulaKey, "haversine", "distance formula: haversine or equirectangular")

	return cmd
}

func parseStrategies(names []string) ([]matrix.Strategy, error) {
	if len(names) == 0 {
		return matrix.Strategies(), nil
	}
	out := make([]matrix.Strategy, 0, len(names))
	for _, name := range names {
		s, err := matrix.ParseStrategy(name)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// randomPoints scatters n points uniformly over the sphere.
func randomPoints(n int, seed uint64) []geo.Point {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	points := make([]geo.Point, n)
	for i := range n {
		points[i] = geo.MustPoint(fmt.Sprintf("p%d", i), rng.Float64()*180-90, rng.Float64()*360-180)
	}
	return points
}

type bench struct {
	points     []geo.Point
	measure    geo.Measure
	iterations int
	opts       []matrix.Option
	bar        *progressbar.ProgressBar
}

type benchResult struct {
	strategy matrix.Strategy
	elapsed  time.Duration
	records  int
	err      error
}

func (b *bench) run(ctx context.Context, strategies []matrix.Strategy) []benchResult {
	results := make([]benchResult, 0, len(strategies))
	for _, s := range strategies {
		results = append(results, b.runStrategy(ctx, s))
	}
	if b.bar != nil {
		_ = b.bar.Finish()
	}
	return results
}

func (b *bench) runStrategy(ctx context.Context, s matrix.Strategy) benchResult {
	res := benchResult{strategy: s}

	exec, err := matrix.New(s, b.opts...)
	if err != nil {
		res.err = err
		return res
	}

	want := pairs.Count(len(b.points))
	times := make([]time.Duration, 0, b.iterations)
	for range b.iterations {
		if b.bar != nil {
			b.bar.Describe(fmt.Sprintf("Testing: %s", s))
		}

		start := time.Now()
		records, err := exec.Execute(ctx, b.points, b.measure)
		times = append(times, time.Since(start))
		if b.bar != nil {
			_ = b.bar.Add(1)
		}

		if err != nil {
			res.err = err
			return res
		}
		if len(records) != want {
			res.err = fmt.Errorf("got %d records, want %d", len(records), want)
			return res
		}
		res.records = len(records)
	}

	slices.Sort(times)
	res.elapsed = times[len(times)/2]
	return res
}

func makeProgressBar(steps int) *progressbar.ProgressBar {
	return progressbar.NewOptions(steps,
		progressbar.OptionSetDescription("Testing strategies"),
		progressbar.OptionSetWidth(50),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

func renderBench(w io.Writer, points int, results []benchResult) {
	var ok, failed []benchResult
	for _, r := range results {
		if r.err != nil {
			failed = append(failed, r)
			continue
		}
		ok = append(ok, r)
	}
	slices.SortFunc(ok, func(a, b benchResult) int { return cmp.Compare(a.elapsed, b.elapsed) })

	fmt.Fprintln(w)
	_, _ = bold.Fprintln(w, strings.Repeat("═", 60))
	_, _ = bold.Fprintf(w, "DISTANCE MATRIX: %d points, %d pairs\n", points, pairs.Count(points))
	_, _ = bold.Fprintln(w, strings.Repeat("═", 60))

	if len(ok) > 0 {
		table := tablewriter.NewWriter(w)
		table.Header("Rank", "Strategy", "Time", "Pairs/sec", "vs Fastest")
		fastest := ok[0].elapsed
		for i, r := range ok {
			_ = table.Append(
				fmt.Sprintf("%d", i+1),
				r.strategy.String(),
				r.elapsed.Round(time.Microsecond).String(),
				formatNumber(int(float64(r.records)/max(r.elapsed.Seconds(), 1e-9))),
				vsFastest(r.elapsed, fastest, i == 0),
			)
		}
		if err := table.Render(); err != nil {
			_, _ = red.Fprintln(w, "Error rendering results table")
		}
	}

	if len(failed) > 0 {
		fmt.Fprintln(w)
		_, _ = red.Fprintln(w, "Failed strategies:")
		for _, r := range failed {
			_, _ = red.Fprintf(w, "  • %s: %v\n", r.strategy, r.err)
		}
	}

	fmt.Fprintln(w)
	_, _ = green.Fprintf(w, "Completed %d/%d strategies\n", len(ok), len(results))
}

func vsFastest(elapsed, fastest time.Duration, first bool) string {
	if first || fastest == 0 {
		return "baseline"
	}
	return fmt.Sprintf("%.2fx", float64(elapsed)/float64(fastest))
}

// formatNumber formats an integer with comma separators.
func formatNumber(n int) string {
	s := fmt.Sprintf("%d", n)
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return b.String()
}
