package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Bigbadasianboy2/Complex-system-playground/internal/config"
	"github.com/Bigbadasianboy2/Complex-system-playground/internal/core"
	"github.com/Bigbadasianboy2/Complex-system-playground/internal/experiment"
	"github.com/Bigbadasianboy2/Complex-system-playground/internal/plot"
	"github.com/Bigbadasianboy2/Complex-system-playground/internal/store"
	pcore "github.com/Bigbadasianboy2/Complex-system-playground/pkg/core"
)

func newSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Measure the largest-cluster fraction over a range of q",
		Long: `Run the configured (F, q) sweep. Every q value gets a batch of independent
trials; q values inside the critical region of their F get more trials.

Results are stored in the SQLite database (see 'axelrod runs') and can be
drawn with --plot or later with 'axelrod plot'.`,
		Example: `  axelrod sweep
  axelrod sweep --features 5 --traits 10,20,30,40 --trials-baseline 10 --plot phase.png
  axelrod sweep --critical 5=20:40 --critical 10=40:60 --seed 42`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			if err := applySweepFlags(cmd, e.cfg); err != nil {
				return err
			}
			if err := e.cfg.Validate(); err != nil {
				return err
			}
			return runSweep(cmd.Context(), e)
		},
	}

	cmd.Flags().Int("size", 0, "Lattice side length N")
	cmd.Flags().IntSlice("features", nil, "Feature counts F to sweep")
	cmd.Flags().IntSlice("traits", nil, "Explicit q values (replaces trait_ranges)")
	cmd.Flags().Int("trials-baseline", 0, "Trials per q outside the critical region")
	cmd.Flags().Int("trials-critical", 0, "Trials per q inside the critical region")
	cmd.Flags().StringArray("critical", nil, "Critical region F=low:high (repeatable, replaces configured regions)")
	cmd.Flags().Int("threshold", 0, "Unchanged micro-steps before a lattice counts as frozen")
	cmd.Flags().Int("workers", 0, "Concurrent trials (0 = all CPUs)")
	cmd.Flags().Uint64("seed", 0, "Base seed (0 = random)")
	cmd.Flags().String("db", "", "SQLite results database")
	cmd.Flags().Bool("no-store", false, "Do not record the run in the database")
	cmd.Flags().String("plot", "", "Write a PNG plot of the results")
	return cmd
}

// applySweepFlags overrides config values with flags the user set explicitly.
func applySweepFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("size") {
		cfg.Lattice.Size, _ = f.GetInt("size")
	}
	if f.Changed("features") {
		cfg.Sweep.Features, _ = f.GetIntSlice("features")
	}
	if f.Changed("traits") {
		cfg.Sweep.Traits, _ = f.GetIntSlice("traits")
	}
	if f.Changed("trials-baseline") {
		cfg.Sweep.TrialsBaseline, _ = f.GetInt("trials-baseline")
	}
	if f.Changed("trials-critical") {
		cfg.Sweep.TrialsCritical, _ = f.GetInt("trials-critical")
	}
	if f.Changed("critical") {
		specs, _ := f.GetStringArray("critical")
		regions, err := parseCriticalRegions(specs)
		if err != nil {
			return err
		}
		cfg.Sweep.CriticalRegions = regions
	}
	if f.Changed("threshold") {
		cfg.Lattice.FrozenThreshold, _ = f.GetInt("threshold")
	}
	if f.Changed("workers") {
		cfg.Sweep.Workers, _ = f.GetInt("workers")
	}
	if f.Changed("seed") {
		cfg.Sweep.Seed, _ = f.GetUint64("seed")
	}
	if f.Changed("db") {
		cfg.Output.DB, _ = f.GetString("db")
	}
	if noStore, _ := f.GetBool("no-store"); noStore {
		cfg.Output.DB = ""
	}
	if f.Changed("plot") {
		cfg.Output.Plot, _ = f.GetString("plot")
	}
	return nil
}

// parseCriticalRegions parses "F=low:high" entries.
func parseCriticalRegions(specs []string) (map[int]config.Region, error) {
	regions := make(map[int]config.Region, len(specs))
	for _, spec := range specs {
		fPart, rng, ok := strings.Cut(spec, "=")
		if !ok {
			return nil, fmt.Errorf("critical region %q: want F=low:high", spec)
		}
		loPart, hiPart, ok := strings.Cut(rng, ":")
		if !ok {
			return nil, fmt.Errorf("critical region %q: want F=low:high", spec)
		}
		f, err := strconv.Atoi(strings.TrimSpace(fPart))
		if err != nil {
			return nil, fmt.Errorf("critical region %q: feature count: %w", spec, err)
		}
		lo, err := strconv.Atoi(strings.TrimSpace(loPart))
		if err != nil {
			return nil, fmt.Errorf("critical region %q: low bound: %w", spec, err)
		}
		hi, err := strconv.Atoi(strings.TrimSpace(hiPart))
		if err != nil {
			return nil, fmt.Errorf("critical region %q: high bound: %w", spec, err)
		}
		if lo > hi {
			return nil, fmt.Errorf("critical region %q: low bound above high bound", spec)
		}
		if _, dup := regions[f]; dup {
			return nil, fmt.Errorf("critical region for F=%d given twice", f)
		}
		regions[f] = config.Region{Low: lo, High: hi}
	}
	return regions, nil
}

func runSweep(ctx context.Context, e *env) error {
	plan := e.cfg.Plan()
	// Fix the base seed up front so the stored run can be replayed.
	plan.Seed = pcore.NewSeedSequence(plan.Seed).Base()

	rec, err := openRecorder(ctx, e.cfg.Output.DB, plan, e.log)
	if err != nil {
		return err
	}
	defer rec.close()

	progress := core.NewThrottle(0.5)
	sweeper := &experiment.Sweeper{
		Logger: e.log,
		OnTrial: func(p experiment.Progress) {
			if progress.Ready() {
				e.log.Info("progress",
					"features", p.Features, "q", p.Traits,
					"trial", fmt.Sprintf("%d/%d", p.Completed, p.Total),
					"point", fmt.Sprintf("%d/%d", p.Index+1, p.Points))
			}
		},
		OnPoint: func(features int, p experiment.Point) {
			e.log.Info("point", "features", features, "q", p.Traits, "trials", p.Trials,
				"mean", p.Mean, "std_err", p.StdErr, "elapsed", p.Elapsed.Round(time.Millisecond))
			rec.save(context.WithoutCancel(ctx), features, p)
		},
	}

	series, runErr := sweeper.Run(ctx, plan)
	rec.finish(ctx, runErr)

	if e.cfg.Output.Plot != "" && len(series) > 0 {
		if err := plot.WriteFile(e.cfg.Output.Plot, plot.Title(plan.Size), series); err != nil {
			e.log.Error("plot failed", "path", e.cfg.Output.Plot, "err", err)
		} else {
			e.log.Info("plot written", "path", e.cfg.Output.Plot)
		}
	}

	if err := printSeries(e.out, e.jsonOut, rec.id, plan.Seed, series); err != nil {
		return err
	}
	return runErr
}

// recorder mirrors a sweep into the results store. A nil store makes every
// method a no-op. Write failures are logged and do not stop the sweep.
type recorder struct {
	st  *store.Store
	id  int64
	seq map[int]int
	log *slog.Logger
}

func openRecorder(ctx context.Context, path string, plan experiment.Plan, log *slog.Logger) (*recorder, error) {
	rec := &recorder{log: log, seq: make(map[int]int, len(plan.Traits))}
	for i, q := range plan.Traits {
		if _, ok := rec.seq[q]; !ok {
			rec.seq[q] = i
		}
	}
	if path == "" {
		return rec, nil
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	id, err := st.BeginRun(ctx, plan)
	if err != nil {
		st.Close()
		return nil, err
	}
	rec.st, rec.id = st, id
	log.Info("run started", "run", id, "db", st.Path(), "seed", plan.Seed, "trials", plan.TotalTrials())
	return rec, nil
}

func (r *recorder) save(ctx context.Context, features int, p experiment.Point) {
	if r.st == nil {
		return
	}
	if err := r.st.SavePoint(ctx, r.id, features, r.seq[p.Traits], p); err != nil {
		r.log.Error("saving point failed", "run", r.id, "err", err)
	}
}

func (r *recorder) finish(ctx context.Context, runErr error) {
	if r.st == nil {
		return
	}
	status := store.StatusDone
	switch {
	case ctx.Err() != nil:
		status = store.StatusCancelled
	case runErr != nil:
		status = store.StatusFailed
	}
	// The sweep context may already be cancelled.
	if err := r.st.FinishRun(context.WithoutCancel(ctx), r.id, status, runErr); err != nil {
		r.log.Error("finishing run failed", "run", r.id, "err", err)
	}
}

func (r *recorder) close() {
	if r.st != nil {
		r.st.Close()
	}
}

type seriesJSON struct {
	RunID  int64               `json:"run_id,omitempty"`
	Seed   uint64              `json:"seed"`
	Series []experiment.Series `json:"series"`
}

func printSeries(w io.Writer, jsonOut bool, runID int64, seed uint64, series []experiment.Series) error {
	if jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(seriesJSON{RunID: runID, Seed: seed, Series: series})
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "F\tq\ttrials\tmean\tstd_err\telapsed")
	for _, s := range series {
		for _, p := range s.Points {
			fmt.Fprintf(tw, "%d\t%d\t%d\t%.4f\t%.4f\t%s\n",
				s.Features, p.Traits, p.Trials, p.Mean, p.StdErr, p.Elapsed.Round(time.Millisecond))
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if runID != 0 {
		fmt.Fprintf(w, "\nrun %d, seed %d\n", runID, seed)
	}
	return nil
}
