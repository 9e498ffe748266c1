package experiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Bigbadasianboy2/Complex-system-playground/internal/logging"
	"github.com/Bigbadasianboy2/Complex-system-playground/internal/sims/axelrod"
	pcore "github.com/Bigbadasianboy2/Complex-system-playground/pkg/core"
)

// TrialFunc runs one independent trial and returns its largest-cluster fraction.
type TrialFunc func(cfg axelrod.Config) (float64, error)

// Point is the reduced result for one q value.
type Point struct {
	Traits  int           `json:"traits"`
	Trials  int           `json:"trials"`
	Mean    float64       `json:"mean"`
	StdErr  float64       `json:"std_err"`
	Elapsed time.Duration `json:"elapsed_ns"`
}

// Series holds the points of one feature count in sweep order.
type Series struct {
	Features int     `json:"features"`
	Points   []Point `json:"points"`
}

// Progress reports a finished trial within the current batch.
type Progress struct {
	Features  int
	Traits    int
	Completed int
	Total     int
	// Index is the position of Traits in the sweep and Points its length.
	Index  int
	Points int
}

// TrialError is returned when a trial fails or panics. The batch it belongs
// to is discarded.
type TrialError struct {
	Features int
	Traits   int
	Trial    int
	Seed     uint64
	Err      error
}

func (e *TrialError) Error() string {
	return fmt.Sprintf("trial %d (F=%d, q=%d, seed=%d): %v", e.Trial, e.Features, e.Traits, e.Seed, e.Err)
}

func (e *TrialError) Unwrap() error { return e.Err }

// Sweeper dispatches trial batches. The zero value runs real Axelrod trials
// and logs nothing.
type Sweeper struct {
	// Trial overrides the trial implementation.
	Trial TrialFunc
	// OnTrial is called after every successful trial. Calls are serialised
	// but happen on worker goroutines.
	OnTrial func(Progress)
	// OnPoint is called on the coordinating goroutine once a q value is reduced.
	OnPoint func(features int, p Point)
	Logger  *slog.Logger

	mu sync.Mutex
}

// RunSweep sweeps cfg.Traits in order with a default Sweeper.
func RunSweep(ctx context.Context, cfg Config) ([]Point, error) {
	return (&Sweeper{}).Sweep(ctx, cfg)
}

// RunPlan sweeps every feature count of plan with a default Sweeper.
func RunPlan(ctx context.Context, plan Plan) ([]Series, error) {
	return (&Sweeper{}).Run(ctx, plan)
}

// Sweep runs one batch per q value, in order, and returns the reduced
// points in the same order as cfg.Traits. A failed batch is dropped from the
// result and reported in the returned error, which joins one *TrialError per
// failed q value; the remaining q values still run. Cancelling ctx stops the
// sweep and returns the points finished so far with ctx.Err().
func (s *Sweeper) Sweep(ctx context.Context, cfg Config) ([]Point, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return s.sweep(ctx, cfg, pcore.NewSeedSequence(cfg.Seed))
}

// Run executes the plan one feature count at a time. Seeds come from a single
// sequence rooted at plan.Seed, so a fixed seed reproduces the whole plan.
func (s *Sweeper) Run(ctx context.Context, plan Plan) ([]Series, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	seeds := pcore.NewSeedSequence(plan.Seed)
	s.logger().Info("plan started",
		"features", plan.Features, "q_values", len(plan.Traits),
		"critical", plan.CriticalFeatures(), "trials", plan.TotalTrials(), "seed", seeds.Base())

	var out []Series
	var failures []error
	for _, f := range plan.Features {
		points, err := s.sweep(ctx, plan.Sweep(f), seeds)
		if len(points) > 0 {
			out = append(out, Series{Features: f, Points: points})
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return out, ctxErr
		}
		if err != nil {
			failures = append(failures, err)
		}
	}
	return out, errors.Join(failures...)
}

func (s *Sweeper) sweep(ctx context.Context, cfg Config, seeds *pcore.SeedSequence) ([]Point, error) {
	log := s.logger().With("features", cfg.Features)
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	points := make([]Point, 0, len(cfg.Traits))
	var failures []error
	for i, q := range cfg.Traits {
		if err := ctx.Err(); err != nil {
			return points, err
		}

		batch := make([]uint64, cfg.TrialsFor(q))
		for j := range batch {
			batch[j] = seeds.Next()
		}
		log.Debug("batch started", "q", q, "trials", len(batch), "workers", workers)

		start := time.Now()
		samples, err := s.runBatch(ctx, cfg, i, q, batch, workers)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				log.Warn("sweep cancelled", "q", q, "discarded_trials", len(batch))
				return points, ctxErr
			}
			log.Error("batch failed", "q", q, "err", err)
			failures = append(failures, err)
			continue
		}

		mean, stdErr := Summarize(samples)
		p := Point{Traits: q, Trials: len(samples), Mean: mean, StdErr: stdErr, Elapsed: time.Since(start)}
		points = append(points, p)
		log.Debug("batch finished", "q", q, "mean", mean, "std_err", stdErr, "elapsed", p.Elapsed)
		if s.OnPoint != nil {
			s.OnPoint(cfg.Features, p)
		}
	}
	return points, errors.Join(failures...)
}

// runBatch fans the seeds out over at most workers goroutines and waits for
// all of them. The first failure cancels the trials that have not started.
func (s *Sweeper) runBatch(ctx context.Context, cfg Config, index, q int, seeds []uint64, workers int) ([]float64, error) {
	trial := s.Trial
	if trial == nil {
		trial = axelrod.Fraction
	}
	log := s.logger()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	samples := make([]float64, len(seeds))
	completed := 0
	for j, seed := range seeds {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() (err error) {
			if err := gctx.Err(); err != nil {
				return err
			}
			trialCfg := axelrod.Config{
				Size: cfg.Size,
				Seed: seed,
				Params: axelrod.Params{
					Features:        cfg.Features,
					Traits:          q,
					FrozenThreshold: cfg.FrozenThreshold,
				},
			}
			wrap := func(cause error) error {
				return &TrialError{Features: cfg.Features, Traits: q, Trial: j, Seed: seed, Err: cause}
			}
			defer func() {
				if r := recover(); r != nil {
					err = wrap(fmt.Errorf("panic: %v", r))
				}
			}()

			frac, err := trial(trialCfg)
			if err != nil {
				return wrap(err)
			}
			samples[j] = frac
			log.Log(gctx, logging.LevelTrace, "trial finished",
				"features", cfg.Features, "q", q, "trial", j, "seed", seed, "fraction", frac)

			s.mu.Lock()
			completed++
			done := completed
			if s.OnTrial != nil {
				s.OnTrial(Progress{
					Features:  cfg.Features,
					Traits:    q,
					Completed: done,
					Total:     len(seeds),
					Index:     index,
					Points:    len(cfg.Traits),
				})
			}
			s.mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	// Wait returns nil if cancellation stopped dispatch before any trial failed.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return samples, nil
}

func (s *Sweeper) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.Logger
}
