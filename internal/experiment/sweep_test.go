package experiment

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Bigbadasianboy2/Complex-system-playground/internal/sims/axelrod"
)

func testConfig(traits ...int) Config {
	return Config{
		Size:            5,
		Features:        2,
		Traits:          traits,
		TrialsBaseline:  3,
		TrialsCritical:  11,
		Critical:        &CriticalRange{Low: 20, High: 40},
		FrozenThreshold: 50,
		Workers:         4,
		Seed:            42,
	}
}

// countingTrial records how many trials ran for each q and returns q/1000.
type countingTrial struct {
	mu     sync.Mutex
	counts map[int]int
	seeds  []uint64
}

func (c *countingTrial) run(cfg axelrod.Config) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = make(map[int]int)
	}
	c.counts[cfg.Params.Traits]++
	c.seeds = append(c.seeds, cfg.Seed)
	return float64(cfg.Params.Traits) / 1000, nil
}

func TestAdaptiveDispatchCounts(t *testing.T) {
	ct := &countingTrial{}
	s := &Sweeper{Trial: ct.run}
	points, err := s.Sweep(context.Background(), testConfig(5, 25, 40, 41))
	if err != nil {
		t.Fatal(err)
	}

	want := map[int]int{5: 3, 25: 11, 40: 11, 41: 3}
	for q, n := range want {
		if ct.counts[q] != n {
			t.Errorf("q=%d dispatched %d trials, want %d", q, ct.counts[q], n)
		}
	}
	for _, p := range points {
		if p.Trials != want[p.Traits] {
			t.Errorf("point q=%d reports %d trials, want %d", p.Traits, p.Trials, want[p.Traits])
		}
	}
}

func TestNoCriticalRangeUsesBaseline(t *testing.T) {
	ct := &countingTrial{}
	cfg := testConfig(20, 30)
	cfg.Critical = nil
	cfg.TrialsCritical = 0
	if _, err := (&Sweeper{Trial: ct.run}).Sweep(context.Background(), cfg); err != nil {
		t.Fatal(err)
	}
	if ct.counts[20] != 3 || ct.counts[30] != 3 {
		t.Fatalf("counts = %v, want 3 each", ct.counts)
	}
}

func TestSweepPreservesInputOrder(t *testing.T) {
	traits := []int{40, 5, 33, 12, 25, 7}
	var mu sync.Mutex
	jitter := rand.New(rand.NewPCG(1, 2))
	trial := func(cfg axelrod.Config) (float64, error) {
		mu.Lock()
		d := time.Duration(jitter.IntN(2000)) * time.Microsecond
		mu.Unlock()
		time.Sleep(d)
		return float64(cfg.Params.Traits) / 100, nil
	}

	cfg := testConfig(traits...)
	cfg.Workers = 8
	points, err := (&Sweeper{Trial: trial}).Sweep(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != len(traits) {
		t.Fatalf("got %d points, want %d", len(points), len(traits))
	}
	for i, p := range points {
		if p.Traits != traits[i] {
			t.Fatalf("point %d has q=%d, want %d", i, p.Traits, traits[i])
		}
		// Means of identical samples are only equal up to rounding.
		if want := float64(traits[i]) / 100; math.Abs(p.Mean-want) > 1e-12 || math.Abs(p.StdErr) > 1e-12 {
			t.Fatalf("q=%d: mean=%v stderr=%v, want %v and 0", p.Traits, p.Mean, p.StdErr, want)
		}
	}
}

func TestSeedsReproducibleAndDistinct(t *testing.T) {
	run := func(workers int) []uint64 {
		ct := &countingTrial{}
		cfg := testConfig(5, 25)
		cfg.Workers = workers
		if _, err := (&Sweeper{Trial: ct.run}).Sweep(context.Background(), cfg); err != nil {
			t.Fatal(err)
		}
		slices.Sort(ct.seeds)
		return ct.seeds
	}

	a, b := run(1), run(6)
	if !slices.Equal(a, b) {
		t.Fatal("seed set depends on worker count")
	}
	if len(slices.Compact(slices.Clone(a))) != len(a) {
		t.Fatal("trial seeds are not distinct")
	}
}

func TestSweepIsDeterministicWithRealTrials(t *testing.T) {
	cfg := Config{
		Size:            6,
		Features:        2,
		Traits:          []int{2, 8},
		TrialsBaseline:  4,
		FrozenThreshold: 200,
		Workers:         3,
		Seed:            7,
	}
	a, err := RunSweep(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	b, err := RunSweep(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a {
		if a[i].Mean != b[i].Mean || a[i].StdErr != b[i].StdErr {
			t.Fatalf("q=%d differs between runs: %+v vs %+v", a[i].Traits, a[i], b[i])
		}
		if a[i].Mean <= 0 || a[i].Mean > 1 {
			t.Fatalf("q=%d mean %v outside (0,1]", a[i].Traits, a[i].Mean)
		}
	}
}

func TestTrialErrorDropsBatchAndContinues(t *testing.T) {
	boom := errors.New("boom")
	trial := func(cfg axelrod.Config) (float64, error) {
		if cfg.Params.Traits == 25 {
			return 0, boom
		}
		return 0.5, nil
	}

	points, err := (&Sweeper{Trial: trial}).Sweep(context.Background(), testConfig(5, 25, 41))
	if err == nil {
		t.Fatal("expected an error")
	}
	if !errors.Is(err, boom) {
		t.Fatalf("error %v does not wrap the trial failure", err)
	}
	var te *TrialError
	if !errors.As(err, &te) {
		t.Fatalf("error %v is not a *TrialError", err)
	}
	if te.Traits != 25 || te.Features != 2 {
		t.Fatalf("TrialError = %+v", te)
	}

	if len(points) != 2 || points[0].Traits != 5 || points[1].Traits != 41 {
		t.Fatalf("points = %+v, want q=5 and q=41", points)
	}
}

func TestTrialPanicIsRecovered(t *testing.T) {
	trial := func(cfg axelrod.Config) (float64, error) {
		if cfg.Params.Traits == 5 {
			panic("lattice on fire")
		}
		return 1, nil
	}
	points, err := (&Sweeper{Trial: trial}).Sweep(context.Background(), testConfig(5, 41))
	var te *TrialError
	if !errors.As(err, &te) {
		t.Fatalf("panic not reported as *TrialError: %v", err)
	}
	if te.Traits != 5 {
		t.Fatalf("panic attributed to q=%d", te.Traits)
	}
	if len(points) != 1 || points[0].Traits != 41 {
		t.Fatalf("points = %+v", points)
	}
}

func TestInvalidConfigRunsNothing(t *testing.T) {
	cases := map[string]func(*Config){
		"size":      func(c *Config) { c.Size = 1 },
		"traits":    func(c *Config) { c.Traits = nil },
		"q":         func(c *Config) { c.Traits = []int{5, 1} },
		"duplicate": func(c *Config) { c.Traits = []int{5, 25, 5} },
		"features":  func(c *Config) { c.Features = 0 },
		"baseline":  func(c *Config) { c.TrialsBaseline = 0 },
		"critical":  func(c *Config) { c.TrialsCritical = 0 },
		"range":     func(c *Config) { c.Critical = &CriticalRange{Low: 9, High: 3} },
		"threshold": func(c *Config) { c.FrozenThreshold = 0 },
		"workers":   func(c *Config) { c.Workers = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			var ran atomic.Int64
			trial := func(axelrod.Config) (float64, error) {
				ran.Add(1)
				return 1, nil
			}
			cfg := testConfig(5, 25)
			mutate(&cfg)
			_, err := (&Sweeper{Trial: trial}).Sweep(context.Background(), cfg)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("err = %v, want ErrInvalidConfig", err)
			}
			if ran.Load() != 0 {
				t.Fatalf("%d trials ran for an invalid config", ran.Load())
			}
		})
	}
}

func TestCancelStopsSweep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	trial := func(cfg axelrod.Config) (float64, error) {
		if cfg.Params.Traits == 25 {
			cancel()
		}
		return 0.1, nil
	}
	var later atomic.Int64
	s := &Sweeper{
		Trial: trial,
		OnTrial: func(p Progress) {
			if p.Traits == 41 {
				later.Add(1)
			}
		},
	}
	points, err := s.Sweep(ctx, testConfig(5, 25, 41))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(points) != 1 || points[0].Traits != 5 {
		t.Fatalf("points = %+v, want only q=5", points)
	}
	if later.Load() != 0 {
		t.Fatal("trials ran after cancellation")
	}
}

func TestProgressCallbacks(t *testing.T) {
	ct := &countingTrial{}
	var trials []Progress
	var points []Point
	s := &Sweeper{
		Trial:   ct.run,
		OnTrial: func(p Progress) { trials = append(trials, p) },
		OnPoint: func(f int, p Point) {
			if f != 2 {
				t.Errorf("OnPoint features = %d", f)
			}
			points = append(points, p)
		},
	}
	if _, err := s.Sweep(context.Background(), testConfig(5, 25)); err != nil {
		t.Fatal(err)
	}
	if len(trials) != 3+11 {
		t.Fatalf("OnTrial called %d times, want 14", len(trials))
	}
	last := trials[len(trials)-1]
	if last.Completed != last.Total || last.Index != 1 || last.Points != 2 {
		t.Fatalf("last progress = %+v", last)
	}
	if len(points) != 2 || points[1].Traits != 25 {
		t.Fatalf("OnPoint saw %+v", points)
	}
}

func TestRunPlan(t *testing.T) {
	ct := &countingTrial{}
	plan := Plan{
		Size:            5,
		Features:        []int{2, 3},
		Traits:          []int{10, 30},
		TrialsBaseline:  2,
		TrialsCritical:  5,
		CriticalRanges:  map[int]CriticalRange{3: {Low: 25, High: 35}},
		FrozenThreshold: 20,
		Workers:         2,
		Seed:            9,
	}
	if got := plan.TotalTrials(); got != 2+2+2+5 {
		t.Fatalf("TotalTrials = %d, want 11", got)
	}

	series, err := (&Sweeper{Trial: ct.run}).Run(context.Background(), plan)
	if err != nil {
		t.Fatal(err)
	}
	if len(series) != 2 || series[0].Features != 2 || series[1].Features != 3 {
		t.Fatalf("series = %+v", series)
	}
	if series[1].Points[1].Trials != 5 || series[0].Points[1].Trials != 2 {
		t.Fatal("critical range applied to the wrong feature count")
	}
	if len(ct.seeds) != 11 {
		t.Fatalf("dispatched %d trials, want 11", len(ct.seeds))
	}
	if len(slices.Compact(slices.Sorted(slices.Values(ct.seeds)))) != 11 {
		t.Fatal("seeds repeat across feature counts")
	}
}

func TestPlanValidate(t *testing.T) {
	plan := Plan{Size: 5, Traits: []int{3}, TrialsBaseline: 1, FrozenThreshold: 1}
	if err := plan.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("empty features: err = %v", err)
	}
	plan.Features = []int{2, 0}
	if err := plan.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("F=0: err = %v", err)
	}
	plan.Features = []int{2}
	if err := plan.Validate(); err != nil {
		t.Fatal(err)
	}
}
