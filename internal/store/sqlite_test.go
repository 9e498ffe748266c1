package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Bigbadasianboy2/Complex-system-playground/internal/experiment"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "results", "axelrod.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testPlan() experiment.Plan {
	return experiment.Plan{
		Size:            20,
		Features:        []int{10, 5},
		Traits:          []int{30, 10, 20},
		TrialsBaseline:  30,
		TrialsCritical:  200,
		CriticalRanges:  map[int]experiment.CriticalRange{5: {Low: 20, High: 40}},
		FrozenThreshold: 400,
		Seed:            1<<63 + 17,
	}
}

func TestOpenCreatesDatabase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "axelrod.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); err != nil {
		t.Errorf("database file not created: %v", err)
	}
	if s.Path() != path {
		t.Errorf("Path() = %q", s.Path())
	}
}

func TestReopenKeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "axelrod.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	id, err := s.BeginRun(ctx, testPlan())
	if err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if _, err := s.Run(ctx, id); err != nil {
		t.Fatalf("run lost after reopen: %v", err)
	}
}

func TestRunLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	plan := testPlan()

	id, err := s.BeginRun(ctx, plan)
	if err != nil {
		t.Fatalf("BeginRun() error = %v", err)
	}

	run, err := s.Run(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != StatusRunning || !run.FinishedAt.IsZero() {
		t.Errorf("new run = %+v", run)
	}
	if run.Seed != plan.Seed {
		t.Errorf("seed = %d, want %d (high bit must survive)", run.Seed, plan.Seed)
	}
	if run.Plan.CriticalRanges[5] != plan.CriticalRanges[5] || len(run.Plan.Traits) != 3 {
		t.Errorf("plan did not round-trip: %+v", run.Plan)
	}

	if err := s.FinishRun(ctx, id, StatusFailed, errors.New("trial 3 failed")); err != nil {
		t.Fatalf("FinishRun() error = %v", err)
	}
	run, err = s.Run(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != StatusFailed || run.Error != "trial 3 failed" || run.FinishedAt.IsZero() {
		t.Errorf("finished run = %+v", run)
	}
	if run.FinishedAt.Before(run.StartedAt) {
		t.Error("finished before started")
	}
}

func TestFinishUnknownRun(t *testing.T) {
	s := openTestStore(t)
	err := s.FinishRun(context.Background(), 42, StatusDone, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if _, err := s.Run(context.Background(), 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Run() err = %v, want ErrNotFound", err)
	}
	if _, err := s.LatestRun(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("LatestRun() err = %v, want ErrNotFound", err)
	}
}

func TestSeriesOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	plan := testPlan()
	id, err := s.BeginRun(ctx, plan)
	if err != nil {
		t.Fatal(err)
	}

	// Save out of order; Series must follow the plan.
	for _, f := range []int{5, 10} {
		for seq := len(plan.Traits) - 1; seq >= 0; seq-- {
			p := experiment.Point{
				Traits:  plan.Traits[seq],
				Trials:  30,
				Mean:    float64(f) / 100,
				StdErr:  0.01,
				Elapsed: 1500 * time.Millisecond,
			}
			if err := s.SavePoint(ctx, id, f, seq, p); err != nil {
				t.Fatal(err)
			}
		}
	}

	series, err := s.Series(ctx, id)
	if err != nil {
		t.Fatalf("Series() error = %v", err)
	}
	if len(series) != 2 || series[0].Features != 10 || series[1].Features != 5 {
		t.Fatalf("series order = %+v, want F=10 then F=5", series)
	}
	for _, sr := range series {
		if len(sr.Points) != 3 {
			t.Fatalf("F=%d has %d points", sr.Features, len(sr.Points))
		}
		for i, p := range sr.Points {
			if p.Traits != plan.Traits[i] {
				t.Errorf("F=%d point %d has q=%d, want %d", sr.Features, i, p.Traits, plan.Traits[i])
			}
			if p.Elapsed != 1500*time.Millisecond {
				t.Errorf("elapsed = %v", p.Elapsed)
			}
		}
	}

	run, err := s.Run(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if run.Points != 6 {
		t.Errorf("run.Points = %d, want 6", run.Points)
	}
}

func TestSavePointReplaces(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	id, err := s.BeginRun(ctx, testPlan())
	if err != nil {
		t.Fatal(err)
	}
	p := experiment.Point{Traits: 10, Trials: 30, Mean: 0.2}
	if err := s.SavePoint(ctx, id, 5, 1, p); err != nil {
		t.Fatal(err)
	}
	p.Mean = 0.9
	if err := s.SavePoint(ctx, id, 5, 1, p); err != nil {
		t.Fatal(err)
	}
	series, err := s.Series(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(series) != 1 || len(series[0].Points) != 1 || series[0].Points[0].Mean != 0.9 {
		t.Fatalf("series = %+v", series)
	}
}

func TestRunsNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	var ids []int64
	for range 3 {
		id, err := s.BeginRun(ctx, testPlan())
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}

	runs, err := s.Runs(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 3 || runs[0].ID != ids[2] || runs[2].ID != ids[0] {
		t.Fatalf("runs = %+v", runs)
	}

	limited, err := s.Runs(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 {
		t.Fatalf("limit ignored: %d runs", len(limited))
	}

	latest, err := s.LatestRun(ctx)
	if err != nil || latest.ID != ids[2] {
		t.Fatalf("LatestRun() = %+v, %v", latest, err)
	}
}
