package main

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/Bigbadasianboy2/Complex-system-playground/internal/config"
	"github.com/Bigbadasianboy2/Complex-system-playground/internal/core"
	"github.com/Bigbadasianboy2/Complex-system-playground/internal/render"
	"github.com/Bigbadasianboy2/Complex-system-playground/internal/sims/axelrod"
	pcore "github.com/Bigbadasianboy2/Complex-system-playground/pkg/core"
)

type snapshotOptions struct {
	outDir     string
	prefix     string
	movie      string
	movieEvery int
	fps        int
}

type snapshotJSON struct {
	Seed    uint64   `json:"seed"`
	Frames  []string `json:"frames"`
	Montage string   `json:"montage"`
	Movie   string   `json:"movie,omitempty"`
	Frozen  bool     `json:"frozen"`
	Sweeps  int      `json:"sweeps"`
}

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Render the formation of cultural domains on one lattice",
		Long: `Evolve a single lattice and write a PNG of it after each requested number
of Monte Carlo sweeps (one sweep is N² micro-steps), plus a side-by-side
montage. Every culture vector gets its own colour when q^F is small.

With --movie the evolution is also recorded as an MJPEG AVI.`,
		Example: `  axelrod snapshot
  axelrod snapshot --size 50 --traits 3 --sweeps 0,10,100,1000 --out-dir frames
  axelrod snapshot --movie domains.avi --movie-every 5 --fps 20
  axelrod snapshot --set f=3 --set q=3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			applySnapshotFlags(cmd, e.cfg)
			if err := e.cfg.ValidateSnapshot(); err != nil {
				return err
			}
			modelCfg, err := applySettings(cmd, e.cfg.SnapshotModel())
			if err != nil {
				return err
			}
			if err := modelCfg.Validate(); err != nil {
				return err
			}

			var opts snapshotOptions
			opts.outDir, _ = cmd.Flags().GetString("out-dir")
			opts.prefix, _ = cmd.Flags().GetString("prefix")
			opts.movie, _ = cmd.Flags().GetString("movie")
			opts.movieEvery, _ = cmd.Flags().GetInt("movie-every")
			opts.fps, _ = cmd.Flags().GetInt("fps")
			if opts.movie != "" && (opts.movieEvery < 1 || opts.fps < 1) {
				return fmt.Errorf("--movie-every and --fps must be >= 1")
			}
			return runSnapshot(cmd.Context(), e, modelCfg, opts)
		},
	}

	cmd.Flags().Int("size", 0, "Lattice side length (default from config)")
	cmd.Flags().Int("features", 0, "Number of cultural features F (default from config)")
	cmd.Flags().Int("traits", 0, "Number of traits per feature q (default from config)")
	cmd.Flags().IntSlice("sweeps", nil, "Sweep counts at which to take a snapshot")
	cmd.Flags().Int("scale", 0, "Pixels per lattice site (default from config)")
	cmd.Flags().Uint64("seed", 0, "Lattice seed (0 = random)")
	cmd.Flags().String("out-dir", ".", "Directory for the PNG files")
	cmd.Flags().String("prefix", "axelrod", "File name prefix")
	cmd.Flags().String("movie", "", "Also record an MJPEG AVI to this path")
	cmd.Flags().Int("movie-every", 10, "Sweeps between movie frames")
	cmd.Flags().Int("fps", 15, "Movie frame rate")
	addSetFlag(cmd)
	return cmd
}

func applySnapshotFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("size") {
		cfg.Snapshot.Size, _ = f.GetInt("size")
	}
	if f.Changed("features") {
		cfg.Snapshot.Features, _ = f.GetInt("features")
	}
	if f.Changed("traits") {
		cfg.Snapshot.Traits, _ = f.GetInt("traits")
	}
	if f.Changed("sweeps") {
		cfg.Snapshot.Sweeps, _ = f.GetIntSlice("sweeps")
	}
	if f.Changed("scale") {
		cfg.Snapshot.Scale, _ = f.GetInt("scale")
	}
	if f.Changed("seed") {
		cfg.Snapshot.Seed, _ = f.GetUint64("seed")
	}
}

func runSnapshot(ctx context.Context, e *env, modelCfg axelrod.Config, opts snapshotOptions) error {
	seed := pcore.NewSeedSequence(modelCfg.Seed).Base()
	scale := e.cfg.Snapshot.Scale

	sweeps := slices.Clone(e.cfg.Snapshot.Sweeps)
	slices.Sort(sweeps)
	sweeps = slices.Compact(sweeps)
	last := sweeps[len(sweeps)-1]

	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	modelCfg.Seed = seed
	m := axelrod.NewModel(modelCfg)
	var sim core.Sim = m
	e.log.Info("snapshot started", append(modelCfg.Parameters().Flatten(), "sim", sim.Name(), "sweeps", sweeps)...)

	var movie *render.Movie
	defer func() {
		if movie != nil {
			movie.Close()
		}
	}()

	out := snapshotJSON{Seed: seed, Movie: opts.movie}
	var frames []*image.RGBA
	next := 0
	for sweep := 0; ; sweep++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if sweeps[next] == sweep {
			caption := fmt.Sprintf("t = %d sweeps", sweep)
			if m.Frozen() {
				caption += " (frozen)"
			}
			img := render.Frame(sim, scale, caption)
			path := filepath.Join(opts.outDir, fmt.Sprintf("%s_%06d.png", opts.prefix, sweep))
			if err := render.WritePNG(path, img); err != nil {
				return err
			}
			frames = append(frames, img)
			out.Frames = append(out.Frames, path)
			e.log.Info("snapshot written", "sweep", sweep, "path", path,
				"largest_cluster", axelrod.LargestClusterFraction(m.Lattice()), "frozen", m.Frozen())
			next++
		}

		if opts.movie != "" && sweep%opts.movieEvery == 0 {
			img := render.Frame(sim, scale, fmt.Sprintf("t = %d", sweep))
			if movie == nil {
				b := img.Bounds()
				var err error
				if movie, err = render.NewMovie(opts.movie, b.Dx(), b.Dy(), opts.fps); err != nil {
					return err
				}
			}
			if err := movie.AddFrame(img); err != nil {
				return err
			}
		}

		if sweep == last {
			break
		}
		sim.Step()
	}

	if movie != nil {
		if err := movie.Close(); err != nil {
			return err
		}
		e.log.Info("movie written", "path", opts.movie, "frames", movie.Frames())
	}

	out.Montage = filepath.Join(opts.outDir, opts.prefix+"_montage.png")
	if err := render.WritePNG(out.Montage, render.Montage(frames, 8)); err != nil {
		return err
	}
	out.Frozen = m.Frozen()
	out.Sweeps = m.Sweeps()

	if e.jsonOut {
		enc := json.NewEncoder(e.out)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	for _, f := range out.Frames {
		fmt.Fprintln(e.out, f)
	}
	fmt.Fprintln(e.out, out.Montage)
	if out.Movie != "" {
		fmt.Fprintln(e.out, out.Movie)
	}
	return nil
}
