package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Bigbadasianboy2/Complex-system-playground/internal/store"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded sweeps",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			st, err := openExistingStore(cmd, e.cfg.Output.DB)
			if err != nil {
				return err
			}
			defer st.Close()

			limit, _ := cmd.Flags().GetInt("limit")
			runs, err := st.Runs(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if e.jsonOut {
				enc := json.NewEncoder(e.out)
				enc.SetIndent("", "  ")
				return enc.Encode(runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(e.out, "No runs recorded.")
				return nil
			}
			tw := tabwriter.NewWriter(e.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTARTED\tSTATUS\tN\tF\tq VALUES\tPOINTS\tDURATION\tSEED")
			for _, r := range runs {
				duration := "-"
				if !r.FinishedAt.IsZero() {
					duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%v\t%d\t%d\t%s\t%d\n",
					r.ID, r.StartedAt.Local().Format(time.DateTime), r.Status, r.Size,
					r.Plan.Features, len(r.Plan.Traits), r.Points, duration, r.Seed)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().String("db", "", "SQLite results database (default from config)")
	cmd.Flags().Int("limit", 20, "Maximum runs to list (0 = all)")
	return cmd
}

// openExistingStore opens the database named by --db or the config. It does
// not create a database that is not there yet.
func openExistingStore(cmd *cobra.Command, path string) (*store.Store, error) {
	if cmd.Flags().Changed("db") {
		path, _ = cmd.Flags().GetString("db")
	}
	if path == "" {
		return nil, errors.New("no results database configured")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("results database: %w", err)
	}
	return store.Open(path)
}

func selectRun(ctx context.Context, st *store.Store, args []string) (store.Run, error) {
	if len(args) == 0 {
		run, err := st.LatestRun(ctx)
		if errors.Is(err, store.ErrNotFound) {
			return store.Run{}, errors.New("no runs recorded")
		}
		return run, err
	}
	var id int64
	if _, err := fmt.Sscan(args[0], &id); err != nil {
		return store.Run{}, fmt.Errorf("invalid run id %q", args[0])
	}
	return st.Run(ctx, id)
}
