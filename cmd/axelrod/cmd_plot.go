package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Bigbadasianboy2/Complex-system-playground/internal/plot"
)

func newPlotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plot [run-id]",
		Short: "Plot a recorded sweep",
		Long:  `Render the largest-cluster fraction against q for a stored run, by default the latest one.`,
		Args:  cobra.MaximumNArgs(1),
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

			run, err := selectRun(cmd.Context(), st, args)
			if err != nil {
				return err
			}
			series, err := st.Series(cmd.Context(), run.ID)
			if err != nil {
				return err
			}

			out, _ := cmd.Flags().GetString("out")
			if out == "" {
				out = fmt.Sprintf("axelrod_run%d.png", run.ID)
			}
			title, _ := cmd.Flags().GetString("title")
			if title == "" {
				title = plot.Title(run.Size)
			}
			if err := plot.WriteFile(out, title, series); err != nil {
				return err
			}
			e.log.Info("plot written", "run", run.ID, "path", out)
			if e.jsonOut {
				return json.NewEncoder(e.out).Encode(map[string]any{"run_id": run.ID, "path": out})
			}
			fmt.Fprintln(e.out, out)
			return nil
		},
	}
	cmd.Flags().String("db", "", "SQLite results database (default from config)")
	cmd.Flags().StringP("out", "o", "", "Output PNG (default axelrod_run<ID>.png)")
	cmd.Flags().String("title", "", "Chart title")
	return cmd
}
