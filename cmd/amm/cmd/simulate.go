package cmd

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lugondev/go-amm/internal/scenario"
	"github.com/lugondev/go-amm/internal/storage"
)

var (
	simulateJSON  bool
	simulateServe bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate <scenario.yaml>...",
	Short: "Run pool scenarios",
	Long: `Run one or more scenario files. Each file runs concurrently on its own
bank. Invocations and final accounts are journaled when a database is configured.

The command fails when any step does not meet its expectations.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		scenarios := make([]*scenario.Scenario, 0, len(args))
		for _, path := range args {
			sc, err := scenario.Load(path)
			if err != nil {
				return err
			}
			scenarios = append(scenarios, sc)
		}


		collection, registry := newMetrics(cfg)
		if registry != nil && cfg.Metrics.Listen != "" {
			serveMetrics(ctx, cfg.Metrics.Listen, registry)
		}

		opts := []scenario.Option{
			scenario.WithLogger(logger),
			scenario.WithProgramID(programID),
			scenario.WithRent(runtimeRent(cfg)),
			scenario.WithUnixTimestamp(cfg.Runtime.UnixTimestamp),
			scenario.WithMetrics(collection),
		}
		cm, repo, err := openRepository(ctx, cfg)
		if err != nil {
			return err
		}
		if cm != nil {
			defer cm.Close()
			opts = append(opts, scenario.WithJournal(storage.NewJournal(repo, logger)))
		}

		results, err := scenario.NewRunner(opts...).RunAll(ctx, scenarios)
		if err != nil {
			return err
		}
		if err := collection.Flush(ctx); err != nil {
			logger.Warn("failed to flush metrics", "error", err)
		}

		out := cmd.OutOrStdout()
		if simulateJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(results); err != nil {
				return err
			}
		} else {
			printResults(cmd, results)
		}

		if simulateServe && registry != nil && cfg.Metrics.Listen != "" {
			logger.Info("holding metrics endpoint open until interrupted")
			<-ctx.Done()
		}

		failed := 0
		for _, res := range results {
			if !res.Passed() {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d scenario(s) failed", failed, len(results))
		}
		return nil
	},
}

func printResults(cmd *cobra.Command, results []*scenario.Result) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	defer w.Flush()

	for _, res := range results {
		status := "PASS"
		if !res.Passed() {
			status = "FAIL"
		}
		fmt.Fprintf(w, "%s\t%s\t%d step(s)\n", status, res.Name, len(res.Steps))
		for _, step := range res.Failures() {
			fmt.Fprintf(w, "  step %d\t%s\t%s\n", step.Index, step.Op, step.Message)
		}
	}
}

func init() {
	simulateCmd.Flags().BoolVar(&simulateJSON, "json", false, "print results as JSON")
	simulateCmd.Flags().BoolVar(&simulateServe, "serve-metrics", false, "keep serving prometheus metrics after the run until interrupted")
	rootCmd.AddCommand(simulateCmd)
}
