package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var journalLimit int

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect the invocation journal",
	Long:  `Query invocations and account snapshots recorded by simulate. Requires database.enabled.`,
}

var journalRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List the most recent invocations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRepository(cmd, func(q query) (any, error) {
			return q.repo.Invocations().FindRecent(q.ctx, journalLimit)
		})
	},
}

var journalScenarioCmd = &cobra.Command{
	Use:   "scenario <name>",
	Short: "List the invocations of a scenario in execution order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRepository(cmd, func(q query) (any, error) {
			return q.repo.Invocations().FindByScenario(q.ctx, args[0], journalLimit, 0)
		})
	},
}

var journalAccountCmd = &cobra.Command{
	Use:   "account <pubkey>",
	Short: "Show the last snapshot of an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRepository(cmd, func(q query) (any, error) {
			account, err := q.repo.Accounts().FindByPubkey(q.ctx, args[0])
			if err == nil && account == nil {
				return nil, fmt.Errorf("account %s not found", args[0])
			}
			return account, err
		})
	},
}

var journalOwnerCmd = &cobra.Command{
	Use:   "owner <pubkey>",
	Short: "List account snapshots owned by a program",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRepository(cmd, func(q query) (any, error) {
			return q.repo.Accounts().FindByOwner(q.ctx, args[0], journalLimit, 0)
		})
	},
}

func withRepository(cmd *cobra.Command, fn func(q query) (any, error)) error {
	if !cfg.Database.Enabled {
		return fmt.Errorf("database is not enabled in configuration")
	}
	ctx := cmd.Context()
	cm, repo, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer cm.Close()

	result, err := fn(query{ctx: ctx, repo: repo})
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func init() {
	journalCmd.PersistentFlags().IntVar(&journalLimit, "limit", 20, "maximum number of rows (0 for no limit)")
	journalCmd.AddCommand(journalRecentCmd, journalScenarioCmd, journalAccountCmd, journalOwnerCmd)
	rootCmd.AddCommand(journalCmd)
}
