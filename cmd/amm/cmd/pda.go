package cmd

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/lugondev/go-amm/internal/authority"
)

var (
	pdaSeed  uint64
	pdaMintX string
	pdaMintY string
)

var pdaCmd = &cobra.Command{
	Use:   "pda",
	Short: "Derive pool and LP mint addresses",
	Long:  `Derive the pool record (and pool authority) address and the LP mint address for a seed and mint pair.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mintX, err := solana.PublicKeyFromBase58(pdaMintX)
		if err != nil {
			return fmt.Errorf("invalid mint-x: %w", err)
		}
		mintY, err := solana.PublicKeyFromBase58(pdaMintY)
		if err != nil {
			return fmt.Errorf("invalid mint-y: %w", err)
		}

		pool, poolBump, err := authority.FindPoolAddress(programID, pdaSeed, mintX, mintY)
		if err != nil {
			return err
		}
		mintLP, lpBump, err := authority.FindLPMintAddress(programID, pool)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Program:  %s\n", programID)
		fmt.Fprintf(out, "Pool:     %s (bump %d)\n", pool, poolBump)
		fmt.Fprintf(out, "LP mint:  %s (bump %d)\n", mintLP, lpBump)
		return nil
	},
}

func init() {
	pdaCmd.Flags().Uint64Var(&pdaSeed, "seed", 0, "pool seed")
	pdaCmd.Flags().StringVar(&pdaMintX, "mint-x", "", "mint of the X side (base58)")
	pdaCmd.Flags().StringVar(&pdaMintY, "mint-y", "", "mint of the Y side (base58)")
	_ = pdaCmd.MarkFlagRequired("mint-x")
	_ = pdaCmd.MarkFlagRequired("mint-y")
	rootCmd.AddCommand(pdaCmd)
}
