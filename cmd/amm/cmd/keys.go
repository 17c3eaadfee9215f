package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lugondev/go-amm/internal/keypair"
)

var keysOut string

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Keypair commands",
}

var keysNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Generate a new keypair",
	Long: `Generate a new ed25519 keypair, e.g. for a program id or a mint.

With --out the keypair is written as a JSON byte array that program.keypair
can point at. Otherwise the private key is printed in base58.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		kp := keypair.Generate()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Public Key:  %s\n", kp.PublicKey())
		if keysOut != "" {
			if err := kp.Save(keysOut); err != nil {
				return err
			}
			fmt.Fprintf(out, "Saved to:    %s\n", keysOut)
			return nil
		}
		fmt.Fprintf(out, "Private Key: %s\n", kp.PrivateKey())
		return nil
	},
}

var keysShowCmd = &cobra.Command{
	Use:   "show <keypair.json>",
	Short: "Print the public key of a keypair file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kp, err := keypair.Load(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), kp.PublicKey())
		return nil
	},
}

func init() {
	keysNewCmd.Flags().StringVarP(&keysOut, "out", "o", "", "write the keypair to this file")
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysNewCmd, keysShowCmd)
}
