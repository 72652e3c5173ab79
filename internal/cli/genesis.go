package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/icn-network/poc/internal/config"
)

var genesisCmd = &cobra.Command{
	Use:   "genesis FILE",
	Short: "Write the genesis file of a test network.",
	Long: `The genesis command writes the genesis file of a test network.
Validators are paired into cooperatives and start with a reputation of 0.5.
The file can be edited and passed to 'pocnode run --genesis'.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := cmd.Flags().GetInt("validators")
		if err != nil {
			return err
		}
		perCoop, err := cmd.Flags().GetInt("max-per-cooperative")
		if err != nil {
			return err
		}
		g := config.Testnet(n, time.Now())
		g.Governance.MaxValidatorsPerCooperative = perCoop
		if err := g.Validate(); err != nil {
			return err
		}
		if err := config.WriteGenesis(args[0], g); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote genesis %.8s with %d validators to %s\n", g.Hash(), n, args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(genesisCmd)

	genesisCmd.Flags().Int("validators", 4, "number of validators")
	genesisCmd.Flags().Int("max-per-cooperative", 2, "maximum number of validators per cooperative (0 means no limit)")
}
