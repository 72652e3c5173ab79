// Package cli implements the pocnode command.
package cli

import (
	"fmt"
	"os"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/icn-network/poc/internal/config"
	"github.com/icn-network/poc/logging"
)

var (
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "pocnode",
		Short: "Run Proof of Cooperation consensus networks.",
		Long: `pocnode runs the Proof of Cooperation consensus engine.

Validators take turns proposing blocks, weighted by their reputation, and a block
commits once its approvals carry more than the quorum fraction of the total reputation.

To run a simulated network in this process, use 'pocnode run'.
To write the genesis file of a test network, use 'pocnode genesis'.

Settings are read from flags, from POC_ environment variables, and from the
config file (default is $HOME/.pocnode.yaml), in that order of precedence.`,
		SilenceUsage: true,
	}
)

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.pocnode.yaml)")

	rootCmd.PersistentFlags().String("log-level", "info", "sets the log level (debug, info, warn, error)")
	cobra.CheckErr(viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level")))
	rootCmd.PersistentFlags().StringSlice("log-pkgs", []string{}, "set the log level on a per-package basis.")
	cobra.CheckErr(viper.BindPFlag("log-pkgs", rootCmd.PersistentFlags().Lookup("log-pkgs")))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".pocnode" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".pocnode")
	}
	config.Configure(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		cobra.CheckErr(err)
	}

	cobra.CheckErr(logging.SetLogLevel(viper.GetString("log-level")))

	for _, packageLevel := range viper.GetStringSlice("log-pkgs") {
		parts := strings.Split(packageLevel, ":")
		if len(parts) != 2 {
			cobra.CheckErr("log-pkgs flag must be a comma-separated list of package:level strings")
		}
		cobra.CheckErr(logging.SetPackageLogLevel(parts[0], parts[1]))
	}
}
