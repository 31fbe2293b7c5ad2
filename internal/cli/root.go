package cli

import (
	"fmt"
	"os"

	"github.com/andywolf/armsignoff/internal/config"
	"github.com/andywolf/armsignoff/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "armsignoff",
	Short: "armsignoff - ARM auto sign-off labels for API spec pull requests",
	Long: `armsignoff decides which ARM sign-off labels a pull request should carry.

It reads the PR's labels, the latest results of the required status checks and
the outcome of the analysis workflow for the PR head commit, then computes an
add / remove / no-op action for each managed label:

  ARMSignedOff
  ARMAutoSignedOff-IncrementalTSP
  ARMAutoSignedOff-Trivial

Example:
  armsignoff decide --repo Azure/azure-rest-api-specs --pr 12345 --sha 1a2b3c --apply`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Set version for --version flag
	rootCmd.Version = version.Short()
	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .armsignoff.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable verbose output")
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error getting working directory:", err)
			os.Exit(1)
		}

		viper.AddConfigPath(cwd)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".armsignoff")
	}

	viper.SetEnvPrefix("ARMSIGNOFF")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()
	config.BindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}
