package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	quiet   bool
	verbose bool
	output  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "normcheck",
	Short: "A CLI tool for extracting and validating normative document references",
	Long: `Normcheck extracts references to Russian normative documents (ГОСТ
standards, federal laws, decrees, orders, sanitary rules) from free text and
checks whether each referenced document is still in force.

Validation fans out across public legal-reference sites; batches with many
unresolved documents escalate to a browser-driven lookup against ГАРАНТ.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.normcheck.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "quiet output (suppress progress messages)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (progress on stderr)")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "human", "output format (human, json)")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".normcheck" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".normcheck")
	}

	viper.SetEnvPrefix("normcheck")
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil && !quiet {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// defaultCacheDir resolves the cache location: flag value, then config file,
// then a directory under the user cache root.
func defaultCacheDir(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if dir := viper.GetString("cache_dir"); dir != "" {
		return dir
	}

	base, err := os.UserCacheDir()
	if err != nil {
		return ".normcheck-cache"
	}

	return base + string(os.PathSeparator) + "normcheck"
}
