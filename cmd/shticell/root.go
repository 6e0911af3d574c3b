package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:           "shticell",
	Short:         "Collaborative spreadsheet server",
	Long:          "Shticell serves versioned spreadsheets over HTTP and evaluates sheet files locally.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default ./shticell.toml)")
	rootCmd.AddCommand(serveCmd, evalCmd, versionCmd)
}

func initConfig() {
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("shticell")
		viper.SetConfigType("toml")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("SHTICELL")
	viper.AutomaticEnv()

	// No config file is fine; defaults and env vars still apply.
	_ = viper.ReadInConfig()
}
