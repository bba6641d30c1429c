package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	envFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "signalforge",
	Short: "SignalForge - Buy/Sell/Hold signals from multi-provider market data",
	Long: `SignalForge aggregates price history, fundamentals, options chains and
smart-money activity from several data providers, with automatic fallback,
into a single weighted Buy/Sell/Hold signal.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// a missing .env file is fine
		if envFile != "" {
			_ = godotenv.Load(envFile)
		} else {
			_ = godotenv.Load()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file with provider credentials (default .env)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
