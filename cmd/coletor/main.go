package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
	pretty   bool
)

var rootCmd = &cobra.Command{
	Use:   "coletor",
	Short: "coletor - paginated collection core for the sales ETL",
	Long: `coletor collects records from the CV CRM and Sienge ERP paginated
APIs, normalizes them into tabular form and replaces the corresponding
warehouse tables. Each run of the collect command is one full snapshot
of one source.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "source config file (built-in defaults when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", false, "human-readable console logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}
