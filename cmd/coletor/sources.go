package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured sources",
	RunE:  runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

func runSources(cmd *cobra.Command, args []string) error {
	configs, err := loadConfigs()
	if err != nil {
		return err
	}

	names := make([]string, 0, len(configs))
	for name := range configs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		cfg := configs[name]
		quotaNote := ""
		if cfg.QuotaCapped() {
			quotaNote = fmt.Sprintf("  quota %d/day (cost %d)", cfg.QuotaDailyLimit, cfg.QuotaCostPerCall)
		}
		fmt.Printf("%-22s %3d req/min  page_size %-4d cap %-4d%s\n",
			name, cfg.RateLimitPerMin, cfg.PageSize, cfg.SafetyCap, quotaNote)
	}
	return nil
}
