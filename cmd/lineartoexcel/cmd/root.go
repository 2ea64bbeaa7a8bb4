/* Copyright (c) 2025 ZaphyrRobin
 * SPDX-License-Identifier: BSD-3-Clause */
package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/ZaphyrRobin/linearToExcel/internal/adapters/linear"
	"github.com/ZaphyrRobin/linearToExcel/internal/config"
	"github.com/ZaphyrRobin/linearToExcel/internal/logger"
	"github.com/ZaphyrRobin/linearToExcel/internal/services"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	flagTeam        string
	flagQuarter     string
	flagOutput      string
	flagStartDate   string
	flagWeeks       int
	flagInitiatives string
	flagInput       string
	flagAppend      string
	flagRefresh     string
	flagByCycles    bool
	flagByWeeks     bool
)

var rootCmd = &cobra.Command{
	Use:   "lineartoexcel",
	Short: "Generate quarterly capacity-planning spreadsheets from Linear",
	Long: `lineartoexcel fetches a Linear team's issues and renders them into an
xlsx capacity-planning grid: one row per issue grouped by initiative and
project, one column per week, with per-assignee weekly load totals.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagTeam == "" {
			return fmt.Errorf("--team is required (use the teams command to list available teams)")
		}
		modes := 0
		for _, on := range []bool{flagInput != "", flagAppend != "", flagRefresh != "", flagByCycles, flagByWeeks} {
			if on { modes++ }
		}
		if modes > 1 {
			return fmt.Errorf("choose at most one of --input, --append, --refresh, --by-cycles, --by-weeks")
		}

		opts := services.GenerateOptions{
			TeamKey:     flagTeam,
			Quarter:     flagQuarter,
			Output:      flagOutput,
			Weeks:       flagWeeks,
			InputFile:   flagInput,
			AppendFile:  flagAppend,
			RefreshFile: flagRefresh,
			ByCycles:    flagByCycles,
			ByWeeks:     flagByWeeks,
		}
		if flagStartDate != "" {
			start, err := time.Parse("2006-01-02", flagStartDate)
			if err != nil {
				return fmt.Errorf("invalid --start-date %q, expected YYYY-MM-DD", flagStartDate)
			}
			start = start.UTC()
			opts.StartDate = &start
		}
		if flagInitiatives != "" {
			for _, s := range strings.Split(flagInitiatives, ",") {
				if s = strings.TrimSpace(s); s != "" {
					opts.InitiativeSlugs = append(opts.InitiativeSlugs, s)
				}
			}
		}

		svc := newService()
		if err := svc.Generate(cmd.Context(), opts); err != nil { return err }
		color.Green("Done!")
		return nil
	},
}

func newService() *services.Service {
	cfg := config.Load()
	log := logger.New(cfg)
	return services.New(cfg, log, linear.NewClient(cfg, log))
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Flags().StringVarP(&flagTeam, "team", "t", "", "Linear team key (e.g. 'APP1')")
	rootCmd.Flags().StringVarP(&flagQuarter, "quarter", "q", "", "Quarter label (e.g. 'Q4 2025', default: current quarter)")
	rootCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "Output xlsx filename")
	rootCmd.Flags().StringVarP(&flagStartDate, "start-date", "s", "", "Window start date (YYYY-MM-DD, default: Monday of the quarter start)")
	rootCmd.Flags().IntVarP(&flagWeeks, "weeks", "w", 13, "Number of weeks")
	rootCmd.Flags().StringVarP(&flagInitiatives, "initiatives", "i", "", "Comma-separated initiative slugs")
	rootCmd.Flags().StringVarP(&flagInput, "input", "f", "", "Existing xlsx file to overwrite in place with latest data")
	rootCmd.Flags().StringVarP(&flagAppend, "append", "a", "", "Existing xlsx file to append a new tab to")
	rootCmd.Flags().StringVarP(&flagRefresh, "refresh", "r", "", "Existing xlsx file to refresh into a new reconciled tab")
	rootCmd.Flags().BoolVar(&flagByCycles, "by-cycles", false, "Create separate tabs for each Linear cycle")
	rootCmd.Flags().BoolVar(&flagByWeeks, "by-weeks", false, "Create one tab per week with accumulated capacity")

	rootCmd.AddCommand(teamsCmd)
	rootCmd.AddCommand(initiativesCmd)
	rootCmd.AddCommand(historyCmd)
}
