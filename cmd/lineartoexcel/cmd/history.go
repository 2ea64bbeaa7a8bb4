package cmd

import (
	"fmt"
	"time"

	"github.com/ZaphyrRobin/linearToExcel/internal/services"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:          "history <identifier>",
	Short:        "Print a human-readable change timeline for one issue",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := newService()
		issue, entries, err := svc.History(cmd.Context(), args[0])
		if err != nil { return err }

		color.New(color.Bold).Printf("%s  %s\n", issue.Identifier, issue.Title)
		fmt.Printf("%s\n\n", issue.URL)
		if len(entries) == 0 {
			fmt.Println("No history recorded.")
			return nil
		}
		for _, e := range entries {
			lines := services.DescribeChange(e)
			if len(lines) == 0 { continue }
			ts := "(no timestamp)"
			if e.At != nil { ts = e.At.Format(time.RFC3339) }
			actor := e.Actor
			if actor == "" { actor = "automation" }
			color.Yellow("%s  %s", ts, actor)
			for _, l := range lines {
				fmt.Printf("    %s\n", l)
			}
		}
		return nil
	},
}
