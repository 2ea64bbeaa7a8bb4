package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var teamsCmd = &cobra.Command{
	Use:          "teams",
	Short:        "List available Linear teams",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := newService()
		teams, err := svc.ListTeams(cmd.Context())
		if err != nil { return err }
		if len(teams) == 0 {
			fmt.Println("No teams found.")
			return nil
		}
		fmt.Println("Available teams:")
		for _, t := range teams {
			fmt.Printf("  %s - %s\n", color.CyanString("%-10s", t.Key), t.Name)
		}
		return nil
	},
}

var initiativesCmd = &cobra.Command{
	Use:          "initiatives",
	Short:        "List available Linear initiatives",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := newService()
		inits, err := svc.ListInitiatives(cmd.Context())
		if err != nil { return err }
		if len(inits) == 0 {
			fmt.Println("No initiatives found.")
			return nil
		}
		fmt.Println("Available initiatives:")
		for _, in := range inits {
			fmt.Printf("  %s - %s\n", color.CyanString("%-20s", in.SlugID), in.Name)
		}
		return nil
	},
}
