package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/capstanhq/capstan/internal/types"
)

var (
	intentCreateParent string
	intentListStatus   string
	intentListLimit    int
	intentCloseStatus  string
	intentCloseReason  string
)

var intentCmd = &cobra.Command{
	Use:   "intent",
	Short: "Record and manage high-level intents",
	Long: `An intent captures the goal behind a complex change before any
code is written. Plans and tasks hang off an intent, giving the audit
trail a top-level anchor.`,
}

var intentCreateCmd = &cobra.Command{
	Use:   "create <prompt>",
	Short: "Record a new intent",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		s := requireStore(ctx)

		intent := &types.Intent{
			Prompt:    strings.Join(args, " "),
			Status:    types.IntentStatusDraft,
			ParentID:  intentCreateParent,
			CreatedBy: actor,
		}
		if err := s.CreateIntent(ctx, intent, actor.String()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create intent: %v\n", err)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()
		fmt.Printf("%s Created intent %s\n", green("✓"), cyan(intent.ID))
	},
}

var intentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List intents",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		s := requireStore(ctx)

		var status *types.IntentStatus
		if intentListStatus != "" {
			st := types.IntentStatus(intentListStatus)
			if !st.IsValid() {
				fmt.Fprintf(os.Stderr, "Error: invalid status %q (draft, active, completed, abandoned)\n", intentListStatus)
				os.Exit(1)
			}
			status = &st
		}

		intents, err := s.ListIntents(ctx, status, intentListLimit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to list intents: %v\n", err)
			os.Exit(1)
		}

		gray := color.New(color.FgHiBlack).SprintFunc()
		if len(intents) == 0 {
			fmt.Printf("%s\n", gray("No intents found"))
			return
		}
		for _, in := range intents {
			fmt.Printf("%s  %s  %s\n", color.CyanString(in.ID), statusColor(string(in.Status)), truncate(in.Prompt, 70))
		}
	},
}

var intentShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show an intent with its history",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		s := requireStore(ctx)

		intent, err := s.GetIntent(ctx, args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if intent == nil {
			fmt.Fprintf(os.Stderr, "Error: intent %s not found\n", args[0])
			os.Exit(1)
		}

		cyan := color.New(color.FgCyan).SprintFunc()
		fmt.Printf("%s  %s\n", cyan(intent.ID), statusColor(string(intent.Status)))
		fmt.Printf("  Prompt:  %s\n", intent.Prompt)
		if intent.ParentID != "" {
			fmt.Printf("  Parent:  %s\n", intent.ParentID)
		}
		fmt.Printf("  By:      %s\n", intent.CreatedBy.String())
		fmt.Printf("  Created: %s\n", intent.CreatedAt.Format("2006-01-02 15:04:05"))
		if intent.ClosedAt != nil {
			fmt.Printf("  Closed:  %s\n", intent.ClosedAt.Format("2006-01-02 15:04:05"))
		}

		plans, err := s.GetPlansByIntent(ctx, intent.ID)
		if err == nil && len(plans) > 0 {
			fmt.Println()
			fmt.Printf("  Plans:\n")
			for _, p := range plans {
				fmt.Printf("    %s  %s  iteration %d  %s\n", cyan(p.ID), statusColor(string(p.Status)), p.Iteration, truncate(p.Title, 50))
			}
		}

		printEvents(ctx, s, intent.ID)
	},
}

var intentActivateCmd = &cobra.Command{
	Use:   "activate <id>",
	Short: "Mark an intent active",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		s := requireStore(ctx)

		if err := s.UpdateIntentStatus(ctx, args[0], types.IntentStatusActive, actor.String()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s Intent %s is now active\n", color.GreenString("✓"), args[0])
	},
}

var intentCloseCmd = &cobra.Command{
	Use:   "close <id>",
	Short: "Close an intent as completed or abandoned",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		s := requireStore(ctx)

		status := types.IntentStatus(intentCloseStatus)
		if !status.Terminal() {
			fmt.Fprintf(os.Stderr, "Error: --status must be completed or abandoned (got %q)\n", intentCloseStatus)
			os.Exit(1)
		}
		if err := s.CloseIntent(ctx, args[0], status, intentCloseReason, actor.String()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s Closed intent %s (%s)\n", color.GreenString("✓"), args[0], status)
	},
}

func init() {
	rootCmd.AddCommand(intentCmd)
	intentCmd.AddCommand(intentCreateCmd)
	intentCmd.AddCommand(intentListCmd)
	intentCmd.AddCommand(intentShowCmd)
	intentCmd.AddCommand(intentActivateCmd)
	intentCmd.AddCommand(intentCloseCmd)

	intentCreateCmd.Flags().StringVar(&intentCreateParent, "parent", "", "Parent intent ID")
	intentListCmd.Flags().StringVar(&intentListStatus, "status", "", "Filter by status: draft, active, completed, abandoned")
	intentListCmd.Flags().IntVar(&intentListLimit, "limit", 50, "Maximum number of intents to list")
	intentCloseCmd.Flags().StringVar(&intentCloseStatus, "status", "completed", "Terminal status: completed or abandoned")
	intentCloseCmd.Flags().StringVar(&intentCloseReason, "reason", "", "Reason for closing")
}
