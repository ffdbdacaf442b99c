package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/capstanhq/capstan/internal/planning"
	"github.com/capstanhq/capstan/internal/storage"
	"github.com/capstanhq/capstan/internal/types"
)

var (
	planCreateTitle   string
	planCreateSteps   []string
	planCreateDepends []string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Break intents into ordered, validated plans",
	Long: `A plan decomposes an intent into sequential steps. Plans start as
drafts, pass validation (ordering, dependency, and step checks), and
must be approved before tasks derived from them can be executed.`,
}

var planCreateCmd = &cobra.Command{
	Use:   "create <intent-id>",
	Short: "Draft a plan for an intent",
	Long: `Draft a plan for an intent. Steps are given in order with repeated
--step flags; step dependencies with --depends "INDEX:DEP[,DEP...]".

Example:
  capstan plan create cap-1 --title "Add config layer" \
    --step "Define config schema" \
    --step "Load YAML overrides" \
    --step "Wire into CLI" --depends "3:1,2"`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		s := requireStore(ctx)

		steps := make([]types.Step, 0, len(planCreateSteps))
		for i, title := range planCreateSteps {
			steps = append(steps, types.Step{Index: i + 1, Title: title})
		}
		for _, spec := range planCreateDepends {
			idx, deps, err := parseDepends(spec)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			if idx < 1 || idx > len(steps) {
				fmt.Fprintf(os.Stderr, "Error: --depends refers to step %d, but the plan has %d steps\n", idx, len(steps))
				os.Exit(1)
			}
			steps[idx-1].DependsOn = deps
		}

		plan := &types.Plan{
			IntentID:  args[0],
			Title:     planCreateTitle,
			Steps:     steps,
			Status:    types.PlanStatusDraft,
			CreatedBy: actor,
		}
		if err := s.CreatePlan(ctx, plan, actor.String()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create plan: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Created plan %s (iteration %d, %d steps)\n",
			color.GreenString("✓"), color.CyanString(plan.ID), plan.Iteration, len(plan.Steps))
		fmt.Printf("  %s\n", color.HiBlackString("capstan plan validate "+plan.ID))
	},
}

// parseDepends parses "INDEX:DEP[,DEP...]" into a step index and its
// dependency list.
func parseDepends(spec string) (int, []int, error) {
	idxStr, depsStr, ok := strings.Cut(spec, ":")
	if !ok {
		return 0, nil, fmt.Errorf("malformed --depends %q: want INDEX:DEP[,DEP...]", spec)
	}
	idx, err := strconv.Atoi(strings.TrimSpace(idxStr))
	if err != nil {
		return 0, nil, fmt.Errorf("malformed --depends %q: bad step index", spec)
	}
	var deps []int
	for _, d := range strings.Split(depsStr, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(d))
		if err != nil {
			return 0, nil, fmt.Errorf("malformed --depends %q: bad dependency %q", spec, d)
		}
		deps = append(deps, n)
	}
	return idx, deps, nil
}

var planShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a plan and its steps",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		s := requireStore(ctx)

		plan := mustGetPlan(ctx, s, args[0])

		cyan := color.New(color.FgCyan).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()
		fmt.Printf("%s  %s  iteration %d\n", cyan(plan.ID), statusColor(string(plan.Status)), plan.Iteration)
		fmt.Printf("  Intent:  %s\n", plan.IntentID)
		fmt.Printf("  Title:   %s\n", plan.Title)
		fmt.Printf("  By:      %s\n", plan.CreatedBy.String())
		fmt.Printf("  Created: %s\n", plan.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Println()
		for _, step := range plan.Steps {
			fmt.Printf("  %2d. %s\n", step.Index, step.Title)
			if step.Description != "" {
				fmt.Printf("      %s\n", gray(step.Description))
			}
			if len(step.DependsOn) > 0 {
				fmt.Printf("      %s\n", gray(fmt.Sprintf("depends on: %v", step.DependsOn)))
			}
		}

		printEvents(ctx, s, plan.ID)
	},
}

var planListCmd = &cobra.Command{
	Use:   "list <intent-id>",
	Short: "List plan iterations for an intent",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		s := requireStore(ctx)

		plans, err := s.GetPlansByIntent(ctx, args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(plans) == 0 {
			fmt.Printf("%s\n", color.HiBlackString("No plans for "+args[0]))
			return
		}
		for _, p := range plans {
			fmt.Printf("%s  %s  iteration %d  %d steps  %s\n",
				color.CyanString(p.ID), statusColor(string(p.Status)), p.Iteration, len(p.Steps), truncate(p.Title, 50))
		}
	},
}

var planValidateCmd = &cobra.Command{
	Use:   "validate <id>",
	Short: "Run plan validation and mark the plan validated",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		s := requireStore(ctx)

		plan := mustGetPlan(ctx, s, args[0])

		vctx := &planning.ValidationContext{}
		if intent, err := s.GetIntent(ctx, plan.IntentID); err == nil {
			vctx.Intent = intent
		}
		if plans, err := s.GetPlansByIntent(ctx, plan.IntentID); err == nil {
			vctx.ExistingPlans = priorIterations(plans, plan.ID)
		}

		result := planning.DefaultRegistry().ValidateAll(ctx, plan, vctx)

		red := color.New(color.FgRed).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		for _, e := range result.Errors {
			fmt.Printf("%s %s: %s\n", red("✗"), e.Code, e.Message)
		}
		for _, w := range result.Warnings {
			fmt.Printf("%s %s: %s\n", yellow("!"), w.Code, w.Message)
		}
		if result.HasErrors() {
			fmt.Fprintf(os.Stderr, "\nPlan %s failed validation (%d errors)\n", plan.ID, len(result.Errors))
			os.Exit(1)
		}

		if err := s.UpdatePlanStatus(ctx, plan.ID, types.PlanStatusValidated, actor.String()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s Plan %s validated\n", color.GreenString("✓"), plan.ID)
		fmt.Printf("  %s\n", color.HiBlackString("capstan plan approve "+plan.ID))
	},
}

var planApproveCmd = &cobra.Command{
	Use:   "approve <id>",
	Short: "Approve a validated plan for execution",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		s := requireStore(ctx)

		plan := mustGetPlan(ctx, s, args[0])
		if plan.Status != types.PlanStatusValidated {
			fmt.Fprintf(os.Stderr, "Error: plan %s is %s; validate it before approving\n", plan.ID, plan.Status)
			os.Exit(1)
		}

		if err := s.UpdatePlanStatus(ctx, plan.ID, types.PlanStatusApproved, actor.String()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s Plan %s approved\n", color.GreenString("✓"), plan.ID)
	},
}

// priorIterations drops the plan under validation from its intent's
// plan list, so iteration warnings count only earlier attempts.
func priorIterations(plans []*types.Plan, planID string) []*types.Plan {
	var prior []*types.Plan
	for _, p := range plans {
		if p.ID != planID {
			prior = append(prior, p)
		}
	}
	return prior
}

func mustGetPlan(ctx context.Context, s storage.Storage, id string) *types.Plan {
	plan, err := s.GetPlan(ctx, id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if plan == nil {
		fmt.Fprintf(os.Stderr, "Error: plan %s not found\n", id)
		os.Exit(1)
	}
	return plan
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.AddCommand(planCreateCmd)
	planCmd.AddCommand(planShowCmd)
	planCmd.AddCommand(planListCmd)
	planCmd.AddCommand(planValidateCmd)
	planCmd.AddCommand(planApproveCmd)

	planCreateCmd.Flags().StringVar(&planCreateTitle, "title", "", "Plan title (required)")
	planCreateCmd.Flags().StringArrayVar(&planCreateSteps, "step", nil, "Step title, in order (repeatable)")
	planCreateCmd.Flags().StringArrayVar(&planCreateDepends, "depends", nil, `Step dependencies as "INDEX:DEP[,DEP...]" (repeatable)`)
	_ = planCreateCmd.MarkFlagRequired("title")
}
