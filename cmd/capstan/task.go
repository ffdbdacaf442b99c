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
	taskCreateTitle    string
	taskCreateDesc     string
	taskCreatePriority int
	taskCreateIntent   string
	taskCreatePlan     string
	taskCreateStep     int
	taskCreateAssignee string

	taskListStatus   string
	taskListAssignee string
	taskListIntent   string
	taskListPlan     string
	taskListLimit    int

	taskUpdateStatus   string
	taskUpdatePriority int
	taskUpdateAssignee string
	taskUpdateTitle    string

	taskCloseReason string
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Create and manage executable tasks",
	Long: `A task is an executable unit of work. Simple single-file changes get
a standalone task; complex changes get tasks linked to steps of an
approved plan.`,
}

var taskCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a task",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		s := requireStore(ctx)

		task := &types.Task{
			Title:       taskCreateTitle,
			Description: taskCreateDesc,
			Status:      types.TaskStatusOpen,
			Priority:    taskCreatePriority,
			IntentID:    taskCreateIntent,
			PlanID:      taskCreatePlan,
			StepIndex:   taskCreateStep,
			Assignee:    taskCreateAssignee,
			CreatedBy:   actor,
		}
		if err := s.CreateTask(ctx, task, actor.String()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create task: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Created task %s\n", color.GreenString("✓"), color.CyanString(task.ID))
		if task.PlanID != "" {
			fmt.Printf("  Plan: %s", task.PlanID)
			if task.StepIndex > 0 {
				fmt.Printf(" step %d", task.StepIndex)
			}
			fmt.Println()
		}
	},
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		s := requireStore(ctx)

		filter := types.TaskFilter{Limit: taskListLimit}
		if taskListStatus != "" {
			st := types.TaskStatus(taskListStatus)
			if !st.IsValid() {
				fmt.Fprintf(os.Stderr, "Error: invalid status %q (open, in_progress, blocked, closed)\n", taskListStatus)
				os.Exit(1)
			}
			filter.Status = &st
		}
		if taskListAssignee != "" {
			filter.Assignee = &taskListAssignee
		}
		if taskListIntent != "" {
			filter.IntentID = &taskListIntent
		}
		if taskListPlan != "" {
			filter.PlanID = &taskListPlan
		}

		tasks, err := s.ListTasks(ctx, filter)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to list tasks: %v\n", err)
			os.Exit(1)
		}
		if len(tasks) == 0 {
			fmt.Printf("%s\n", color.HiBlackString("No tasks found"))
			return
		}
		for _, t := range tasks {
			line := fmt.Sprintf("%s  P%d  %s  %s", color.CyanString(t.ID), t.Priority, statusColor(string(t.Status)), truncate(t.Title, 60))
			if t.Assignee != "" {
				line += "  " + color.HiBlackString("@"+t.Assignee)
			}
			fmt.Println(line)
		}
	},
}

var taskShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a task with its history",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		s := requireStore(ctx)

		task := mustGetTask(ctx, args[0])

		cyan := color.New(color.FgCyan).SprintFunc()
		fmt.Printf("%s  %s  P%d\n", cyan(task.ID), statusColor(string(task.Status)), task.Priority)
		fmt.Printf("  Title:   %s\n", task.Title)
		if task.Description != "" {
			fmt.Printf("  Desc:    %s\n", task.Description)
		}
		if task.IntentID != "" {
			fmt.Printf("  Intent:  %s\n", task.IntentID)
		}
		if task.PlanID != "" {
			fmt.Printf("  Plan:    %s", task.PlanID)
			if task.StepIndex > 0 {
				fmt.Printf(" (step %d)", task.StepIndex)
			}
			fmt.Println()
		}
		if task.Assignee != "" {
			fmt.Printf("  Owner:   %s\n", task.Assignee)
		}
		fmt.Printf("  By:      %s\n", task.CreatedBy.String())
		fmt.Printf("  Created: %s\n", task.CreatedAt.Format("2006-01-02 15:04:05"))
		if task.ClosedAt != nil {
			fmt.Printf("  Closed:  %s\n", task.ClosedAt.Format("2006-01-02 15:04:05"))
		}

		printEvents(ctx, s, task.ID)
	},
}

var taskStartCmd = &cobra.Command{
	Use:   "start <id>",
	Short: "Mark a task in progress",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		s := requireStore(ctx)

		updates := map[string]interface{}{"status": string(types.TaskStatusInProgress)}
		if err := s.UpdateTask(ctx, args[0], updates, actor.String()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s Task %s is in progress\n", color.GreenString("✓"), args[0])
	},
}

var taskUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update task fields",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		s := requireStore(ctx)

		updates := map[string]interface{}{}
		if cmd.Flags().Changed("status") {
			updates["status"] = taskUpdateStatus
		}
		if cmd.Flags().Changed("priority") {
			updates["priority"] = taskUpdatePriority
		}
		if cmd.Flags().Changed("assignee") {
			updates["assignee"] = taskUpdateAssignee
		}
		if cmd.Flags().Changed("title") {
			updates["title"] = taskUpdateTitle
		}
		if len(updates) == 0 {
			fmt.Fprintf(os.Stderr, "Error: nothing to update; pass --status, --priority, --assignee, or --title\n")
			os.Exit(1)
		}

		if err := s.UpdateTask(ctx, args[0], updates, actor.String()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fields := make([]string, 0, len(updates))
		for k := range updates {
			fields = append(fields, k)
		}
		fmt.Printf("%s Updated task %s (%s)\n", color.GreenString("✓"), args[0], strings.Join(fields, ", "))
	},
}

var taskCloseCmd = &cobra.Command{
	Use:   "close <id>",
	Short: "Close a task",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		s := requireStore(ctx)

		if err := s.CloseTask(ctx, args[0], taskCloseReason, actor.String()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s Closed task %s\n", color.GreenString("✓"), args[0])
	},
}

var taskCommentCmd = &cobra.Command{
	Use:   "comment <id> <text>",
	Short: "Add a comment to a task, intent, or plan",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		s := requireStore(ctx)

		text := strings.Join(args[1:], " ")
		if err := s.AddComment(ctx, args[0], actor.String(), text); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s Commented on %s\n", color.GreenString("✓"), args[0])
	},
}

func mustGetTask(ctx context.Context, id string) *types.Task {
	task, err := store.GetTask(ctx, id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if task == nil {
		fmt.Fprintf(os.Stderr, "Error: task %s not found\n", id)
		os.Exit(1)
	}
	return task
}

func init() {
	rootCmd.AddCommand(taskCmd)
	taskCmd.AddCommand(taskCreateCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskShowCmd)
	taskCmd.AddCommand(taskStartCmd)
	taskCmd.AddCommand(taskUpdateCmd)
	taskCmd.AddCommand(taskCloseCmd)
	taskCmd.AddCommand(taskCommentCmd)

	taskCreateCmd.Flags().StringVar(&taskCreateTitle, "title", "", "Task title (required)")
	taskCreateCmd.Flags().StringVar(&taskCreateDesc, "description", "", "Task description")
	taskCreateCmd.Flags().IntVar(&taskCreatePriority, "priority", 2, "Priority 0 (highest) to 4")
	taskCreateCmd.Flags().StringVar(&taskCreateIntent, "intent", "", "Intent ID this task serves")
	taskCreateCmd.Flags().StringVar(&taskCreatePlan, "plan", "", "Plan ID this task derives from")
	taskCreateCmd.Flags().IntVar(&taskCreateStep, "step", 0, "1-based plan step index")
	taskCreateCmd.Flags().StringVar(&taskCreateAssignee, "assignee", "", "Assignee")
	_ = taskCreateCmd.MarkFlagRequired("title")

	taskListCmd.Flags().StringVar(&taskListStatus, "status", "", "Filter by status: open, in_progress, blocked, closed")
	taskListCmd.Flags().StringVar(&taskListAssignee, "assignee", "", "Filter by assignee")
	taskListCmd.Flags().StringVar(&taskListIntent, "intent", "", "Filter by intent ID")
	taskListCmd.Flags().StringVar(&taskListPlan, "plan", "", "Filter by plan ID")
	taskListCmd.Flags().IntVar(&taskListLimit, "limit", 50, "Maximum number of tasks to list")

	taskUpdateCmd.Flags().StringVar(&taskUpdateStatus, "status", "", "New status")
	taskUpdateCmd.Flags().IntVar(&taskUpdatePriority, "priority", 2, "New priority")
	taskUpdateCmd.Flags().StringVar(&taskUpdateAssignee, "assignee", "", "New assignee")
	taskUpdateCmd.Flags().StringVar(&taskUpdateTitle, "title", "", "New title")

	taskCloseCmd.Flags().StringVar(&taskCloseReason, "reason", "", "Reason for closing")
}
