package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"

	"github.com/capstanhq/capstan/internal/storage"
)

// statusColor renders a lifecycle status with a consistent color scheme
// across intents, plans, and tasks.
func statusColor(status string) string {
	switch status {
	case "active", "approved", "in_progress":
		return color.GreenString(status)
	case "draft", "open":
		return color.YellowString(status)
	case "validated":
		return color.CyanString(status)
	case "blocked", "abandoned":
		return color.RedString(status)
	case "completed", "closed":
		return color.HiBlackString(status)
	}
	return status
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

// printEvents renders the audit trail for an object, newest first.
func printEvents(ctx context.Context, s storage.Storage, objectID string) {
	events, err := s.GetEvents(ctx, objectID, 20)
	if err != nil || len(events) == 0 {
		return
	}

	gray := color.New(color.FgHiBlack).SprintFunc()
	fmt.Println()
	fmt.Printf("  History:\n")
	for _, ev := range events {
		line := fmt.Sprintf("%s  %s  %s", ev.CreatedAt.Format("2006-01-02 15:04"), ev.EventType, ev.Actor)
		switch {
		case ev.Comment != nil:
			line += fmt.Sprintf("  %q", truncate(*ev.Comment, 60))
		case ev.OldValue != nil && ev.NewValue != nil:
			line += fmt.Sprintf("  %s → %s", *ev.OldValue, *ev.NewValue)
		case ev.NewValue != nil:
			line += fmt.Sprintf("  %s", truncate(*ev.NewValue, 60))
		}
		fmt.Printf("    %s\n", gray(line))
	}
}
