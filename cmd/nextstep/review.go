package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/Blaze-0903/NextStepAI/internal/app"
	"github.com/Blaze-0903/NextStepAI/internal/domain/pending"
	"github.com/Blaze-0903/NextStepAI/internal/review"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	PromptApprove = "Approve"
	PromptReject  = "Reject"
	PromptSkip    = "Skip"
	PromptDone    = "Done"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Interactively approve or reject pending ontology updates",
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, lg, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer teardown(c, lg)

		reviewer, _ := cmd.Flags().GetString("reviewer")
		return reviewLoop(cmd.Context(), c, lg, reviewer)
	},
}

func init() {
	rootCmd.AddCommand(reviewCmd)

	reviewCmd.Flags().StringP("reviewer", "r", review.DefaultReviewer, "name recorded on every decision")
}

func reviewLoop(ctx context.Context, c *app.Container, lg *zap.Logger, reviewer string) error {
	skipped := map[string]bool{}
	for {
		updates, err := c.Workflow.Pending(ctx)
		if err != nil {
			return err
		}

		var items []string
		byLabel := map[string]pending.Update{}
		for _, u := range updates {
			label := updateLabel(u)
			if skipped[label] {
				continue
			}
			items = append(items, label)
			byLabel[label] = u
		}
		if len(items) == 0 {
			lg.Info("no pending updates left")
			return nil
		}

		pick := promptui.Select{
			Label: "Choose an update and press ENTER",
			Items: append(items, PromptDone),
			Size:  10,
		}
		_, selected, err := pick.Run()
		if err != nil {
			return promptErr(err)
		}
		if selected == PromptDone {
			return nil
		}
		u := byLabel[selected]

		fmt.Printf("\n%s\n\n", u.DiscoveryReason)
		action := promptui.Select{
			Label: fmt.Sprintf("Decision for %s", u.Subject()),
			Items: []string{PromptApprove, PromptReject, PromptSkip},
		}
		_, decision, err := action.Run()
		if err != nil {
			return promptErr(err)
		}

		var d review.Decision
		switch decision {
		case PromptApprove:
			d = review.Approve
		case PromptReject:
			d = review.Reject
		default:
			skipped[selected] = true
			continue
		}

		out, err := c.Workflow.Decide(ctx, u.ID, d, reviewer)
		if err != nil {
			if errors.Is(err, review.ErrNotFound) {
				lg.Warn("update was reviewed elsewhere", zap.String("id", u.ID.String()))
				continue
			}
			return err
		}
		lg.Info("update reviewed",
			zap.String("subject", u.Subject()),
			zap.String("status", string(out.Update.Status)),
			zap.Bool("applied", out.Applied),
		)
	}
}

// updateLabel renders one select row. The id prefix keeps labels unique.
func updateLabel(u pending.Update) string {
	return fmt.Sprintf("%s [%s] %s (%.0f%%)", u.ID.String()[:8], u.Kind(), u.Subject(), u.ConfidenceOr(pending.DefaultConfidence)*100)
}

func promptErr(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
		return nil
	}
	return err
}
