package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JulesGR953/OptiScam-Framework/internal/classify"
	"github.com/JulesGR953/OptiScam-Framework/internal/queue"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <token>",
		Short: "Show the state of a queued analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			job, err := store.GetByToken(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if job == nil {
				return fmt.Errorf("no job with token %s", args[0])
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Token:   %s\n", job.Token)
			fmt.Fprintf(out, "Source:  %s\n", job.Source)
			if job.Title != "" {
				fmt.Fprintf(out, "Title:   %s\n", job.Title)
			}
			fmt.Fprintf(out, "Mode:    %s\n", job.Mode)
			fmt.Fprintf(out, "Status:  %s\n", job.Status)
			if job.ErrorMessage != "" {
				fmt.Fprintf(out, "Error:   %s\n", job.ErrorMessage)
			}
			if job.VerdictJSON != "" {
				if verdict, err := classify.DecodeVerdict(job.VerdictJSON); err == nil {
					fmt.Fprintf(out, "Verdict: %s (confidence %.2f)\n", verdictLabel(verdict), verdict.Confidence)
					if verdict.Reasoning != "" {
						fmt.Fprintf(out, "Reason:  %s\n", verdict.Reasoning)
					}
				}
			}
			if job.ReportPath != "" {
				fmt.Fprintf(out, "Report:  %s\n", job.ReportPath)
			}
			return nil
		},
	}
}

func verdictLabel(v classify.Verdict) string {
	if v.Scam {
		return "scam"
	}
	return "not a scam"
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <token>",
		Short: "Cancel a queued or in-flight analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			job, err := store.RequestCancel(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if job == nil {
				return fmt.Errorf("no job with token %s", args[0])
			}
			switch {
			case job.Status == queue.StatusCancelled:
				fmt.Fprintf(cmd.OutOrStdout(), "job %s cancelled\n", job.Token)
			case job.IsTerminal():
				fmt.Fprintf(cmd.OutOrStdout(), "job %s already %s\n", job.Token, job.Status)
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "cancellation requested for %s; it stops at the next stage boundary\n", job.Token)
			}
			return nil
		},
	}
}
