package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/JulesGR953/OptiScam-Framework/internal/classify"
	"github.com/JulesGR953/OptiScam-Framework/internal/config"
	"github.com/JulesGR953/OptiScam-Framework/internal/queue"
)

const waitPollInterval = 2 * time.Second

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var (
		modeFlag        string
		titleFlag       string
		descriptionFlag string
		waitFlag        bool
	)

	cmd := &cobra.Command{
		Use:   "analyze <path-or-url>",
		Short: "Queue a video for scam analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			mode := modeFlag
			if mode == "" {
				mode = cfg.Classifier.Mode
			}
			switch mode {
			case config.ClassifierModeSampled, config.ClassifierModeHolistic:
			default:
				return fmt.Errorf("unknown classification mode %q", mode)
			}

			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			job, err := store.NewJob(cmd.Context(), args[0], mode)
			if err != nil {
				return err
			}
			if titleFlag != "" || descriptionFlag != "" {
				job.Title = titleFlag
				job.Description = descriptionFlag
				if err := store.Update(cmd.Context(), job); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued %s (mode %s)\n", job.Token, job.Mode)

			if !waitFlag {
				fmt.Fprintf(cmd.OutOrStdout(), "follow with: optiscam show %s\n", job.Token)
				return nil
			}
			return waitForJob(cmd.Context(), cmd, store, job.Token)
		},
	}

	cmd.Flags().StringVar(&modeFlag, "mode", "", "Classification mode (sampled or holistic)")
	cmd.Flags().StringVar(&titleFlag, "title", "", "Video title fed to the classifier prompt")
	cmd.Flags().StringVar(&descriptionFlag, "description", "", "Video description fed to the classifier prompt")
	cmd.Flags().BoolVar(&waitFlag, "wait", false, "Block until the running daemon finishes the job")
	return cmd
}

// waitForJob polls the shared queue until the job reaches a terminal status.
// A daemon must be running for the job to make progress.
func waitForJob(ctx context.Context, cmd *cobra.Command, store *queue.Store, token string) error {
	out := cmd.OutOrStdout()
	lastStatus := queue.Status("")
	for {
		job, err := store.GetByToken(ctx, token)
		if err != nil {
			return err
		}
		if job == nil {
			return fmt.Errorf("job %s disappeared from the queue", token)
		}
		if job.Status != lastStatus {
			fmt.Fprintf(out, "status: %s\n", job.Status)
			lastStatus = job.Status
		}
		if job.IsTerminal() {
			switch job.Status {
			case queue.StatusFailed:
				return fmt.Errorf("analysis failed: %s", job.ErrorMessage)
			case queue.StatusCancelled:
				return fmt.Errorf("analysis cancelled")
			}
			if job.VerdictJSON != "" {
				if verdict, err := classify.DecodeVerdict(job.VerdictJSON); err == nil {
					fmt.Fprintf(out, "verdict: %s (confidence %.2f)\n", verdictLabel(verdict), verdict.Confidence)
				}
			}
			if job.ReportPath != "" {
				fmt.Fprintf(out, "report: %s\n", job.ReportPath)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitPollInterval):
		}
	}
}
