package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/JulesGR953/OptiScam-Framework/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Summarize the queue by status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(queue.AllStatuses()))
			total := 0
			for _, status := range queue.AllStatuses() {
				count := stats[status]
				total += count
				if count == 0 {
					continue
				}
				rows = append(rows, []string{string(status), strconv.Itoa(count)})
			}
			out := cmd.OutOrStdout()
			if total == 0 {
				fmt.Fprintln(out, "queue is empty")
				return nil
			}
			fmt.Fprintln(out, renderTable(out,
				[]string{"Status", "Jobs"},
				rows,
				[]columnAlignment{alignLeft, alignRight},
			))
			fmt.Fprintf(out, "queue database: %s\n", store.Path())
			return nil
		},
	}
}
