package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLimitsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "limits",
		Short: "Weekly grant limit commands",
	}

	cmd.AddCommand(newLimitsGetCmd())
	cmd.AddCommand(newLimitsSetCmd())

	return cmd
}

func newLimitsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Show the weekly grant limit and reset schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Limits
			if err := client.Get("/api/v1/limits", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newLimitsSetCmd() *cobra.Command {
	var limit int
	var weekday, resetTime string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Adjust the weekly grant limit or its reset schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{}
			if cmd.Flags().Changed("limit") {
				req["limit"] = limit
			}
			if weekday != "" {
				req["reset_weekday"] = weekday
			}
			if resetTime != "" {
				req["reset_time"] = resetTime
			}
			if len(req) == 0 {
				return fmt.Errorf("provide at least one of --limit, --weekday, --time")
			}

			var result Limits
			if err := client.Put("/api/v1/limits", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Grants allowed per operator per week")
	cmd.Flags().StringVar(&weekday, "weekday", "", "Weekday the limit resets (e.g. Monday)")
	cmd.Flags().StringVar(&resetTime, "time", "", "Wall-clock reset time (HH:MM)")

	return cmd
}
