package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDurationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "duration",
		Short: "Default VIP duration commands",
	}

	cmd.AddCommand(newDurationGetCmd())
	cmd.AddCommand(newDurationSetCmd())

	return cmd
}

func newDurationGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Show the default VIP duration",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Duration
			if err := client.Get("/api/v1/duration", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newDurationSetCmd() *cobra.Command {
	var hours float64

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set the default VIP duration in hours",
		RunE: func(cmd *cobra.Command, args []string) error {
			if hours <= 0 {
				return fmt.Errorf("--hours must be greater than zero")
			}

			var result Duration
			if err := client.Put("/api/v1/duration", map[string]float64{"hours": hours}, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().Float64Var(&hours, "hours", 0, "Duration in hours (required)")
	_ = cmd.MarkFlagRequired("hours")

	return cmd
}
