package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGrantCmd() *cobra.Command {
	var operator, owner, player, comment string
	var hours float64

	cmd := &cobra.Command{
		Use:   "grant",
		Short: "Grant VIP access to a player",
		RunE: func(cmd *cobra.Command, args []string) error {
			if operator == "" {
				return fmt.Errorf("--operator is required")
			}
			if player == "" {
				return fmt.Errorf("--player is required")
			}
			if hours < 0 {
				return fmt.Errorf("--hours must not be negative")
			}

			req := map[string]any{
				"operator_id": operator,
				"player_id":   player,
			}
			if owner != "" {
				req["owner_id"] = owner
			}
			if hours > 0 {
				req["duration_hours"] = hours
			}
			if comment != "" {
				req["comment"] = comment
			}

			var result GrantResult
			if err := client.Post("/api/v1/grants", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&operator, "operator", "", "Operator issuing the grant (required)")
	cmd.Flags().StringVar(&owner, "owner", "", "Account claiming the player id")
	cmd.Flags().StringVar(&player, "player", "", "Game player id to grant VIP to (required)")
	cmd.Flags().Float64Var(&hours, "hours", 0, "Grant duration in hours (default: server setting)")
	cmd.Flags().StringVar(&comment, "comment", "", "Comment recorded with the grant")
	_ = cmd.MarkFlagRequired("operator")
	_ = cmd.MarkFlagRequired("player")

	return cmd
}
