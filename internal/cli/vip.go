package cli

import (
	"github.com/spf13/cobra"
)

func newVipCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vip <player_id>",
		Short: "Show a player's VIP status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result VipStatus
			if err := client.Get("/api/v1/vips/"+args[0], &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
