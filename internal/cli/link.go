package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLinkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Player link management commands",
	}

	cmd.AddCommand(newLinkCreateCmd())
	cmd.AddCommand(newLinkGetCmd())
	cmd.AddCommand(newLinkDeleteCmd())

	return cmd
}

func newLinkCreateCmd() *cobra.Command {
	var owner, player string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Link a player id to an owner account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if owner == "" || player == "" {
				return fmt.Errorf("--owner and --player are required")
			}

			req := map[string]string{
				"owner_id":  owner,
				"player_id": player,
			}

			var result Link
			if err := client.Post("/api/v1/links", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Owner account id (required)")
	cmd.Flags().StringVar(&player, "player", "", "Game player id (required)")
	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("player")

	return cmd
}

func newLinkGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <player_id>",
		Short: "Show which account holds a player id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Link
			if err := client.Get("/api/v1/links/"+args[0], &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newLinkDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <owner_id>",
		Short: "Drop an owner's player link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Delete("/api/v1/links/" + args[0]); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage("Link deleted")
			return nil
		},
	}
}
