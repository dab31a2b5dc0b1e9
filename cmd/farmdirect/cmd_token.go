package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/farmdirect/farmdirect/config"
	"github.com/farmdirect/farmdirect/pkg/auth"
)

// farmdirect token <userId> <role> mints an access token for local testing.
var tokenCmd = &cobra.Command{
	Use:   "token <userId> <role>",
	Short: "Issue an access token for a user (development only)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Load(); err != nil {
			return err
		}
		if config.IsProduction() {
			return fmt.Errorf("token: refusing to mint tokens in production")
		}
		role := args[1]
		switch role {
		case auth.RoleBuyer, auth.RoleFarmer, auth.RoleAdmin:
		default:
			return fmt.Errorf("token: unknown role %q", role)
		}
		token, err := auth.GenerateToken(args[0], role)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}
