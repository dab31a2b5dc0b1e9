package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/farmdirect/farmdirect/config"
	"github.com/farmdirect/farmdirect/database/seeders"
	"github.com/farmdirect/farmdirect/pkg/database"
	"github.com/farmdirect/farmdirect/pkg/migration"
)

// withDB loads config, connects, runs fn and disconnects.
func withDB(cmd *cobra.Command, fn func(ctx context.Context) error) error {
	if err := config.Load(); err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := database.Connect(ctx); err != nil {
		return err
	}
	defer database.Disconnect(context.Background()) //nolint:errcheck
	return fn(ctx)
}

// farmdirect migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run all pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(ctx context.Context) error {
			fmt.Println("Running migrations…")
			return migration.New(database.DB).Run(ctx)
		})
	},
}

// farmdirect migrate:rollback
var migrateRollbackCmd = &cobra.Command{
	Use:   "migrate:rollback",
	Short: "Rollback the last batch of migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(ctx context.Context) error {
			fmt.Println("Rolling back last batch…")
			return migration.New(database.DB).Rollback(ctx)
		})
	},
}

// farmdirect migrate:status
var migrateStatusCmd = &cobra.Command{
	Use:   "migrate:status",
	Short: "Show the status of each migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(ctx context.Context) error {
			return migration.New(database.DB).Status(ctx)
		})
	},
}

// farmdirect seed
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed demo farmers, buyers and products",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(ctx context.Context) error {
			fmt.Println("Running seeders…")
			return seeders.RunAll(ctx, database.DB, os.Stdout)
		})
	},
}
