package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/farmdirect/farmdirect/app/repositories"
	"github.com/farmdirect/farmdirect/app/services"
	"github.com/farmdirect/farmdirect/config"
	"github.com/farmdirect/farmdirect/pkg/database"
	"github.com/farmdirect/farmdirect/pkg/storage"
)

var backupDisk string

// farmdirect backup [--disk s3]
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Export collections as JSON lines to the storage disk and prune old backups",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(ctx context.Context) error {
			name := backupDisk
			if name == "" {
				name = config.StorageDefault()
			}
			disk, err := storage.Open(ctx, name)
			if err != nil {
				return err
			}

			svc := services.NewBackupService(repositories.NewDumper(database.DB), disk, services.BackupPolicy{
				Prefix:    config.BackupPrefix(),
				Retention: config.BackupRetention(),
				MaxCount:  config.BackupMaxCount(),
			})
			report, err := svc.Run(ctx)
			if err != nil {
				return err
			}

			colls := make([]string, 0, len(report.Documents))
			for c := range report.Documents {
				colls = append(colls, c)
			}
			sort.Strings(colls)
			for _, c := range colls {
				fmt.Printf("  ✅ %-10s %d documents\n", c, report.Documents[c])
			}
			fmt.Printf("Backup %s written to %s disk; pruned %d old object(s).\n", report.Stamp, name, len(report.Pruned))
			return nil
		})
	},
}

func init() {
	backupCmd.Flags().StringVar(&backupDisk, "disk", "", "storage disk (local or s3); defaults to STORAGE_DISK")
}
