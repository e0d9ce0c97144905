package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/yoockh/unistep/config"
	"github.com/yoockh/unistep/internal/logger"
	mongorepo "github.com/yoockh/unistep/internal/repositories/mongo"
	pgrepo "github.com/yoockh/unistep/internal/repositories/postgres"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "unistep-cli: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "unistep-cli",
		Short:        "unistep operations CLI",
		Long:         `unistep-cli prepares the stores the admissions server depends on and inspects the upload ledger.`,
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newIndexesCmd(),
		newMigrateCmd(),
		newSeedCmd(),
		newOrphansCmd(),
	)
	return cmd
}

func newIndexesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "indexes",
		Short: "Create the MongoDB indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.InitMongo(); err != nil {
				return err
			}
			defer config.MongoClient.Disconnect(context.Background())

			if err := config.EnsureMongoIndexes(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "indexes ensured on", config.MongoDBName())
			return nil
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the upload ledger table",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.InitPostgres(); err != nil {
				return err
			}
			if err := config.MigrateLedger(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "application_uploads migrated")
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert universities from a YAML file, skipping logins that exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			seeds, err := parseSeed(f)
			if err != nil {
				return err
			}

			if err := config.InitMongo(); err != nil {
				return err
			}
			defer config.MongoClient.Disconnect(context.Background())

			repo := mongorepo.NewUniversityRepo(config.MongoClient.Database(config.MongoDBName()))
			res, err := applySeed(cmd.Context(), repo, seeds, logger.New())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d, skipped %d\n", res.Inserted, res.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "universities.yaml", "YAML file with universities")
	return cmd
}

func newOrphansCmd() *cobra.Command {
	var olderThan time.Duration
	var limit int
	cmd := &cobra.Command{
		Use:   "orphans",
		Short: "List stored uploads that never became part of an application",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.InitPostgres(); err != nil {
				return err
			}
			repo := pgrepo.NewUploadRepo(config.PostgresDB)
			rows, err := repo.ListOrphans(cmd.Context(), time.Now().Add(-olderThan), limit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "UPLOADED\tUNIVERSITY\tWIZARD\tFIELD\tOBJECT")
			for _, r := range rows {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.UploadedAt.Format(time.RFC3339), r.University, r.WizardID, r.Field, r.ObjectName)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d orphaned uploads\n", len(rows))
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 24*time.Hour, "Only uploads older than this")
	cmd.Flags().IntVar(&limit, "limit", 500, "Maximum rows to list (0 for all)")
	return cmd
}
