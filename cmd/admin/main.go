package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yukikurage/project-management-api/internal/config"
	"github.com/yukikurage/project-management-api/internal/database"
	"github.com/yukikurage/project-management-api/internal/logger"
	"github.com/yukikurage/project-management-api/internal/repository"
	"github.com/yukikurage/project-management-api/internal/services"
)

var configPath string

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:          "pm-admin",
		Short:        "Maintenance commands for the project management API",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file (defaults to $CONFIG_PATH)")

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedAdminCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openDB loads config and connects; the returned func flushes the logger and closes the pool.
func openDB() (*gorm.DB, *zap.Logger, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	log, flush := logger.New(logger.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON})

	db, err := database.Connect(cfg.DB, log)
	if err != nil {
		flush()
		return nil, nil, nil, err
	}
	closeFn := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		flush()
	}
	return db, log, closeFn, nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update tables and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, log, closeFn, err := openDB()
			if err != nil {
				return err
			}
			defer closeFn()

			if err := database.Migrate(db); err != nil {
				return err
			}
			log.Info("migrations applied")
			return nil
		},
	}
}

func seedAdminCmd() *cobra.Command {
	var input services.SeedAdminInput

	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the first administrator account",
		Long: `Create an administrator with the given email and password.

The command is idempotent: when the email is already registered nothing changes.

Examples:
  pm-admin seed-admin --email admin@example.com --password 'Str0ng!Pass' --fname Admin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, log, closeFn, err := openDB()
			if err != nil {
				return err
			}
			defer closeFn()

			if err := database.Migrate(db); err != nil {
				return err
			}

			users := services.NewUserService(repository.NewStore(db), log)
			user, created, err := users.SeedAdmin(cmd.Context(), input)
			if err != nil {
				return err
			}
			if !created {
				fmt.Fprintf(cmd.OutOrStdout(), "User %s already exists (id %d)\n", user.Email, user.ID)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Admin %s created (id %d)\n", user.Email, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&input.Email, "email", "", "admin email")
	cmd.Flags().StringVar(&input.Password, "password", "", "admin password")
	cmd.Flags().StringVar(&input.Fname, "fname", "Admin", "first name")
	cmd.Flags().StringVar(&input.Lname, "lname", "", "last name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}
