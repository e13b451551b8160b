// Package authctl implements the operator CLI for the auth service: schema
// migration, bootstrap seeding, and one-off account maintenance.
package authctl

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/okhan/userauth/internal/config"
	"github.com/okhan/userauth/internal/database"
	"github.com/okhan/userauth/internal/repository"
	"github.com/okhan/userauth/internal/tools/common"
	"github.com/okhan/userauth/internal/tools/ui"
)

type options struct {
	envFile string
	timeout time.Duration
	ci      bool
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "authctl",
		Short: "Operator tooling for the auth service",
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to env file")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "operation timeout")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")

	cmd.AddCommand(
		newMigrateCommand(opts),
		newSeedCommand(opts),
		newVerifyEmailCommand(opts),
		newListUsersCommand(opts),
		newStatusCommand(opts),
	)
	return cmd
}

func newMigrateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := run(opts, "authctl migrate", func(ctx context.Context) ([]string, error) {
				_, db, closeDB, err := loadConfigDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				defer closeDB()
				if err := database.Migrate(db); err != nil {
					return nil, err
				}
				return []string{"schema migration applied", "tables: users, local_credentials, pending_tokens, external_identities"}, nil
			})
			return finish(opts, "authctl migrate", details, err)
		},
	}
}

func newSeedCommand(opts *options) *cobra.Command {
	var bootstrapAdminEmail string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Apply bootstrap seed data",
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := run(opts, "authctl seed", func(ctx context.Context) ([]string, error) {
				cfg, db, closeDB, err := loadConfigDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				defer closeDB()
				email := cfg.BootstrapAdminEmail
				if bootstrapAdminEmail != "" {
					email = bootstrapAdminEmail
				}
				if err := database.Seed(db, email); err != nil {
					return nil, err
				}
				details := []string{"seed applied"}
				if email != "" {
					details = append(details, "admin role assignment attempted for: "+email)
				}
				return details, nil
			})
			return finish(opts, "authctl seed", details, err)
		},
	}
	cmd.Flags().StringVar(&bootstrapAdminEmail, "bootstrap-admin-email", "", "override bootstrap admin email")
	return cmd
}

func newVerifyEmailCommand(opts *options) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "verify-email",
		Short: "Mark an account's email as verified",
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := run(opts, "authctl verify-email", func(ctx context.Context) ([]string, error) {
				if strings.TrimSpace(email) == "" {
					return nil, fmt.Errorf("email is required")
				}
				_, db, closeDB, err := loadConfigDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				defer closeDB()
				if err := database.VerifyLocalEmail(db, email); err != nil {
					return nil, err
				}
				return []string{fmt.Sprintf("marked email verified: %s", strings.TrimSpace(strings.ToLower(email)))}, nil
			})
			return finish(opts, "authctl verify-email", details, err)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email to mark verified")
	return cmd
}

func newListUsersCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list-users",
		Short: "List registered accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := run(opts, "authctl list-users", func(ctx context.Context) ([]string, error) {
				_, db, closeDB, err := loadConfigDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				defer closeDB()
				users, err := repository.NewUserRepository(db).List()
				if err != nil {
					return nil, err
				}
				details := make([]string, 0, len(users)+1)
				details = append(details, fmt.Sprintf("%d account(s)", len(users)))
				for _, u := range users {
					details = append(details, fmt.Sprintf("#%d %s (%s)", u.ID, u.Email, u.Role))
				}
				return details, nil
			})
			return finish(opts, "authctl list-users", details, err)
		},
	}
}

func newStatusCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check database connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := run(opts, "authctl status", func(ctx context.Context) ([]string, error) {
				_, db, closeDB, err := loadConfigDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				defer closeDB()
				sqlDB, err := db.DB()
				if err != nil {
					return nil, err
				}
				if err := sqlDB.PingContext(ctx); err != nil {
					return nil, fmt.Errorf("db ping: %w", err)
				}
				return []string{"database reachable"}, nil
			})
			return finish(opts, "authctl status", details, err)
		},
	}
}

func run(opts *options, title string, fn func(context.Context) ([]string, error)) ([]string, error) {
	if opts.ci {
		ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
		defer cancel()
		return fn(ctx)
	}
	return ui.Run(title, fn)
}

func finish(opts *options, title string, details []string, err error) error {
	if opts.ci {
		common.PrintCIResult(err == nil, title, details, err)
	}
	if err != nil {
		os.Exit(3)
	}
	return nil
}

func loadConfigDB(envFile string) (*config.Config, *gorm.DB, func(), error) {
	if err := common.LoadEnvFile(envFile); err != nil {
		return nil, nil, nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	db, err := database.Open(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return cfg, db, closeDB, nil
}
