// Command provision-admin creates or promotes an admin account.  Admins are
// never created through public signup.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/iliyamo/ev-asset-platform/internal/config"
	"github.com/iliyamo/ev-asset-platform/internal/database"
	"github.com/iliyamo/ev-asset-platform/internal/logger"
	"github.com/iliyamo/ev-asset-platform/internal/repository"
	"github.com/iliyamo/ev-asset-platform/internal/utils"
)

func main() {
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var in adminInput

	cmd := &cobra.Command{
		Use:   "provision-admin",
		Short: "Create or promote an admin account",
		Long: `Create an admin account, or promote an existing account to admin.

The password may be given with --password or the ADMIN_PASSWORD variable.
Connection settings are read the same way as the server (DATABASE_URL,
BCRYPT_COST, .env).`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.Password == "" {
				in.Password = os.Getenv("ADMIN_PASSWORD")
			}
			return run(cmd.Context(), in)
		},
	}

	cmd.Flags().StringVar(&in.Email, "email", "", "Admin email (required)")
	cmd.Flags().StringVar(&in.Name, "name", "Administrator", "Display name")
	cmd.Flags().StringVar(&in.Password, "password", "", "Admin password (min 8 characters)")
	_ = cmd.MarkFlagRequired("email")

	cmd.AddCommand(statusCmd())
	return cmd
}

func statusCmd() *cobra.Command {
	var email, status string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Change the status of an existing account",
		Long: `Set an account to active, inactive or pending.

Inactive accounts can no longer log in; their existing sessions are refused
by /auth/validate.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, repo *repository.AccountRepo, _ utils.PasswordHasher, log *logger.Logger) error {
				acc, err := setStatus(ctx, repo, email, status, time.Now().UTC())
				if err != nil {
					return err
				}
				log.Info().Str("account_id", acc.ID).Str("status", string(acc.Status)).Msg("account status changed")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email (required)")
	cmd.Flags().StringVar(&status, "status", "", "active, inactive or pending (required)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

func run(ctx context.Context, in adminInput) error {
	return withStore(ctx, func(ctx context.Context, repo *repository.AccountRepo, h utils.PasswordHasher, log *logger.Logger) error {
		acc, err := provision(ctx, repo, h, in, time.Now().UTC())
		if err != nil {
			return err
		}
		log.Info().Str("account_id", acc.ID).Str("email", acc.Email).Msg("admin provisioned")
		return nil
	})
}

type storeFunc func(ctx context.Context, repo *repository.AccountRepo, h utils.PasswordHasher, log *logger.Logger) error

// withStore loads configuration, opens the database and runs fn.
func withStore(ctx context.Context, fn storeFunc) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(logger.Config{Env: cfg.Env, Level: cfg.LogLevel})
	for _, w := range cfg.Warnings {
		log.Warn().Msg(w)
	}

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := database.EnsureSchema(ctx, db); err != nil {
		return err
	}

	return fn(ctx, repository.NewAccountRepo(db), utils.NewPasswordHasher(cfg.BcryptCost), log)
}
