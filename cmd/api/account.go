package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/persistence"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/service"
)

func newAccountCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Operator account management",
	}
	cmd.AddCommand(newPromoteCommand())
	return cmd
}

// newPromoteCommand changes an account's role. Self-registration only ever
// creates customers, so this is how admins come to exist.
func newPromoteCommand() *cobra.Command {
	var (
		username string
		role     string
	)
	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Set the role of an existing account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger := bootstrap()
			defer logger.Sync() //nolint:errcheck

			if cfg.Postgres.DSN == "" {
				return errors.New("POSTGRES_DSN is required; with the in-memory store set ADMIN_USERNAME, ADMIN_EMAIL and ADMIN_PASSWORD for serve instead")
			}
			pg, err := persistence.NewPostgres(cmd.Context(), cfg.Postgres, logger)
			if err != nil {
				return err
			}
			defer pg.Close()

			pool := pg.PoolHandle()
			authService := service.NewAuthService(service.AuthDependencies{
				AccountRepo: repository.NewAccountRepository(pool, repository.NewTransactor(pool)),
				BcryptCost:  cfg.Auth.BcryptCost,
			})
			account, err := authService.SetRole(cmd.Context(), username, domain.Role(role))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "account %q (id %d) is now %s\n", account.Username, account.ID, account.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "account username")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleAdmin), "role to assign (admin or customer)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}
