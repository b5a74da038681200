package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"lms-exam-service/internal/auth"
	"lms-exam-service/internal/config"
)

// NewTokenCmd issues a bearer token for local use.
func NewTokenCmd(configPath *string) *cobra.Command {
	var (
		subject string
		role    string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token signed with the configured secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Auth.Secret == "" {
				return errors.New("auth secret not configured (auth.secret or JWT_SECRET)")
			}
			if ttl == 0 {
				ttl = config.TTLDuration(cfg.Auth.TokenTTL, 8*time.Hour)
			}
			tok, err := auth.NewTokenService(cfg.Auth.Secret, cfg.Auth.Issuer, ttl).Issue(subject, role)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}
	cmd.Flags().StringVar(&subject, "sub", "", "user id to embed as the token subject")
	cmd.Flags().StringVar(&role, "role", auth.RoleStudent, "role: student, teacher or admin")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to auth.token_ttl)")
	_ = cmd.MarkFlagRequired("sub")
	return cmd
}
