package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"cms_chat_console/pkg/util/jwt"
)

func newTokenCmd() *cobra.Command {
	var operator string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a console API access token (requires jwtConfig.secret)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			jwt.Init(cfg.JWTConfig.Secret, cfg.JWTConfig.AccessTokenExpiry)
			token, err := jwt.GenerateAccessToken(operator)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&operator, "operator", "console", "operator name recorded in the token")
	return cmd
}

func newInspectTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect-token [token]",
		Short: "Decode the backend token (user id, expiry) without verifying it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := ""
			if len(args) == 1 {
				raw = args[0]
			} else {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				raw = cfg.BackendConfig.Token
			}
			if raw == "" {
				return fmt.Errorf("no token given and backendConfig.token is empty")
			}
			info, err := jwt.InspectBackendToken(raw, time.Now())
			if info != nil {
				printTokenInfo(cmd.OutOrStdout(), info, time.Now())
			}
			return err
		},
	}
}

func printTokenInfo(w io.Writer, info *jwt.BackendTokenInfo, now time.Time) {
	fmt.Fprintf(w, "user_id:    %d\n", info.UserID)
	if !info.IssuedAt.IsZero() {
		fmt.Fprintf(w, "issued_at:  %s (%s)\n", info.IssuedAt.Local().Format(time.RFC3339), humanize.RelTime(info.IssuedAt, now, "ago", "from now"))
	}
	if info.ExpiresAt.IsZero() {
		fmt.Fprintln(w, "expires_at: never")
		return
	}
	fmt.Fprintf(w, "expires_at: %s (%s)\n", info.ExpiresAt.Local().Format(time.RFC3339), humanize.RelTime(info.ExpiresAt, now, "ago", "from now"))
}
