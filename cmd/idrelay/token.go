package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrEthical07/idrelay"
)

func newTokenCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint or inspect session credentials with the configured secret",
	}
	cmd.AddCommand(newTokenIssueCmd(a))
	cmd.AddCommand(newTokenInspectCmd(a))
	return cmd
}

type issuedToken struct {
	Token     string `json:"token"`
	TokenID   string `json:"token_id"`
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	IssuedAt  string `json:"issued_at"`
	ExpiresAt string `json:"expires_at"`
}

func newTokenIssueCmd(a *app) *cobra.Command {
	var email, name string

	cmd := &cobra.Command{
		Use:     "issue",
		Short:   "Sign a credential for a given identity, bypassing the provider",
		Example: `  idrelay token issue --email alice@example.com --name Alice`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.settings.RelayConfig()
			if err != nil {
				return err
			}
			claims, err := idrelay.NewIdentityClaims(email, name)
			if err != nil {
				return err
			}
			issuer, err := idrelay.NewIssuer(cfg.Credential)
			if err != nil {
				return err
			}
			cred, err := issuer.Issue(claims, a.now())
			if err != nil {
				return err
			}
			a.logger.Debug().Str("jti", cred.TokenID).Msg("credential issued")

			return writeJSON(cmd.OutOrStdout(), issuedToken{
				Token:     cred.Token,
				TokenID:   cred.TokenID,
				Email:     cred.Claims.Email(),
				Name:      cred.Claims.DisplayName(),
				IssuedAt:  cred.IssuedAt.UTC().Format(time.RFC3339),
				ExpiresAt: cred.ExpiresAt.UTC().Format(time.RFC3339),
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "subject email (required)")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

type inspection struct {
	Valid     bool   `json:"valid"`
	Reason    string `json:"reason,omitempty"`
	TokenID   string `json:"token_id,omitempty"`
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
	IssuedAt  string `json:"issued_at,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

func newTokenInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <token>",
		Short: "Verify a credential now and print its claims or the rejection reason",
		Long: `Verifies signature, algorithm and expiry with the configured secret. The
revocation denylist is not consulted. Exits non-zero when the credential is rejected.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.settings.RelayConfig()
			if err != nil {
				return err
			}
			verifier, err := idrelay.NewVerifier(cfg.Credential)
			if err != nil {
				return err
			}

			res := verifier.Verify(strings.TrimSpace(args[0]), a.now())
			out := inspection{Valid: res.Valid()}
			if out.Valid {
				out.TokenID = res.TokenID
				out.Email = res.Claims.Email()
				out.Name = res.Claims.DisplayName()
				out.IssuedAt = res.IssuedAt.UTC().Format(time.RFC3339)
				out.ExpiresAt = res.ExpiresAt.UTC().Format(time.RFC3339)
			} else {
				out.Reason = res.Reason.String()
			}

			if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			if !out.Valid {
				return fmt.Errorf("credential rejected: %w", res.Err())
			}
			return nil
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
