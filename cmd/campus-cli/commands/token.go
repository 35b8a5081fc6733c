package commands

import (
	"fmt"
	"time"

	"campusdual-backend/internal/components/chrono"
	"campusdual-backend/internal/session"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	tokenCmd.AddCommand(tokenInspectCmd)
	rootCmd.AddCommand(tokenCmd)
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Works with bearer tokens issued by campusd.",
}

var tokenInspectCmd = &cobra.Command{
	Use:   "inspect <token>",
	Short: "Decodes a bearer token with the configured keys, secrets are never printed.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}
		keys, err := cfg.Session.Keys()
		if err != nil {
			return err
		}
		ttl, err := cfg.Session.TTL()
		if err != nil {
			return err
		}

		codec := session.NewCodec(keys, ttl, chrono.NewStandardTime())
		state, err := codec.Decode(args[0])
		if err != nil {
			return fmt.Errorf("decode token: %w", err)
		}

		// the signature was verified by Decode
		var registered jwt.RegisteredClaims
		_, _, err = jwt.NewParser().ParseUnverified(args[0], &registered)
		if err != nil {
			return err
		}

		if *outputJson {
			return renderJson(cmd.OutOrStdout(), map[string]any{
				"user":          state.SubjectID,
				"cookie_name":   state.SessionCookie.Name,
				"cookie_domain": state.SessionCookie.Domain,
				"issued_at":     registered.IssuedAt.Time,
				"expires_at":    registered.ExpiresAt.Time,
			})
		}

		t := newTable(cmd.OutOrStdout())
		t.AppendRows([]table.Row{
			{"User", state.SubjectID},
			{"Token id", registered.ID},
			{"Issued at", registered.IssuedAt.Format(time.RFC3339)},
			{"Expires at", registered.ExpiresAt.Format(time.RFC3339)},
			{"Cookie", state.SessionCookie.Name + " @ " + state.SessionCookie.Domain},
		})
		t.Render()
		return nil
	},
}
