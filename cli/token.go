package cli

import (
	"time"

	"github.com/jrsteele09/go-insta-auth/cmsauth"
	"github.com/jrsteele09/go-insta-auth/internal/errors"
	"github.com/spf13/cobra"
)

func newTokenCmd(app *App) *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "cms-token",
		Short: "Manage the CMS API token used for backend calls",
		Long: `Every backend call is authorized with the CMS API token. It can be
stored locally with "cms-token set" or supplied through IGAUTH_CMS_TOKEN,
which takes precedence while it has not expired.`,
	}

	setCmd := &cobra.Command{
		Use:   "set <token>",
		Short: "Store the CMS token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info := cmsauth.Inspect(args[0])
			if info.Expired(time.Now()) {
				return errors.Wrapf(errors.ErrNotAuthenticated, "token expired at %s", info.ExpiresAt.Format(time.RFC3339))
			}
			if err := app.tokens.Set(args[0]); err != nil {
				return err
			}
			return app.printTokenInfo(info)
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether a stored CMS token is present",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := app.tokens.Token()
			if err != nil && !errors.Is(err, errors.ErrNotAuthenticated) {
				return err
			}
			return app.printTokenInfo(cmsauth.Inspect(token))
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored CMS token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.tokens.Clear(); err != nil {
				return err
			}
			app.printf(app.out, "CMS token cleared\n")
			return nil
		},
	}

	tokenCmd.AddCommand(setCmd, statusCmd, clearCmd)
	return tokenCmd
}

func (a *App) printTokenInfo(info cmsauth.TokenInfo) error {
	if a.jsonOut {
		return a.printJSON(map[string]interface{}{
			"present":    info.Present,
			"jwt":        info.JWT,
			"subject":    info.Subject,
			"expires_at": info.ExpiresAt,
		})
	}
	if !info.Present {
		a.printf(a.out, "No CMS token stored\n")
		return nil
	}
	a.printf(a.out, "CMS token stored")
	if info.Subject != "" {
		a.printf(a.out, " for %s", info.Subject)
	}
	if info.ExpiresAt != nil {
		a.printf(a.out, ", expires %s", info.ExpiresAt.Format(time.RFC3339))
	}
	a.printf(a.out, "\n")
	return nil
}
