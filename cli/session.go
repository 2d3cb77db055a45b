package cli

import (
	"github.com/spf13/cobra"
)

func newSessionCmd(app *App) *cobra.Command {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Show the linked Instagram session",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the linked account",
		Long: `Show the linked account. The local copy is read first and then
reconciled with the backend, which always wins. Use --offline to skip the
backend.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			offline, _ := cmd.Flags().GetBool("offline")
			if offline {
				session, err := app.sessions.LoadCached()
				if err != nil {
					return err
				}
				return app.printSession(session)
			}
			session, err := app.sessions.Load(cmd.Context())
			if err != nil {
				return err
			}
			return app.printSession(session)
		},
	}
	showCmd.Flags().Bool("offline", false, "only read the local copy")

	sessionCmd.AddCommand(showCmd)
	return sessionCmd
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Unlink the Instagram account",
		Long: `Delete the session on the backend and clear the local copy. The
local copy is cleared even when the backend call fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.sessions.Clear(cmd.Context()); err != nil {
				return err
			}
			if app.jsonOut {
				return app.printJSON(map[string]interface{}{"linked": false})
			}
			app.printf(app.out, "Instagram account unlinked\n")
			return nil
		},
	}
}
