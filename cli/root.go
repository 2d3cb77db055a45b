package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the igauth command tree. Dependencies are wired in
// PersistentPreRunE, after the global flags are parsed.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "igauth",
		Short: "Link an Instagram account to the CMS",
		Long: `Link an Instagram account to the CMS and keep the local session in sync.

Examples:
  igauth cms-token set <token>
  igauth login tourism_official
  igauth challenge status tourism_official
  igauth challenge submit tourism_official 123456
  igauth session show
  igauth logout`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init()
		},
	}

	root.PersistentFlags().StringVar(&app.configFile, "config", "", "config file (yaml, json or toml)")
	root.PersistentFlags().StringVar(&app.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&app.jsonOut, "json", false, "JSON output")

	root.SetIn(app.stdin)
	root.SetOut(app.out)
	root.SetErr(app.errOut)

	root.AddCommand(
		newLoginCmd(app),
		newChallengeCmd(app),
		newSessionCmd(app),
		newLogoutCmd(app),
		newTokenCmd(app),
	)
	return root
}

// Execute runs the command line in args and releases local storage afterwards.
func Execute(ctx context.Context, args []string, options ...AppOption) error {
	app := newApp(options...)
	root := NewRootCommand(app)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if closeErr := app.close(); err == nil {
		err = closeErr
	}
	if err != nil {
		app.printError(err)
	}
	return err
}
