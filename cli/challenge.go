package cli

import (
	"github.com/spf13/cobra"
)

func newChallengeCmd(app *App) *cobra.Command {
	challengeCmd := &cobra.Command{
		Use:   "challenge",
		Short: "Inspect or answer an Instagram verification challenge",
		Long: `Non-interactive access to a pending verification challenge.

Examples:
  igauth challenge status tourism_official
  igauth challenge submit tourism_official 123456`,
	}

	statusCmd := &cobra.Command{
		Use:   "status <username>",
		Short: "Check whether a challenge is pending",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := app.service.CheckChallenge(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return app.printChallenge(info)
		},
	}

	submitCmd := &cobra.Command{
		Use:   "submit <username> <code>",
		Short: "Submit the verification code",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := app.service.SubmitChallenge(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return app.printSession(session)
		},
	}

	challengeCmd.AddCommand(statusCmd, submitCmd)
	return challengeCmd
}
