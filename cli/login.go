package cli

import (
	"context"
	"strings"
	"sync"

	"github.com/jrsteele09/go-insta-auth/internal/errors"
	"github.com/jrsteele09/go-insta-auth/loginflow"
	"github.com/spf13/cobra"
)

func newLoginCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "login [username]",
		Short: "Log in to Instagram and link the account",
		Long: `Log in to Instagram through the CMS backend.

If Instagram asks for verification, enter the code you received. While
waiting, the challenge is checked automatically; approving the login from
another device completes it without a code. At the code prompt you can also
type "status" to check now or "cancel" to start over.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := ""
			if len(args) == 1 {
				username = args[0]
			}
			return app.runLogin(cmd.Context(), username)
		},
	}
}

func (a *App) runLogin(ctx context.Context, username string) error {
	var err error
	if strings.TrimSpace(username) == "" {
		if username, err = a.readLine("Instagram username"); err != nil {
			return err
		}
	}
	password, err := a.readPassword("Instagram password")
	if err != nil {
		return err
	}

	resolved := make(chan string, 1)
	var once sync.Once
	flow, err := loginflow.NewFlow(a.service,
		loginflow.WithReturnURL(a.cfg.GetReturnURL()),
		loginflow.WithPollInterval(a.cfg.GetPollInterval()),
		loginflow.WithFlowLogger(a.logger),
		loginflow.WithNavigator(loginflow.NavigatorFunc(func(url string) {
			once.Do(func() { resolved <- url })
		})),
	)
	if err != nil {
		return err
	}
	defer flow.Close()

	result, err := flow.SubmitCredentials(ctx, username, password)
	if err != nil {
		return err
	}
	if !result.NeedsChallenge {
		return a.finishLogin(<-resolved)
	}

	if err := a.printChallenge(result.ChallengeInfo); err != nil {
		return err
	}
	return a.awaitChallenge(ctx, flow, resolved)
}

// awaitChallenge reads codes and commands until the flow resolves, the user
// cancels or stdin closes.
func (a *App) awaitChallenge(ctx context.Context, flow *loginflow.Flow, resolved <-chan string) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			line, err := a.readLine("")
			if err != nil {
				readErr <- err
				return
			}
			select {
			case lines <- line:
			case <-stop:
				return
			}
		}
	}()

	a.printf(a.errOut, "Verification code (or status / cancel): ")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case url := <-resolved:
			return a.finishLogin(url)
		case err := <-readErr:
			_ = flow.Cancel()
			return errors.Wrapf(err, "reading verification code")
		case line := <-lines:
			switch strings.ToLower(line) {
			case "":
			case "cancel":
				if err := flow.Cancel(); err != nil {
					return err
				}
				a.printf(a.out, "Login cancelled\n")
				return nil
			case "status":
				info, err := flow.CheckStatus(ctx)
				if err == nil && info.Active {
					_ = a.printChallenge(info)
				}
			default:
				// rejected codes are reported through the notifier
				_, _ = flow.SubmitCode(ctx, line)
			}
			if flow.State() == loginflow.StateResolved {
				return a.finishLogin(<-resolved)
			}
			a.printf(a.errOut, "Verification code (or status / cancel): ")
		}
	}
}

func (a *App) finishLogin(returnURL string) error {
	session := a.sessions.Current()
	if a.jsonOut {
		return a.printJSON(map[string]interface{}{
			"linked":     session != nil,
			"session":    session,
			"return_url": returnURL,
		})
	}
	a.printf(a.out, "Instagram account linked. Continue at %s\n", returnURL)
	return a.printSession(session)
}
