package loginflow

import (
	"context"
	"strings"
	"time"

	"github.com/jrsteele09/go-insta-auth/sessions"
)

// startPollerLocked launches the challenge poller for the current generation.
// Polls run one after another, never overlapping.
func (f *Flow) startPollerLocked() {
	ctx, cancel := context.WithCancel(f.baseCtx)
	done := make(chan struct{})
	f.pollCancel, f.pollDone = cancel, done
	go f.poll(ctx, f.generation, f.username, done)
}

// stopPollerLocked cancels the poller and returns its done channel. Wait on it
// only after releasing the lock.
func (f *Flow) stopPollerLocked() chan struct{} {
	if f.pollCancel == nil {
		return nil
	}
	f.pollCancel()
	done := f.pollDone
	f.pollCancel, f.pollDone = nil, nil
	return done
}

func (f *Flow) poll(ctx context.Context, gen uint64, username string, done chan struct{}) {
	defer close(done)

	if !f.pollOnce(ctx, gen, username) {
		return
	}

	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !f.pollOnce(ctx, gen, username) {
				return
			}
		}
	}
}

// pollOnce reports whether polling should continue.
func (f *Flow) pollOnce(ctx context.Context, gen uint64, username string) bool {
	info, err := f.svc.api.ChallengeStatus(ctx, username)
	if ctx.Err() != nil {
		return false
	}
	if err != nil {
		f.logger.Warn().Err(err).Str("username", username).Msg("Challenge poll failed")
		return true
	}
	return f.applyStatus(ctx, gen, username, info, true)
}

// applyStatus folds a challenge status into the flow. A cleared challenge is
// followed by a session reconcile; if the backend now holds a session for the
// user, the flow resolves. It reports whether the flow is still waiting.
func (f *Flow) applyStatus(ctx context.Context, gen uint64, username string, info *sessions.ChallengeInfo, fromPoller bool) bool {
	f.mu.Lock()
	if gen != f.generation || f.state != StateChallenge {
		f.mu.Unlock()
		return false
	}
	if info.Active {
		c := *info
		f.challenge = &c
		f.mu.Unlock()
		f.emit()
		return true
	}
	f.mu.Unlock()

	if err := f.svc.store.Reconcile(ctx); err != nil {
		f.logger.Warn().Err(err).Msg("Reconciling session after challenge cleared failed")
		return true
	}
	current := f.svc.store.Current()
	if current == nil || !strings.EqualFold(current.Username, username) {
		f.logger.Debug().Str("username", username).Msg("Challenge cleared but no session linked yet")
		return true
	}

	f.mu.Lock()
	if gen != f.generation || f.state != StateChallenge {
		f.mu.Unlock()
		return false
	}
	done, url := f.resolveLocked()
	f.mu.Unlock()

	f.svc.notifySuccess(current)
	if fromPoller {
		// the poller cannot wait on its own done channel
		done = nil
	}
	f.finish(done, url)
	return false
}
