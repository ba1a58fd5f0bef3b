// Package cascade drives resolution and launch attempts across an ordered
// candidate list until one succeeds or all are exhausted. One child process at
// a time; each session owns its profile, candidates, and report.
package cascade

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"webuictl/pkg/types"
)

// State of the cascade's session state machine. Terminal states are final;
// the cascade is not resumable.
type State string

const (
	StateIdle      State = "idle"
	StateProbing   State = "probing"
	StateResolving State = "resolving"
	StateTrying    State = "trying"
	StateSucceeded State = "succeeded"
	StateExhausted State = "exhausted"
)

// Prober supplies the environment profile for the session.
type Prober interface {
	Probe(ctx context.Context) (types.Profile, error)
}

// Resolver produces the ordered candidate list for a profile.
type Resolver interface {
	Resolve(prof types.Profile) []types.Candidate
}

// Launcher executes one candidate and returns the recorded attempt. It must
// not return before the child's teardown is confirmed.
type Launcher interface {
	Launch(ctx context.Context, cand types.Candidate, timeout time.Duration) types.Attempt
}

// Cascade is a single-session controller. Construct a new one per session;
// state never carries over.
type Cascade struct {
	prober    Prober
	resolver  Resolver
	launcher  Launcher
	timeout   time.Duration
	logger    zerolog.Logger
	publisher EventPublisher

	mu        sync.Mutex
	sessionID string
	state     State
	profile   *types.Profile
	attempts  []types.Attempt
}

func New(p Prober, r Resolver, l Launcher, timeout time.Duration, logger zerolog.Logger) *Cascade {
	return &Cascade{
		prober:    p,
		resolver:  r,
		launcher:  l,
		timeout:   timeout,
		logger:    logger,
		publisher: noopPublisher{},
		sessionID: ulid.Make().String(),
		state:     StateIdle,
	}
}

// SetPublisher installs an EventPublisher for lifecycle events.
func (c *Cascade) SetPublisher(p EventPublisher) {
	if p == nil {
		c.publisher = noopPublisher{}
		return
	}
	c.publisher = p
}

// SessionID returns the session's ULID.
func (c *Cascade) SessionID() string { return c.sessionID }

// Status returns a point-in-time projection for the status API.
func (c *Cascade) Status() types.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	attempts := make([]types.Attempt, len(c.attempts))
	copy(attempts, c.attempts)
	return types.Status{
		SessionID: c.sessionID,
		State:     string(c.state),
		Profile:   c.profile,
		Attempts:  attempts,
	}
}

func (c *Cascade) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.publisher.Publish(Event{Name: "state", Fields: map[string]any{"state": string(s)}})
}

func (c *Cascade) record(att types.Attempt) {
	c.mu.Lock()
	c.attempts = append(c.attempts, att)
	c.mu.Unlock()
	attemptsTotal.WithLabelValues(string(att.Outcome)).Inc()
	attemptDuration.WithLabelValues(string(att.Outcome)).Observe(att.Elapsed().Seconds())
	c.publisher.Publish(Event{Name: "attempt", Candidate: att.Candidate.Label, Fields: map[string]any{
		"outcome":   string(att.Outcome),
		"exit_code": att.ExitCode,
	}})
}

// Run executes the session to a terminal state. The returned error is non-nil
// only for a fatal probe failure; every per-attempt failure is recovered
// locally and folded into the next iteration. The report carries all attempts
// in order regardless of how the session ends.
func (c *Cascade) Run(ctx context.Context) (types.Report, error) {
	report := types.Report{SessionID: c.sessionID, StartedAt: time.Now()}

	c.setState(StateProbing)
	prof, err := c.prober.Probe(ctx)
	if err != nil {
		report.FinishedAt = time.Now()
		return report, err
	}
	c.mu.Lock()
	c.profile = &prof
	c.mu.Unlock()
	report.Profile = prof

	c.setState(StateResolving)
	cands := c.resolver.Resolve(prof)
	c.logger.Info().Int("candidates", len(cands)).Msg("resolution complete")

	var winner *types.Candidate
	for i := 0; i < len(cands); i++ {
		if ctx.Err() != nil {
			// canceled between attempts; settle without starting another child
			break
		}
		c.setState(StateTrying)
		c.logger.Info().Int("attempt", i+1).Int("of", len(cands)).Str("candidate", cands[i].Label).Msg("trying candidate")
		att := c.launcher.Launch(ctx, cands[i], c.timeout)
		c.record(att)
		if att.Outcome == types.OutcomeValid {
			w := cands[i]
			winner = &w
			break
		}
		if att.Outcome == types.OutcomeCanceled {
			break
		}
	}

	c.mu.Lock()
	report.Attempts = make([]types.Attempt, len(c.attempts))
	copy(report.Attempts, c.attempts)
	c.mu.Unlock()
	report.FinishedAt = time.Now()
	if winner != nil {
		report.Outcome = types.SessionSucceeded
		report.Winner = winner
		c.setState(StateSucceeded)
	} else {
		report.Outcome = types.SessionExhausted
		c.setState(StateExhausted)
	}
	sessionsTotal.WithLabelValues(string(report.Outcome)).Inc()
	c.logger.Info().
		Str("outcome", string(report.Outcome)).
		Int("attempts", len(report.Attempts)).
		Msg("session finished")
	return report, nil
}
