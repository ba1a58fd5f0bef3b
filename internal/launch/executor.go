// Package launch starts the external runtime with one candidate's parameters
// and classifies the outcome. One attempt is recorded per launch, including
// timeouts and cancellation; nothing is silently dropped.
package launch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"webuictl/internal/validate"
	"webuictl/pkg/types"
)

const (
	defaultReadyPattern = "Running on local URL"
	defaultReadyPath    = "/sdapi/v1/options"
	defaultGrace        = 5 * time.Second
	defaultTailLines    = 80
	healthPollInterval  = 200 * time.Millisecond
)

// Executor launches the runtime as a child process and folds the validator's
// verdict into the attempt outcome.
type Executor struct {
	// Command is the runtime invocation the candidate flags are appended to,
	// e.g. ["python3", "launch.py"].
	Command []string
	Dir     string
	Host    string
	// PortStart/PortEnd bound the child's listen port; zero means any free port.
	PortStart int
	PortEnd   int
	// ReadyPattern is a log substring marking readiness; ReadyPath is a health
	// endpoint polled in parallel. Either signal counts.
	ReadyPattern string
	ReadyPath    string
	// Grace is how long a terminated child gets between SIGTERM and SIGKILL.
	Grace time.Duration
	// ValidateTimeout caps the post-ready validation call.
	ValidateTimeout time.Duration
	TailLines       int
	Validator       validate.Validator
	Logger          zerolog.Logger

	httpClient *http.Client
	clientOnce sync.Once
}

func (e *Executor) client() *http.Client {
	e.clientOnce.Do(func() {
		// Intentionally Timeout=0: every probe carries its own context deadline.
		e.httpClient = &http.Client{Timeout: 0}
	})
	return e.httpClient
}

// Launch runs one candidate under the timeout and returns the recorded
// attempt. The child is always torn down before return; TornDownAt is set
// only after the process exit is confirmed via wait.
func (e *Executor) Launch(ctx context.Context, cand types.Candidate, timeout time.Duration) types.Attempt {
	att := types.Attempt{
		Candidate: cand,
		StartedAt: time.Now(),
		ExitCode:  -1,
	}
	host := e.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port, err := e.pickPort(host)
	if err != nil {
		return e.finish(att, types.OutcomeCrashed, fmt.Errorf("pick port: %w", err), nil)
	}
	baseURL := fmt.Sprintf("http://%s:%d", host, port)

	args := append(append([]string{}, e.Command[1:]...), BuildArgs(cand, host, port)...)
	cmd := exec.Command(e.Command[0], args...)
	cmd.Dir = e.Dir
	cmd.Env = append(os.Environ(), BuildEnv(cand)...)

	tail := newLineTail(e.tailLines())
	readyCh := make(chan struct{})
	var readyOnce sync.Once
	onLine := func(line string) {
		tail.Append(line)
		if e.readyPattern() != "" && strings.Contains(line, e.readyPattern()) {
			readyOnce.Do(func() { close(readyCh) })
		}
	}
	cmd.Stdout = &lineWriter{onLine: onLine}
	cmd.Stderr = &lineWriter{onLine: onLine}

	if err := cmd.Start(); err != nil {
		return e.finish(att, types.OutcomeCrashed, fmt.Errorf("start runtime: %w", err), tail)
	}
	e.Logger.Info().
		Int("pid", cmd.Process.Pid).
		Str("candidate", cand.Label).
		Str("url", baseURL).
		Msg("runtime started")

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	poll := time.NewTicker(healthPollInterval)
	defer poll.Stop()

	// Phase 1: wait for readiness, early exit, timeout, or cancellation.
	for {
		select {
		case <-ctx.Done():
			att.EndedAt = time.Now()
			att.ExitCode = e.terminate(cmd, waitCh)
			att.TornDownAt = time.Now()
			att.Outcome = types.OutcomeCanceled
			att.Error = ctx.Err().Error()
			att.LogTail = tail.Lines()
			return att
		case werr := <-waitCh:
			att.EndedAt = time.Now()
			att.TornDownAt = att.EndedAt // already exited; wait confirmed
			att.ExitCode = exitCode(werr)
			att.Outcome = types.OutcomeCrashed
			att.Error = crashReason(werr)
			att.LogTail = tail.Lines()
			e.Logger.Warn().Str("candidate", cand.Label).Int("exit_code", att.ExitCode).Msg("runtime exited before ready")
			return att
		case <-deadline.C:
			att.EndedAt = time.Now()
			att.ExitCode = e.terminate(cmd, waitCh)
			att.TornDownAt = time.Now()
			att.Outcome = types.OutcomeTimedOut
			att.Error = fmt.Sprintf("not ready within %s", timeout)
			att.LogTail = tail.Lines()
			e.Logger.Warn().Str("candidate", cand.Label).Msg("runtime timed out before ready")
			return att
		case <-readyCh:
		case <-poll.C:
			if !e.healthOK(ctx, baseURL) {
				continue
			}
		}
		break
	}
	e.Logger.Info().Str("candidate", cand.Label).Msg("runtime ready; validating output")

	// Phase 2: one synthetic generation against the ready child.
	vctx, vcancel := context.WithTimeout(ctx, e.validateTimeout())
	verdict := e.Validator.Validate(vctx, baseURL)
	vcancel()

	att.Verdict = verdict
	att.EndedAt = time.Now()
	att.ExitCode = e.terminate(cmd, waitCh)
	att.TornDownAt = time.Now()
	att.LogTail = tail.Lines()
	switch {
	case ctx.Err() != nil:
		att.Outcome = types.OutcomeCanceled
		att.Error = ctx.Err().Error()
	case verdict == types.VerdictValid:
		att.Outcome = types.OutcomeValid
	default:
		att.Outcome = types.OutcomeUnhealthy
		att.Error = "validator verdict: " + string(verdict)
	}
	e.Logger.Info().
		Str("candidate", cand.Label).
		Str("outcome", string(att.Outcome)).
		Dur("elapsed", att.Elapsed()).
		Msg("attempt finished")
	return att
}

// terminate stops the child: graceful signal first, forceful kill after the
// grace period. It returns only after the process exit is confirmed.
func (e *Executor) terminate(cmd *exec.Cmd, waitCh <-chan error) int {
	if cmd.Process == nil {
		return -1
	}
	_ = cmd.Process.Signal(syscall.SIGTERM)
	select {
	case werr := <-waitCh:
		return exitCode(werr)
	case <-time.After(e.grace()):
		_ = cmd.Process.Kill()
		return exitCode(<-waitCh)
	}
}

func (e *Executor) healthOK(ctx context.Context, baseURL string) bool {
	hctx, cancel := context.WithTimeout(ctx, healthPollInterval*2)
	defer cancel()
	req, err := http.NewRequestWithContext(hctx, http.MethodGet, baseURL+e.readyPath(), nil)
	if err != nil {
		return false
	}
	resp, err := e.client().Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func (e *Executor) finish(att types.Attempt, o types.Outcome, err error, tail *lineTail) types.Attempt {
	att.EndedAt = time.Now()
	att.TornDownAt = att.EndedAt
	att.Outcome = o
	if err != nil {
		att.Error = err.Error()
	}
	if tail != nil {
		att.LogTail = tail.Lines()
	}
	return att
}

func (e *Executor) pickPort(host string) (int, error) {
	if e.PortStart > 0 && e.PortEnd >= e.PortStart {
		return pickPortInRange(host, e.PortStart, e.PortEnd)
	}
	return pickFreePort(host)
}

func (e *Executor) grace() time.Duration {
	if e.Grace > 0 {
		return e.Grace
	}
	return defaultGrace
}

func (e *Executor) validateTimeout() time.Duration {
	if e.ValidateTimeout > 0 {
		return e.ValidateTimeout
	}
	return 60 * time.Second
}

func (e *Executor) tailLines() int {
	if e.TailLines > 0 {
		return e.TailLines
	}
	return defaultTailLines
}

func (e *Executor) readyPattern() string {
	if e.ReadyPattern != "" {
		return e.ReadyPattern
	}
	return defaultReadyPattern
}

func (e *Executor) readyPath() string {
	if e.ReadyPath != "" {
		return e.ReadyPath
	}
	return defaultReadyPath
}

func exitCode(werr error) int {
	if werr == nil {
		return 0
	}
	var xe *exec.ExitError
	if errors.As(werr, &xe) {
		return xe.ExitCode()
	}
	return -1
}

func crashReason(werr error) string {
	if werr == nil {
		return "runtime exited cleanly before ready"
	}
	return "runtime exited before ready: " + werr.Error()
}
