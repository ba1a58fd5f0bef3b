package types

import "time"

// AcceleratorClass classifies the host's compute accelerator.
type AcceleratorClass string

const (
	AcceleratorNone       AcceleratorClass = "none"
	AcceleratorIntegrated AcceleratorClass = "integrated"
	AcceleratorDiscrete   AcceleratorClass = "discrete"
	// AcceleratorUnknown means the probe could not determine the class.
	// Rules that require a specific class never match it.
	AcceleratorUnknown AcceleratorClass = "unknown"
)

// Capability is an optional backend the runtime may have available.
type Capability string

const (
	CapFastAttention Capability = "fastAttention"
	CapHalfPrecision Capability = "halfPrecision"
)

// Presence is the probed state of a capability. Unknown is treated
// conservatively: a rule requiring the capability does not match.
type Presence string

const (
	Present Presence = "present"
	Absent  Presence = "absent"
	Unknown Presence = "unknown"
)

// Profile is an immutable snapshot of the host environment, created once
// per resolution session.
type Profile struct {
	RuntimeVersion  string                  `json:"runtime_version" yaml:"runtime_version" toml:"runtime_version"`
	Accelerator     AcceleratorClass        `json:"accelerator" yaml:"accelerator" toml:"accelerator"`
	AcceleratorName string                  `json:"accelerator_name,omitempty" yaml:"accelerator_name,omitempty" toml:"accelerator_name,omitempty"`
	VRAMBytes       int64                   `json:"vram_bytes,omitempty" yaml:"vram_bytes,omitempty" toml:"vram_bytes,omitempty"`
	Vendor          string                  `json:"vendor,omitempty" yaml:"vendor,omitempty" toml:"vendor,omitempty"`
	DriverVersion   string                  `json:"driver_version,omitempty" yaml:"driver_version,omitempty" toml:"driver_version,omitempty"`
	Capabilities    map[Capability]Presence `json:"capabilities" yaml:"capabilities" toml:"capabilities"`
	OS              string                  `json:"os" yaml:"os" toml:"os"`
}

// Has reports whether a capability is known to be present.
func (p Profile) Has(c Capability) bool {
	return p.Capabilities[c] == Present
}

// Precision mode passed to the runtime.
type Precision string

const (
	PrecisionFull     Precision = "full"
	PrecisionAutocast Precision = "autocast"
	PrecisionHalf     Precision = "half"
)

// Attention backend selection.
type Attention string

const (
	AttentionStandard     Attention = "standard"
	AttentionSubQuadratic Attention = "subQuadratic"
	AttentionSplitV1      Attention = "splitV1"
	AttentionFused        Attention = "fused"
)

// MemoryStrategy selects how aggressively the runtime conserves VRAM.
type MemoryStrategy string

const (
	MemoryNone   MemoryStrategy = "none"
	MemoryMedium MemoryStrategy = "medium"
	MemoryLow    MemoryStrategy = "low"
)

// Candidate is a fully specified launch configuration. Candidates are value
// objects: never mutated after creation, only selected or rejected.
type Candidate struct {
	Label     string         `json:"label" yaml:"label" toml:"label"`
	Precision Precision      `json:"precision" yaml:"precision" toml:"precision"`
	Attention Attention      `json:"attention" yaml:"attention" toml:"attention"`
	Memory    MemoryStrategy `json:"memory" yaml:"memory" toml:"memory"`
	// VAEPath optionally overrides the runtime's variational decoder.
	VAEPath string `json:"vae_path,omitempty" yaml:"vae_path,omitempty" toml:"vae_path,omitempty"`
}

// Key is the candidate's identity for de-duplication. Labels are
// presentation only and do not participate.
func (c Candidate) Key() string {
	return string(c.Precision) + "/" + string(c.Attention) + "/" + string(c.Memory) + "/" + c.VAEPath
}

// Verdict is the output validator's judgement of a generated artifact.
type Verdict string

const (
	VerdictValid      Verdict = "valid"
	VerdictDegenerate Verdict = "degenerate"
	VerdictError      Verdict = "error"
)

// Outcome classifies one launch attempt.
type Outcome string

const (
	// OutcomeValid: the child reached ready and the validator accepted its output.
	OutcomeValid Outcome = "valid"
	// OutcomeCrashed: the child exited before reaching the ready state.
	OutcomeCrashed Outcome = "crashed"
	// OutcomeUnhealthy: the child reached ready but its output failed validation.
	OutcomeUnhealthy Outcome = "unhealthy"
	// OutcomeTimedOut: the child neither became ready nor exited within the timeout.
	OutcomeTimedOut Outcome = "timedOut"
	// OutcomeCanceled: the session was canceled while this attempt was in flight.
	OutcomeCanceled Outcome = "canceled"
)

// Failure reports whether the outcome ends the attempt unsuccessfully.
func (o Outcome) Failure() bool { return o != OutcomeValid }

// Attempt records one execution of a candidate. Attempts are recorded even
// when they time out or are canceled.
type Attempt struct {
	Candidate Candidate `json:"candidate"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	// TornDownAt is when the child's exit was confirmed via process wait,
	// not merely when a termination signal was sent.
	TornDownAt time.Time `json:"torn_down_at"`
	// ExitCode is -1 when the process did not exit normally (killed, never started).
	ExitCode int     `json:"exit_code"`
	Outcome  Outcome `json:"outcome"`
	Verdict  Verdict `json:"verdict,omitempty"`
	// LogTail holds the last lines of the child's combined output.
	LogTail []string `json:"log_tail,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// Elapsed is the attempt's wall-clock duration.
func (a Attempt) Elapsed() time.Duration { return a.EndedAt.Sub(a.StartedAt) }

// SessionOutcome is the terminal result of a cascade session.
type SessionOutcome string

const (
	SessionSucceeded SessionOutcome = "succeeded"
	SessionExhausted SessionOutcome = "exhausted"
)

// Report is the append-only record of a cascade session. It is produced once
// per session and immutable once finalized.
type Report struct {
	SessionID  string         `json:"session_id"`
	Profile    Profile        `json:"profile"`
	Attempts   []Attempt      `json:"attempts"`
	Outcome    SessionOutcome `json:"outcome"`
	Winner     *Candidate     `json:"winner,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

// Status is a point-in-time projection of a running cascade for the status API.
type Status struct {
	SessionID string    `json:"session_id"`
	State     string    `json:"state"`
	Profile   *Profile  `json:"profile,omitempty"`
	Attempts  []Attempt `json:"attempts"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}
