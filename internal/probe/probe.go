// Package probe gathers facts about the host into an immutable Profile:
// runtime version, accelerator class and memory, driver version, and the set
// of optional backends the runtime can use. Each fact comes from its own
// short-lived external query; a failed query degrades that one fact to
// unknown rather than aborting the whole probe.
package probe

import (
	"context"
	"errors"
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"webuictl/pkg/types"
)

const (
	defaultAcceleratorTool = "nvidia-smi"
	acceleratorQuery       = "--query-gpu=name,memory.total,driver_version"
	acceleratorFormat      = "--format=csv,noheader,nounits"
)

// Prober collects an environment Profile. Zero-value fields get defaults in New.
type Prober struct {
	Querier         Querier
	AcceleratorTool string
	// RuntimeCmd prints the runtime's version, e.g. ["python3", "--version"].
	RuntimeCmd []string
	// CapabilityChecks map a capability to a command whose zero exit means present.
	CapabilityChecks map[types.Capability][]string
	Logger           zerolog.Logger
}

// New returns a Prober with exec-backed queries and default check commands.
func New(logger zerolog.Logger) *Prober {
	return &Prober{
		Querier:         ExecQuerier{},
		AcceleratorTool: defaultAcceleratorTool,
		RuntimeCmd:      []string{"python3", "--version"},
		CapabilityChecks: map[types.Capability][]string{
			types.CapFastAttention: {"python3", "-c", "import xformers"},
		},
		Logger: logger,
	}
}

// queryOutcome classifies one external query.
type queryOutcome int

const (
	queryOK queryOutcome = iota
	queryToolMissing
	queryToolFailed
	queryTimedOut
	queryFatal
)

func (p *Prober) runQuery(ctx context.Context, name string, args ...string) (string, queryOutcome) {
	out, err := p.Querier.Query(ctx, name, args...)
	switch {
	case err == nil:
		return out, queryOK
	case errors.Is(err, exec.ErrNotFound):
		return out, queryToolMissing
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		return out, queryTimedOut
	default:
		var xe *exec.ExitError
		if errors.As(err, &xe) {
			return out, queryToolFailed
		}
		// fork/exec level failure: the query subsystem is unusable
		return out, queryFatal
	}
}

// Probe gathers a Profile. It returns an error only when the query subsystem
// itself is unreachable; an absent accelerator is a valid fact, not an error.
func (p *Prober) Probe(ctx context.Context) (types.Profile, error) {
	prof := types.Profile{
		RuntimeVersion: "unknown",
		Accelerator:    types.AcceleratorUnknown,
		Capabilities:   map[types.Capability]types.Presence{},
		OS:             runtime.GOOS,
	}

	if err := p.probeAccelerator(ctx, &prof); err != nil {
		return types.Profile{}, err
	}
	p.probeRuntime(ctx, &prof)
	p.probeCapabilities(ctx, &prof)
	p.deriveHalfPrecision(&prof)

	p.Logger.Info().
		Str("accelerator", string(prof.Accelerator)).
		Str("name", prof.AcceleratorName).
		Int64("vram_bytes", prof.VRAMBytes).
		Str("runtime", prof.RuntimeVersion).
		Msg("probe complete")
	return prof, nil
}

func (p *Prober) probeAccelerator(ctx context.Context, prof *types.Profile) error {
	out, oc := p.runQuery(ctx, p.AcceleratorTool, acceleratorQuery, acceleratorFormat)
	switch oc {
	case queryFatal:
		return ErrProbe("accelerator query subsystem unreachable", errors.New(out))
	case queryToolMissing:
		// no vendor stack installed on this host
		prof.Accelerator = types.AcceleratorNone
		return nil
	case queryToolFailed:
		if strings.Contains(strings.ToLower(out), "no devices") {
			prof.Accelerator = types.AcceleratorNone
			return nil
		}
		p.Logger.Warn().Str("tool", p.AcceleratorTool).Msg("accelerator query failed; class unknown")
		return nil
	case queryTimedOut:
		p.Logger.Warn().Str("tool", p.AcceleratorTool).Msg("accelerator query timed out; class unknown")
		return nil
	}

	line := firstLine(out)
	if line == "" || strings.Contains(strings.ToLower(line), "no devices") {
		prof.Accelerator = types.AcceleratorNone
		return nil
	}
	name, memMiB, driver := parseAcceleratorLine(line)
	prof.AcceleratorName = name
	prof.DriverVersion = driver
	prof.Vendor = vendorFor(name)
	prof.VRAMBytes = memMiB * 1024 * 1024
	if isIntegratedName(name) {
		prof.Accelerator = types.AcceleratorIntegrated
	} else {
		prof.Accelerator = types.AcceleratorDiscrete
	}
	return nil
}

func (p *Prober) probeRuntime(ctx context.Context, prof *types.Profile) {
	if len(p.RuntimeCmd) == 0 {
		return
	}
	out, oc := p.runQuery(ctx, p.RuntimeCmd[0], p.RuntimeCmd[1:]...)
	if oc != queryOK {
		p.Logger.Warn().Strs("cmd", p.RuntimeCmd).Msg("runtime version query failed; version unknown")
		return
	}
	// output like "Python 3.10.6"
	fields := strings.Fields(firstLine(out))
	if len(fields) > 0 {
		prof.RuntimeVersion = fields[len(fields)-1]
	}
}

func (p *Prober) probeCapabilities(ctx context.Context, prof *types.Profile) {
	for c, cmd := range p.CapabilityChecks {
		if len(cmd) == 0 {
			continue
		}
		_, oc := p.runQuery(ctx, cmd[0], cmd[1:]...)
		switch oc {
		case queryOK:
			prof.Capabilities[c] = types.Present
		case queryToolFailed:
			prof.Capabilities[c] = types.Absent
		default:
			prof.Capabilities[c] = types.Unknown
		}
	}
}

// deriveHalfPrecision fills in halfPrecision when no explicit check ran.
// Certain discrete boards are known to produce degenerate half-precision
// output, so they are reported absent despite the hardware class.
func (p *Prober) deriveHalfPrecision(prof *types.Profile) {
	if _, ok := prof.Capabilities[types.CapHalfPrecision]; ok {
		return
	}
	switch prof.Accelerator {
	case types.AcceleratorDiscrete:
		if brokenHalfPrecision(prof.AcceleratorName) {
			prof.Capabilities[types.CapHalfPrecision] = types.Absent
		} else {
			prof.Capabilities[types.CapHalfPrecision] = types.Present
		}
	case types.AcceleratorNone, types.AcceleratorIntegrated:
		prof.Capabilities[types.CapHalfPrecision] = types.Absent
	default:
		prof.Capabilities[types.CapHalfPrecision] = types.Unknown
	}
}

func parseAcceleratorLine(line string) (name string, memMiB int64, driver string) {
	parts := strings.Split(line, ",")
	if len(parts) > 0 {
		name = strings.TrimSpace(parts[0])
	}
	if len(parts) > 1 {
		memMiB, _ = strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	}
	if len(parts) > 2 {
		driver = strings.TrimSpace(parts[2])
	}
	return name, memMiB, driver
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func vendorFor(name string) string {
	l := strings.ToLower(name)
	switch {
	case strings.Contains(l, "nvidia") || strings.Contains(l, "geforce") || strings.Contains(l, "quadro") || strings.Contains(l, "tesla"):
		return "nvidia"
	case strings.Contains(l, "radeon") || strings.Contains(l, "amd"):
		return "amd"
	case strings.Contains(l, "intel") || strings.Contains(l, "arc") || strings.Contains(l, "iris"):
		return "intel"
	default:
		return ""
	}
}

func isIntegratedName(name string) bool {
	l := strings.ToLower(name)
	for _, marker := range []string{"integrated", "iris", "uhd graphics", "vega 8", "vega 11", "radeon(tm) graphics"} {
		if strings.Contains(l, marker) {
			return true
		}
	}
	return false
}

// brokenHalfPrecision matches board families with defective fp16 paths.
func brokenHalfPrecision(name string) bool {
	l := strings.ToLower(name)
	return strings.Contains(l, "gtx 16")
}
