package probe

import (
	"context"
	"errors"
	"os/exec"
	"runtime"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"webuictl/pkg/types"
)

type querierFunc func(ctx context.Context, name string, args ...string) (string, error)

func (f querierFunc) Query(ctx context.Context, name string, args ...string) (string, error) {
	return f(ctx, name, args...)
}

func testProber(q Querier) *Prober {
	p := New(zerolog.Nop())
	p.Querier = q
	return p
}

// realExitError produces a genuine *exec.ExitError for fakes.
func realExitError(t *testing.T) error {
	t.Helper()
	err := exec.Command("sh", "-c", "exit 1").Run()
	if err == nil {
		t.Fatal("expected non-nil exit error")
	}
	return err
}

func TestProbeDiscreteAccelerator(t *testing.T) {
	q := querierFunc(func(ctx context.Context, name string, args ...string) (string, error) {
		switch name {
		case "nvidia-smi":
			return "NVIDIA GeForce RTX 3080, 10240, 552.22", nil
		case "python3":
			if len(args) > 0 && args[0] == "--version" {
				return "Python 3.10.6", nil
			}
			return "", nil // capability import check succeeds
		}
		return "", exec.ErrNotFound
	})
	prof, err := testProber(q).Probe(context.Background())
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if prof.Accelerator != types.AcceleratorDiscrete {
		t.Fatalf("accelerator = %s, want discrete", prof.Accelerator)
	}
	if prof.AcceleratorName != "NVIDIA GeForce RTX 3080" {
		t.Fatalf("name = %q", prof.AcceleratorName)
	}
	if want := int64(10240) * 1024 * 1024; prof.VRAMBytes != want {
		t.Fatalf("vram = %d, want %d", prof.VRAMBytes, want)
	}
	if prof.DriverVersion != "552.22" {
		t.Fatalf("driver = %q", prof.DriverVersion)
	}
	if prof.Vendor != "nvidia" {
		t.Fatalf("vendor = %q", prof.Vendor)
	}
	if prof.RuntimeVersion != "3.10.6" {
		t.Fatalf("runtime = %q", prof.RuntimeVersion)
	}
	if !prof.Has(types.CapFastAttention) {
		t.Fatal("fastAttention should be present")
	}
	if !prof.Has(types.CapHalfPrecision) {
		t.Fatal("halfPrecision should be derived present on discrete hardware")
	}
	if prof.OS != runtime.GOOS {
		t.Fatalf("os = %q", prof.OS)
	}
}

func TestProbeBrokenHalfPrecisionFamily(t *testing.T) {
	q := querierFunc(func(ctx context.Context, name string, args ...string) (string, error) {
		if name == "nvidia-smi" {
			return "NVIDIA GeForce GTX 1660 SUPER, 6144, 537.13", nil
		}
		return "", exec.ErrNotFound
	})
	prof, err := testProber(q).Probe(context.Background())
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if prof.Accelerator != types.AcceleratorDiscrete {
		t.Fatalf("accelerator = %s", prof.Accelerator)
	}
	if prof.Capabilities[types.CapHalfPrecision] != types.Absent {
		t.Fatalf("halfPrecision = %s, want absent", prof.Capabilities[types.CapHalfPrecision])
	}
}

func TestProbeToolMissingMeansNoAccelerator(t *testing.T) {
	q := querierFunc(func(ctx context.Context, name string, args ...string) (string, error) {
		return "", exec.ErrNotFound
	})
	prof, err := testProber(q).Probe(context.Background())
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if prof.Accelerator != types.AcceleratorNone {
		t.Fatalf("accelerator = %s, want none", prof.Accelerator)
	}
	if prof.RuntimeVersion != "unknown" {
		t.Fatalf("runtime = %q, want unknown", prof.RuntimeVersion)
	}
	if prof.Capabilities[types.CapFastAttention] != types.Unknown {
		t.Fatalf("fastAttention = %s, want unknown", prof.Capabilities[types.CapFastAttention])
	}
}

func TestProbeNoDevicesReported(t *testing.T) {
	xerr := realExitError(t)
	q := querierFunc(func(ctx context.Context, name string, args ...string) (string, error) {
		if name == "nvidia-smi" {
			return "No devices were found", xerr
		}
		return "", exec.ErrNotFound
	})
	prof, err := testProber(q).Probe(context.Background())
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if prof.Accelerator != types.AcceleratorNone {
		t.Fatalf("accelerator = %s, want none", prof.Accelerator)
	}
}

func TestProbeQueryTimeoutDegradesToUnknown(t *testing.T) {
	q := querierFunc(func(ctx context.Context, name string, args ...string) (string, error) {
		return "", context.DeadlineExceeded
	})
	prof, err := testProber(q).Probe(context.Background())
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if prof.Accelerator != types.AcceleratorUnknown {
		t.Fatalf("accelerator = %s, want unknown", prof.Accelerator)
	}
	if prof.Capabilities[types.CapHalfPrecision] != types.Unknown {
		t.Fatalf("halfPrecision = %s, want unknown", prof.Capabilities[types.CapHalfPrecision])
	}
}

func TestProbeFatalSubsystemFailure(t *testing.T) {
	q := querierFunc(func(ctx context.Context, name string, args ...string) (string, error) {
		return "", errors.New("fork/exec: resource temporarily unavailable")
	})
	_, err := testProber(q).Probe(context.Background())
	if err == nil {
		t.Fatal("expected fatal probe error")
	}
	if !IsProbeError(err) {
		t.Fatalf("IsProbeError(%v) = false", err)
	}
	if !strings.Contains(err.Error(), "unreachable") {
		t.Fatalf("error message %q should mention unreachable subsystem", err)
	}
}

func TestProbeIntegratedName(t *testing.T) {
	q := querierFunc(func(ctx context.Context, name string, args ...string) (string, error) {
		if name == "nvidia-smi" {
			return "AMD Radeon(TM) Graphics, 2048, 31.0.12", nil
		}
		return "", exec.ErrNotFound
	})
	prof, err := testProber(q).Probe(context.Background())
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if prof.Accelerator != types.AcceleratorIntegrated {
		t.Fatalf("accelerator = %s, want integrated", prof.Accelerator)
	}
	if prof.Capabilities[types.CapHalfPrecision] != types.Absent {
		t.Fatalf("halfPrecision on integrated = %s, want absent", prof.Capabilities[types.CapHalfPrecision])
	}
}

func TestLoadOverride(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "case.yaml", "accelerator: discrete\nvram_bytes: 17179869184\nruntime_version: 3.10.6\ncapabilities:\n  fastAttention: present\n  halfPrecision: present\nos: linux\n")
	prof, err := LoadOverride(p)
	if err != nil {
		t.Fatalf("load override: %v", err)
	}
	if prof.Accelerator != types.AcceleratorDiscrete || prof.VRAMBytes != 17179869184 {
		t.Fatalf("unexpected profile: %+v", prof)
	}
	if !prof.Has(types.CapFastAttention) {
		t.Fatal("fastAttention should be present")
	}
}

func TestLoadOverrideDefaults(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "empty.json", "{}")
	prof, err := LoadOverride(p)
	if err != nil {
		t.Fatalf("load override: %v", err)
	}
	if prof.Accelerator != types.AcceleratorUnknown || prof.RuntimeVersion != "unknown" || prof.Capabilities == nil {
		t.Fatalf("unexpected defaults: %+v", prof)
	}
}

func TestLoadOverrideErrors(t *testing.T) {
	if _, err := LoadOverride(""); err == nil {
		t.Fatal("expected error on empty path")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "case.txt", "nope")
	if _, err := LoadOverride(p); err == nil {
		t.Fatal("expected unsupported extension error")
	}
}
