package matrix

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"webuictl/pkg/types"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

const validYAML = `version: 1
rules:
  - name: discrete
    priority: 50
    when:
      accelerator: [discrete]
    candidates:
      - label: autocast sub-quad
        precision: autocast
        attention: subQuadratic
        memory: medium
`

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "m.yaml", validYAML)
	m, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.Version != 1 || len(m.Rules) != 1 || m.Rules[0].Name != "discrete" {
		t.Fatalf("unexpected matrix: %+v", m)
	}
	c := m.Rules[0].Candidates[0]
	if c.Precision != types.PrecisionAutocast || c.Attention != types.AttentionSubQuadratic || c.Memory != types.MemoryMedium {
		t.Fatalf("unexpected candidate: %+v", c)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "m.json", `{"version":1,"rules":[{"name":"cpu","priority":1,"when":{"accelerator":["none"]},"candidates":[{"label":"cpu full","precision":"full","attention":"standard","memory":"none"}]}]}`)
	m, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(m.Rules) != 1 || m.Rules[0].Candidates[0].Label != "cpu full" {
		t.Fatalf("unexpected matrix: %+v", m)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "m.toml", `version = 1

[[rules]]
name = "discrete"
priority = 5

[rules.when]
accelerator = ["discrete"]

[[rules.candidates]]
label = "full fallback"
precision = "full"
attention = "standard"
memory = "medium"
`)
	m, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.Rules[0].Candidates[0].Label != "full fallback" {
		t.Fatalf("unexpected matrix: %+v", m)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil || !IsValidationError(err) {
		t.Fatalf("expected validation error on empty path, got %v", err)
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "m.txt", "nope")
	if _, err := Load(p); err == nil || !IsValidationError(err) {
		t.Fatalf("expected unsupported extension error, got %v", err)
	}
}

func TestLoadDefault(t *testing.T) {
	m, err := LoadDefault()
	if err != nil {
		t.Fatalf("embedded matrix must validate: %v", err)
	}
	if m.Version != 1 || len(m.Rules) < 4 {
		t.Fatalf("unexpected embedded matrix: version=%d rules=%d", m.Version, len(m.Rules))
	}
}

func TestSchemaRejectsMalformed(t *testing.T) {
	d := t.TempDir()
	cases := map[string]string{
		"no-rules.yaml":      "version: 1\nrules: []\n",
		"no-candidates.yaml": "version: 1\nrules:\n  - name: r\n    priority: 1\n    candidates: []\n",
		"bad-precision.yaml": strings.Replace(validYAML, "autocast", "fp17", 1),
		"bad-field.yaml":     strings.Replace(validYAML, "priority", "priorty", 1),
	}
	for name, content := range cases {
		p := writeTempFile(t, d, name, content)
		if _, err := Load(p); err == nil || !IsValidationError(err) {
			t.Fatalf("%s: expected schema validation error, got %v", name, err)
		}
	}
}

func TestValidateRejectsUnsafeCombo(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "m.yaml", `version: 1
rules:
  - name: bad
    priority: 1
    when:
      accelerator: [discrete]
      requires: [fastAttention]
    candidates:
      - label: full fused
        precision: full
        attention: fused
        memory: none
`)
	_, err := Load(p)
	if err == nil || !IsValidationError(err) {
		t.Fatalf("expected unsafe-combo rejection, got %v", err)
	}
	if !strings.Contains(err.Error(), "known-safe") {
		t.Fatalf("error should name the known-safe set: %v", err)
	}
}

func TestValidateRejectsAcceleratorContradiction(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "m.yaml", `version: 1
rules:
  - name: contradictory
    priority: 1
    when:
      accelerator: [none]
    candidates:
      - label: autocast on nothing
        precision: autocast
        attention: subQuadratic
        memory: low
`)
	_, err := Load(p)
	if err == nil || !IsValidationError(err) {
		t.Fatalf("expected contradiction rejection, got %v", err)
	}
}

func TestValidateRejectsFusedWithoutCapability(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "m.yaml", `version: 1
rules:
  - name: fused-anywhere
    priority: 1
    when:
      accelerator: [discrete]
    candidates:
      - label: fused
        precision: autocast
        attention: fused
        memory: none
`)
	_, err := Load(p)
	if err == nil || !IsValidationError(err) {
		t.Fatalf("expected fused-without-capability rejection, got %v", err)
	}
}

func TestValidateRejectsDuplicateRuleNames(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "m.yaml", validYAML+`  - name: discrete
    priority: 40
    when:
      accelerator: [discrete]
    candidates:
      - label: second
        precision: full
        attention: standard
        memory: none
`)
	_, err := Load(p)
	if err == nil || !IsValidationError(err) {
		t.Fatalf("expected duplicate-name rejection, got %v", err)
	}
}
