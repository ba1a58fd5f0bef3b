package matrix

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"webuictl/pkg/types"
)

//go:embed schema.json
var schemaJSON []byte

//go:embed default_matrix.yaml
var defaultMatrixYAML []byte

var ruleSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("matrix.schema.json", bytes.NewReader(schemaJSON)); err != nil {
		panic(err)
	}
	return c.MustCompile("matrix.schema.json")
}

// Load reads, schema-checks, and semantically validates a rule table.
// Supported extensions: .yaml/.yml, .json, .toml.
func Load(path string) (*Matrix, error) {
	if path == "" {
		return nil, ErrValidation("empty matrix path", nil)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, ErrValidation("read "+path, err)
	}
	var generic any
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &generic); err != nil {
			return nil, ErrValidation("parse yaml", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &generic); err != nil {
			return nil, ErrValidation("parse json", err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &generic); err != nil {
			return nil, ErrValidation("parse toml", err)
		}
	default:
		return nil, ErrValidation(fmt.Sprintf("unsupported matrix extension: %s", ext), nil)
	}
	return fromGeneric(generic)
}

// LoadDefault returns the embedded matrix. It goes through the same
// validation path as user-supplied files.
func LoadDefault() (*Matrix, error) {
	var generic any
	if err := yaml.Unmarshal(defaultMatrixYAML, &generic); err != nil {
		return nil, ErrValidation("parse embedded matrix", err)
	}
	return fromGeneric(generic)
}

// fromGeneric normalizes the decoded document through JSON so the schema
// validator sees uniform types regardless of source format, then decodes into
// the typed Matrix and runs semantic checks.
func fromGeneric(generic any) (*Matrix, error) {
	normalized, err := json.Marshal(generic)
	if err != nil {
		return nil, ErrValidation("normalize document", err)
	}
	var doc any
	if err := json.Unmarshal(normalized, &doc); err != nil {
		return nil, ErrValidation("normalize document", err)
	}
	if err := ruleSchema.Validate(doc); err != nil {
		return nil, ErrValidation("schema", err)
	}
	var m Matrix
	if err := json.Unmarshal(normalized, &m); err != nil {
		return nil, ErrValidation("decode rules", err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// safeAttentionPrecision is the known-safe set of precision/backend pairings.
var safeAttentionPrecision = map[types.Attention][]types.Precision{
	types.AttentionStandard:     {types.PrecisionFull, types.PrecisionAutocast, types.PrecisionHalf},
	types.AttentionSubQuadratic: {types.PrecisionFull, types.PrecisionAutocast},
	types.AttentionSplitV1:      {types.PrecisionFull, types.PrecisionAutocast},
	types.AttentionFused:        {types.PrecisionAutocast, types.PrecisionHalf},
}

// validate enforces the semantic invariants the schema cannot express.
func (m *Matrix) validate() error {
	seen := map[string]bool{}
	for _, r := range m.Rules {
		if seen[r.Name] {
			return ErrValidation("duplicate rule name: "+r.Name, nil)
		}
		seen[r.Name] = true

		cpuOnly := len(r.When.Accelerator) == 1 && r.When.Accelerator[0] == types.AcceleratorNone
		requiresFast := false
		for _, c := range r.When.Requires {
			if c == types.CapFastAttention {
				requiresFast = true
			}
		}
		for _, cand := range r.Candidates {
			if !precisionAllowed(cand.Attention, cand.Precision) {
				return ErrValidation(fmt.Sprintf("rule %q: candidate %q combines %s attention with %s precision, which is not in the known-safe set",
					r.Name, cand.Label, cand.Attention, cand.Precision), nil)
			}
			if cpuOnly && (cand.Precision != types.PrecisionFull || cand.Attention != types.AttentionStandard) {
				return ErrValidation(fmt.Sprintf("rule %q demands accelerator absence but candidate %q needs an accelerator (%s/%s)",
					r.Name, cand.Label, cand.Precision, cand.Attention), nil)
			}
			if cand.Attention == types.AttentionFused && !requiresFast {
				return ErrValidation(fmt.Sprintf("rule %q: candidate %q uses fused attention but the rule does not require the fastAttention capability",
					r.Name, cand.Label), nil)
			}
		}
		if r.When.MinVRAMBytes > 0 && r.When.MaxVRAMBytes > 0 && r.When.MinVRAMBytes > r.When.MaxVRAMBytes {
			return ErrValidation(fmt.Sprintf("rule %q: min_vram_bytes exceeds max_vram_bytes", r.Name), nil)
		}
	}
	return nil
}

func precisionAllowed(a types.Attention, p types.Precision) bool {
	for _, ok := range safeAttentionPrecision[a] {
		if ok == p {
			return true
		}
	}
	return false
}
