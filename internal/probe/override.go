package probe

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"webuictl/pkg/types"
)

// LoadOverride reads a Profile from a file instead of probing, which lets an
// operator replay a reported environment. Supports .yaml/.yml, .json, .toml.
func LoadOverride(path string) (types.Profile, error) {
	var prof types.Profile
	if path == "" {
		return prof, fmt.Errorf("empty profile path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return prof, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &prof); err != nil {
			return prof, err
		}
	case ".json":
		if err := json.Unmarshal(b, &prof); err != nil {
			return prof, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &prof); err != nil {
			return prof, err
		}
	default:
		return prof, fmt.Errorf("unsupported profile extension: %s", ext)
	}
	if prof.Accelerator == "" {
		prof.Accelerator = types.AcceleratorUnknown
	}
	if prof.Capabilities == nil {
		prof.Capabilities = map[types.Capability]types.Presence{}
	}
	if prof.RuntimeVersion == "" {
		prof.RuntimeVersion = "unknown"
	}
	return prof, nil
}
