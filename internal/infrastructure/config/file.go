package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

// ModuleSpec describes one backend module entry in a modules file.
type ModuleSpec struct {
	Name string `yaml:"name" toml:"name"`
	// XPath optionally narrows an HTML module page to the matching nodes.
	XPath string `yaml:"xpath,omitempty" toml:"xpath,omitempty"`
}

// ModulesFile is the optional on-disk override for module enumeration and
// the assistant persona.
type ModulesFile struct {
	Persona string       `yaml:"persona,omitempty" toml:"persona,omitempty"`
	Modules []ModuleSpec `yaml:"modules" toml:"modules"`
}

// LoadModulesFile reads a YAML (.yaml, .yml) or TOML (.toml) modules file.
func LoadModulesFile(path string) (*ModulesFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read modules file: %w", err)
	}

	var mf ModulesFile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &mf)
	case ".toml":
		err = toml.Unmarshal(data, &mf)
	default:
		return nil, fmt.Errorf("unsupported modules file extension %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse modules file %s: %w", path, err)
	}

	seen := make(map[string]bool, len(mf.Modules))
	for i, m := range mf.Modules {
		name := strings.TrimSpace(m.Name)
		if name == "" {
			return nil, fmt.Errorf("modules[%d]: name is required", i)
		}
		if seen[name] {
			return nil, fmt.Errorf("modules[%d]: duplicate module %q", i, name)
		}
		seen[name] = true
		mf.Modules[i].Name = name
	}
	return &mf, nil
}

// ModuleSpecs returns the effective module enumeration: the modules file
// when configured, otherwise BACKEND_MODULES in order.
func (b BackendConfig) ModuleSpecs() ([]ModuleSpec, string, error) {
	if b.ModulesFile != "" {
		mf, err := LoadModulesFile(b.ModulesFile)
		if err != nil {
			return nil, "", err
		}
		return mf.Modules, mf.Persona, nil
	}

	specs := make([]ModuleSpec, 0, len(b.Modules))
	for _, name := range b.Modules {
		if name = strings.TrimSpace(name); name != "" {
			specs = append(specs, ModuleSpec{Name: name})
		}
	}
	return specs, "", nil
}
