package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "0.0.0.0:8000", cfg.Addr())

	assert.Equal(t, "google/gemini-2.5-flash", cfg.AI.Model)
	assert.Empty(t, cfg.AI.APIKey)

	assert.Equal(t, DefaultModules, cfg.Backend.Modules)
	assert.Equal(t, 15*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, 16384, cfg.Backend.ModuleMaxBytes)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.RateLimit.Enabled)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":                     "9000",
		"AI_API_KEY":               "sk-test",
		"AI_MODEL":                 "test/model",
		"BACKEND_URL":              "http://mgm.local/app/login.jsp",
		"BACKEND_USERNAME":         "farm",
		"BACKEND_PASSWORD":         "secret",
		"BACKEND_MODULES":          "Pond,Feed",
		"BACKEND_TIMEOUT":          "2s",
		"BACKEND_MODULE_MAX_BYTES": "100",
		"LOG_LEVEL":                "debug",
		"RATE_LIMIT_ENABLED":       "false",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "sk-test", cfg.AI.APIKey)
	assert.Equal(t, "test/model", cfg.AI.Model)
	assert.Equal(t, "http://mgm.local/app/login.jsp", cfg.Backend.URL)
	assert.Equal(t, "farm", cfg.Backend.Username)
	assert.Equal(t, "secret", cfg.Backend.Password)
	assert.Equal(t, []string{"Pond", "Feed"}, cfg.Backend.Modules)
	assert.Equal(t, 2*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, 100, cfg.Backend.ModuleMaxBytes)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestLoadInvalidValueFallsBackToDefault(t *testing.T) {
	t.Setenv("BACKEND_TIMEOUT", "soon")

	_, err := Load()
	assert.Error(t, err)

	cfg := LoadOrDefault()
	assert.Equal(t, 15*time.Second, cfg.Backend.Timeout)
}

func TestModuleSpecsFromEnvironment(t *testing.T) {
	b := BackendConfig{Modules: []string{"Customer", " ", " Order "}}

	specs, persona, err := b.ModuleSpecs()
	require.NoError(t, err)
	assert.Empty(t, persona)
	assert.Equal(t, []ModuleSpec{{Name: "Customer"}, {Name: "Order"}}, specs)
}

func TestLoadModulesFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "modules.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`persona: Shrimp expert.
modules:
  - name: Customer
  - name: Inventory
    xpath: //table
`), 0o644))

	tomlPath := filepath.Join(dir, "modules.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte(`persona = "Shrimp expert."

[[modules]]
name = "Customer"

[[modules]]
name = "Inventory"
xpath = "//table"
`), 0o644))

	for _, path := range []string{yamlPath, tomlPath} {
		t.Run(filepath.Ext(path), func(t *testing.T) {
			mf, err := LoadModulesFile(path)
			require.NoError(t, err)
			assert.Equal(t, "Shrimp expert.", mf.Persona)
			require.Len(t, mf.Modules, 2)
			assert.Equal(t, "Customer", mf.Modules[0].Name)
			assert.Equal(t, "Inventory", mf.Modules[1].Name)
			assert.Equal(t, "//table", mf.Modules[1].XPath)

			specs, persona, err := BackendConfig{ModulesFile: path}.ModuleSpecs()
			require.NoError(t, err)
			assert.Equal(t, mf.Modules, specs)
			assert.Equal(t, "Shrimp expert.", persona)
		})
	}
}

func TestLoadModulesFileErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"unsupported extension", "modules.ini", "modules=Customer"},
		{"missing name", "missing.yaml", "modules:\n  - xpath: //div\n"},
		{"duplicate module", "dup.yaml", "modules:\n  - name: Order\n  - name: Order\n"},
		{"malformed toml", "bad.toml", "modules = [[["},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := LoadModulesFile(path)
			assert.Error(t, err)
		})
	}

	_, err := LoadModulesFile(filepath.Join(dir, "absent.yaml"))
	assert.Error(t, err)
}
