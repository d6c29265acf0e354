package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFile(t *testing.T) {
	tmpDir := t.TempDir()

	p, warning := Load(filepath.Join(tmpDir, "policy.json"))

	assert.Empty(t, warning)
	assert.Equal(t, Default(), p)
	assert.True(t, p.Gates.Plan)
	assert.True(t, p.Gates.Design)
	assert.True(t, p.Gates.Tasks)
	assert.True(t, p.Gates.Review)
	assert.True(t, p.Execution.AutoRunLoop)
}

func TestLoad_ValidPolicy(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "policy.json")
	content := `{
  "version": 1,
  "mode": "soft",
  "gates": {"plan": true, "design": false, "tasks": false, "review": true},
  "execution": {"autoRunLoop": false, "stopOnFailedChecks": true, "stopOnUncertainty": false, "maxConsecutiveTasks": 3}
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	p, warning := Load(path)

	assert.Empty(t, warning)
	assert.Equal(t, ModeSoft, p.Mode)
	assert.True(t, p.Gates.Plan)
	assert.False(t, p.Gates.Design)
	assert.False(t, p.Execution.AutoRunLoop)
	assert.Equal(t, 3, p.Execution.MaxConsecutiveTasks)
}

func TestLoad_MalformedJSON(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "policy.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version": 1,`), 0644))

	p, warning := Load(path)

	assert.Contains(t, warning, "invalid JSON")
	assert.Equal(t, Default(), p)
}

func TestLoad_UnknownMode(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "policy.json")
	content := `{"version": 1, "mode": "yolo", "gates": {}, "execution": {}}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	p, warning := Load(path)

	assert.Contains(t, warning, "unknown mode")
	assert.Equal(t, Default(), p)
}

func TestLoad_WrongSchemaVersion(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "policy.json")
	content := `{"version": 2, "mode": "strict", "gates": {}, "execution": {}}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	p, warning := Load(path)

	assert.Contains(t, warning, "unsupported schema version")
	assert.Equal(t, Default(), p)
}

func TestValidate_NegativeMaxConsecutive(t *testing.T) {
	p := Default()
	p.Execution.MaxConsecutiveTasks = -1

	err := p.Validate()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "maxConsecutiveTasks")
}
