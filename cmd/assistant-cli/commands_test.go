package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"versailles-assistant/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestPlanCommandIsOffline(t *testing.T) {
	out, err := run(t, "plan", "Visit", "with", "my", "kids", "this", "afternoon")
	require.NoError(t, err)

	var plan models.Plan
	require.NoError(t, json.Unmarshal([]byte(out), &plan))
	assert.NotEmpty(t, plan.SubQueries)
}

func TestRegistryValidateCommand(t *testing.T) {
	out, err := run(t, "registry", "validate", "--path", filepath.Join("..", "..", "configs", "activity-registry.json"))
	require.NoError(t, err)
	assert.Contains(t, out, "Found 5 activities")

	_, err = run(t, "registry", "validate", "--path", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestAskRequiresQuestion(t *testing.T) {
	_, err := run(t, "ask")
	assert.Error(t, err)
}

func TestSelectRequiresQuestion(t *testing.T) {
	_, err := run(t, "select")
	assert.Error(t, err)
}
