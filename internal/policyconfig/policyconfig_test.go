package policyconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cogbandwidth/router/internal/routing"
)

const validDoc = `
weights:
  slo_weight: 0.4
  uncertainty_weight: 0.25
  severity_weight: 0.25
  attention_weight: 0.1
thresholds:
  immediate_threshold: 0.75
  batch_threshold: 0.45
  min_confidence_for_auto: 0.85
  max_severity_for_auto: 2
  park_load_threshold: 0.7
  auto_min_slo_minutes: 15
  slo_horizon_minutes: 60
`

const invalidDoc = `
weights:
  slo_weight: 0.4
  uncertainty_weight: 0.25
  severity_weight: 0.25
  attention_weight: 0.1
thresholds:
  immediate_threshold: 0.2
  batch_threshold: 0.45
  min_confidence_for_auto: 0.85
  max_severity_for_auto: 2
  park_load_threshold: 0.7
  auto_min_slo_minutes: 15
  slo_horizon_minutes: 60
`

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadValidatesAndReturnsPolicy(t *testing.T) {
	path := writeFile(t, t.TempDir(), "policy.yaml", validDoc)
	policy, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, routing.DefaultThresholds(), policy.Thresholds())
}

func TestLoadRejectsInvalidDocument(t *testing.T) {
	path := writeFile(t, t.TempDir(), "policy.yaml", invalidDoc)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadReportsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestChecksumIsStableAndSensitiveToContent(t *testing.T) {
	a := checksum([]byte(validDoc))
	b := checksum([]byte(validDoc))
	c := checksum([]byte(invalidDoc))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestWatcherStartEmitsInitialPolicyChange(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "policy.yaml", validDoc)

	w, err := NewWatcher(path)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	select {
	case change := <-w.Changes():
		assert.Equal(t, routing.DefaultThresholds(), change.Policy.Thresholds())
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for initial policy change")
	}
}

func TestWatcherTryLoadDetectsChangeByChecksum(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "policy.yaml", validDoc)

	w, err := NewWatcher(path)
	require.NoError(t, err)

	_, sum1, err := w.tryLoad()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(invalidDoc), 0o644))
	_, _, err = w.tryLoad()
	require.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte(validDoc), 0o644))
	_, sum2, err := w.tryLoad()
	require.NoError(t, err)
	assert.Equal(t, sum1, sum2)
}
