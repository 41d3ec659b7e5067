package logger_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/schema-auditor/internal/logger"
)

func TestNew_WritesJSONToOutputPath(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "audit.log")

	log, err := logger.New(logger.Config{Level: "debug", OutputPaths: []string{out}})
	require.NoError(t, err)

	log.With(logger.JobID("job-1")).Info("page fetched", logger.URL("https://example.com/"), logger.Int("status", 200))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"page fetched"`)
	assert.Contains(t, string(data), `"job_id":"job-1"`)
	assert.Contains(t, string(data), `"status":200`)
}

func TestNew_LevelFiltersDebug(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "audit.log")

	log, err := logger.New(logger.Config{Level: "warn", OutputPaths: []string{out}})
	require.NoError(t, err)

	log.Debug("hidden")
	log.Warn("visible")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "visible")
}

func TestNop(t *testing.T) {
	t.Parallel()

	log := logger.NewNop()
	log.With(logger.String("k", "v")).Error("ignored", logger.Error(assert.AnError))
	assert.NoError(t, log.Sync())
}
