package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"recyclectl/internal/config"
	"recyclectl/internal/model"
	"recyclectl/internal/recycle"
)

func newTestApp(t *testing.T) (*App, string) {
	t.Helper()

	base := t.TempDir()
	dataRoot := filepath.Join(base, "home")
	require.NoError(t, os.MkdirAll(dataRoot, 0o755))

	stateRoot := filepath.Join(base, "state")
	cfg := &config.Config{
		StateRoot:    stateRoot,
		RecycleRoot:  filepath.Join(stateRoot, "recycle"),
		AuditLogFile: filepath.Join(stateRoot, "audit.log"),
		ProfileRoot:  dataRoot,
		ScanRoots:    []string{dataRoot},
		Retention: recycle.Policy{
			Enabled:        true,
			MaxAgeDays:     30,
			MinKeepBatches: 0,
		},
		ServerPort: "0",
	}
	require.NoError(t, cfg.Validate())

	application, err := NewWithConfig(cfg)
	require.NoError(t, err)
	return application, dataRoot
}

func TestCleanRestoreRoundTrip(t *testing.T) {
	application, dataRoot := newTestApp(t)

	cacheDir := filepath.Join(dataRoot, ".cache")
	require.NoError(t, os.MkdirAll(cacheDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cacheDir, "blob"), []byte("12345"), 0o644))

	cleanSummary, err := application.Clean(context.Background(), []string{cacheDir}, false)
	require.NoError(t, err)
	require.Equal(t, 1, cleanSummary.SuccessCount)
	require.NoDirExists(t, cacheDir)

	batches, err := application.Batches()
	require.NoError(t, err)
	require.Len(t, batches, 1)

	restoreSummary, err := application.Restore(batches[0].ID, false, nil, nil)
	require.NoError(t, err)
	require.Equal(t, 1, restoreSummary.SuccessCount)

	content, err := os.ReadFile(filepath.Join(cacheDir, "blob"))
	require.NoError(t, err)
	require.Equal(t, "12345", string(content))
}

func TestRestoreUnknownBatch(t *testing.T) {
	application, _ := newTestApp(t)

	_, err := application.Restore("does-not-exist", false, nil, nil)
	require.ErrorIs(t, err, model.ErrBatchNotFound)
}

func TestLockIsReleasedBetweenOperations(t *testing.T) {
	application, dataRoot := newTestApp(t)

	cacheDir := filepath.Join(dataRoot, ".cache")
	require.NoError(t, os.MkdirAll(cacheDir, 0o755))

	_, err := application.Clean(context.Background(), []string{cacheDir}, false)
	require.NoError(t, err)

	// A second mutating operation must be able to take the lock again.
	_, err = application.Maintain(true)
	require.NoError(t, err)

	require.NoFileExists(t, filepath.Join(application.Config().StateRoot, ".lockfile"))
}

func TestMaintainDeletesAgedBatches(t *testing.T) {
	application, dataRoot := newTestApp(t)

	cacheDir := filepath.Join(dataRoot, ".cache")
	require.NoError(t, os.MkdirAll(cacheDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cacheDir, "blob"), []byte("abc"), 0o644))

	_, err := application.Clean(context.Background(), []string{cacheDir}, false)
	require.NoError(t, err)

	// Fresh batches are younger than MaxAgeDays, so nothing is selected.
	summary, err := application.Maintain(false)
	require.NoError(t, err)
	require.Zero(t, summary.DeletedBatches)
	require.Equal(t, 1, summary.RemainingBatches)
}
