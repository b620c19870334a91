package recycle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"recyclectl/internal/audit"
	"recyclectl/internal/model"
)

func appendRecord(t *testing.T, log *audit.Log, record model.AuditRecord) {
	t.Helper()
	require.NoError(t, log.Append(record))
}

func TestRestorableBatchesExcludesRestoredAndMissing(t *testing.T) {
	base := t.TempDir()
	log, err := audit.New(filepath.Join(base, "audit.log"))
	require.NoError(t, err)

	existing := filepath.Join(base, "recycle", "b1", "0001_kept")
	require.NoError(t, os.MkdirAll(existing, 0o755))
	restoredPath := filepath.Join(base, "recycle", "b1", "0002_restored")
	require.NoError(t, os.MkdirAll(restoredPath, 0o755))
	missing := filepath.Join(base, "recycle", "b1", "0003_gone")

	appendRecord(t, log, model.AuditRecord{
		Action: model.ActionCleanup, OccurredAt: "2026-08-01T10:00:00Z", BatchID: "b1",
		SourcePath: "/src/kept", RecyclePath: existing, Status: model.StatusSuccess,
		Metadata: map[string]any{"size": 10},
	})
	appendRecord(t, log, model.AuditRecord{
		Action: model.ActionCleanup, OccurredAt: "2026-08-01T10:00:01Z", BatchID: "b1",
		SourcePath: "/src/restored", RecyclePath: restoredPath, Status: model.StatusSuccess,
		Metadata: map[string]any{"size": 20},
	})
	appendRecord(t, log, model.AuditRecord{
		Action: model.ActionCleanup, OccurredAt: "2026-08-01T10:00:02Z", BatchID: "b1",
		SourcePath: "/src/gone", RecyclePath: missing, Status: model.StatusSuccess,
		Metadata: map[string]any{"size": 40},
	})
	// Restore record precedes its cleanup in some replays; order must not matter.
	appendRecord(t, log, model.AuditRecord{
		Action: model.ActionRestore, OccurredAt: "2026-08-02T09:00:00Z", BatchID: "b1",
		SourcePath: "/src/restored", RecyclePath: restoredPath, Status: model.StatusSuccess,
	})

	batches, err := RestorableBatches(log)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	require.Equal(t, "b1", batches[0].ID)
	require.Len(t, batches[0].Entries, 1)
	require.Equal(t, "/src/kept", batches[0].Entries[0].SourcePath)
	require.Equal(t, int64(10), batches[0].TotalBytes)
}

func TestRestorableBatchesNewestFirst(t *testing.T) {
	base := t.TempDir()
	log, err := audit.New(filepath.Join(base, "audit.log"))
	require.NoError(t, err)

	for i, id := range []string{"b-old", "b-new"} {
		path := filepath.Join(base, "recycle", id, "0001_x")
		require.NoError(t, os.MkdirAll(path, 0o755))
		appendRecord(t, log, model.AuditRecord{
			Action: model.ActionCleanup, BatchID: id,
			OccurredAt: []string{"2026-08-01T10:00:00Z", "2026-08-05T10:00:00Z"}[i],
			SourcePath: "/src/" + id, RecyclePath: path, Status: model.StatusSuccess,
		})
	}

	batches, err := RestorableBatches(log)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	require.Equal(t, "b-new", batches[0].ID)
	require.Equal(t, "b-old", batches[1].ID)
}

func TestRestorableBatchesIgnoresFailedAndDryRunCleanups(t *testing.T) {
	base := t.TempDir()
	log, err := audit.New(filepath.Join(base, "audit.log"))
	require.NoError(t, err)

	appendRecord(t, log, model.AuditRecord{
		Action: model.ActionCleanup, BatchID: "b1", OccurredAt: "2026-08-01T10:00:00Z",
		SourcePath: "/src/a", Status: model.StatusDryRun,
	})
	appendRecord(t, log, model.AuditRecord{
		Action: model.ActionCleanup, BatchID: "b1", OccurredAt: "2026-08-01T10:00:01Z",
		SourcePath: "/src/b", Status: model.StatusFailed, Error: "boom",
	})

	batches, err := RestorableBatches(log)
	require.NoError(t, err)
	require.Empty(t, batches)
}

func TestFindBatch(t *testing.T) {
	base := t.TempDir()
	log, err := audit.New(filepath.Join(base, "audit.log"))
	require.NoError(t, err)

	path := filepath.Join(base, "recycle", "b1", "0001_x")
	require.NoError(t, os.MkdirAll(path, 0o755))
	appendRecord(t, log, model.AuditRecord{
		Action: model.ActionCleanup, BatchID: "b1", OccurredAt: "2026-08-01T10:00:00Z",
		SourcePath: "/src/a", RecyclePath: path, Status: model.StatusSuccess,
	})

	batch, err := FindBatch(log, "b1")
	require.NoError(t, err)
	require.Equal(t, "b1", batch.ID)

	_, err = FindBatch(log, "nope")
	require.ErrorIs(t, err, model.ErrBatchNotFound)
}
