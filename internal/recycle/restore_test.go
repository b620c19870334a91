package recycle

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"recyclectl/internal/model"
	"recyclectl/internal/storage"
)

func restoreOptions(t *testing.T, env *testEnv) RestoreOptions {
	t.Helper()

	roots, err := storage.NewRootSet(env.root)
	require.NoError(t, err)

	return RestoreOptions{ProfileRoots: roots}
}

func cleanOne(t *testing.T, env *testEnv, target model.Target) model.Batch {
	t.Helper()

	summary, err := env.store.Clean([]model.Target{target}, CleanOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, summary.SuccessCount)

	batch, err := FindBatch(env.log, summary.BatchID)
	require.NoError(t, err)
	require.Len(t, batch.Entries, 1)
	return batch
}

func TestRestoreCleanSkipOverwriteScenario(t *testing.T) {
	env := newTestEnv(t)
	restorer := NewRestorer(env.log, env.recycleRoot)

	target := env.writeDir(t, "cache-a", "12345")
	batch := cleanOne(t, env, target)
	recycled := batch.Entries[0].RecyclePath
	require.DirExists(t, recycled)
	require.NoDirExists(t, target.Path)

	// Recreate the source with different content, then restore with skip.
	require.NoError(t, os.MkdirAll(target.Path, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(target.Path, "payload"), []byte("fresh"), 0o644))

	opts := restoreOptions(t, env)
	opts.OnConflict = func(entry model.BatchEntry, destination string) ConflictDecision {
		return ConflictDecision{Action: ConflictSkip}
	}

	summary, err := restorer.Restore(batch, opts)
	require.NoError(t, err)
	require.Equal(t, 1, summary.SkippedCount)
	require.DirExists(t, recycled)

	content, err := os.ReadFile(filepath.Join(target.Path, "payload"))
	require.NoError(t, err)
	require.Equal(t, "fresh", string(content))

	// Replaying the skip is idempotent.
	batch, err = FindBatch(env.log, batch.ID)
	require.NoError(t, err)
	summary, err = restorer.Restore(batch, opts)
	require.NoError(t, err)
	require.Equal(t, 1, summary.SkippedCount)

	// Now overwrite: destination is replaced by the recycled payload and the
	// recycle item is consumed.
	opts.OnConflict = func(entry model.BatchEntry, destination string) ConflictDecision {
		return ConflictDecision{Action: ConflictOverwrite}
	}
	batch, err = FindBatch(env.log, batch.ID)
	require.NoError(t, err)
	summary, err = restorer.Restore(batch, opts)
	require.NoError(t, err)
	require.Equal(t, 1, summary.SuccessCount)
	require.NoDirExists(t, recycled)

	content, err = os.ReadFile(filepath.Join(target.Path, "payload"))
	require.NoError(t, err)
	require.Equal(t, "12345", string(content))
}

func TestRestoreRenameKeepsBothCopies(t *testing.T) {
	env := newTestEnv(t)
	restorer := NewRestorer(env.log, env.recycleRoot)

	target := env.writeDir(t, "cache-a", "original")
	batch := cleanOne(t, env, target)

	require.NoError(t, os.MkdirAll(target.Path, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(target.Path, "payload"), []byte("newer"), 0o644))

	opts := restoreOptions(t, env)
	opts.OnConflict = func(entry model.BatchEntry, destination string) ConflictDecision {
		return ConflictDecision{Action: ConflictRename}
	}

	summary, err := restorer.Restore(batch, opts)
	require.NoError(t, err)
	require.Equal(t, 1, summary.SuccessCount)

	content, err := os.ReadFile(filepath.Join(target.Path, "payload"))
	require.NoError(t, err)
	require.Equal(t, "newer", string(content))

	entries, err := os.ReadDir(env.root)
	require.NoError(t, err)

	var renamed string
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "cache-a.restored-") {
			renamed = filepath.Join(env.root, entry.Name())
		}
	}
	require.NotEmpty(t, renamed)

	content, err = os.ReadFile(filepath.Join(renamed, "payload"))
	require.NoError(t, err)
	require.Equal(t, "original", string(content))
}

func TestRestoreVetoesDestinationOutsideProfileRoot(t *testing.T) {
	env := newTestEnv(t)
	restorer := NewRestorer(env.log, env.recycleRoot)

	recycled := filepath.Join(env.recycleRoot, "b1", "0001_item")
	require.NoError(t, os.MkdirAll(recycled, 0o755))

	batch := model.Batch{
		ID:      "b1",
		Entries: []model.BatchEntry{{SourcePath: "/somewhere/else/item", RecyclePath: recycled}},
	}

	conflictConsulted := false
	opts := restoreOptions(t, env)
	opts.OnConflict = func(entry model.BatchEntry, destination string) ConflictDecision {
		conflictConsulted = true
		return ConflictDecision{Action: ConflictOverwrite}
	}

	summary, err := restorer.Restore(batch, opts)
	require.NoError(t, err)
	require.Equal(t, 1, summary.SkippedCount)
	require.False(t, conflictConsulted)
	require.DirExists(t, recycled)

	records, err := env.log.ReadAll()
	require.NoError(t, err)
	last := records[len(records)-1]
	require.Equal(t, model.StatusSkippedInvalidPath, last.Status)
	require.Equal(t, model.ReasonOutsideProfileRoot, last.InvalidReason)
}

func TestRestoreVetoesRecyclePathOutsideRecycleRoot(t *testing.T) {
	env := newTestEnv(t)
	restorer := NewRestorer(env.log, env.recycleRoot)

	// A tampered log entry whose recycle path points outside the recycle root.
	stray := filepath.Join(t.TempDir(), "stray")
	require.NoError(t, os.MkdirAll(stray, 0o755))

	batch := model.Batch{
		ID:      "b1",
		Entries: []model.BatchEntry{{SourcePath: filepath.Join(env.root, "item"), RecyclePath: stray}},
	}

	summary, err := restorer.Restore(batch, restoreOptions(t, env))
	require.NoError(t, err)
	require.Equal(t, 1, summary.SkippedCount)
	require.DirExists(t, stray)

	records, err := env.log.ReadAll()
	require.NoError(t, err)
	last := records[len(records)-1]
	require.Equal(t, model.StatusSkippedInvalidPath, last.Status)
	require.Equal(t, model.ReasonOutsideRecycleRoot, last.InvalidReason)
}

func TestRestoreRenameConflictsInSameSecondDoNotCollide(t *testing.T) {
	env := newTestEnv(t)
	restorer := NewRestorer(env.log, env.recycleRoot)

	destination := filepath.Join(env.root, "cache-a")
	require.NoError(t, os.MkdirAll(destination, 0o755))

	// Two recycled copies of the same source, restored back to back against the
	// occupied destination; both renames must land on distinct paths.
	var entries []model.BatchEntry
	for i := 1; i <= 2; i++ {
		recycled := filepath.Join(env.recycleRoot, "b1", fmt.Sprintf("%04d_cache-a", i))
		require.NoError(t, os.MkdirAll(recycled, 0o755))
		entries = append(entries, model.BatchEntry{SourcePath: destination, RecyclePath: recycled})
	}
	batch := model.Batch{ID: "b1", Entries: entries}

	opts := restoreOptions(t, env)
	opts.OnConflict = func(entry model.BatchEntry, destination string) ConflictDecision {
		return ConflictDecision{Action: ConflictRename, ApplyToAll: true}
	}

	summary, err := restorer.Restore(batch, opts)
	require.NoError(t, err)
	require.Equal(t, 2, summary.SuccessCount)
	require.Zero(t, summary.FailedCount)

	dirEntries, err := os.ReadDir(env.root)
	require.NoError(t, err)
	renamed := 0
	for _, entry := range dirEntries {
		if strings.HasPrefix(entry.Name(), "cache-a.restored-") {
			renamed++
		}
	}
	require.Equal(t, 2, renamed)
}

func TestRestoreSkipsMissingRecycleItem(t *testing.T) {
	env := newTestEnv(t)
	restorer := NewRestorer(env.log, env.recycleRoot)

	batch := model.Batch{
		ID: "b1",
		Entries: []model.BatchEntry{{
			SourcePath:  filepath.Join(env.root, "item"),
			RecyclePath: filepath.Join(env.recycleRoot, "b1", "0001_item"),
		}},
	}

	summary, err := restorer.Restore(batch, restoreOptions(t, env))
	require.NoError(t, err)
	require.Equal(t, 1, summary.SkippedCount)

	records, err := env.log.ReadAll()
	require.NoError(t, err)
	require.Equal(t, model.StatusSkippedNoRecycle, records[len(records)-1].Status)
}

func TestRestoreApplyToAllMemoizesDecision(t *testing.T) {
	env := newTestEnv(t)
	restorer := NewRestorer(env.log, env.recycleRoot)

	targets := []model.Target{
		env.writeDir(t, "cache-a", "aa"),
		env.writeDir(t, "cache-b", "bb"),
		env.writeDir(t, "cache-c", "cc"),
	}
	summary, err := env.store.Clean(targets, CleanOptions{})
	require.NoError(t, err)

	for _, target := range targets {
		require.NoError(t, os.MkdirAll(target.Path, 0o755))
	}

	batch, err := FindBatch(env.log, summary.BatchID)
	require.NoError(t, err)

	calls := 0
	opts := restoreOptions(t, env)
	opts.OnConflict = func(entry model.BatchEntry, destination string) ConflictDecision {
		calls++
		return ConflictDecision{Action: ConflictOverwrite, ApplyToAll: true}
	}

	restoreSummary, err := restorer.Restore(batch, opts)
	require.NoError(t, err)
	require.Equal(t, 3, restoreSummary.SuccessCount)
	require.Equal(t, 1, calls)
}

func TestRestoreProgressCallbackStopsBetweenItems(t *testing.T) {
	env := newTestEnv(t)
	restorer := NewRestorer(env.log, env.recycleRoot)

	targets := []model.Target{
		env.writeDir(t, "cache-a", "aa"),
		env.writeDir(t, "cache-b", "bb"),
	}
	summary, err := env.store.Clean(targets, CleanOptions{})
	require.NoError(t, err)

	batch, err := FindBatch(env.log, summary.BatchID)
	require.NoError(t, err)
	require.Len(t, batch.Entries, 2)

	opts := restoreOptions(t, env)
	opts.OnProgress = func(index int, total int, entry model.BatchEntry) bool {
		return index == 0
	}

	restoreSummary, err := restorer.Restore(batch, opts)
	require.NoError(t, err)
	require.Equal(t, 1, restoreSummary.SuccessCount+restoreSummary.SkippedCount+restoreSummary.FailedCount)
}

func TestRestoreDryRunLeavesRecycleItemInPlace(t *testing.T) {
	env := newTestEnv(t)
	restorer := NewRestorer(env.log, env.recycleRoot)

	target := env.writeDir(t, "cache-a", "aaaa")
	batch := cleanOne(t, env, target)

	opts := restoreOptions(t, env)
	opts.DryRun = true

	summary, err := restorer.Restore(batch, opts)
	require.NoError(t, err)
	require.Equal(t, 1, summary.SuccessCount)
	require.DirExists(t, batch.Entries[0].RecyclePath)
	require.NoDirExists(t, target.Path)

	records, err := env.log.ReadAll()
	require.NoError(t, err)
	require.Equal(t, model.StatusDryRun, records[len(records)-1].Status)
}
