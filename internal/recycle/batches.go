package recycle

import (
	"os"
	"sort"
	"time"

	"recyclectl/internal/audit"
	"recyclectl/internal/model"
)

// RestorableBatches replays the whole audit log and returns what can still be
// restored now, newest-first. A cleanup record survives when no later restore
// of its recyclePath succeeded and the recycle path still exists on disk;
// entries whose path was already removed are silently orphaned, not errors.
func RestorableBatches(log *audit.Log) ([]model.Batch, error) {
	records, err := log.ReadAll()
	if err != nil {
		return nil, err
	}

	restored := map[string]struct{}{}
	for _, record := range records {
		if record.Action == model.ActionRestore && record.Status == model.StatusSuccess && record.RecyclePath != "" {
			restored[record.RecyclePath] = struct{}{}
		}
	}

	type group struct {
		first   time.Time
		entries []model.BatchEntry
		bytes   int64
	}
	groups := map[string]*group{}

	for _, record := range records {
		if record.Action != model.ActionCleanup || record.Status != model.StatusSuccess {
			continue
		}
		if record.BatchID == "" || record.RecyclePath == "" {
			continue
		}
		if _, done := restored[record.RecyclePath]; done {
			continue
		}
		if _, statErr := os.Stat(record.RecyclePath); statErr != nil {
			continue
		}

		g := groups[record.BatchID]
		if g == nil {
			g = &group{first: record.Time()}
			groups[record.BatchID] = g
		}

		at := record.Time()
		if at.Before(g.first) {
			g.first = at
		}

		size := record.SizeBytes()
		g.entries = append(g.entries, model.BatchEntry{
			SourcePath:  record.SourcePath,
			RecyclePath: record.RecyclePath,
			Scope:       record.Scope,
			Size:        size,
			Metadata:    record.Metadata,
		})
		g.bytes += size
	}

	batches := make([]model.Batch, 0, len(groups))
	for id, g := range groups {
		batches = append(batches, model.Batch{
			ID:         id,
			FirstTime:  g.first,
			Entries:    g.entries,
			TotalBytes: g.bytes,
		})
	}

	sort.Slice(batches, func(i int, j int) bool {
		if !batches[i].FirstTime.Equal(batches[j].FirstTime) {
			return batches[i].FirstTime.After(batches[j].FirstTime)
		}
		return batches[i].ID > batches[j].ID
	})

	return batches, nil
}

// FindBatch returns the restorable batch with the given id.
func FindBatch(log *audit.Log, batchID string) (model.Batch, error) {
	batches, err := RestorableBatches(log)
	if err != nil {
		return model.Batch{}, err
	}

	for _, batch := range batches {
		if batch.ID == batchID {
			return batch, nil
		}
	}

	return model.Batch{}, model.ErrBatchNotFound
}
