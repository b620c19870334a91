package recycle

import (
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"recyclectl/internal/audit"
	"recyclectl/internal/model"
	"recyclectl/internal/storage"
	"recyclectl/pkg/opserror"
)

// Conflict actions when a restore destination already exists.
const (
	ConflictSkip      = "skip"
	ConflictOverwrite = "overwrite"
	ConflictRename    = "rename"
)

// ConflictDecision is the answer of a ConflictFunc. ApplyToAll extends the
// decision to every remaining conflict in the batch.
type ConflictDecision struct {
	Action     string
	ApplyToAll bool
}

// ConflictFunc decides what to do with an occupied destination. It is a
// synchronous strategy function so the restore loop stays linear.
type ConflictFunc func(entry model.BatchEntry, destination string) ConflictDecision

// ProgressFunc observes each item before it is processed. Returning false
// stops further processing between items; the current batch state is left
// as-is and already-logged outcomes stand.
type ProgressFunc func(index int, total int, entry model.BatchEntry) bool

type RestoreOptions struct {
	DryRun          bool
	ProfileRoots    *storage.RootSet
	GovernanceRoots *storage.RootSet
	OnConflict      ConflictFunc
	OnProgress      ProgressFunc
}

type Restorer struct {
	log         *audit.Log
	recycleRoot string
}

func NewRestorer(log *audit.Log, recycleRoot string) *Restorer {
	return &Restorer{log: log, recycleRoot: recycleRoot}
}

// Restore replays a reconstructed batch item by item. Destination safety is
// validated before the conflict callback is ever consulted, so a path outside
// every allowed root is vetoed regardless of what the caller would answer.
// One item's failure never aborts the batch; only a failed log append does.
func (r *Restorer) Restore(batch model.Batch, opts RestoreOptions) (model.RestoreSummary, error) {
	summary := model.RestoreSummary{BatchID: batch.ID}

	// Apply-to-all memoization threads through the loop as an accumulator,
	// keeping the engine re-entrant.
	var applied *ConflictDecision

	for index, entry := range batch.Entries {
		if opts.OnProgress != nil && !opts.OnProgress(index, len(batch.Entries), entry) {
			break
		}

		record := model.AuditRecord{
			Action:      model.ActionRestore,
			OccurredAt:  model.Now(),
			Scope:       entry.Scope,
			BatchID:     batch.ID,
			SourcePath:  entry.SourcePath,
			RecyclePath: entry.RecyclePath,
			Metadata:    entryMetadata(entry),
		}

		// The recycle path is log-supplied; refuse to move anything that does
		// not lie under the recycle root.
		if !storage.IsAllowed(r.recycleRoot, entry.RecyclePath) {
			record.Status = model.StatusSkippedInvalidPath
			record.InvalidReason = model.ReasonOutsideRecycleRoot
			summary.SkippedCount++
			if err := r.log.Append(record); err != nil {
				return summary, err
			}
			continue
		}

		if _, err := os.Stat(entry.RecyclePath); os.IsNotExist(err) {
			record.Status = model.StatusSkippedNoRecycle
			summary.SkippedCount++
			if err := r.log.Append(record); err != nil {
				return summary, err
			}
			continue
		}

		destination := entry.SourcePath

		if reason, ok := r.validateDestination(entry, destination, opts); !ok {
			record.Status = model.StatusSkippedInvalidPath
			record.InvalidReason = reason
			summary.SkippedCount++
			if err := r.log.Append(record); err != nil {
				return summary, err
			}
			continue
		}

		overwrite := false
		if _, err := os.Stat(destination); err == nil {
			decision := r.resolveConflict(entry, destination, opts, &applied)
			switch decision.Action {
			case ConflictOverwrite:
				overwrite = true
				record.Risk = "overwrite_existing"
			case ConflictRename:
				destination = renamedDestination(destination)
			default:
				record.Status = model.StatusSkippedConflict
				summary.SkippedCount++
				if err := r.log.Append(record); err != nil {
					return summary, err
				}
				continue
			}
		}

		if opts.DryRun {
			record.Status = model.StatusDryRun
			record.RestoredPath = destination
			summary.SuccessCount++
			summary.BytesRestored += entry.Size
			if err := r.log.Append(record); err != nil {
				return summary, err
			}
			continue
		}

		if overwrite {
			if err := os.RemoveAll(destination); err != nil {
				r.recordFailure(&record, &summary, entry, err)
				if appendErr := r.log.Append(record); appendErr != nil {
					return summary, appendErr
				}
				continue
			}
		}

		// Moving back removes the recycle item as a side effect.
		if err := storage.MovePath(entry.RecyclePath, destination); err != nil {
			r.recordFailure(&record, &summary, entry, err)
			if appendErr := r.log.Append(record); appendErr != nil {
				return summary, appendErr
			}
			continue
		}

		record.Status = model.StatusSuccess
		record.RestoredPath = destination
		summary.SuccessCount++
		summary.BytesRestored += entry.Size
		if err := r.log.Append(record); err != nil {
			return summary, err
		}
	}

	return summary, nil
}

// validateDestination checks the write target against the allow-listed roots:
// governance roots for system-scoped entries, profile roots otherwise.
func (r *Restorer) validateDestination(entry model.BatchEntry, destination string, opts RestoreOptions) (string, bool) {
	if _, err := filepath.Abs(destination); err != nil {
		return model.ReasonUnresolvablePath, false
	}

	roots := opts.ProfileRoots
	if entry.Scope == model.ScopeSystem {
		roots = opts.GovernanceRoots
	}

	if roots.Empty() || !roots.Contains(destination) {
		return model.ReasonOutsideProfileRoot, false
	}

	return "", true
}

func (r *Restorer) resolveConflict(entry model.BatchEntry, destination string, opts RestoreOptions, applied **ConflictDecision) ConflictDecision {
	if *applied != nil {
		return **applied
	}

	decision := ConflictDecision{Action: ConflictSkip}
	if opts.OnConflict != nil {
		decision = opts.OnConflict(entry, destination)
	}

	switch decision.Action {
	case ConflictSkip, ConflictOverwrite, ConflictRename:
	default:
		decision.Action = ConflictSkip
	}

	if decision.ApplyToAll {
		memo := decision
		*applied = &memo
	}

	return decision
}

func (r *Restorer) recordFailure(record *model.AuditRecord, summary *model.RestoreSummary, entry model.BatchEntry, err error) {
	kind := opserror.Classify(err)
	record.Status = model.StatusFailed
	record.Error = err.Error()
	record.ErrorKind = string(kind)
	summary.FailedCount++
	summary.Failures = append(summary.Failures, model.Failure{
		Path:    entry.SourcePath,
		Kind:    string(kind),
		Message: err.Error(),
	})
}

// renamedDestination carries a random suffix alongside the timestamp so two
// rename-conflicts against the same destination within one second never
// collide.
func renamedDestination(original string) string {
	return original + ".restored-" + time.Now().UTC().Format("20060102-150405") + "-" + uuid.NewString()[:8]
}

func entryMetadata(entry model.BatchEntry) map[string]any {
	metadata := make(map[string]any, len(entry.Metadata)+1)
	for key, value := range entry.Metadata {
		metadata[key] = value
	}
	metadata["size"] = entry.Size
	return metadata
}
