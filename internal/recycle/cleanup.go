// Package recycle implements batch soft deletion into the recycle root, audit
// log replay into restorable batches, conflict-aware restoration, and the
// retention policy that permanently deletes old batches.
package recycle

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"recyclectl/internal/audit"
	"recyclectl/internal/model"
	"recyclectl/internal/storage"
	"recyclectl/internal/util"
	"recyclectl/pkg/opserror"
)

// SkipPolicy lets a caller veto individual targets. Returning skip=true
// records the returned status (skipped_policy when empty) instead of moving.
type SkipPolicy func(target model.Target) (status string, skip bool)

type CleanOptions struct {
	DryRun bool
	Scope  string
	Policy SkipPolicy
}

// Store moves live paths into a per-batch area under the recycle root,
// appending one audit record per attempted target.
type Store struct {
	log          *audit.Log
	recycleRoot  string
	allowedRoots *storage.RootSet
}

func NewStore(log *audit.Log, recycleRoot string, allowedRoots *storage.RootSet) *Store {
	return &Store{log: log, recycleRoot: recycleRoot, allowedRoots: allowedRoots}
}

// NewBatchID returns a sortable batch identifier: wall-clock prefix plus a
// random suffix so two invocations within one second never collide.
func NewBatchID() string {
	return time.Now().UTC().Format("20060102-150405") + "-" + uuid.NewString()[:8]
}

// Clean processes targets strictly one at a time under a single batch id.
// Every outcome is appended to the audit log before the next target is
// touched; one item's filesystem error never aborts the batch. Only a failed
// log append is fatal, since continuing would leave moves unaccounted for.
func (s *Store) Clean(targets []model.Target, opts CleanOptions) (model.CleanupSummary, error) {
	summary := model.CleanupSummary{BatchID: NewBatchID()}
	seq := 0

	for _, target := range targets {
		record := model.AuditRecord{
			Action:     model.ActionCleanup,
			OccurredAt: model.Now(),
			Scope:      targetScope(target, opts.Scope),
			BatchID:    summary.BatchID,
			SourcePath: target.Path,
			Metadata:   targetMetadata(target),
		}

		if opts.Policy != nil {
			if status, skip := opts.Policy(target); skip {
				if status == "" {
					status = model.StatusSkippedPolicy
				}
				record.Status = status
				record.ErrorKind = string(opserror.KindPolicySkipped)
				summary.SkippedCount++
				if err := s.log.Append(record); err != nil {
					return summary, err
				}
				continue
			}
		}

		if _, err := os.Stat(target.Path); os.IsNotExist(err) {
			record.Status = model.StatusSkippedMissing
			summary.SkippedCount++
			if err := s.log.Append(record); err != nil {
				return summary, err
			}
			continue
		}

		if reason, ok := s.validateSource(target.Path); !ok {
			record.Status = model.StatusSkippedInvalidPath
			record.InvalidReason = reason
			summary.SkippedCount++
			if err := s.log.Append(record); err != nil {
				return summary, err
			}
			continue
		}

		if opts.DryRun {
			record.Status = model.StatusDryRun
			summary.SuccessCount++
			summary.BytesReclaimed += target.Size
			if err := s.log.Append(record); err != nil {
				return summary, err
			}
			continue
		}

		seq++
		entryName := fmt.Sprintf("%04d_%s", seq, util.SanitizeEntryName(filepath.Base(target.Path)))
		recyclePath := filepath.Join(s.recycleRoot, summary.BatchID, entryName)

		if err := storage.MovePath(target.Path, recyclePath); err != nil {
			kind := opserror.Classify(err)
			record.Status = model.StatusFailed
			record.Error = err.Error()
			record.ErrorKind = string(kind)
			summary.FailedCount++
			summary.Failures = append(summary.Failures, model.Failure{
				Path:    target.Path,
				Kind:    string(kind),
				Message: err.Error(),
			})
			if appendErr := s.log.Append(record); appendErr != nil {
				return summary, appendErr
			}
			continue
		}

		record.Status = model.StatusSuccess
		record.RecyclePath = recyclePath
		summary.SuccessCount++
		summary.BytesReclaimed += target.Size
		if err := s.log.Append(record); err != nil {
			return summary, err
		}
	}

	return summary, nil
}

// validateSource checks the target against the configured scan roots. Dry-run
// and live execution share this path, so they can never disagree on whether a
// move would be allowed.
func (s *Store) validateSource(path string) (string, bool) {
	if _, err := filepath.Abs(path); err != nil {
		return model.ReasonUnresolvablePath, false
	}

	if s.allowedRoots.Empty() || !s.allowedRoots.Contains(path) {
		return model.ReasonOutsideAllowedRoot, false
	}

	return "", true
}

func targetScope(target model.Target, fallback string) string {
	if target.Scope != "" {
		return target.Scope
	}
	if fallback != "" {
		return fallback
	}
	return model.ScopeProfile
}

func targetMetadata(target model.Target) map[string]any {
	metadata := make(map[string]any, len(target.Metadata)+1)
	for key, value := range target.Metadata {
		metadata[key] = value
	}
	metadata["size"] = target.Size
	return metadata
}
