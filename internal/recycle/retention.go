package recycle

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"recyclectl/internal/audit"
	"recyclectl/internal/model"
	"recyclectl/internal/storage"
	"recyclectl/pkg/opserror"
)

// Policy governs permanent deletion of recycled batches. Age is primary,
// size is the backstop.
type Policy struct {
	Enabled         bool    `json:"enabled"`
	MaxAgeDays      int     `json:"maxAgeDays"`
	MinKeepBatches  int     `json:"minKeepBatches"`
	SizeThresholdGB float64 `json:"sizeThresholdGB"`
}

// Maintainer permanently deletes whole batches selected by the policy.
type Maintainer struct {
	log         *audit.Log
	recycleRoot string
}

func NewMaintainer(log *audit.Log, recycleRoot string) *Maintainer {
	return &Maintainer{log: log, recycleRoot: recycleRoot}
}

// Maintain selects and deletes batches under the policy. The newest
// MinKeepBatches are unconditionally protected; among the rest, batches older
// than MaxAgeDays go first, then oldest-to-newest until the remaining total
// is at or below the size threshold. Dry-run computes the identical selection
// without deleting. Exactly one recycle_maintain record is appended per run.
func (m *Maintainer) Maintain(policy Policy, dryRun bool, now time.Time) (model.MaintainSummary, error) {
	summary := model.MaintainSummary{DryRun: dryRun}
	if !policy.Enabled {
		return summary, nil
	}

	batches, err := RestorableBatches(m.log)
	if err != nil {
		return summary, err
	}

	summary.BeforeBatches = len(batches)
	for _, batch := range batches {
		summary.BeforeBytes += batch.TotalBytes
	}

	selected := m.selectBatches(batches, policy, now, &summary)

	remainingBytes := summary.BeforeBytes
	for _, batch := range selected {
		if reason, ok := m.verifyBatchRoots(batch); !ok {
			// The log claims entries outside this batch's directory; deleting
			// would act on an index the filesystem does not corroborate.
			summary.FailedBatches++
			summary.Failures = append(summary.Failures, model.Failure{
				Path:    filepath.Join(m.recycleRoot, batch.ID),
				Kind:    model.ErrInconsistentBatchRoot.Error(),
				Message: reason,
			})
			continue
		}

		if !dryRun {
			if err := os.RemoveAll(filepath.Join(m.recycleRoot, batch.ID)); err != nil {
				kind := opserror.Classify(err)
				summary.FailedBatches++
				summary.Failures = append(summary.Failures, model.Failure{
					Path:    filepath.Join(m.recycleRoot, batch.ID),
					Kind:    string(kind),
					Message: err.Error(),
				})
				continue
			}
		}

		summary.DeletedBatches++
		summary.DeletedBytes += batch.TotalBytes
		remainingBytes -= batch.TotalBytes
	}

	summary.RemainingBatches = summary.BeforeBatches - summary.DeletedBatches
	summary.RemainingBytes = remainingBytes

	if err := m.appendSummary(policy, summary); err != nil {
		return summary, err
	}

	return summary, nil
}

// selectBatches applies the two-phase greedy policy to batches given
// newest-first, returning the selection oldest-first.
func (m *Maintainer) selectBatches(batches []model.Batch, policy Policy, now time.Time, summary *model.MaintainSummary) []model.Batch {
	protected := policy.MinKeepBatches
	if protected < 0 {
		protected = 0
	}
	if protected > len(batches) {
		protected = len(batches)
	}

	candidates := batches[protected:]
	chosen := make(map[string]struct{}, len(candidates))

	remainingBytes := int64(0)
	for _, batch := range batches {
		remainingBytes += batch.TotalBytes
	}

	var selected []model.Batch

	if policy.MaxAgeDays > 0 {
		cutoff := now.Add(-time.Duration(policy.MaxAgeDays) * 24 * time.Hour)
		// Oldest-first so the selection order matches deletion order.
		for i := len(candidates) - 1; i >= 0; i-- {
			batch := candidates[i]
			if batch.FirstTime.Before(cutoff) {
				chosen[batch.ID] = struct{}{}
				selected = append(selected, batch)
				remainingBytes -= batch.TotalBytes
				summary.SelectedByAge++
			}
		}
	}

	if policy.SizeThresholdGB > 0 {
		threshold := int64(policy.SizeThresholdGB * float64(1<<30))
		for i := len(candidates) - 1; i >= 0 && remainingBytes > threshold; i-- {
			batch := candidates[i]
			if _, already := chosen[batch.ID]; already {
				continue
			}
			chosen[batch.ID] = struct{}{}
			selected = append(selected, batch)
			remainingBytes -= batch.TotalBytes
			summary.SelectedBySize++
		}
	}

	return selected
}

// verifyBatchRoots re-checks that every entry actually resides under this
// batch's directory before the non-undoable delete. The batch id itself is
// log-supplied, so it must name a plain directory strictly inside the recycle
// root; a traversal id would otherwise make the entry check vacuously pass
// against a sibling path.
func (m *Maintainer) verifyBatchRoots(batch model.Batch) (string, bool) {
	if batch.ID == "." || strings.Contains(batch.ID, "..") || strings.ContainsAny(batch.ID, `/\`) {
		return fmt.Sprintf("batch id %q is not a plain directory name", batch.ID), false
	}

	batchRoot := filepath.Join(m.recycleRoot, batch.ID)
	if !storage.IsAllowed(m.recycleRoot, batchRoot) {
		return fmt.Sprintf("batch id %q resolves outside recycle root %q", batch.ID, m.recycleRoot), false
	}

	for _, entry := range batch.Entries {
		if !storage.IsAllowed(batchRoot, entry.RecyclePath) {
			return fmt.Sprintf("entry %q resolves outside batch directory %q", entry.RecyclePath, batchRoot), false
		}
	}

	return "", true
}

func (m *Maintainer) appendSummary(policy Policy, summary model.MaintainSummary) error {
	status := model.StatusSuccess
	if summary.DryRun {
		status = model.StatusDryRun
	} else if summary.FailedBatches > 0 {
		status = model.StatusFailed
	}

	metadata := map[string]any{
		"policy":            policy,
		"before_batches":    summary.BeforeBatches,
		"before_bytes":      summary.BeforeBytes,
		"deleted_batches":   summary.DeletedBatches,
		"deleted_bytes":     summary.DeletedBytes,
		"failed_batches":    summary.FailedBatches,
		"remaining_batches": summary.RemainingBatches,
		"remaining_bytes":   summary.RemainingBytes,
		"selected_by_age":   summary.SelectedByAge,
		"selected_by_size":  summary.SelectedBySize,
	}
	if len(summary.Failures) > 0 {
		metadata["error_type"] = summary.Failures[0].Kind
	}

	return m.log.Append(model.AuditRecord{
		Action:     model.ActionMaintain,
		OccurredAt: model.Now(),
		Status:     status,
		Metadata:   metadata,
	})
}
