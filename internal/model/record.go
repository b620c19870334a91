package model

import (
	"encoding/json"
	"time"
)

// Actions recorded in the audit log.
const (
	ActionCleanup  = "cleanup"
	ActionRestore  = "restore"
	ActionMaintain = "recycle_maintain"
)

// Scopes attached to cleanup records. System-scoped entries are restored
// against the governance roots instead of the profile roots.
const (
	ScopeProfile = "profile"
	ScopeSystem  = "system"
)

// Outcome statuses. Exactly one is recorded per attempted mutation.
const (
	StatusSuccess            = "success"
	StatusDryRun             = "dry_run"
	StatusFailed             = "failed"
	StatusSkippedPolicy      = "skipped_policy"
	StatusSkippedMissing     = "skipped_missing_source"
	StatusSkippedNoRecycle   = "skipped_missing_recycle"
	StatusSkippedConflict    = "skipped_conflict"
	StatusSkippedInvalidPath = "skipped_invalid_path"
)

// Reason codes carried on skipped_invalid_path records.
const (
	ReasonOutsideAllowedRoot = "source_outside_allowed_root"
	ReasonOutsideProfileRoot = "source_outside_profile_root"
	ReasonOutsideRecycleRoot = "recycle_path_outside_recycle_root"
	ReasonUnresolvablePath   = "source_path_unresolvable"
)

// AuditRecord is one immutable fact about an attempted mutation. The fixed
// fields form the core schema; Metadata carries whatever descriptive context
// (account, category, size) the caller supplied, flattened into the same JSON
// object on the wire. Readers tolerate unknown and missing fields.
type AuditRecord struct {
	Action        string
	OccurredAt    string
	Scope         string
	BatchID       string
	SourcePath    string
	RecyclePath   string
	RestoredPath  string
	Status        string
	Risk          string
	InvalidReason string
	Error         string
	ErrorKind     string
	Metadata      map[string]any
}

// coreKeys are the JSON keys owned by the fixed schema; everything else on an
// incoming line lands in Metadata.
var coreKeys = map[string]struct{}{
	"action": {}, "time": {}, "scope": {}, "batchId": {}, "sourcePath": {},
	"recyclePath": {}, "restoredPath": {}, "status": {}, "risk": {},
	"invalid_reason": {}, "error": {}, "error_kind": {},
}

func (r AuditRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Metadata)+10)
	for key, value := range r.Metadata {
		if _, reserved := coreKeys[key]; reserved {
			continue
		}
		out[key] = value
	}

	out["action"] = r.Action
	out["time"] = r.OccurredAt
	out["status"] = r.Status

	if r.Scope != "" {
		out["scope"] = r.Scope
	}
	if r.BatchID != "" {
		out["batchId"] = r.BatchID
	}
	if r.SourcePath != "" {
		out["sourcePath"] = r.SourcePath
	}
	if r.Action == ActionCleanup {
		// Cleanup records always carry recyclePath, null when nothing moved.
		if r.RecyclePath == "" {
			out["recyclePath"] = nil
		} else {
			out["recyclePath"] = r.RecyclePath
		}
	} else if r.RecyclePath != "" {
		out["recyclePath"] = r.RecyclePath
	}
	if r.RestoredPath != "" {
		out["restoredPath"] = r.RestoredPath
	}
	if r.Risk != "" {
		out["risk"] = r.Risk
	}
	if r.InvalidReason != "" {
		out["invalid_reason"] = r.InvalidReason
	}
	if r.Error != "" {
		out["error"] = r.Error
	}
	if r.ErrorKind != "" {
		out["error_kind"] = r.ErrorKind
	}

	return json.Marshal(out)
}

func (r *AuditRecord) UnmarshalJSON(data []byte) error {
	raw := map[string]any{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.Action = stringField(raw, "action")
	r.OccurredAt = stringField(raw, "time")
	r.Scope = stringField(raw, "scope")
	r.BatchID = stringField(raw, "batchId")
	r.SourcePath = stringField(raw, "sourcePath")
	r.RecyclePath = stringField(raw, "recyclePath")
	r.RestoredPath = stringField(raw, "restoredPath")
	r.Status = stringField(raw, "status")
	r.Risk = stringField(raw, "risk")
	r.InvalidReason = stringField(raw, "invalid_reason")
	r.Error = stringField(raw, "error")
	r.ErrorKind = stringField(raw, "error_kind")

	r.Metadata = nil
	for key, value := range raw {
		if _, reserved := coreKeys[key]; reserved {
			continue
		}
		if r.Metadata == nil {
			r.Metadata = map[string]any{}
		}
		r.Metadata[key] = value
	}

	return nil
}

func stringField(raw map[string]any, key string) string {
	if value, ok := raw[key].(string); ok {
		return value
	}
	return ""
}

// Time parses the record timestamp, zero when absent or malformed.
func (r AuditRecord) Time() time.Time {
	if value, err := time.Parse(time.RFC3339Nano, r.OccurredAt); err == nil {
		return value.UTC()
	}
	if value, err := time.Parse(time.RFC3339, r.OccurredAt); err == nil {
		return value.UTC()
	}
	return time.Time{}
}

// SizeBytes reads the declared size carried in metadata, zero when absent.
func (r AuditRecord) SizeBytes() int64 {
	switch value := r.Metadata["size"].(type) {
	case float64:
		return int64(value)
	case int64:
		return value
	case int:
		return int64(value)
	case json.Number:
		if parsed, err := value.Int64(); err == nil {
			return parsed
		}
	}
	return 0
}

// Now formats a timestamp the way every record stores it.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
