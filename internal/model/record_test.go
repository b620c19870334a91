package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAuditRecordMetadataFlattensOnTheWire(t *testing.T) {
	record := AuditRecord{
		Action:     ActionCleanup,
		OccurredAt: "2026-08-01T10:00:00Z",
		Scope:      ScopeProfile,
		BatchID:    "b1",
		SourcePath: "/src/a",
		Status:     StatusSuccess,
		Metadata:   map[string]any{"account": "alice", "size": 42},
	}

	data, err := json.Marshal(record)
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(data, &wire))

	// Metadata keys sit beside the core fields, not nested under a key.
	require.Equal(t, "alice", wire["account"])
	require.EqualValues(t, 42, wire["size"])
	require.Equal(t, "cleanup", wire["action"])
	require.NotContains(t, wire, "metadata")
}

func TestAuditRecordCleanupAlwaysCarriesRecyclePath(t *testing.T) {
	data, err := json.Marshal(AuditRecord{
		Action:     ActionCleanup,
		OccurredAt: "2026-08-01T10:00:00Z",
		Status:     StatusDryRun,
	})
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(data, &wire))
	require.Contains(t, wire, "recyclePath")
	require.Nil(t, wire["recyclePath"])
}

func TestAuditRecordRoundTrip(t *testing.T) {
	original := AuditRecord{
		Action:        ActionRestore,
		OccurredAt:    "2026-08-01T10:00:00Z",
		BatchID:       "b1",
		SourcePath:    "/src/a",
		RecyclePath:   "/recycle/b1/0001_a",
		Status:        StatusSkippedInvalidPath,
		InvalidReason: ReasonOutsideProfileRoot,
		Metadata:      map[string]any{"category": "browser"},
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded AuditRecord
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, original.Action, decoded.Action)
	require.Equal(t, original.InvalidReason, decoded.InvalidReason)
	require.Equal(t, "browser", decoded.Metadata["category"])
}

func TestAuditRecordToleratesUnknownFields(t *testing.T) {
	line := `{"action":"cleanup","time":"2026-08-01T10:00:00Z","status":"success",` +
		`"future_field":true,"nested":{"a":1}}`

	var record AuditRecord
	require.NoError(t, json.Unmarshal([]byte(line), &record))
	require.Equal(t, ActionCleanup, record.Action)
	require.Equal(t, true, record.Metadata["future_field"])
}

func TestAuditRecordTimeParsing(t *testing.T) {
	record := AuditRecord{OccurredAt: "2026-08-01T10:00:00.123456789Z"}
	require.Equal(t, 2026, record.Time().Year())

	require.True(t, AuditRecord{OccurredAt: "garbage"}.Time().IsZero())
	require.True(t, AuditRecord{}.Time().IsZero())
}

func TestSizeBytes(t *testing.T) {
	require.Equal(t, int64(42), AuditRecord{Metadata: map[string]any{"size": float64(42)}}.SizeBytes())
	require.Equal(t, int64(7), AuditRecord{Metadata: map[string]any{"size": 7}}.SizeBytes())
	require.Zero(t, AuditRecord{}.SizeBytes())
	require.Zero(t, AuditRecord{Metadata: map[string]any{"size": "big"}}.SizeBytes())
}
