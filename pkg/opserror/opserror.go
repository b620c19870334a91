package opserror

import "fmt"

// Kind classifies an operational failure for audit and reporting. The kind
// never changes control flow; it exists so downstream filters and presentation
// layers can group failures without parsing free text.
type Kind string

const (
	KindPermissionDenied     Kind = "permission_denied"
	KindPathNotFound         Kind = "path_not_found"
	KindPathValidationFailed Kind = "path_validation_failed"
	KindDirNotEmpty          Kind = "dir_not_empty"
	KindTimeout              Kind = "timeout"
	KindDiskFull             Kind = "disk_full"
	KindReadOnly             Kind = "read_only"
	KindConflict             Kind = "conflict"
	KindPolicySkipped        Kind = "policy_skipped"
	KindUnknown              Kind = "unknown"
)

// OpError pairs a machine-readable kind with human-readable text.
type OpError struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *OpError) Error() string {
	if e == nil {
		return ""
	}

	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Details)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func New(kind Kind, message string, details string) *OpError {
	return &OpError{Kind: kind, Message: message, Details: details}
}
