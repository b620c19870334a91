package opserror

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"syscall"
)

// Classify maps an underlying filesystem error to its kind. Unrecognized
// errors classify as unknown rather than failing.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var opErr *OpError
	if errors.As(err, &opErr) {
		return opErr.Kind
	}

	switch {
	case errors.Is(err, fs.ErrPermission), errors.Is(err, syscall.EACCES):
		return KindPermissionDenied
	case errors.Is(err, fs.ErrNotExist):
		return KindPathNotFound
	case errors.Is(err, fs.ErrExist):
		return KindConflict
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, syscall.ENOTEMPTY):
		return KindDirNotEmpty
	case errors.Is(err, syscall.ENOSPC), errors.Is(err, syscall.EDQUOT):
		return KindDiskFull
	case errors.Is(err, syscall.EROFS):
		return KindReadOnly
	}

	return classifyText(strings.ToLower(err.Error()))
}

func classifyText(text string) Kind {
	switch {
	case strings.Contains(text, "permission denied"), strings.Contains(text, "operation not permitted"):
		return KindPermissionDenied
	case strings.Contains(text, "no such file"), strings.Contains(text, "not found"):
		return KindPathNotFound
	case strings.Contains(text, "outside"), strings.Contains(text, "traversal"):
		return KindPathValidationFailed
	case strings.Contains(text, "not empty"):
		return KindDirNotEmpty
	case strings.Contains(text, "timeout"), strings.Contains(text, "deadline"):
		return KindTimeout
	case strings.Contains(text, "no space"), strings.Contains(text, "quota"):
		return KindDiskFull
	case strings.Contains(text, "read-only"), strings.Contains(text, "read only"):
		return KindReadOnly
	case strings.Contains(text, "exists"), strings.Contains(text, "conflict"):
		return KindConflict
	}

	return KindUnknown
}
