package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// MovePath relocates source to destination, creating destination parents.
// It renames in place when possible and falls back to a recursive copy plus
// source delete on cross-device errors. The fallback is not crash-atomic: a
// crash between the copy and the delete leaves the data duplicated.
func MovePath(source string, destination string) error {
	if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
		return err
	}

	if err := os.Rename(source, destination); err == nil {
		return nil
	} else if !isCrossDeviceRenameError(err) {
		return err
	}

	if err := copyPathRecursive(source, destination); err != nil {
		return err
	}

	return os.RemoveAll(source)
}

// DirSize sums the sizes of all regular files under path. A non-directory
// path reports its own size.
func DirSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}

	if !info.IsDir() {
		return info.Size(), nil
	}

	var total int64
	walkErr := filepath.WalkDir(path, func(current string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}

		entryInfo, infoErr := entry.Info()
		if infoErr != nil {
			return infoErr
		}

		total += entryInfo.Size()
		return nil
	})
	if walkErr != nil {
		return total, walkErr
	}

	return total, nil
}

func isCrossDeviceRenameError(err error) bool {
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) && strings.Contains(strings.ToLower(linkErr.Err.Error()), "cross-device") {
		return true
	}

	return strings.Contains(strings.ToLower(err.Error()), "cross-device")
}

func copyPathRecursive(source string, destination string) error {
	info, err := os.Stat(source)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		return copyFile(source, destination, info.Mode())
	}

	if err := os.MkdirAll(destination, info.Mode().Perm()); err != nil {
		return err
	}

	return filepath.WalkDir(source, func(current string, entry os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		rel, relErr := filepath.Rel(source, current)
		if relErr != nil {
			return relErr
		}
		if rel == "." {
			return nil
		}

		target := filepath.Join(destination, rel)
		entryInfo, infoErr := entry.Info()
		if infoErr != nil {
			return infoErr
		}

		if entry.IsDir() {
			return os.MkdirAll(target, entryInfo.Mode().Perm())
		}

		return copyFile(current, target, entryInfo.Mode())
	})
}

func copyFile(source string, destination string, mode os.FileMode) error {
	input, err := os.Open(source)
	if err != nil {
		return err
	}
	defer input.Close()

	if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
		return err
	}

	output, err := os.OpenFile(destination, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}

	_, copyErr := io.Copy(output, input)
	closeErr := output.Close()
	if copyErr != nil {
		return copyErr
	}
	if closeErr != nil {
		return fmt.Errorf("close %q: %w", destination, closeErr)
	}

	return nil
}
