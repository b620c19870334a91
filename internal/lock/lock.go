// Package lock implements the cooperative single-instance lock guarding a
// state directory. The lock is advisory: correctness depends on every caller
// acquiring it before touching the audit log or recycle root.
package lock

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"recyclectl/internal/model"
)

const FileName = ".lockfile"

// Info is the JSON body of the lock file. Presence of the file means held,
// absence means unlocked.
type Info struct {
	PID                int    `json:"pid"`
	Mode               string `json:"mode"`
	Hostname           string `json:"hostname"`
	StartedAt          string `json:"startedAt"`
	RecoveredFromStale bool   `json:"recoveredFromStale,omitempty"`
}

type Lock struct {
	path string
	Info Info
}

// Acquire takes the exclusive lock for stateRoot. On a create conflict it
// probes the recorded owner pid: a live owner fails the acquisition with a
// description of who holds it; a dead owner's file is removed and creation is
// retried exactly once, marking the new lock as recovered. The liveness probe
// is best-effort across platforms, hence the single bounded retry.
func Acquire(stateRoot string, mode string) (*Lock, error) {
	if err := os.MkdirAll(stateRoot, 0o755); err != nil {
		return nil, fmt.Errorf("prepare state directory: %w", err)
	}

	path := filepath.Join(stateRoot, FileName)
	hostname, _ := os.Hostname()
	info := Info{
		PID:       os.Getpid(),
		Mode:      mode,
		Hostname:  hostname,
		StartedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}

	if err := writeExclusive(path, info); err == nil {
		return &Lock{path: path, Info: info}, nil
	} else if !os.IsExist(err) {
		return nil, fmt.Errorf("create lock file: %w", err)
	}

	owner, readErr := readInfo(path)
	if readErr == nil && pidAlive(owner.PID) {
		return nil, fmt.Errorf("%w: pid %d (%s) on %s since %s",
			model.ErrLockHeld, owner.PID, owner.Mode, owner.Hostname, owner.StartedAt)
	}

	// Owner is gone (or its record is unreadable): treat the file as stale.
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: remove %s: %v", model.ErrLockStale, path, err)
	}

	info.RecoveredFromStale = true
	if err := writeExclusive(path, info); err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%w: lost race recreating %s", model.ErrLockHeld, path)
		}
		return nil, fmt.Errorf("recreate lock file: %w", err)
	}

	return &Lock{path: path, Info: info}, nil
}

// Release removes the lock file. Releasing an already-released lock is a
// no-op.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}

	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("release lock: %w", err)
	}

	return nil
}

func (l *Lock) Path() string {
	return l.path
}

func writeExclusive(path string, info Info) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	data, marshalErr := json.Marshal(info)
	if marshalErr != nil {
		f.Close()
		os.Remove(path)
		return marshalErr
	}

	_, writeErr := f.Write(append(data, '\n'))
	closeErr := f.Close()
	if writeErr != nil {
		os.Remove(path)
		return writeErr
	}
	if closeErr != nil {
		os.Remove(path)
		return closeErr
	}

	return nil
}

func readInfo(path string) (Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Info{}, err
	}

	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return Info{}, err
	}

	return info, nil
}

func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}

	// EPERM means the process exists but belongs to another user.
	return errors.Is(err, syscall.EPERM)
}
