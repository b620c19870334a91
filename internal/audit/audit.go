// Package audit implements the append-only JSONL log that is the sole
// durable record of every attempted mutation. Records are never edited or
// removed; consumers reconstruct state by replaying the whole file.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"recyclectl/internal/model"
)

type Log struct {
	filePath string
	mu       sync.Mutex
}

func New(filePath string) (*Log, error) {
	if strings.TrimSpace(filePath) == "" {
		return nil, fmt.Errorf("audit log path cannot be empty")
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return nil, fmt.Errorf("prepare audit directory: %w", err)
	}

	return &Log{filePath: filePath}, nil
}

func (l *Log) Path() string {
	return l.filePath
}

// Append durably adds one record as a single write of the JSON text plus
// newline, so no two records can ever share a half-written line.
func (l *Log) Append(record model.AuditRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode audit record: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}

	_, writeErr := f.Write(append(data, '\n'))
	closeErr := f.Close()
	if writeErr != nil {
		return fmt.Errorf("append audit record: %w", writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close audit log: %w", closeErr)
	}

	return nil
}

// ReadAll returns every record in file order. Unparsable lines are skipped;
// a corrupted tail never fails the read. A missing file reads as empty.
func (l *Log) ReadAll() ([]model.AuditRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.filePath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records := make([]model.AuditRecord, 0, 128)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var record model.AuditRecord
		if unmarshalErr := json.Unmarshal([]byte(line), &record); unmarshalErr != nil {
			continue
		}

		records = append(records, record)
	}

	if scanErr := scanner.Err(); scanErr != nil {
		return nil, scanErr
	}

	return records, nil
}
