// Package scan discovers cleanup targets: cache directories under the
// configured scan roots, with their recursive sizes.
package scan

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"recyclectl/internal/model"
	"recyclectl/internal/storage"
)

type Scanner struct {
	roots    []string
	dirNames map[string]struct{}
	maxDepth int
	timeout  time.Duration
}

func New(roots []string, dirNames []string, maxDepth int, timeout time.Duration) *Scanner {
	if maxDepth <= 0 {
		maxDepth = 6
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	names := make(map[string]struct{}, len(dirNames))
	for _, name := range dirNames {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		names[trimmed] = struct{}{}
	}

	return &Scanner{roots: roots, dirNames: names, maxDepth: maxDepth, timeout: timeout}
}

// Targets walks every scan root up to the configured depth and returns one
// target per matching cache directory. Matched directories are not descended
// into, so nested caches belong to their outermost match. Unreadable
// subtrees are skipped, not fatal.
func (s *Scanner) Targets(ctx context.Context) ([]model.Target, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var targets []model.Target

	for _, root := range s.roots {
		rootAbs, err := filepath.Abs(root)
		if err != nil {
			continue
		}

		walkErr := filepath.WalkDir(rootAbs, func(current string, entry fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				if entry != nil && entry.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if !entry.IsDir() {
				return nil
			}

			depth := strings.Count(strings.TrimPrefix(current, rootAbs), string(filepath.Separator))
			if depth > s.maxDepth {
				return fs.SkipDir
			}

			if _, match := s.dirNames[entry.Name()]; !match || current == rootAbs {
				return nil
			}

			size, sizeErr := storage.DirSize(current)
			if sizeErr != nil && size == 0 {
				return fs.SkipDir
			}

			targets = append(targets, model.Target{
				Path:  current,
				Size:  size,
				Scope: model.ScopeProfile,
				Metadata: map[string]any{
					"account":  accountFor(rootAbs, current),
					"category": entry.Name(),
				},
			})

			return fs.SkipDir
		})
		if walkErr != nil && ctx.Err() != nil {
			return targets, ctx.Err()
		}
	}

	return targets, nil
}

// accountFor names the first path element under the scan root, the
// per-account directory in multi-account cache layouts.
func accountFor(rootAbs string, current string) string {
	rel, err := filepath.Rel(rootAbs, current)
	if err != nil || rel == "." {
		return ""
	}

	parts := strings.Split(rel, string(filepath.Separator))
	if len(parts) < 2 {
		return ""
	}

	return parts[0]
}

// Stat declares the size of one explicit path as a target, for callers that
// bypass discovery.
func Stat(path string) (model.Target, error) {
	if _, err := os.Stat(path); err != nil {
		return model.Target{}, err
	}

	size, err := storage.DirSize(path)
	if err != nil && size == 0 {
		return model.Target{}, err
	}

	return model.Target{Path: path, Size: size, Scope: model.ScopeProfile}, nil
}
