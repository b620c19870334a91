package storage

import (
	"fmt"
	"path/filepath"
	"strings"
)

// IsAllowed reports whether candidate resolves strictly under root. Both
// paths are canonicalized; the candidate is allowed only when the relative
// path from root has no leading ".." segment and is not itself absolute.
func IsAllowed(root string, candidate string) bool {
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return false
	}

	candidateAbs, err := filepath.Abs(candidate)
	if err != nil {
		return false
	}

	rel, err := filepath.Rel(rootAbs, candidateAbs)
	if err != nil {
		return false
	}

	if filepath.IsAbs(rel) {
		return false
	}

	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// RootSet is an allow-list of canonicalized roots.
type RootSet struct {
	roots []string
}

func NewRootSet(roots ...string) (*RootSet, error) {
	set := &RootSet{}
	for _, root := range roots {
		trimmed := strings.TrimSpace(root)
		if trimmed == "" {
			continue
		}

		abs, err := filepath.Abs(trimmed)
		if err != nil {
			return nil, fmt.Errorf("resolve allowed root %q: %w", root, err)
		}
		set.roots = append(set.roots, abs)
	}

	return set, nil
}

func (s *RootSet) Roots() []string {
	return s.roots
}

func (s *RootSet) Empty() bool {
	return s == nil || len(s.roots) == 0
}

// Contains reports whether candidate lies under any root in the set.
func (s *RootSet) Contains(candidate string) bool {
	if s == nil {
		return false
	}

	for _, root := range s.roots {
		if IsAllowed(root, candidate) {
			return true
		}
	}

	return false
}
