package config

import (
	"fmt"

	"github.com/gobwas/glob"
)

// IgnoreSet matches repo names against compiled ignore patterns. The zero
// value and a nil *IgnoreSet match nothing.
type IgnoreSet struct {
	patterns []string
	globs    []glob.Glob
}

// CompileIgnore compiles each pattern with gobwas/glob syntax ("*", "?",
// "[abc]", "{a,b}").
func CompileIgnore(patterns []string) (*IgnoreSet, error) {
	set := &IgnoreSet{
		patterns: make([]string, 0, len(patterns)),
		globs:    make([]glob.Glob, 0, len(patterns)),
	}
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", p, err)
		}
		set.patterns = append(set.patterns, p)
		set.globs = append(set.globs, g)
	}
	return set, nil
}

// Match reports whether repo matches any ignore pattern.
func (s *IgnoreSet) Match(repo string) bool {
	if s == nil {
		return false
	}
	for _, g := range s.globs {
		if g.Match(repo) {
			return true
		}
	}
	return false
}

// Patterns returns the source patterns in configuration order.
func (s *IgnoreSet) Patterns() []string {
	if s == nil {
		return nil
	}
	return s.patterns
}

// Empty reports whether the set has no patterns.
func (s *IgnoreSet) Empty() bool {
	return s == nil || len(s.globs) == 0
}
