// Package sourcemap resolves short source file names reported by the
// target runtime (e.g. "Foo.scala") to the absolute project file paths
// that produced them.
package sourcemap

import (
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Map is a read-mostly short-name -> absolute-paths index. It is rebuilt
// wholesale from a configuration snapshot; lookups never mutate it, so a
// single Map may be read concurrently without external locking once built.
type Map struct {
	mu  sync.RWMutex
	log *zap.SugaredLogger
	idx map[string][]string
}

// New returns an empty Map. Use Rebuild to populate it.
func New(log *zap.SugaredLogger) *Map {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Map{log: log, idx: make(map[string][]string)}
}

// Rebuild replaces the index from scratch using the given absolute project
// source file paths. Invariant: every configured file's short name maps to
// a non-empty set containing its own canonical path.
func (m *Map) Rebuild(files []string) {
	idx := make(map[string][]string, len(files))
	for _, f := range files {
		key := filepath.Base(f)
		idx[key] = append(idx[key], f)
	}
	for key, paths := range idx {
		sort.Strings(paths)
		idx[key] = paths
	}
	m.mu.Lock()
	m.idx = idx
	m.mu.Unlock()
}

// Lookup returns the absolute paths registered under shortName. When more
// than one path is registered, the caller should treat paths[0] as the
// deterministic choice; Lookup itself only reports the ambiguity via the
// ambiguous result and a logged warning.
func (m *Map) Lookup(shortName string) (paths []string, ambiguous bool) {
	m.mu.RLock()
	paths = m.idx[shortName]
	m.mu.RUnlock()
	if len(paths) > 1 {
		m.log.Warnw("ambiguous source file name, picking first path deterministically",
			"name", shortName, "candidates", paths)
		return paths, true
	}
	return paths, false
}

// Resolve is the common case: the single absolute path to use for
// shortName, or ok=false if it is not registered at all (the caller
// should fall back to reporting shortName unresolved).
func (m *Map) Resolve(shortName string) (path string, ok bool) {
	paths, _ := m.Lookup(shortName)
	if len(paths) == 0 {
		return "", false
	}
	return paths[0], true
}
