// Package location maintains the map from source short file names to the
// loaded target-runtime classes declared in that file, and resolves a
// (file, line) pair to the concrete, installable wire.Location values
// needed to set a breakpoint.
package location

import "github.com/scala-ide/sdbg/wire"

// Resolver is not safe for concurrent use; the Controller's single
// mailbox goroutine (via Session) owns it.
type Resolver struct {
	byFileKey map[string][]wire.ReferenceType
}

// New returns an empty Resolver.
func New() *Resolver {
	return &Resolver{byFileKey: make(map[string][]wire.ReferenceType)}
}

// Register records a newly-loaded class under its declared source short
// name (obtained from the class's own SourceName, which may differ from
// file to file even for nested classes declared in the same file).
func (r *Resolver) Register(class wire.ReferenceType) {
	name, err := class.SourceName()
	if err != nil || name == "" {
		return
	}
	r.byFileKey[name] = append(r.byFileKey[name], class)
}

// ClassesForFile returns every class registered under shortName, used by
// the Session to retry pending breakpoints after a class-prepare event.
func (r *Resolver) ClassesForFile(shortName string) []wire.ReferenceType {
	return r.byFileKey[shortName]
}

// Locations returns every wire.Location across all classes registered
// under file's short name whose resolved (sourcePath, sourceName, line)
// tuple matches line, deduplicated by that tuple. Methods or classes
// missing line info are tolerated silently.
func (r *Resolver) Locations(shortName string, line int) []wire.Location {
	type key struct {
		path string
		name string
		line int
	}
	seen := make(map[key]bool)
	var out []wire.Location
	for _, class := range r.byFileKey[shortName] {
		locs, err := class.LocationsOfLine(line)
		if err != nil {
			continue
		}
		for _, loc := range locs {
			k := key{loc.SourcePath, loc.SourceName, loc.Line}
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, loc)
		}
	}
	return out
}
