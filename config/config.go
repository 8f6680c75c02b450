// Package config holds the immutable configuration snapshot the debug
// control core is constructed with. Loading it from disk/flags is a CLI
// concern (out of scope for the core itself); this package's loader is
// deliberately thin, built for cmd/sdbgctl rather than for the core.
package config

import (
	"fmt"
	"os"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Snapshot is the immutable configuration the Controller is constructed
// with: runtime classpath, extra target-VM arguments, and the project's
// source files.
type Snapshot struct {
	Classpath   []string
	VMArgs      []string
	SourceFiles []string
}

// Load reads a JSON document like:
//
//	{"classpath": ["a.jar"], "vmArgs": ["-Xmx512m"], "sourceFiles": ["src/Foo.scala"]}
//
// using gjson for ad hoc field access rather than a struct-tagged
// encoding/json.Unmarshal, matching the pack's preference for gjson on
// loosely-shaped documents.
func Load(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if !gjson.ValidBytes(data) {
		return Snapshot{}, fmt.Errorf("config: %s is not valid JSON", path)
	}
	doc := gjson.ParseBytes(data)
	return Snapshot{
		Classpath:   stringArray(doc.Get("classpath")),
		VMArgs:      stringArray(doc.Get("vmArgs")),
		SourceFiles: stringArray(doc.Get("sourceFiles")),
	}, nil
}

func stringArray(r gjson.Result) []string {
	if !r.IsArray() {
		return nil
	}
	arr := r.Array()
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		out = append(out, v.String())
	}
	return out
}

// WithSourceFile rewrites the document at path with extra appended to
// sourceFiles, via sjson. Used by cmd/sdbgctl to persist newly-discovered
// project files back to the snapshot file without round-tripping the
// whole document through a Go struct.
func WithSourceFile(path string, extra string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	updated, err := sjson.SetBytes(data, "sourceFiles.-1", extra)
	if err != nil {
		return fmt.Errorf("config: append source file: %w", err)
	}
	return os.WriteFile(path, updated, 0o644)
}
