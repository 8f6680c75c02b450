package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sdbg.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadParsesAllFields(t *testing.T) {
	path := writeConfig(t, `{
		"classpath": ["lib/a.jar", "lib/b.jar"],
		"vmArgs": ["-Xmx512m"],
		"sourceFiles": ["src/Foo.scala"]
	}`)

	snap, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"lib/a.jar", "lib/b.jar"}, snap.Classpath)
	assert.Equal(t, []string{"-Xmx512m"}, snap.VMArgs)
	assert.Equal(t, []string{"src/Foo.scala"}, snap.SourceFiles)
}

func TestLoadToleratesMissingFields(t *testing.T) {
	path := writeConfig(t, `{"classpath": ["lib/a.jar"]}`)

	snap, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"lib/a.jar"}, snap.Classpath)
	assert.Nil(t, snap.VMArgs)
	assert.Nil(t, snap.SourceFiles)
}

func TestLoadRejectsInvalidJSON(t *testing.T) {
	path := writeConfig(t, `{not json`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestWithSourceFileAppends(t *testing.T) {
	path := writeConfig(t, `{"sourceFiles": ["src/Foo.scala"]}`)

	require.NoError(t, WithSourceFile(path, "src/Bar.scala"))

	snap, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/Foo.scala", "src/Bar.scala"}, snap.SourceFiles)
}
