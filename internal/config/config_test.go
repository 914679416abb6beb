package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xcorat/araliya/internal/config"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSimpleFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.toml", `
[supervisor]
work_dir = "~/araliya"
`)
	tree, err := config.Load(path)
	require.NoError(t, err)
	v, ok := tree.Get("supervisor.work_dir")
	require.True(t, ok)
	require.Equal(t, "~/araliya", v)
}

func TestLoadDeepMergesBase(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.toml", `
[supervisor]
work_dir = "/base"

[memory.basic_session]
kv_cap = 200
transcript_cap = 500
`)
	child := writeFile(t, dir, "child.toml", `
[meta]
base = "base.toml"

[memory.basic_session]
kv_cap = 50
`)
	tree, err := config.Load(child)
	require.NoError(t, err)

	require.Equal(t, 50, tree.GetInt("memory.basic_session.kv_cap", 0))
	require.Equal(t, 500, tree.GetInt("memory.basic_session.transcript_cap", 0), "unset-in-child keys survive from base")

	v, ok := tree.Get("supervisor.work_dir")
	require.True(t, ok)
	require.Equal(t, "/base", v)
}

func TestLoadDetectsCycle(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.toml")
	b := filepath.Join(dir, "b.toml")
	require.NoError(t, os.WriteFile(a, []byte(`
[meta]
base = "b.toml"
`), 0o644))
	require.NoError(t, os.WriteFile(b, []byte(`
[meta]
base = "a.toml"
`), 0o644))

	_, err := config.Load(a)
	require.Error(t, err)
}

func TestGetFloatDefaultsToZero(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.toml", `
[llm.openai]
input_per_million_usd = 1.5
`)
	tree, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, 1.5, tree.GetFloat("llm.openai.input_per_million_usd"))
	require.Equal(t, 0.0, tree.GetFloat("llm.openai.output_per_million_usd"))
}
