// Package config loads the layered TOML configuration tree: a file may
// declare a "[meta] base" parent, and its own keys are deep-merged over
// the parent's (tables merge recursively, scalars and arrays are replaced
// wholesale). A base chain that cycles back on itself is a hard error.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Tree is a loaded, fully-merged configuration document.
type Tree map[string]any

type meta struct {
	Base string `toml:"base"`
}

// Load reads the TOML file at path, following any "[meta] base" chain and
// deep-merging each ancestor under its child, then returns the merged
// tree. The returned tree has had its "meta" key removed.
func Load(path string) (Tree, error) {
	chain, err := resolveChain(path, nil)
	if err != nil {
		return nil, err
	}

	merged := Tree{}
	// chain is ordered root-ancestor first, leaf last; fold so the leaf's
	// keys win.
	for _, p := range chain {
		t, err := loadOne(p)
		if err != nil {
			return nil, err
		}
		merged = deepMerge(merged, t)
	}
	delete(merged, "meta")
	return merged, nil
}

func resolveChain(path string, seen []string) ([]string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	for _, s := range seen {
		if s == abs {
			return nil, fmt.Errorf("config: cyclic base chain at %s", abs)
		}
	}
	seen = append(seen, abs)

	t, err := loadOne(abs)
	if err != nil {
		return nil, err
	}
	var m meta
	if rawMeta, ok := t["meta"].(map[string]any); ok {
		if b, ok := rawMeta["base"].(string); ok {
			m.Base = b
		}
	}
	if m.Base == "" {
		return []string{abs}, nil
	}

	base := m.Base
	if !filepath.IsAbs(base) {
		base = filepath.Join(filepath.Dir(abs), base)
	}
	ancestors, err := resolveChain(base, seen)
	if err != nil {
		return nil, err
	}
	return append(ancestors, abs), nil
}

func loadOne(path string) (Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var t Tree
	if _, err := toml.Decode(string(data), &t); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return t, nil
}

// deepMerge merges override onto base: table values merge recursively,
// every other value type is replaced wholesale by override's value.
func deepMerge(base, override Tree) Tree {
	out := make(Tree, len(base))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		baseVal, exists := out[k]
		if !exists {
			out[k] = v
			continue
		}
		baseTable, baseIsTable := baseVal.(map[string]any)
		overrideTable, overrideIsTable := v.(map[string]any)
		if baseIsTable && overrideIsTable {
			out[k] = map[string]any(deepMerge(Tree(baseTable), Tree(overrideTable)))
			continue
		}
		out[k] = v
	}
	return out
}

// Get retrieves a dotted key path ("supervisor.work_dir") as a string,
// returning ok=false if any segment is missing or not a string.
func (t Tree) Get(dottedKey string) (string, bool) {
	v, ok := t.getAny(dottedKey)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetFloat retrieves a dotted key path as a float64, defaulting to 0 (per
// the "unset rate means cost is omitted" convention) when absent.
func (t Tree) GetFloat(dottedKey string) float64 {
	v, ok := t.getAny(dottedKey)
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	default:
		return 0
	}
}

// GetInt retrieves a dotted key path as an int, returning def when absent.
func (t Tree) GetInt(dottedKey string, def int) int {
	v, ok := t.getAny(dottedKey)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return def
	}
}

// GetBool retrieves a dotted key path as a bool, returning def when absent
// or not a bool.
func (t Tree) GetBool(dottedKey string, def bool) bool {
	v, ok := t.getAny(dottedKey)
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

// AgentIDs returns the ids of every agent with a table under "agents",
// in no particular order.
func (t Tree) AgentIDs() []string {
	raw, ok := t["agents"].(map[string]any)
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(raw))
	for id := range raw {
		ids = append(ids, id)
	}
	return ids
}

func (t Tree) getAny(dottedKey string) (any, bool) {
	segs := strings.Split(dottedKey, ".")
	var cur any = map[string]any(t)
	for _, seg := range segs {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := m[seg]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// ExpandWorkDir applies shell-style tilde expansion to a work_dir value.
func ExpandWorkDir(dir string) (string, error) {
	if dir == "~" || strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, strings.TrimPrefix(dir, "~")), nil
	}
	return dir, nil
}
