package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/xcorat/araliya/internal/memory/collection"
)

const (
	kvFileName         = "kv.json"
	transcriptFileName = "transcript.md"
)

// BasicStore is the disk-backed session store: one JSON file for kv, one
// Markdown file for the transcript.
type BasicStore struct {
	KVCap         int
	TranscriptCap int
}

// NewBasicStore builds a BasicStore with the given FIFO caps. A cap <= 0
// means unbounded.
func NewBasicStore(kvCap, transcriptCap int) *BasicStore {
	return &BasicStore{KVCap: kvCap, TranscriptCap: transcriptCap}
}

// StoreType returns "basic_session", the identifier used in config and the
// session index.
func (*BasicStore) StoreType() string { return "basic_session" }

// Init creates the session directory if it does not already exist.
func (*BasicStore) Init(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// kvFileV2 is the current on-disk kv format: explicit insertion order plus a
// value map, so FIFO eviction order survives a read/write round-trip.
type kvFileV2 struct {
	Cap    int               `json:"cap"`
	Order  []string          `json:"order"`
	Values map[string]string `json:"values"`
}

// kvEntryV1 is one entry in the legacy on-disk kv format.
type kvEntryV1 struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	TS    int64  `json:"ts"`
}

// kvFileV1 is the legacy on-disk kv format: a flat list of timestamped
// entries. Read transparently and rewritten to v2 as soon as it is read.
type kvFileV1 struct {
	Cap     int         `json:"cap"`
	Entries []kvEntryV1 `json:"entries"`
}

func (s *BasicStore) kvPath(dir string) string { return filepath.Join(dir, kvFileName) }

func (s *BasicStore) readKV(dir string) (*kvFileV2, error) {
	raw, err := os.ReadFile(s.kvPath(dir))
	if os.IsNotExist(err) {
		return &kvFileV2{Cap: s.KVCap, Values: map[string]string{}}, nil
	}
	if err != nil {
		return nil, err
	}

	var v2 kvFileV2
	if err := json.Unmarshal(raw, &v2); err == nil && v2.Values != nil {
		return &v2, nil
	}

	var v1 kvFileV1
	if err := json.Unmarshal(raw, &v1); err != nil {
		return nil, fmt.Errorf("kv.json is neither v1 nor v2 format: %w", err)
	}
	sort.SliceStable(v1.Entries, func(i, j int) bool { return v1.Entries[i].TS < v1.Entries[j].TS })
	migrated := &kvFileV2{Cap: v1.Cap, Values: map[string]string{}}
	for _, e := range v1.Entries {
		if _, exists := migrated.Values[e.Key]; exists {
			migrated.Order = removeString(migrated.Order, e.Key)
		}
		migrated.Order = append(migrated.Order, e.Key)
		migrated.Values[e.Key] = e.Value
	}
	if migrated.Cap == 0 {
		migrated.Cap = s.KVCap
	}
	if err := s.writeKV(dir, migrated); err != nil {
		return nil, fmt.Errorf("migrating v1 kv file: %w", err)
	}
	return migrated, nil
}

// writeKV persists via rename-over-write (write a temp file, then
// os.Rename) so a concurrent reader never observes a half-written file,
// including on migration from v1.
func (s *BasicStore) writeKV(dir string, f *kvFileV2) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.kvPath(dir) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.kvPath(dir))
}

// KVGet looks up a key in the on-disk kv file.
func (s *BasicStore) KVGet(dir, key string) (string, bool, error) {
	f, err := s.readKV(dir)
	if err != nil {
		return "", false, err
	}
	v, ok := f.Values[key]
	return v, ok, nil
}

// KVSet inserts or updates key, moving it to the end of insertion order on
// update, and evicts the oldest entry once over KVCap.
func (s *BasicStore) KVSet(dir, key, value string) error {
	f, err := s.readKV(dir)
	if err != nil {
		return err
	}
	if _, exists := f.Values[key]; exists {
		f.Order = removeString(f.Order, key)
	}
	f.Order = append(f.Order, key)
	f.Values[key] = value

	cap := f.Cap
	if cap <= 0 {
		cap = s.KVCap
	}
	if cap > 0 {
		for len(f.Order) > cap {
			oldest := f.Order[0]
			f.Order = f.Order[1:]
			delete(f.Values, oldest)
		}
	}
	return s.writeKV(dir, f)
}

// KVDelete removes key, reporting whether it was present.
func (s *BasicStore) KVDelete(dir, key string) (bool, error) {
	f, err := s.readKV(dir)
	if err != nil {
		return false, err
	}
	if _, ok := f.Values[key]; !ok {
		return false, nil
	}
	delete(f.Values, key)
	f.Order = removeString(f.Order, key)
	return true, s.writeKV(dir, f)
}

// ReadKVDoc returns a typed Doc snapshot of the kv store.
func (s *BasicStore) ReadKVDoc(dir string) (*collection.Doc, error) {
	f, err := s.readKV(dir)
	if err != nil {
		return nil, err
	}
	d := collection.NewDoc(f.Cap)
	for _, k := range f.Order {
		d.Set(k, collection.NewStringPrimary(f.Values[k]))
	}
	return d, nil
}

func removeString(s []string, v string) []string {
	out := s[:0:0]
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

var transcriptHeaderRe = regexp.MustCompile(`^### (.+) — (.+)$`)

func (s *BasicStore) transcriptPath(dir string) string { return filepath.Join(dir, transcriptFileName) }

// TranscriptAppend appends a "### <role> — <ISO-8601 timestamp>" block
// followed by the content, then re-enforces TranscriptCap by rewriting the
// file with only the most recent entries (evicting the oldest).
func (s *BasicStore) TranscriptAppend(dir, role, content string) error {
	entries, err := s.readTranscript(dir)
	if err != nil {
		return err
	}
	entries = append(entries, TranscriptEntry{Role: role, Content: content, Timestamp: time.Now().UTC()})
	if s.TranscriptCap > 0 && len(entries) > s.TranscriptCap {
		entries = entries[len(entries)-s.TranscriptCap:]
	}
	return s.writeTranscript(dir, entries)
}

// TranscriptReadLast returns the last n entries, oldest first.
func (s *BasicStore) TranscriptReadLast(dir string, n int) ([]TranscriptEntry, error) {
	entries, err := s.readTranscript(dir)
	if err != nil {
		return nil, err
	}
	if n <= 0 || n >= len(entries) {
		return entries, nil
	}
	return entries[len(entries)-n:], nil
}

// ReadTranscriptBlock returns a typed Block snapshot of the transcript, one
// entry per sequential key ("0", "1", ...).
func (s *BasicStore) ReadTranscriptBlock(dir string) (*collection.Block, error) {
	entries, err := s.readTranscript(dir)
	if err != nil {
		return nil, err
	}
	b := collection.NewBlock(s.TranscriptCap)
	for i, e := range entries {
		key := fmt.Sprintf("%d", i)
		primary := collection.NewStringPrimary(e.Role + ": " + e.Content)
		b.Set(key, collection.Value{Primary: &primary})
	}
	return b, nil
}

func (s *BasicStore) readTranscript(dir string) ([]TranscriptEntry, error) {
	raw, err := os.ReadFile(s.transcriptPath(dir))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entries []TranscriptEntry
	blocks := strings.Split(string(raw), "\n\n")
	for _, block := range blocks {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		lines := strings.SplitN(block, "\n", 2)
		header := lines[0]
		m := transcriptHeaderRe.FindStringSubmatch(header)
		if m == nil {
			continue
		}
		ts, err := time.Parse(time.RFC3339Nano, m[2])
		if err != nil {
			ts, err = time.Parse(time.RFC3339, m[2])
			if err != nil {
				continue
			}
		}
		var content string
		if len(lines) > 1 {
			content = lines[1]
		}
		entries = append(entries, TranscriptEntry{Role: m[1], Content: content, Timestamp: ts})
	}
	return entries, nil
}

func (s *BasicStore) writeTranscript(dir string, entries []TranscriptEntry) error {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "### %s — %s\n%s", e.Role, e.Timestamp.Format(time.RFC3339Nano), e.Content)
	}
	tmp := s.transcriptPath(dir) + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.transcriptPath(dir))
}
