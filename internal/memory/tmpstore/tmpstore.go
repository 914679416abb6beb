// Package tmpstore implements an in-process-only session store: nothing
// ever touches disk, and state disappears when the process exits. It is
// backed by the same collection.Doc/collection.Block types the disk-backed
// store exposes as read snapshots, so callers see one typed shape
// regardless of which store actually answered.
package tmpstore

import (
	"strconv"
	"sync"

	"github.com/xcorat/araliya/internal/memory/collection"
	"github.com/xcorat/araliya/internal/memory/store"
)

// TmpStore holds one Doc and one Block per session directory key, shared
// across all sessions created from the same TmpStore instance. A fresh
// TmpStore should be created per process/test; it is never persisted.
type TmpStore struct {
	docCap   int
	blockCap int

	mu     sync.Mutex
	docs   map[string]*collection.Doc
	blocks map[string]*collection.Block
}

// NewTmpStore builds a TmpStore with the given per-session FIFO caps.
func NewTmpStore(docCap, blockCap int) *TmpStore {
	return &TmpStore{
		docCap:   docCap,
		blockCap: blockCap,
		docs:     make(map[string]*collection.Doc),
		blocks:   make(map[string]*collection.Block),
	}
}

// StoreType returns "tmp", the identifier used in config and the session
// index.
func (*TmpStore) StoreType() string { return "tmp" }

// Init is a no-op: state is allocated lazily on first access.
func (*TmpStore) Init(string) error { return nil }

func (s *TmpStore) docFor(dir string) *collection.Doc {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[dir]
	if !ok {
		d = collection.NewDoc(s.docCap)
		s.docs[dir] = d
	}
	return d
}

func (s *TmpStore) blockFor(dir string) *collection.Block {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blocks[dir]
	if !ok {
		b = collection.NewBlock(s.blockCap)
		s.blocks[dir] = b
	}
	return b
}

// KVGet looks up key in this session's in-memory Doc.
func (s *TmpStore) KVGet(dir, key string) (string, bool, error) {
	p, ok := s.docFor(dir).Get(key)
	if !ok {
		return "", false, nil
	}
	return p.String(), true, nil
}

// KVSet stores value as a string-scalar Primary under key.
func (s *TmpStore) KVSet(dir, key, value string) error {
	s.docFor(dir).Set(key, collection.NewStringPrimary(value))
	return nil
}

// KVDelete removes key, reporting whether it was present.
func (s *TmpStore) KVDelete(dir, key string) (bool, error) {
	return s.docFor(dir).Delete(key), nil
}

// TranscriptAppend appends role/content as one entry in this session's
// in-memory Block, keyed by sequential index.
func (s *TmpStore) TranscriptAppend(dir, role, content string) error {
	b := s.blockFor(dir)
	key := nextBlockKey(b)
	primary := collection.NewStringPrimary(role + ": " + content)
	b.Set(key, collection.Value{Primary: &primary})
	return nil
}

// TranscriptReadLast returns up to n most recent transcript entries, oldest
// first; n <= 0 returns every entry. Role/content are split back out of the
// "role: content" encoding used by TranscriptAppend. The tmp store records
// no timestamps, so every returned entry has a zero Timestamp.
func (s *TmpStore) TranscriptReadLast(dir string, n int) ([]store.TranscriptEntry, error) {
	b := s.blockFor(dir)
	keys := b.Keys()
	if n > 0 && n < len(keys) {
		keys = keys[len(keys)-n:]
	}
	entries := make([]store.TranscriptEntry, 0, len(keys))
	for _, k := range keys {
		v, ok := b.Get(k)
		if !ok || v.Primary == nil {
			continue
		}
		role, content := splitRoleContent(v.Primary.String())
		entries = append(entries, store.TranscriptEntry{Role: role, Content: content})
	}
	return entries, nil
}

// ReadKVDoc returns the live Doc backing this session's kv store. Callers
// that need an isolated snapshot should Clone it.
func (s *TmpStore) ReadKVDoc(dir string) (*collection.Doc, error) {
	return s.docFor(dir), nil
}

// ReadTranscriptBlock returns the live Block backing this session's
// transcript. Callers that need an isolated snapshot should Clone it.
func (s *TmpStore) ReadTranscriptBlock(dir string) (*collection.Block, error) {
	return s.blockFor(dir), nil
}

// nextBlockKey returns one past the newest key, so keys keep increasing
// after FIFO eviction has removed the oldest entries.
func nextBlockKey(b *collection.Block) string {
	keys := b.Keys()
	if len(keys) == 0 {
		return "0"
	}
	last, err := strconv.Atoi(keys[len(keys)-1])
	if err != nil {
		return strconv.Itoa(b.Len())
	}
	return strconv.Itoa(last + 1)
}

func splitRoleContent(s string) (role, content string) {
	for i := 0; i+1 < len(s); i++ {
		if s[i] == ':' && s[i+1] == ' ' {
			return s[:i], s[i+2:]
		}
	}
	return "", s
}
