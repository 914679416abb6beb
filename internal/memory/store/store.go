// Package store defines the session_store trait: a synchronous, pluggable
// backend for a single session's kv and transcript data. Implementations
// are synchronous by design (file I/O); the session handle wraps calls with
// blocking-thread offload.
package store

import (
	"errors"
	"time"

	"github.com/xcorat/araliya/internal/memory/collection"
)

// ErrUnsupported is returned by a store's default implementation of an
// operation it does not implement, so the session handle can try the next
// store in its ordered list.
var ErrUnsupported = errors.New("memory store: unsupported operation")

// TranscriptEntry is one logged turn in a session's transcript.
type TranscriptEntry struct {
	Role      string
	Content   string
	Timestamp time.Time
}

// Store is the session_store trait. Every method's dir parameter is the
// session's on-disk directory (or, for the tmp store, an opaque key derived
// from it); stores never need a session id directly.
type Store interface {
	// StoreType returns this store's stable identifier, as it appears in
	// config and the session index (e.g. "basic_session", "tmp").
	StoreType() string

	// Init creates per-session files/dirs. May be a no-op for in-process
	// stores.
	Init(dir string) error

	// KVGet looks up a value. ok is false if the key is unset.
	KVGet(dir, key string) (value string, ok bool, err error)
	// KVSet inserts or updates a key, evicting the oldest entry by
	// insertion order once the store's configured capacity is exceeded.
	KVSet(dir, key, value string) error
	// KVDelete removes a key, reporting whether it was present.
	KVDelete(dir, key string) (removed bool, err error)

	// TranscriptAppend appends a timestamped entry, evicting the oldest
	// entry once the store's configured capacity is exceeded.
	TranscriptAppend(dir, role, content string) error
	// TranscriptReadLast returns up to n most recent entries, oldest first;
	// n <= 0 returns every entry.
	TranscriptReadLast(dir string, n int) ([]TranscriptEntry, error)

	// ReadKVDoc returns a typed snapshot of the kv store, if supported.
	ReadKVDoc(dir string) (*collection.Doc, error)
	// ReadTranscriptBlock returns a typed snapshot of the transcript, if
	// supported.
	ReadTranscriptBlock(dir string) (*collection.Block, error)
}

// Unsupported is embedded by stores that don't implement every trait method,
// so each store only needs to override what it actually supports.
type Unsupported struct{}

func (Unsupported) KVGet(string, string) (string, bool, error) { return "", false, ErrUnsupported }
func (Unsupported) KVSet(string, string, string) error         { return ErrUnsupported }
func (Unsupported) KVDelete(string, string) (bool, error)      { return false, ErrUnsupported }

func (Unsupported) TranscriptAppend(string, string, string) error { return ErrUnsupported }
func (Unsupported) TranscriptReadLast(string, int) ([]TranscriptEntry, error) {
	return nil, ErrUnsupported
}

func (Unsupported) ReadKVDoc(string) (*collection.Doc, error) { return nil, ErrUnsupported }
func (Unsupported) ReadTranscriptBlock(string) (*collection.Block, error) {
	return nil, ErrUnsupported
}
