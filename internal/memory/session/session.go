// Package session implements the memory subsystem's session lifecycle:
// disk-backed and in-process sessions, each bound to an ordered list of
// stores, tracked in a JSON index for disk-backed sessions.
package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/xcorat/araliya/internal/memory/collection"
	"github.com/xcorat/araliya/internal/memory/spend"
	"github.com/xcorat/araliya/internal/memory/store"
)

// ErrUnknownSession is returned by LoadSession when no session with the
// given id exists.
var ErrUnknownSession = errors.New("session: unknown session id")

// ErrStoreUnavailable is returned by LoadSession when an existing session
// references a store type not registered with this Manager.
var ErrStoreUnavailable = errors.New("session: registered store type unavailable")

// Info is a read-only summary of a session, as returned by ListSessions.
type Info struct {
	ID         string
	AgentID    string
	StoreTypes []string
	LastAgent  string
}

// Manager owns the session index and the set of available store
// implementations for one memory root.
type Manager struct {
	root    string
	index   *Index
	rates   spend.Rates
	tmp     store.Store
	stores  map[string]store.Store
}

// NewManager builds a Manager rooted at dir, with the disk-backed and
// in-process stores registered by type name, and the given tmp store used
// for CreateTmpStore (typically the same instance as stores["tmp"]).
func NewManager(dir string, stores map[string]store.Store, tmp store.Store, rates spend.Rates) (*Manager, error) {
	idx, err := NewIndex(dir)
	if err != nil {
		return nil, err
	}
	return &Manager{root: dir, index: idx, rates: rates, tmp: tmp, stores: stores}, nil
}

func (m *Manager) sessionDir(id string) string {
	return filepath.Join(m.root, "sessions", id)
}

// CreateSession allocates a new UUIDv7 session id, initializes the
// requested stores, and records it in the index.
func (m *Manager) CreateSession(ctx context.Context, storeTypes []string, agentID string) (*Handle, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating session id: %w", err)
	}
	return m.createSessionWithID(ctx, id.String(), storeTypes, agentID)
}

func (m *Manager) createSessionWithID(ctx context.Context, id string, storeTypes []string, agentID string) (*Handle, error) {
	dir := m.sessionDir(id)
	stores, err := m.resolveStores(storeTypes)
	if err != nil {
		return nil, err
	}
	for _, s := range stores {
		if err := s.Init(dir); err != nil {
			return nil, fmt.Errorf("initializing store %q: %w", s.StoreType(), err)
		}
	}
	now := time.Now().UTC()
	if err := m.index.Create(Entry{
		ID:         id,
		AgentID:    agentID,
		StoreTypes: storeTypes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}); err != nil {
		return nil, err
	}
	return newHandle(id, dir, agentID, stores, m.index, m.rates), nil
}

// LoadSession reopens an existing session by id.
func (m *Manager) LoadSession(ctx context.Context, id, agentID string) (*Handle, error) {
	entry, ok, err := m.index.Get(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUnknownSession
	}
	stores, err := m.resolveStores(entry.StoreTypes)
	if err != nil {
		return nil, err
	}
	return newHandle(id, m.sessionDir(id), agentID, stores, m.index, m.rates), nil
}

// ListSessions returns session summaries newest first.
func (m *Manager) ListSessions() ([]Info, error) {
	entries, err := m.index.List()
	if err != nil {
		return nil, err
	}
	out := make([]Info, 0, len(entries))
	for _, e := range entries {
		out = append(out, Info{ID: e.ID, AgentID: e.AgentID, StoreTypes: e.StoreTypes, LastAgent: e.LastAgent})
	}
	return out, nil
}

// DeleteSession removes a session's index entry. It does not remove the
// on-disk directory, so accidental deletion can be recovered from backups;
// callers that want the directory gone should remove it explicitly.
func (m *Manager) DeleteSession(id string) (bool, error) {
	return m.index.Delete(id)
}

// CreateTmpStore returns a standalone in-process session handle, not
// tracked in the index. Its dir is a synthetic key, never a real path.
func (m *Manager) CreateTmpStore(agentID string) (*Handle, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating tmp session key: %w", err)
	}
	dir := "tmp:" + id.String()
	return newHandle(id.String(), dir, agentID, []store.Store{m.tmp}, nil, m.rates), nil
}

func (m *Manager) resolveStores(storeTypes []string) ([]store.Store, error) {
	out := make([]store.Store, 0, len(storeTypes))
	for _, t := range storeTypes {
		s, ok := m.stores[t]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrStoreUnavailable, t)
		}
		out = append(out, s)
	}
	return out, nil
}

// Handle is a session's cloneable, send-across-tasks view: it holds the
// ordered list of stores backing this session and delegates each
// operation to the first store in the list that supports it.
type Handle struct {
	ID      string
	AgentID string

	dir    string
	stores []store.Store
	index  *Index // nil for tmp-only handles
	rates  spend.Rates
}

func newHandle(id, dir, agentID string, stores []store.Store, index *Index, rates spend.Rates) *Handle {
	return &Handle{ID: id, AgentID: agentID, dir: dir, stores: stores, index: index, rates: rates}
}

// KVGet delegates to the first store that supports kv_get.
func (h *Handle) KVGet(key string) (string, bool, error) {
	for _, s := range h.stores {
		v, ok, err := s.KVGet(h.dir, key)
		if errors.Is(err, store.ErrUnsupported) {
			continue
		}
		return v, ok, err
	}
	return "", false, store.ErrUnsupported
}

// KVSet delegates to the first store that supports kv_set.
func (h *Handle) KVSet(key, value string) error {
	for _, s := range h.stores {
		err := s.KVSet(h.dir, key, value)
		if errors.Is(err, store.ErrUnsupported) {
			continue
		}
		return err
	}
	return store.ErrUnsupported
}

// KVDelete delegates to the first store that supports kv_delete.
func (h *Handle) KVDelete(key string) (bool, error) {
	for _, s := range h.stores {
		removed, err := s.KVDelete(h.dir, key)
		if errors.Is(err, store.ErrUnsupported) {
			continue
		}
		return removed, err
	}
	return false, store.ErrUnsupported
}

// TranscriptAppend delegates to the first store that supports it, then
// advisorily touches the index's updated_at/last_agent fields.
func (h *Handle) TranscriptAppend(role, content string) error {
	for _, s := range h.stores {
		err := s.TranscriptAppend(h.dir, role, content)
		if errors.Is(err, store.ErrUnsupported) {
			continue
		}
		if err == nil && h.index != nil {
			_ = h.index.Touch(h.ID, h.AgentID)
		}
		return err
	}
	return store.ErrUnsupported
}

// TranscriptReadLast delegates to the first store that supports it.
func (h *Handle) TranscriptReadLast(n int) ([]store.TranscriptEntry, error) {
	for _, s := range h.stores {
		entries, err := s.TranscriptReadLast(h.dir, n)
		if errors.Is(err, store.ErrUnsupported) {
			continue
		}
		return entries, err
	}
	return nil, store.ErrUnsupported
}

// WorkingMemoryDoc returns a typed snapshot of the kv store, if any backing
// store supports it.
func (h *Handle) WorkingMemoryDoc() (*collection.Doc, error) {
	for _, s := range h.stores {
		d, err := s.ReadKVDoc(h.dir)
		if errors.Is(err, store.ErrUnsupported) {
			continue
		}
		return d, err
	}
	return nil, store.ErrUnsupported
}

// TranscriptBlock returns a typed snapshot of the transcript, if any
// backing store supports it.
func (h *Handle) TranscriptBlock() (*collection.Block, error) {
	for _, s := range h.stores {
		b, err := s.ReadTranscriptBlock(h.dir)
		if errors.Is(err, store.ErrUnsupported) {
			continue
		}
		return b, err
	}
	return nil, store.ErrUnsupported
}

// AccumulateSpend records usage against this session's spend.json sidecar
// and mirrors the new totals into the session index.
func (h *Handle) AccumulateSpend(usage spend.Usage) (spend.Totals, error) {
	totals, err := spend.Accumulate(h.dir, usage, h.rates)
	if err != nil {
		return spend.Totals{}, err
	}
	if h.index != nil {
		_ = h.index.SetSpend(h.ID, totals)
	}
	return totals, nil
}

// Dir returns the session's on-disk directory (or synthetic tmp key).
func (h *Handle) Dir() string { return h.dir }
