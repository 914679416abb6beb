package docstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xcorat/araliya/internal/telemetry"
)

// scanInterval is how often the maintenance manager sweeps every agent's
// docstore for unindexed documents and orphaned content files.
const scanInterval = 24 * time.Hour

// Manager is the background maintenance component shared by the memory
// subsystem: one instance serves every agent's Store. It is reachable only
// from within the memory subsystem, never from the bus.
type Manager struct {
	logger  telemetry.Logger
	stores  map[string]*Store // agent id -> store
	scanNow chan struct{}
}

// NewManager builds a maintenance manager over the given agent-id-to-store
// mapping.
func NewManager(stores map[string]*Store, logger telemetry.Logger) *Manager {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	return &Manager{logger: logger, stores: stores, scanNow: make(chan struct{}, 1)}
}

// ID identifies this component for the component runtime.
func (*Manager) ID() string { return "memory.docstore-manager" }

// RequestScan asks the manager to run its sweep immediately rather than
// waiting for the next 24h tick. Non-blocking: a pending request is not
// queued twice.
func (m *Manager) RequestScan() {
	select {
	case m.scanNow <- struct{}{}:
	default:
	}
}

// Run executes the periodic scan loop until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(scanInterval)
	defer ticker.Stop()

	m.scanAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.scanAll(ctx)
		case <-m.scanNow:
			m.scanAll(ctx)
		}
	}
}

func (m *Manager) scanAll(ctx context.Context) {
	for agentID, s := range m.stores {
		if err := m.scanStore(ctx, s); err != nil {
			m.logger.Error(ctx, "docstore maintenance scan failed", "agent_id", agentID, "error", err)
		}
	}
}

func (m *Manager) scanStore(ctx context.Context, s *Store) error {
	docs, err := s.ListDocuments(ctx)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(docs))
	for _, doc := range docs {
		known[doc.ID] = true
		count, err := s.ChunkCount(ctx, doc.ID)
		if err != nil {
			return err
		}
		if count == 0 {
			_, content, err := s.GetDocument(ctx, doc.ID)
			if err != nil {
				return err
			}
			chunks := ChunkDocument(doc.ID, content, DefaultChunkSize)
			if err := s.IndexChunks(ctx, doc.ID, chunks); err != nil {
				return err
			}
		}
	}
	return m.removeOrphanedContentFiles(s, known)
}

func (m *Manager) removeOrphanedContentFiles(s *Store, known map[string]bool) error {
	entries, err := os.ReadDir(filepath.Join(s.root, "docs"))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".txt")
		if !known[id] {
			_ = os.Remove(filepath.Join(s.root, "docs", entry.Name()))
		}
	}
	return nil
}
