// Package memory wires together the session lifecycle, pluggable session
// stores, and per-agent document index into a single subsystem value
// shared by the bus handler and the docstore maintenance component.
package memory

import (
	"github.com/xcorat/araliya/internal/memory/docstore"
	"github.com/xcorat/araliya/internal/memory/session"
	"github.com/xcorat/araliya/internal/memory/spend"
	"github.com/xcorat/araliya/internal/memory/store"
	"github.com/xcorat/araliya/internal/memory/tmpstore"
	"github.com/xcorat/araliya/internal/telemetry"
)

// Config carries the subset of the loaded configuration tree the memory
// subsystem needs to construct itself.
type Config struct {
	Root              string
	KVCap             int
	TranscriptCap     int
	Rates             spend.Rates
	DocumentIndexDirs map[string]string // agent id -> docstore root, for agents with the capability enabled
}

// System is the memory subsystem's shared capability object: the session
// manager plus, for agents with the document-index capability enabled, a
// BM25 docstore.
type System struct {
	Sessions  *session.Manager
	Docstores map[string]*docstore.Store // agent id -> store
	Manager   *docstore.Manager          // background maintenance component
}

// New constructs the memory subsystem rooted at cfg.Root.
func New(cfg Config, logger telemetry.Logger) (*System, error) {
	basic := store.NewBasicStore(cfg.KVCap, cfg.TranscriptCap)
	tmp := tmpstore.NewTmpStore(cfg.KVCap, cfg.TranscriptCap)
	stores := map[string]store.Store{
		"basic_session": basic,
		"tmp":           tmp,
	}

	// session.NewManager itself places sessions.json at cfg.Root/sessions.json
	// and session directories at cfg.Root/sessions/{id}, so cfg.Root is
	// passed directly rather than pre-joining a "sessions" segment.
	sessions, err := session.NewManager(cfg.Root, stores, tmp, cfg.Rates)
	if err != nil {
		return nil, err
	}

	docstores := make(map[string]*docstore.Store, len(cfg.DocumentIndexDirs))
	for agentID, dir := range cfg.DocumentIndexDirs {
		ds, err := docstore.Open(dir)
		if err != nil {
			return nil, err
		}
		docstores[agentID] = ds
	}

	return &System{
		Sessions:  sessions,
		Docstores: docstores,
		Manager:   docstore.NewManager(docstores, logger),
	}, nil
}

// Close releases every open docstore connection.
func (s *System) Close() error {
	var firstErr error
	for _, ds := range s.Docstores {
		if err := ds.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
