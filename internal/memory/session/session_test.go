package session_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xcorat/araliya/internal/memory/session"
	"github.com/xcorat/araliya/internal/memory/spend"
	"github.com/xcorat/araliya/internal/memory/store"
	"github.com/xcorat/araliya/internal/memory/tmpstore"
)

func newTestManager(t *testing.T) *session.Manager {
	t.Helper()
	root := t.TempDir()
	basic := store.NewBasicStore(100, 100)
	tmp := tmpstore.NewTmpStore(100, 100)
	stores := map[string]store.Store{
		"basic_session": basic,
		"tmp":            tmp,
	}
	m, err := session.NewManager(root, stores, tmp, spend.Rates{InputPerMillion: 1.0, OutputPerMillion: 4.0})
	require.NoError(t, err)
	return m
}

func TestCreateSessionThenLoad(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	h, err := m.CreateSession(ctx, []string{"basic_session"}, "agent-1")
	require.NoError(t, err)
	require.NotEmpty(t, h.ID)

	require.NoError(t, h.KVSet("k", "v"))

	loaded, err := m.LoadSession(ctx, h.ID, "agent-1")
	require.NoError(t, err)
	v, ok, err := loaded.KVGet("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", v)
}

func TestLoadUnknownSessionFails(t *testing.T) {
	m := newTestManager(t)
	_, err := m.LoadSession(context.Background(), "does-not-exist", "agent-1")
	require.ErrorIs(t, err, session.ErrUnknownSession)
}

func TestListSessionsNewestFirst(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	_, err := m.CreateSession(ctx, []string{"basic_session"}, "agent-1")
	require.NoError(t, err)
	second, err := m.CreateSession(ctx, []string{"basic_session"}, "agent-1")
	require.NoError(t, err)

	infos, err := m.ListSessions()
	require.NoError(t, err)
	require.Len(t, infos, 2)
	require.Equal(t, second.ID, infos[0].ID)
}

func TestCreateTmpStoreIsNotIndexed(t *testing.T) {
	m := newTestManager(t)
	h, err := m.CreateTmpStore("agent-1")
	require.NoError(t, err)
	require.NoError(t, h.KVSet("k", "v"))

	infos, err := m.ListSessions()
	require.NoError(t, err)
	require.Len(t, infos, 0)
}

func TestAccumulateSpendMirroredIntoIndex(t *testing.T) {
	m := newTestManager(t)
	h, err := m.CreateSession(context.Background(), []string{"basic_session"}, "agent-1")
	require.NoError(t, err)

	_, err = h.AccumulateSpend(spend.Usage{InputTokens: 500, OutputTokens: 100})
	require.NoError(t, err)
	totals, err := h.AccumulateSpend(spend.Usage{InputTokens: 300, OutputTokens: 200})
	require.NoError(t, err)

	require.Equal(t, int64(800), totals.TotalInputTokens)
	require.InDelta(t, 0.0020, totals.TotalCostUSD, 1e-9)

	// The session dir is {root}/sessions/{id}; reopen the index at {root}.
	idx, err := session.NewIndex(filepath.Dir(filepath.Dir(h.Dir())))
	require.NoError(t, err)
	entry, ok, err := idx.Get(h.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, entry.Spend)
	require.Equal(t, totals.TotalInputTokens, entry.Spend.TotalInputTokens)
	require.InDelta(t, totals.TotalCostUSD, entry.Spend.TotalCostUSD, 1e-9)
}
