package tmpstore_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xcorat/araliya/internal/memory/tmpstore"
)

func TestTmpStoreKVRoundTrip(t *testing.T) {
	s := tmpstore.NewTmpStore(10, 10)
	require.NoError(t, s.Init("session-a"))

	require.NoError(t, s.KVSet("session-a", "k", "v"))
	v, ok, err := s.KVGet("session-a", "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", v)

	removed, err := s.KVDelete("session-a", "k")
	require.NoError(t, err)
	require.True(t, removed)
}

func TestTmpStoreIsolatedPerSessionKey(t *testing.T) {
	s := tmpstore.NewTmpStore(10, 10)
	require.NoError(t, s.KVSet("session-a", "k", "a-value"))
	require.NoError(t, s.KVSet("session-b", "k", "b-value"))

	va, _, _ := s.KVGet("session-a", "k")
	vb, _, _ := s.KVGet("session-b", "k")
	require.Equal(t, "a-value", va)
	require.Equal(t, "b-value", vb)
}

func TestTmpStoreTranscriptAppendAndReadLast(t *testing.T) {
	s := tmpstore.NewTmpStore(10, 10)
	require.NoError(t, s.TranscriptAppend("session-a", "user", "hello"))
	require.NoError(t, s.TranscriptAppend("session-a", "assistant", "hi there"))

	entries, err := s.TranscriptReadLast("session-a", 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "assistant", entries[0].Role)
	require.Equal(t, "hi there", entries[0].Content)
}

func TestTmpStoreNothingPersistsAcrossInstances(t *testing.T) {
	s1 := tmpstore.NewTmpStore(10, 10)
	require.NoError(t, s1.KVSet("session-a", "k", "v"))

	s2 := tmpstore.NewTmpStore(10, 10)
	_, ok, _ := s2.KVGet("session-a", "k")
	require.False(t, ok, "a fresh TmpStore must not see another instance's state")
}
