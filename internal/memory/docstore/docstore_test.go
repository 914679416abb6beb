package docstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xcorat/araliya/internal/memory/docstore"
)

func openTestStore(t *testing.T) *docstore.Store {
	t.Helper()
	s, err := docstore.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAddDocumentIsIdempotentByContentHash(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id1, err := s.AddDocument(ctx, "title", "source", "hello world", nil)
	require.NoError(t, err)

	id2, err := s.AddDocument(ctx, "other title", "other source", "hello world", nil)
	require.NoError(t, err)

	require.Equal(t, id1, id2, "re-adding identical content must return the existing id")
}

func TestGetAndListDocuments(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.AddDocument(ctx, "title", "source", "some content", map[string]string{"k": "v"})
	require.NoError(t, err)

	doc, content, err := s.GetDocument(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "some content", content)
	require.Equal(t, "v", doc.Metadata["k"])

	docs, err := s.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
}

func TestDeleteDocumentRemovesChunksAndFile(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.AddDocument(ctx, "title", "source", "some content here", nil)
	require.NoError(t, err)
	require.NoError(t, s.IndexChunks(ctx, id, docstore.ChunkDocument(id, "some content here", 8)))

	require.NoError(t, s.DeleteDocument(ctx, id))

	_, _, err = s.GetDocument(ctx, id)
	require.Error(t, err)

	count, err := s.ChunkCount(ctx, id)
	require.NoError(t, err)
	require.Equal(t, 0, count)
}

func TestChunkDocumentDropsWhitespaceOnlyChunks(t *testing.T) {
	chunks := docstore.ChunkDocument("doc-1", "ab   cd", 3)
	for _, c := range chunks {
		require.NotEmpty(t, c.Text)
	}
}

func TestSearchByTextEmptyQueryReturnsEmpty(t *testing.T) {
	s := openTestStore(t)
	results, err := s.SearchByText(context.Background(), "", 10)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestSearchByTextFindsIndexedChunk(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.AddDocument(ctx, "title", "source", "the quick brown fox jumps", nil)
	require.NoError(t, err)
	require.NoError(t, s.IndexChunks(ctx, id, docstore.ChunkDocument(id, "the quick brown fox jumps", 100)))

	results, err := s.SearchByText(ctx, "fox", 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.Equal(t, id, results[0].Chunk.DocID)
}
