package local

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/domain"
)

func vec(seed float32) []float32 {
	v := make([]float32, domain.EmbeddingDim)
	v[0] = 1
	v[1] = seed
	return v
}

func record(session string, idx int, seed float32) domain.VectorRecord {
	return domain.VectorRecord{
		ID:     domain.RecordID(session, idx),
		Vector: vec(seed),
		Metadata: domain.Metadata{
			Text:       "chunk text",
			Source:     "doc.pdf",
			ChunkIndex: idx,
			Session:    session,
			UploadedAt: time.Now(),
		},
	}
}

func TestUpsertAndQueryScopedBySession(t *testing.T) {
	ctx := context.Background()
	s, err := NewStore("")
	require.NoError(t, err)

	require.NoError(t, s.Upsert(ctx, []domain.VectorRecord{
		record("a", 0, 0.1), record("a", 1, 0.2),
		record("b", 0, 0.3),
	}))

	matches, err := s.Query(ctx, vec(0.1), 10, "a")
	require.NoError(t, err)
	require.Len(t, matches, 2)
	for _, m := range matches {
		assert.Equal(t, "a", m.Record.Metadata.Session)
		assert.Equal(t, "doc.pdf", m.Record.Metadata.Source)
		assert.Equal(t, "chunk text", m.Record.Metadata.Text)
	}

	matches, err = s.Query(ctx, vec(0.1), 10, "b")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "b_0", matches[0].Record.ID)
}

func TestQueryEmptyStore(t *testing.T) {
	s, err := NewStore("")
	require.NoError(t, err)
	matches, err := s.Query(context.Background(), vec(0.5), 4, "none")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestDeleteSessionRemovesOnlyThatSession(t *testing.T) {
	ctx := context.Background()
	s, err := NewStore("")
	require.NoError(t, err)
	require.NoError(t, s.Upsert(ctx, []domain.VectorRecord{
		record("a", 0, 0.1), record("a", 1, 0.2), record("b", 0, 0.3),
	}))

	deleted, err := s.DeleteSession(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	n, err := s.Count(ctx, "a")
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = s.Count(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDeleteSessionIdempotent(t *testing.T) {
	s, err := NewStore("")
	require.NoError(t, err)
	deleted, err := s.DeleteSession(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestUpsertOverwritesSameIDs(t *testing.T) {
	ctx := context.Background()
	s, err := NewStore("")
	require.NoError(t, err)
	require.NoError(t, s.Upsert(ctx, []domain.VectorRecord{record("a", 0, 0.1)}))
	require.NoError(t, s.Upsert(ctx, []domain.VectorRecord{record("a", 0, 0.9)}))
	n, err := s.Count(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
