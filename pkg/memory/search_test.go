package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engramdev/engram/pkg/workspace"
)

// stubEmbedder returns canned vectors per exact text and errors on unknown
// text, so tests control similarity exactly.
type stubEmbedder struct {
	vecs map[string][]float32
	dim  int
}

func (s *stubEmbedder) Dimension() int { return s.dim }

func (s *stubEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if v, ok := s.vecs[text]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("no vector for %q", text)
}

func (s *stubEmbedder) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := s.GenerateEmbedding(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func TestSearchRanksByCosineSimilarity(t *testing.T) {
	repo, _ := newTestRepo(t, workspace.ModeIsolated)
	ctx := context.Background()

	repo.embedder = &stubEmbedder{
		dim: 2,
		vecs: map[string][]float32{
			"database tuning":  {1, 0},
			"query planner":    {0.9, 0.1},
			"birthday party":   {0, 1},
			"database indexes": {1, 0},
		},
	}

	exact := mustCreate(t, repo, CreateInput{Content: "database tuning"})
	near := mustCreate(t, repo, CreateInput{Content: "query planner"})
	far := mustCreate(t, repo, CreateInput{Content: "birthday party"})

	results, err := repo.Search(ctx, SearchQuery{Text: "database indexes"})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, exact.ID, results[0].Memory.ID)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-9)
	assert.Equal(t, near.ID, results[1].Memory.ID)
	assert.Equal(t, far.ID, results[2].Memory.ID)
	assert.InDelta(t, 0.0, results[2].Similarity, 1e-9)
}

func TestSearchSkipsEntriesWithoutVectors(t *testing.T) {
	repo, _ := newTestRepo(t, workspace.ModeIsolated)
	ctx := context.Background()

	repo.embedder = &stubEmbedder{
		dim: 2,
		vecs: map[string][]float32{
			"indexed":   {1, 0},
			"the query": {1, 0},
		},
	}

	indexed := mustCreate(t, repo, CreateInput{Content: "indexed"})
	mustCreate(t, repo, CreateInput{Content: "embedding failed for this one"})

	results, err := repo.Search(ctx, SearchQuery{Text: "the query"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, indexed.ID, results[0].Memory.ID)
}

func TestSearchFilters(t *testing.T) {
	repo, _ := newTestRepo(t, workspace.ModeIsolated)
	ctx := context.Background()

	repo.embedder = &stubEmbedder{
		dim: 2,
		vecs: map[string][]float32{
			"alpha": {1, 0},
			"beta":  {1, 0},
			"q":     {1, 0},
		},
	}

	alpha := mustCreate(t, repo, CreateInput{
		Content:     "alpha",
		ContextType: ContextDecision,
		Tags:        []string{"arch"},
		Importance:  9,
	})
	mustCreate(t, repo, CreateInput{
		Content:     "beta",
		ContextType: ContextInformation,
		Importance:  2,
	})

	results, err := repo.Search(ctx, SearchQuery{Text: "q", ContextType: ContextDecision})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, alpha.ID, results[0].Memory.ID)

	results, err = repo.Search(ctx, SearchQuery{Text: "q", Tags: []string{"arch"}})
	require.NoError(t, err)
	require.Len(t, results, 1)

	results, err = repo.Search(ctx, SearchQuery{Text: "q", MinImportance: 5})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, alpha.ID, results[0].Memory.ID)
}

func TestSearchValidation(t *testing.T) {
	repo, _ := newTestRepo(t, workspace.ModeIsolated)

	_, err := repo.Search(context.Background(), SearchQuery{Text: "  "})
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	_, err = repo.Search(context.Background(), SearchQuery{Text: "q", ContextType: "vibe"})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestCosineSimilarity(t *testing.T) {
	sim, ok := cosineSimilarity([]float32{1, 0}, []float32{1, 0})
	require.True(t, ok)
	assert.InDelta(t, 1.0, sim, 1e-9)

	sim, ok = cosineSimilarity([]float32{1, 0}, []float32{0, 1})
	require.True(t, ok)
	assert.InDelta(t, 0.0, sim, 1e-9)

	sim, ok = cosineSimilarity([]float32{1, 0}, []float32{-1, 0})
	require.True(t, ok)
	assert.InDelta(t, -1.0, sim, 1e-9)

	_, ok = cosineSimilarity([]float32{1, 0}, []float32{1, 0, 0})
	assert.False(t, ok, "length mismatch")

	_, ok = cosineSimilarity(nil, nil)
	assert.False(t, ok, "empty vectors")

	_, ok = cosineSimilarity([]float32{0, 0}, []float32{1, 0})
	assert.False(t, ok, "zero magnitude")
}
