package llm

import (
	"context"
	"testing"

	"github.com/raine/pup-ancestry-bot/internal/breed"
	"github.com/raine/pup-ancestry-bot/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	store, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCacheKey(t *testing.T) {
	a := []Image{{Data: []byte("A")}, {Data: []byte("B")}}
	ab := []Image{{Data: []byte("AB")}}

	assert.Equal(t, cacheKey(a, breed.DogMetadata{}), cacheKey(a, breed.DogMetadata{}))
	assert.NotEqual(t, cacheKey(a, breed.DogMetadata{}), cacheKey(ab, breed.DogMetadata{}), "image boundaries matter")
	assert.NotEqual(t, cacheKey(a, breed.DogMetadata{}), cacheKey(a, breed.DogMetadata{Weight: "10kg"}), "metadata matters")
	assert.NotEqual(t,
		cacheKey(a, breed.DogMetadata{Weight: "10", Length: "kg"}),
		cacheKey(a, breed.DogMetadata{Weight: "10kg"}),
	)
	assert.Len(t, cacheKey(a, breed.DogMetadata{}), 64)
}

func TestCachedAnalyzer_HitSkipsInner(t *testing.T) {
	inner := new(mockAnalyzer)
	images := []Image{{Data: []byte("dog")}}
	meta := breed.DogMetadata{Age: "1"}
	inner.On("AnalyzeDog", mock.Anything, images, meta).
		Return(&Analysis{Result: labradorPoodle(), Usage: Usage{TotalTokens: 10}}, nil).Once()

	cached := NewCachedAnalyzer(inner, newTestCache(t))

	first, err := cached.AnalyzeDog(context.Background(), images, meta)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := cached.AnalyzeDog(context.Background(), images, meta)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Result, second.Result)
	assert.Equal(t, Usage{}, second.Usage)

	inner.AssertNumberOfCalls(t, "AnalyzeDog", 1)
}

func TestCachedAnalyzer_ErrorsAreNotCached(t *testing.T) {
	inner := new(mockAnalyzer)
	images := []Image{{Data: []byte("dog")}}
	inner.On("AnalyzeDog", mock.Anything, images, breed.DogMetadata{}).Return(nil, assert.AnError).Once()
	inner.On("AnalyzeDog", mock.Anything, images, breed.DogMetadata{}).Return(&Analysis{Result: labradorPoodle()}, nil).Once()

	cached := NewCachedAnalyzer(inner, newTestCache(t))

	_, err := cached.AnalyzeDog(context.Background(), images, breed.DogMetadata{})
	assert.ErrorIs(t, err, assert.AnError)

	analysis, err := cached.AnalyzeDog(context.Background(), images, breed.DogMetadata{})
	require.NoError(t, err)
	assert.False(t, analysis.Cached)
	inner.AssertNumberOfCalls(t, "AnalyzeDog", 2)
}

func TestCachedAnalyzer_NilStore(t *testing.T) {
	inner := new(mockAnalyzer)
	inner.On("AnalyzeDog", mock.Anything, mock.Anything, mock.Anything).Return(&Analysis{Result: labradorPoodle()}, nil).Twice()

	cached := NewCachedAnalyzer(inner, nil)
	for i := 0; i < 2; i++ {
		_, err := cached.AnalyzeDog(context.Background(), []Image{{Data: []byte("x")}}, breed.DogMetadata{})
		require.NoError(t, err)
	}
	inner.AssertNumberOfCalls(t, "AnalyzeDog", 2)
}

func TestGetGeminiAnalyzer(t *testing.T) {
	g := &GeminiAnalyzer{model: "m"}
	assert.Same(t, g, GetGeminiAnalyzer(g))
	assert.Same(t, g, GetGeminiAnalyzer(NewCachedAnalyzer(NewCachedAnalyzer(g, nil), nil)))
	assert.Nil(t, GetGeminiAnalyzer(new(mockAnalyzer)))
}
