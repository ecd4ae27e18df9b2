package llm

import (
	"context"
	"encoding/binary"
	"encoding/hex"

	"github.com/raine/pup-ancestry-bot/internal/breed"
	"github.com/raine/pup-ancestry-bot/internal/storage"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/blake2b"
)

// CachedAnalyzer wraps an Analyzer with an analysis cache.
type CachedAnalyzer struct {
	inner Analyzer
	store storage.AnalysisCache
}

// NewCachedAnalyzer creates a cached analyzer.
func NewCachedAnalyzer(inner Analyzer, store storage.AnalysisCache) *CachedAnalyzer {
	return &CachedAnalyzer{inner: inner, store: store}
}

// cacheKey hashes the image data and metadata.
// Every part is length-prefixed to prevent boundary collisions (e.g. [A,B] vs [AB]).
func cacheKey(images []Image, meta breed.DogMetadata) string {
	h, _ := blake2b.New256(nil) // only fails for an oversized key
	write := func(b []byte) {
		binary.Write(h, binary.LittleEndian, int64(len(b)))
		h.Write(b)
	}
	for _, img := range images {
		write(img.Data)
	}
	write([]byte(meta.Weight))
	write([]byte(meta.Length))
	write([]byte(meta.Age))
	return hex.EncodeToString(h.Sum(nil))
}

// AnalyzeDog implements the Analyzer interface with caching.
func (c *CachedAnalyzer) AnalyzeDog(ctx context.Context, images []Image, meta breed.DogMetadata) (*Analysis, error) {
	key := cacheKey(images, meta)

	if c.store != nil {
		cached, err := c.store.GetAnalysis(key)
		if err != nil {
			log.Warn().Err(err).Msg("failed to check analysis cache")
		} else if cached != nil {
			log.Debug().Str("key", key[:16]).Msg("analysis cache hit")
			return &Analysis{Result: cached, Cached: true}, nil
		}
	}

	analysis, err := c.inner.AnalyzeDog(ctx, images, meta)
	if err != nil {
		return nil, err
	}

	if c.store != nil && analysis.Result != nil {
		if err := c.store.SetAnalysis(key, analysis.Result); err != nil {
			log.Warn().Err(err).Msg("failed to cache analysis result")
		} else {
			log.Debug().Str("key", key[:16]).Msg("cached analysis result")
		}
	}

	return analysis, nil
}

// GetGeminiAnalyzer extracts the GeminiAnalyzer from an Analyzer,
// unwrapping CachedAnalyzer layers.
func GetGeminiAnalyzer(a Analyzer) *GeminiAnalyzer {
	curr := a
	for {
		switch t := curr.(type) {
		case *GeminiAnalyzer:
			return t
		case *CachedAnalyzer:
			curr = t.inner
		default:
			return nil
		}
	}
}
