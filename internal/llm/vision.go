package llm

import (
	"context"

	"github.com/raine/pup-ancestry-bot/internal/breed"
)

// Image is a single image sent to the vision model.
type Image struct {
	Data     []byte
	MIMEType string
}

// Usage contains token usage and cost information.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
	CostUSD      float64
}

// Analysis contains the breed estimate and usage information.
type Analysis struct {
	Result *breed.AnalysisResult
	Usage  Usage
	Cached bool // Served from the analysis cache
}

// Analyzer can estimate a dog's breed composition from photos.
type Analyzer interface {
	// AnalyzeDog analyzes one or more photos of the same dog together with
	// optional owner-supplied metadata.
	AnalyzeDog(ctx context.Context, images []Image, meta breed.DogMetadata) (*Analysis, error)
}
