package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/raine/pup-ancestry-bot/internal/breed"
)

// ErrAnalysisFailed wraps every failure of a single analysis attempt:
// network errors, service errors and malformed responses alike.
var ErrAnalysisFailed = errors.New("analysis failed")

// DefaultAnalysisTimeout bounds a single analysis attempt.
const DefaultAnalysisTimeout = 90 * time.Second

// Client runs one analysis attempt per call against an Analyzer.
// There are no retries.
type Client struct {
	analyzer Analyzer
	timeout  time.Duration
}

// NewClient creates a Client. A non-positive timeout selects DefaultAnalysisTimeout.
func NewClient(analyzer Analyzer, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultAnalysisTimeout
	}
	return &Client{analyzer: analyzer, timeout: timeout}
}

// Analyze sends the images (at least one) and metadata to the analyzer.
// Breed percentages are returned as the service produced them.
func (c *Client) Analyze(ctx context.Context, images []breed.UploadedImage, meta breed.DogMetadata) (*Analysis, error) {
	if len(images) == 0 {
		return nil, breed.ErrNoImages
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	input := make([]Image, len(images))
	for i, img := range images {
		input[i] = Image{Data: img.Data, MIMEType: img.MIMEType}
	}

	analysis, err := c.analyzer.AnalyzeDog(reqCtx, input, meta)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}
	if analysis == nil || analysis.Result == nil {
		return nil, fmt.Errorf("%w: empty analysis", ErrAnalysisFailed)
	}
	return analysis, nil
}
