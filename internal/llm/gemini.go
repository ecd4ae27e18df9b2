package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/raine/pup-ancestry-bot/internal/breed"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// maxImagesPerRequest matches Telegram's album limit.
const maxImagesPerRequest = 10

// Gemini 2.5 Flash pricing (per million tokens)
const (
	geminiInputPricePerMillion  = 0.30
	geminiOutputPricePerMillion = 2.50
)

const breedPromptSingle = `Analyze this photo of a dog and estimate its breed composition.`

const breedPromptMulti = `Analyze these photos of a dog and estimate its breed composition.

The photos show the same dog from different angles - use all of them together to get a complete view of its build, coat, head shape and proportions.`

const breedPromptBody = `
If the photos do not show a dog, set isDog to false and leave breeds empty.

Respond in JSON format with these fields:
- isDog: true if the photos show a dog
- breeds: list of objects with "name" and "percentage", ordered from the largest share to the smallest. Percentages should add up to 100.
- mixedBreed: true if the dog appears to be a mix of two or more breeds
- characteristics: short list of the visible physical traits the estimate is based on
- reasoning: 2-3 sentences explaining the estimate

Example response:
{"isDog": true, "breeds": [{"name": "Labrador Retriever", "percentage": 70}, {"name": "Poodle", "percentage": 30}], "mixedBreed": true, "characteristics": ["floppy ears", "wavy coat", "otter tail"], "reasoning": "The broad head and otter tail point to a Labrador, while the wavy coat suggests Poodle ancestry."}

Respond ONLY with the JSON object, no markdown or other text.`

// GeminiAnalyzer uses Google's Gemini API for breed analysis.
type GeminiAnalyzer struct {
	client *genai.Client
	model  string
}

// NewGeminiAnalyzer creates a new Gemini-based analyzer.
// An empty model selects DefaultGeminiModel.
func NewGeminiAnalyzer(ctx context.Context, apiKey, model string) (*GeminiAnalyzer, error) {
	return newGeminiAnalyzer(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}, model)
}

func newGeminiAnalyzer(ctx context.Context, cfg *genai.ClientConfig, model string) (*GeminiAnalyzer, error) {
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiAnalyzer{client: client, model: model}, nil
}

// Model returns the Gemini model name in use.
func (g *GeminiAnalyzer) Model() string {
	return g.model
}

// AnalyzeDog implements the Analyzer interface using Gemini.
func (g *GeminiAnalyzer) AnalyzeDog(ctx context.Context, images []Image, meta breed.DogMetadata) (*Analysis, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("no images provided")
	}

	if len(images) > maxImagesPerRequest {
		log.Warn().Int("imageCount", len(images)).Int("limit", maxImagesPerRequest).Msg("dropping images over the request limit")
		images = images[:maxImagesPerRequest]
	}

	// Prompt first, then all images
	parts := []*genai.Part{
		genai.NewPartFromText(buildPrompt(len(images), meta)),
	}
	for _, img := range images {
		mimeType := img.MIMEType
		if mimeType == "" {
			mimeType = "image/jpeg"
		}
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{Data: img.Data, MIMEType: mimeType},
		})
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   analysisResultSchema(),
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}, config)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from Gemini")
	}

	text := result.Text()
	log.Debug().Str("response", text).Msg("breed analysis llm output")

	analysis, err := parseAnalysisResult(text)
	if err != nil {
		return nil, err
	}

	usage := Usage{}
	if result.UsageMetadata != nil {
		usage.InputTokens = int64(result.UsageMetadata.PromptTokenCount)
		usage.OutputTokens = int64(result.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int64(result.UsageMetadata.TotalTokenCount)
		usage.CostUSD = calculateGeminiCost(usage.InputTokens, usage.OutputTokens, geminiInputPricePerMillion, geminiOutputPricePerMillion)
	}

	log.Info().
		Str("model", g.model).
		Int("imageCount", len(images)).
		Bool("isDog", analysis.IsDog).
		Int("breedCount", len(analysis.Breeds)).
		Int64("inputTokens", usage.InputTokens).
		Int64("outputTokens", usage.OutputTokens).
		Float64("costUSD", usage.CostUSD).
		Msg("breed analysis llm call")

	return &Analysis{Result: analysis, Usage: usage}, nil
}

// buildPrompt picks the single or multi image intro and appends the
// owner-supplied metadata that is present.
func buildPrompt(imageCount int, meta breed.DogMetadata) string {
	var b strings.Builder
	if imageCount > 1 {
		b.WriteString(breedPromptMulti)
	} else {
		b.WriteString(breedPromptSingle)
	}
	b.WriteString("\n")

	if !meta.IsEmpty() {
		b.WriteString("\nThe owner provided these details about the dog. Take them into account, e.g. size and weight narrow down the candidate breeds:\n")
		if meta.Weight != "" {
			fmt.Fprintf(&b, "- Weight: %s\n", meta.Weight)
		}
		if meta.Length != "" {
			fmt.Fprintf(&b, "- Length: %s\n", meta.Length)
		}
		if meta.Age != "" {
			fmt.Fprintf(&b, "- Age: %s\n", meta.Age)
		}
	}

	b.WriteString(breedPromptBody)
	return b.String()
}

// analysisResultSchema describes the JSON object Gemini must return.
func analysisResultSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"isDog": {Type: genai.TypeBoolean, Description: "Whether the photos show a dog"},
			"breeds": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"name":       {Type: genai.TypeString},
						"percentage": {Type: genai.TypeNumber},
					},
					Required:         []string{"name", "percentage"},
					PropertyOrdering: []string{"name", "percentage"},
				},
			},
			"mixedBreed":      {Type: genai.TypeBoolean},
			"characteristics": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			"reasoning":       {Type: genai.TypeString},
		},
		Required:         []string{"isDog", "breeds", "mixedBreed", "characteristics", "reasoning"},
		PropertyOrdering: []string{"isDog", "breeds", "mixedBreed", "characteristics", "reasoning"},
	}
}

func calculateGeminiCost(inputTokens, outputTokens int64, inputPrice, outputPrice float64) float64 {
	inputCost := float64(inputTokens) / 1_000_000 * inputPrice
	outputCost := float64(outputTokens) / 1_000_000 * outputPrice
	return inputCost + outputCost
}

// extractJSONObject extracts a JSON object from text that may contain markdown
// code blocks or other formatting. Returns the extracted JSON string or an error.
func extractJSONObject(text string) (string, error) {
	text = strings.TrimSpace(text)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("no JSON object found in response: %s", text)
	}
	return text[start : end+1], nil
}

func parseAnalysisResult(text string) (*breed.AnalysisResult, error) {
	jsonStr, err := extractJSONObject(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w", err)
	}

	var result breed.AnalysisResult
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w (response: %s)", err, jsonStr)
	}

	// An object without breeds or reasoning is not an analysis
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(jsonStr), &fields); err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w", err)
	}
	_, hasBreeds := fields["breeds"]
	_, hasReasoning := fields["reasoning"]
	if !hasBreeds && !hasReasoning {
		return nil, fmt.Errorf("response has neither breeds nor reasoning: %s", jsonStr)
	}

	return &result, nil
}
