package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raine/pup-ancestry-bot/internal/breed"
	"github.com/raine/pup-ancestry-bot/internal/llm"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'}

func TestReadImages(t *testing.T) {
	dir := t.TempDir()
	png := filepath.Join(dir, "dog.png")
	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(png, pngHeader, 0644))
	require.NoError(t, os.WriteFile(txt, []byte("just some text"), 0644))

	images, err := readImages([]string{png})
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, "image/png", images[0].MIMEType)
	assert.Equal(t, pngHeader, images[0].Data)

	_, err = readImages([]string{png, txt})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not an image")

	_, err = readImages([]string{filepath.Join(dir, "missing.jpg")})
	require.Error(t, err)
}

func TestPrintAnalysis(t *testing.T) {
	var out bytes.Buffer
	printAnalysis(&out, &llm.Analysis{
		Result: &breed.AnalysisResult{
			IsDog:      true,
			MixedBreed: true,
			Breeds: []breed.BreedPrediction{
				{Name: "Labrador", Percentage: 70},
				{Name: "Poodle", Percentage: 30},
			},
			Characteristics: []string{"Wavy coat"},
			Reasoning:       "Ears and coat",
		},
		Usage: llm.Usage{InputTokens: 100, OutputTokens: 20, TotalTokens: 120, CostUSD: 0.0001},
	})

	text := out.String()
	assert.Contains(t, text, "Mixed breed")
	assert.Regexp(t, `Labrador\s+70%\n\s+Poodle\s+30%`, text)
	assert.Contains(t, text, "  - Wavy coat")
	assert.Contains(t, text, "Reasoning:   Ears and coat")
	assert.Contains(t, text, "100 in / 20 out / 120 total")
	assert.NotContains(t, text, "Cached")
}

func TestPrintAnalysis_NotADog(t *testing.T) {
	var out bytes.Buffer
	printAnalysis(&out, &llm.Analysis{
		Result: &breed.AnalysisResult{IsDog: false, Reasoning: "A cat"},
		Cached: true,
	})

	text := out.String()
	assert.Contains(t, text, "Not a dog.")
	assert.Contains(t, text, "A cat")
	assert.Contains(t, text, "Cached:      yes")
}

func TestRootCmd_RequiresImages(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs(nil)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	assert.Error(t, cmd.Execute())
}
