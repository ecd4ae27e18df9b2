package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raine/pup-ancestry-bot/internal/breed"
)

func TestFormatPercentage(t *testing.T) {
	assert.Equal(t, "70%", formatPercentage(70))
	assert.Equal(t, "55.5%", formatPercentage(55.5))
	assert.Equal(t, "0%", formatPercentage(0))
	assert.Equal(t, "120%", formatPercentage(120))
}

func TestFormatResult_KeepsServiceOrder(t *testing.T) {
	result := &breed.AnalysisResult{
		IsDog:      true,
		MixedBreed: true,
		Breeds: []breed.BreedPrediction{
			{Name: "Poodle", Percentage: 55.5},
			{Name: "Labrador", Percentage: 44.5},
		},
		Characteristics: []string{"Curly coat"},
		Reasoning:       "Coat and ears",
	}

	text := formatResult(result)

	assert.Contains(t, text, MsgResultMixed)
	assert.Contains(t, text, "• Poodle: 55.5%\n• Labrador: 44.5%")
	assert.Contains(t, text, "• Curly coat")
	assert.Contains(t, text, MsgResultNotes+"\nCoat and ears")
	assert.True(t, len(text) > len(MsgResultFooter))
	assert.Equal(t, MsgResultFooter, text[len(text)-len(MsgResultFooter):])
}

func TestFormatResult_Purebred(t *testing.T) {
	text := formatResult(&breed.AnalysisResult{
		IsDog:  true,
		Breeds: []breed.BreedPrediction{{Name: "Beagle", Percentage: 100}},
	})

	assert.Contains(t, text, MsgResultPurebred)
	assert.Contains(t, text, "• Beagle: 100%")
	assert.NotContains(t, text, MsgResultTraits)
	assert.NotContains(t, text, MsgResultNotes)
}

func TestFormatResult_NotADog(t *testing.T) {
	text := formatResult(&breed.AnalysisResult{
		IsDog:     false,
		Reasoning: "This is a cat",
		Breeds:    []breed.BreedPrediction{{Name: "Ignored", Percentage: 10}},
	})

	assert.Contains(t, text, MsgResultNotDog)
	assert.Contains(t, text, "This is a cat")
	assert.NotContains(t, text, MsgResultBreeds)
	assert.NotContains(t, text, "Ignored")
	assert.NotContains(t, text, MsgResultFooter)
}

func TestFormatResult_EscapesMarkdown(t *testing.T) {
	text := formatResult(&breed.AnalysisResult{
		IsDog:  true,
		Breeds: []breed.BreedPrediction{{Name: "Jack_Russell*", Percentage: 80}},
	})

	assert.Contains(t, text, "• Jack\\_Russell\\*: 80%")
}

func TestFormatStatus(t *testing.T) {
	s := breed.NewSession(nil, 5)
	assert.Contains(t, formatStatus(s), MsgStatusEmpty)
	assert.Contains(t, formatStatus(s), MsgStatusNoDetails)

	_, err := s.AddImages([]breed.ImageFile{{Data: []byte("a")}, {Data: []byte("b")}})
	require.NoError(t, err)
	require.NoError(t, s.SetMetadataField(breed.FieldWeight, "25kg"))
	require.NoError(t, s.SetMetadataField(breed.FieldAge, "3_years"))

	text := formatStatus(s)
	assert.Contains(t, text, "*2 photos* ready for analysis.")
	assert.Contains(t, text, MsgStatusDetails+"\nWeight: 25kg\nAge: 3\\_years")
	assert.NotContains(t, text, "Length:")
	assert.NotContains(t, text, MsgStatusLoading)

	_, err = s.BeginAnalysis()
	require.NoError(t, err)
	assert.Contains(t, formatStatus(s), MsgStatusLoading)
}

func callbackData(t *testing.T, s *breed.Session) [][]string {
	t.Helper()
	keyboard := statusKeyboard(s)
	if keyboard == nil {
		return nil
	}
	var rows [][]string
	for _, row := range keyboard.InlineKeyboard {
		var data []string
		for _, button := range row {
			require.NotNil(t, button.CallbackData)
			data = append(data, *button.CallbackData)
		}
		rows = append(rows, data)
	}
	return rows
}

func TestStatusKeyboard(t *testing.T) {
	metaRow := []string{"meta:weight", "meta:length", "meta:age"}

	t.Run("empty session only offers metadata", func(t *testing.T) {
		s := breed.NewSession(nil, 5)
		assert.Equal(t, [][]string{metaRow}, callbackData(t, s))
	})

	t.Run("metadata only offers clear", func(t *testing.T) {
		s := breed.NewSession(nil, 5)
		require.NoError(t, s.SetMetadataField(breed.FieldLength, "80cm"))
		assert.Equal(t, [][]string{metaRow, {callbackClear}}, callbackData(t, s))
	})

	t.Run("images offer analyze and clear", func(t *testing.T) {
		s := breed.NewSession(nil, 5)
		_, err := s.AddImages([]breed.ImageFile{{Data: []byte("a")}})
		require.NoError(t, err)
		assert.Equal(t, [][]string{metaRow, {callbackAnalyze, callbackClear}}, callbackData(t, s))
	})

	t.Run("loading has no buttons", func(t *testing.T) {
		s := breed.NewSession(nil, 5)
		_, err := s.AddImages([]breed.ImageFile{{Data: []byte("a")}})
		require.NoError(t, err)
		_, err = s.BeginAnalysis()
		require.NoError(t, err)
		assert.Nil(t, statusKeyboard(s))
	})
}

func TestPreviewKeyboard(t *testing.T) {
	keyboard := previewKeyboard("abc")
	require.Len(t, keyboard.InlineKeyboard, 1)
	require.Len(t, keyboard.InlineKeyboard[0], 1)
	button := keyboard.InlineKeyboard[0][0]
	assert.Equal(t, MsgButtonRemove, button.Text)
	assert.Equal(t, "img:rm:abc", *button.CallbackData)
}
