package breed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReleaser struct {
	released []string
}

func (r *recordingReleaser) ReleasePreview(img UploadedImage) {
	r.released = append(r.released, img.ID)
}

func makeFiles(n int) []ImageFile {
	files := make([]ImageFile, n)
	for i := range files {
		files[i] = ImageFile{Data: []byte{byte(i)}, MIMEType: "image/jpeg", FileID: string(rune('a' + i))}
	}
	return files
}

func sampleResult() *AnalysisResult {
	return &AnalysisResult{
		IsDog:           true,
		Breeds:          []BreedPrediction{{Name: "Labrador", Percentage: 70}, {Name: "Poodle", Percentage: 30}},
		Reasoning:       "curly coat",
		MixedBreed:      true,
		Characteristics: []string{"floppy ears"},
	}
}

func TestAddImages_AssignsUniqueIDs(t *testing.T) {
	s := NewSession(nil, 0)

	added, err := s.AddImages(makeFiles(3))
	require.NoError(t, err)
	assert.Len(t, added, 3)

	more, err := s.AddImages(makeFiles(2))
	require.NoError(t, err)
	assert.Len(t, more, 2)

	seen := map[string]bool{}
	for _, img := range s.Images() {
		assert.NotEmpty(t, img.ID)
		assert.False(t, seen[img.ID], "duplicate id %s", img.ID)
		seen[img.ID] = true
	}
	assert.Equal(t, 5, s.ImageCount())
}

func TestAddImages_PreservesSelectionOrder(t *testing.T) {
	s := NewSession(nil, 0)
	_, err := s.AddImages(makeFiles(3))
	require.NoError(t, err)

	images := s.Images()
	assert.Equal(t, "a", images[0].FileID)
	assert.Equal(t, "b", images[1].FileID)
	assert.Equal(t, "c", images[2].FileID)
}

func TestAddImages_ClearsStaleResultAndError(t *testing.T) {
	s := NewSession(nil, 0)
	_, err := s.AddImages(makeFiles(1))
	require.NoError(t, err)

	_, err = s.BeginAnalysis()
	require.NoError(t, err)
	s.CompleteWithResult(sampleResult())
	require.NotNil(t, s.Result())

	_, err = s.AddImages(makeFiles(1))
	require.NoError(t, err)
	assert.Nil(t, s.Result())

	_, err = s.BeginAnalysis()
	require.NoError(t, err)
	s.CompleteWithError("failed")
	require.Equal(t, "failed", s.ErrorMessage())

	_, err = s.AddImages(makeFiles(1))
	require.NoError(t, err)
	assert.Empty(t, s.ErrorMessage())
}

func TestAddImages_RespectsLimit(t *testing.T) {
	s := NewSession(nil, 3)
	_, err := s.AddImages(makeFiles(2))
	require.NoError(t, err)

	_, err = s.AddImages(makeFiles(2))
	assert.ErrorIs(t, err, ErrTooManyImages)
	assert.Equal(t, 2, s.ImageCount(), "a rejected batch must not be partially added")
}

func TestRemoveImage_LeavesRemainingUnique(t *testing.T) {
	r := &recordingReleaser{}
	s := NewSession(r, 0)
	added, err := s.AddImages(makeFiles(4))
	require.NoError(t, err)

	require.NoError(t, s.RemoveImage(added[1].ID))

	images := s.Images()
	assert.Len(t, images, 3)
	ids := map[string]bool{}
	for _, img := range images {
		assert.NotEqual(t, added[1].ID, img.ID)
		ids[img.ID] = true
	}
	assert.Len(t, ids, 3)
	assert.Equal(t, []string{added[1].ID}, r.released)
}

func TestRemoveImage_DoesNotAliasSnapshot(t *testing.T) {
	s := NewSession(nil, 0)
	added, err := s.AddImages(makeFiles(3))
	require.NoError(t, err)

	before := s.Images()
	require.NoError(t, s.RemoveImage(added[0].ID))

	assert.Equal(t, added[0].ID, before[0].ID)
	assert.Equal(t, added[1].ID, before[1].ID)
}

func TestRemoveImage_UnknownID(t *testing.T) {
	r := &recordingReleaser{}
	s := NewSession(r, 0)
	_, err := s.AddImages(makeFiles(1))
	require.NoError(t, err)

	assert.ErrorIs(t, s.RemoveImage("nope"), ErrImageNotFound)
	assert.Equal(t, 1, s.ImageCount())
	assert.Empty(t, r.released)
}

func TestSetMetadataField(t *testing.T) {
	s := NewSession(nil, 0)
	require.NoError(t, s.SetMetadataField(FieldWeight, " 25 kg "))
	require.NoError(t, s.SetMetadataField(FieldLength, "60cm"))
	require.NoError(t, s.SetMetadataField(FieldAge, "3 years"))

	assert.Equal(t, DogMetadata{Weight: "25 kg", Length: "60cm", Age: "3 years"}, s.Metadata())

	require.NoError(t, s.SetMetadataField(FieldLength, ""))
	assert.Equal(t, "", s.Metadata().Length)
	assert.Equal(t, "25 kg", s.Metadata().Weight)
}

func TestClear_ResetsEverything(t *testing.T) {
	r := &recordingReleaser{}
	s := NewSession(r, 0)
	added, err := s.AddImages(makeFiles(3))
	require.NoError(t, err)
	require.NoError(t, s.SetMetadataField(FieldAge, "2"))
	_, err = s.BeginAnalysis()
	require.NoError(t, err)
	s.CompleteWithError("boom")

	require.NoError(t, s.Clear())

	assert.Equal(t, 0, s.ImageCount())
	assert.Equal(t, DogMetadata{}, s.Metadata())
	assert.Nil(t, s.Result())
	assert.Empty(t, s.ErrorMessage())
	assert.False(t, s.Loading())
	assert.Equal(t, []string{added[0].ID, added[1].ID, added[2].ID}, r.released)
}

func TestBeginAnalysis_RequiresImages(t *testing.T) {
	s := NewSession(nil, 0)
	req, err := s.BeginAnalysis()
	assert.ErrorIs(t, err, ErrNoImages)
	assert.Nil(t, req)
	assert.False(t, s.Loading())
	assert.False(t, s.CanAnalyze())
}

func TestBeginAnalysis_IsExclusive(t *testing.T) {
	s := NewSession(nil, 0)
	_, err := s.AddImages(makeFiles(2))
	require.NoError(t, err)
	require.NoError(t, s.SetMetadataField(FieldWeight, "30kg"))

	req, err := s.BeginAnalysis()
	require.NoError(t, err)
	assert.Len(t, req.Images, 2)
	assert.Equal(t, "30kg", req.Metadata.Weight)
	assert.True(t, s.Loading())
	assert.False(t, s.CanAnalyze())
	assert.False(t, s.CanClear())

	_, err = s.BeginAnalysis()
	assert.ErrorIs(t, err, ErrAnalysisInProgress)
}

func TestMutationsRefusedWhileLoading(t *testing.T) {
	r := &recordingReleaser{}
	s := NewSession(r, 0)
	added, err := s.AddImages(makeFiles(1))
	require.NoError(t, err)
	_, err = s.BeginAnalysis()
	require.NoError(t, err)

	_, err = s.AddImages(makeFiles(1))
	assert.ErrorIs(t, err, ErrAnalysisInProgress)
	assert.ErrorIs(t, s.RemoveImage(added[0].ID), ErrAnalysisInProgress)
	assert.ErrorIs(t, s.SetMetadataField(FieldAge, "1"), ErrAnalysisInProgress)
	assert.ErrorIs(t, s.Clear(), ErrAnalysisInProgress)

	assert.Equal(t, 1, s.ImageCount())
	assert.Empty(t, r.released)
}

func TestCompletion_ResultAndErrorAreExclusive(t *testing.T) {
	s := NewSession(nil, 0)
	_, err := s.AddImages(makeFiles(1))
	require.NoError(t, err)

	_, err = s.BeginAnalysis()
	require.NoError(t, err)
	s.CompleteWithError("boom")
	assert.Equal(t, "boom", s.ErrorMessage())
	assert.Nil(t, s.Result())
	assert.False(t, s.Loading())

	_, err = s.BeginAnalysis()
	require.NoError(t, err)
	assert.Empty(t, s.ErrorMessage(), "beginning an analysis clears the previous error")
	s.CompleteWithResult(sampleResult())
	assert.Empty(t, s.ErrorMessage())
	assert.NotNil(t, s.Result())

	_, err = s.BeginAnalysis()
	require.NoError(t, err)
	s.CompleteWithError("again")
	assert.Nil(t, s.Result())
	assert.Equal(t, "again", s.ErrorMessage())
}

func TestCompleteWithResult_KeepsBreedOrder(t *testing.T) {
	s := NewSession(nil, 0)
	_, err := s.AddImages(makeFiles(1))
	require.NoError(t, err)
	_, err = s.BeginAnalysis()
	require.NoError(t, err)

	s.CompleteWithResult(sampleResult())

	breeds := s.Result().Breeds
	require.Len(t, breeds, 2)
	assert.Equal(t, BreedPrediction{Name: "Labrador", Percentage: 70}, breeds[0])
	assert.Equal(t, BreedPrediction{Name: "Poodle", Percentage: 30}, breeds[1])
}

func TestCanClear(t *testing.T) {
	s := NewSession(nil, 0)
	assert.False(t, s.CanClear())

	require.NoError(t, s.SetMetadataField(FieldAge, "4"))
	assert.True(t, s.CanClear())

	require.NoError(t, s.SetMetadataField(FieldAge, ""))
	assert.False(t, s.CanClear())

	_, err := s.AddImages(makeFiles(1))
	require.NoError(t, err)
	assert.True(t, s.CanClear())
}

func TestSetPreviewAndImageAt(t *testing.T) {
	s := NewSession(nil, 0)
	added, err := s.AddImages(makeFiles(2))
	require.NoError(t, err)

	require.NoError(t, s.SetPreview(added[1].ID, 42))
	assert.ErrorIs(t, s.SetPreview("missing", 1), ErrImageNotFound)

	img, ok := s.ImageAt(2)
	require.True(t, ok)
	assert.Equal(t, 42, img.PreviewMessageID)

	_, ok = s.ImageAt(0)
	assert.False(t, ok)
	_, ok = s.ImageAt(3)
	assert.False(t, ok)
}

func TestParseField(t *testing.T) {
	for _, f := range Fields {
		parsed, err := ParseField(f.String())
		require.NoError(t, err)
		assert.Equal(t, f, parsed)
	}
	_, err := ParseField("height")
	assert.Error(t, err)
}
