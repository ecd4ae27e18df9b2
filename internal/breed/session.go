package breed

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNoImages           = errors.New("no images selected")
	ErrAnalysisInProgress = errors.New("analysis in progress")
	ErrImageNotFound      = errors.New("image not found")
	ErrTooManyImages      = errors.New("too many images")
)

// DefaultMaxImages is the default limit of images held by a session.
const DefaultMaxImages = 10

// PreviewReleaser releases the preview resource of an image that leaves the session.
type PreviewReleaser interface {
	ReleasePreview(img UploadedImage)
}

// Session holds the images, metadata and analysis lifecycle of one chat.
//
// Session is not safe for concurrent use. It is owned by the chat's session
// worker, which serializes every call.
type Session struct {
	images   []UploadedImage
	metadata DogMetadata
	loading  bool
	result   *AnalysisResult
	err      string

	maxImages int
	releaser  PreviewReleaser
	newID     func() string
}

// NewSession creates an empty session. releaser may be nil.
func NewSession(releaser PreviewReleaser, maxImages int) *Session {
	if maxImages <= 0 {
		maxImages = DefaultMaxImages
	}
	return &Session{
		maxImages: maxImages,
		releaser:  releaser,
		newID:     uuid.NewString,
	}
}

// AnalysisRequest is the snapshot taken when an analysis begins.
type AnalysisRequest struct {
	Images   []UploadedImage
	Metadata DogMetadata
}

// AddImages appends files to the session with fresh IDs and clears any
// stale result or error. Either all files are added or none.
func (s *Session) AddImages(files []ImageFile) ([]UploadedImage, error) {
	if s.loading {
		return nil, ErrAnalysisInProgress
	}
	if len(files) == 0 {
		return nil, nil
	}
	if len(s.images)+len(files) > s.maxImages {
		return nil, ErrTooManyImages
	}

	added := make([]UploadedImage, 0, len(files))
	for _, f := range files {
		added = append(added, UploadedImage{
			ID:       s.newID(),
			Data:     f.Data,
			MIMEType: f.MIMEType,
			FileID:   f.FileID,
		})
	}
	s.images = append(s.images, added...)
	s.result = nil
	s.err = ""

	out := make([]UploadedImage, len(added))
	copy(out, added)
	return out, nil
}

// SetPreview records the preview message shown for an image.
func (s *Session) SetPreview(id string, messageID int) error {
	i := s.indexOf(id)
	if i < 0 {
		return ErrImageNotFound
	}
	s.images[i].PreviewMessageID = messageID
	return nil
}

// RemoveImage removes an image by ID and releases its preview.
func (s *Session) RemoveImage(id string) error {
	if s.loading {
		return ErrAnalysisInProgress
	}
	i := s.indexOf(id)
	if i < 0 {
		return ErrImageNotFound
	}
	img := s.images[i]
	s.images = append(s.images[:i:i], s.images[i+1:]...)
	s.release(img)
	return nil
}

// SetMetadataField updates one metadata field. Whitespace is trimmed.
func (s *Session) SetMetadataField(field Field, value string) error {
	if s.loading {
		return ErrAnalysisInProgress
	}
	value = strings.TrimSpace(value)
	switch field {
	case FieldWeight:
		s.metadata.Weight = value
	case FieldLength:
		s.metadata.Length = value
	case FieldAge:
		s.metadata.Age = value
	}
	return nil
}

// Clear releases every preview and resets images, metadata, result and error.
func (s *Session) Clear() error {
	if s.loading {
		return ErrAnalysisInProgress
	}
	for _, img := range s.images {
		s.release(img)
	}
	s.images = nil
	s.metadata = DogMetadata{}
	s.result = nil
	s.err = ""
	return nil
}

// BeginAnalysis marks the session as loading and returns a snapshot of the
// images and metadata to analyze.
func (s *Session) BeginAnalysis() (*AnalysisRequest, error) {
	if s.loading {
		return nil, ErrAnalysisInProgress
	}
	if len(s.images) == 0 {
		return nil, ErrNoImages
	}
	s.loading = true
	s.result = nil
	s.err = ""
	return &AnalysisRequest{
		Images:   s.Images(),
		Metadata: s.metadata,
	}, nil
}

// CompleteWithResult ends the running analysis with a result.
func (s *Session) CompleteWithResult(result *AnalysisResult) {
	s.loading = false
	s.result = result
	s.err = ""
}

// CompleteWithError ends the running analysis with a user-facing error message.
func (s *Session) CompleteWithError(msg string) {
	s.loading = false
	s.result = nil
	s.err = msg
}

// Images returns a copy of the session's images in selection order.
func (s *Session) Images() []UploadedImage {
	out := make([]UploadedImage, len(s.images))
	copy(out, s.images)
	return out
}

// ImageCount returns the number of images held.
func (s *Session) ImageCount() int { return len(s.images) }

// Metadata returns the current dog metadata.
func (s *Session) Metadata() DogMetadata { return s.metadata }

// Loading reports whether an analysis is running.
func (s *Session) Loading() bool { return s.loading }

// Result returns the last analysis result, nil if none.
func (s *Session) Result() *AnalysisResult { return s.result }

// ErrorMessage returns the user-facing error of the last failed analysis.
func (s *Session) ErrorMessage() string { return s.err }

// CanAnalyze reports whether the analyze action is enabled.
func (s *Session) CanAnalyze() bool {
	return len(s.images) > 0 && !s.loading
}

// CanClear reports whether the clear action is offered.
func (s *Session) CanClear() bool {
	return (len(s.images) > 0 || !s.metadata.IsEmpty()) && !s.loading
}

// ImageAt returns the image at a 1-based position.
func (s *Session) ImageAt(pos int) (UploadedImage, bool) {
	if pos < 1 || pos > len(s.images) {
		return UploadedImage{}, false
	}
	return s.images[pos-1], true
}

func (s *Session) indexOf(id string) int {
	for i, img := range s.images {
		if img.ID == id {
			return i
		}
	}
	return -1
}

func (s *Session) release(img UploadedImage) {
	if s.releaser != nil {
		s.releaser.ReleasePreview(img)
	}
}
