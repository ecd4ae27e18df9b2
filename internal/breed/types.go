package breed

import (
	"fmt"
	"strings"
)

// BreedPrediction is an estimated ancestry share for a single breed.
type BreedPrediction struct {
	Name       string  `json:"name"`
	Percentage float64 `json:"percentage"`
}

// AnalysisResult is the breed-composition judgment returned by the vision model.
// Breeds and Characteristics keep the order the model returned them in.
type AnalysisResult struct {
	IsDog           bool              `json:"isDog"`
	Breeds          []BreedPrediction `json:"breeds"`
	Reasoning       string            `json:"reasoning"`
	MixedBreed      bool              `json:"mixedBreed"`
	Characteristics []string          `json:"characteristics"`
}

// ImageFile is an incoming image before it has been assigned an ID.
type ImageFile struct {
	Data     []byte
	MIMEType string
	FileID   string // Telegram file ID, empty for local files
}

// UploadedImage is an image held by a Session.
type UploadedImage struct {
	ID               string
	Data             []byte
	MIMEType         string
	FileID           string
	PreviewMessageID int // Bot message showing the image's remove button, 0 if not shown
}

// DogMetadata holds optional free-form details about the dog.
type DogMetadata struct {
	Weight string
	Length string
	Age    string
}

// IsEmpty reports whether no metadata field has been filled in.
func (m DogMetadata) IsEmpty() bool {
	return m.Weight == "" && m.Length == "" && m.Age == ""
}

// Get returns the value of a single field.
func (m DogMetadata) Get(field Field) string {
	switch field {
	case FieldWeight:
		return m.Weight
	case FieldLength:
		return m.Length
	case FieldAge:
		return m.Age
	}
	return ""
}

// Field identifies one DogMetadata field.
type Field int

const (
	FieldWeight Field = iota
	FieldLength
	FieldAge
)

// Fields lists the metadata fields in display order.
var Fields = []Field{FieldWeight, FieldLength, FieldAge}

func (f Field) String() string {
	switch f {
	case FieldWeight:
		return "weight"
	case FieldLength:
		return "length"
	case FieldAge:
		return "age"
	default:
		return fmt.Sprintf("Field(%d)", int(f))
	}
}

// ParseField parses a field name such as "weight".
func ParseField(s string) (Field, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "weight":
		return FieldWeight, nil
	case "length":
		return FieldLength, nil
	case "age":
		return FieldAge, nil
	}
	return 0, fmt.Errorf("unknown metadata field: %q", s)
}
