package bot

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/raine/pup-ancestry-bot/internal/breed"
)

// Callback data prefixes and values for the inline keyboards.
const (
	callbackRemoveImage = "img:rm:"
	callbackAnalyze     = "act:analyze"
	callbackClear       = "act:clear"
	callbackMetadata    = "meta:"
)

// formatPercentage renders a breed share exactly as the service returned it.
func formatPercentage(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64) + "%"
}

// formatResult renders an analysis result as a Markdown message.
// Breeds are listed in the order the service returned them.
func formatResult(result *breed.AnalysisResult) string {
	var sb strings.Builder
	sb.WriteString(MsgResultTitle)
	sb.WriteString("\n\n")

	if !result.IsDog {
		sb.WriteString(MsgResultNotDog)
		if result.Reasoning != "" {
			sb.WriteString("\n\n")
			sb.WriteString(escapeMarkdown(result.Reasoning))
		}
		return sb.String()
	}

	if result.MixedBreed {
		sb.WriteString(MsgResultMixed)
	} else {
		sb.WriteString(MsgResultPurebred)
	}

	if len(result.Breeds) > 0 {
		sb.WriteString("\n\n")
		sb.WriteString(MsgResultBreeds)
		for _, b := range result.Breeds {
			fmt.Fprintf(&sb, "\n• %s: %s", escapeMarkdown(b.Name), formatPercentage(b.Percentage))
		}
	}

	if len(result.Characteristics) > 0 {
		sb.WriteString("\n\n")
		sb.WriteString(MsgResultTraits)
		for _, c := range result.Characteristics {
			sb.WriteString("\n• ")
			sb.WriteString(escapeMarkdown(c))
		}
	}

	if result.Reasoning != "" {
		sb.WriteString("\n\n")
		sb.WriteString(MsgResultNotes)
		sb.WriteString("\n")
		sb.WriteString(escapeMarkdown(result.Reasoning))
	}

	sb.WriteString("\n\n")
	sb.WriteString(MsgResultFooter)
	return sb.String()
}

// formatStatus renders the status panel text for a session.
func formatStatus(s *breed.Session) string {
	var sb strings.Builder

	if s.Loading() {
		sb.WriteString(MsgStatusLoading)
		sb.WriteString("\n\n")
	}

	if count := s.ImageCount(); count == 0 {
		sb.WriteString(MsgStatusEmpty)
	} else {
		fmt.Fprintf(&sb, MsgStatusPhotosFmt, pluralize("photo", "photos", count))
	}

	sb.WriteString("\n\n")
	meta := s.Metadata()
	if meta.IsEmpty() {
		sb.WriteString(MsgStatusNoDetails)
	} else {
		sb.WriteString(MsgStatusDetails)
		for _, field := range breed.Fields {
			if v := meta.Get(field); v != "" {
				fmt.Fprintf(&sb, "\n%s: %s", capitalize(field.String()), escapeMarkdown(v))
			}
		}
	}

	return sb.String()
}

// statusKeyboard builds the action buttons for the status panel.
// Returns nil when no action is available.
func statusKeyboard(s *breed.Session) *tgbotapi.InlineKeyboardMarkup {
	if s.Loading() {
		return nil
	}

	var rows [][]tgbotapi.InlineKeyboardButton

	metaRow := make([]tgbotapi.InlineKeyboardButton, 0, len(breed.Fields))
	for _, field := range breed.Fields {
		metaRow = append(metaRow, tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf(MsgButtonSetMetadataFmt, capitalize(field.String())),
			callbackMetadata+field.String(),
		))
	}
	rows = append(rows, metaRow)

	var actionRow []tgbotapi.InlineKeyboardButton
	if s.CanAnalyze() {
		actionRow = append(actionRow, tgbotapi.NewInlineKeyboardButtonData(MsgButtonAnalyze, callbackAnalyze))
	}
	if s.CanClear() {
		actionRow = append(actionRow, tgbotapi.NewInlineKeyboardButtonData(MsgButtonClear, callbackClear))
	}
	if len(actionRow) > 0 {
		rows = append(rows, actionRow)
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &keyboard
}

// previewKeyboard builds the remove button attached to an image preview.
func previewKeyboard(imageID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(MsgButtonRemove, callbackRemoveImage+imageID),
		),
	)
}

// sendStatus sends the status panel for the session.
// Called from session worker - no locking needed.
func (b *Bot) sendStatus(session *UserSession) {
	session.replyWithKeyboard(formatStatus(session.breed), statusKeyboard(session.breed))
}
