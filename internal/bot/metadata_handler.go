package bot

import (
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/raine/pup-ancestry-bot/internal/breed"
)

// clearValue clears a metadata field when sent as its value.
const clearValue = "-"

var metadataExamples = map[breed.Field]string{
	breed.FieldWeight: "25kg",
	breed.FieldLength: "80cm",
	breed.FieldAge:    "3 years",
}

// handleMetadataCommand handles /weight, /length and /age. Without a value
// the next text message is taken as the value.
// Called from session worker - no locking needed.
func (b *Bot) handleMetadataCommand(session *UserSession, field breed.Field, args []string) {
	if len(args) == 0 {
		b.promptMetadata(session, field)
		return
	}
	b.setMetadata(session, field, strings.Join(args, " "))
}

// promptMetadata asks for a metadata value in the next message.
// Called from session worker - no locking needed.
func (b *Bot) promptMetadata(session *UserSession, field breed.Field) {
	if session.breed.Loading() {
		session.reply(MsgAnalysisInProgress)
		return
	}
	session.awaitingField = &field
	session.reply(MsgMetadataPromptFmt, field.String(), metadataExamples[field])
}

// handleMetadataInput handles text input when awaiting a metadata value.
// Returns true if the message was handled. Any other command ends the prompt
// and is processed normally.
// Called from session worker - no locking needed.
func (b *Bot) handleMetadataInput(session *UserSession, text string) bool {
	if session.awaitingField == nil || text == "" {
		return false
	}

	field := *session.awaitingField
	session.awaitingField = nil

	if command, _ := parseCommand(text); command == "/cancel" {
		session.reply(MsgMetadataInputCancel)
		return true
	}
	if strings.HasPrefix(text, "/") {
		return false
	}

	b.setMetadata(session, field, text)
	return true
}

func (b *Bot) setMetadata(session *UserSession, field breed.Field, value string) {
	value = strings.TrimSpace(value)
	if value == clearValue {
		value = ""
	}

	if err := session.breed.SetMetadataField(field, value); err != nil {
		if errors.Is(err, breed.ErrAnalysisInProgress) {
			session.reply(MsgAnalysisInProgress)
		} else {
			session.replyWithError(err)
		}
		return
	}

	log.Info().Int64("userId", session.userId).Str("field", field.String()).Str("value", value).Msg("metadata updated")

	name := capitalize(field.String())
	if value == "" {
		session.reply(MsgMetadataClearedFmt, name)
	} else {
		session.reply(MsgMetadataSetFmt, name, escapeMarkdown(value))
	}
}
