package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/raine/pup-ancestry-bot/internal/breed"
	"github.com/raine/pup-ancestry-bot/internal/llm"
)

// BotAPI defines the interface for Telegram bot API operations.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Bot is the main Telegram bot handler.
type Bot struct {
	tg         BotAPI
	state      BotState
	client     *llm.Client
	downloader *ImageDownloader
	maxImages  int
}

// NewBot creates a new Bot instance. maxImages bounds the photos held per chat.
func NewBot(tg BotAPI, client *llm.Client, maxImages int) *Bot {
	if maxImages <= 0 {
		maxImages = breed.DefaultMaxImages
	}
	bot := &Bot{
		tg:         tg,
		client:     client,
		downloader: NewImageDownloader(),
		maxImages:  maxImages,
	}
	bot.state = bot.NewBotState()
	return bot
}

// HandleUpdate is the main message router.
// It dispatches messages to the appropriate session worker for sequential processing.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	b.dispatchUpdate(ctx, update, false)
}

// handleUpdateSync is like HandleUpdate but waits for message processing to complete.
// Used in tests where we need synchronous behavior.
func (b *Bot) handleUpdateSync(ctx context.Context, update tgbotapi.Update) {
	b.dispatchUpdate(ctx, update, true)
}

// Shutdown stops all session workers. In-flight analyses are cancelled.
func (b *Bot) Shutdown() {
	b.state.Shutdown()
}

// dispatchUpdate routes updates to the appropriate session worker.
// If sync is true, it waits for message processing to complete.
func (b *Bot) dispatchUpdate(ctx context.Context, update tgbotapi.Update, sync bool) {
	var userId int64

	// Private chats only, so the user ID doubles as the chat ID
	if update.CallbackQuery != nil && update.CallbackQuery.From != nil {
		userId = update.CallbackQuery.From.ID
	} else if update.Message != nil && update.Message.From != nil {
		userId = update.Message.From.ID
	} else {
		return
	}

	session := b.state.getUserSession(userId)

	// Helper to send sync or async based on flag
	send := func(msg SessionMessage) {
		if sync {
			session.SendSync(msg)
		} else {
			session.Send(msg)
		}
	}

	if update.CallbackQuery != nil {
		send(SessionMessage{
			Type:          "callback",
			Ctx:           ctx,
			CallbackQuery: update.CallbackQuery,
		})
		return
	}

	message := update.Message
	log.Info().Int64("userId", userId).Str("text", message.Text).Int("photos", len(message.Photo)).Msg("got message")

	switch {
	case len(message.Photo) > 0:
		send(SessionMessage{Type: "photo", Ctx: ctx, Message: message})
	case message.Document != nil:
		send(SessionMessage{Type: "document", Ctx: ctx, Message: message})
	default:
		send(SessionMessage{Type: "text", Ctx: ctx, Message: message})
	}
}

// HandleSessionMessage implements MessageHandler interface.
// This is called by the session worker goroutine for sequential processing.
// No mutex locking is needed here since only one goroutine accesses session state.
func (b *Bot) HandleSessionMessage(ctx context.Context, session *UserSession, msg SessionMessage) {
	switch msg.Type {
	case "callback":
		b.handleCallbackQuery(ctx, session, msg.CallbackQuery)
	case "photo":
		b.handlePhotoMessage(ctx, session, msg.Message)
	case "document":
		b.handleDocumentMessage(ctx, session, msg.Message)
	case "text":
		b.handleTextMessage(ctx, session, msg.Message)
	case "album_timeout":
		b.processAlbumTimeout(msg.Ctx, session, msg.AlbumBuffer)
	case "analysis_complete":
		b.handleAnalysisComplete(session, msg.Outcome)
	}
}

// handleTextMessage processes text messages.
// Called from session worker - no locking needed.
func (b *Bot) handleTextMessage(ctx context.Context, session *UserSession, message *tgbotapi.Message) {
	if b.handleMetadataInput(session, message.Text) {
		return
	}
	b.handleCommand(ctx, session, message)
}

// handleCommand processes bot commands.
// Called from session worker - no locking needed.
func (b *Bot) handleCommand(ctx context.Context, session *UserSession, message *tgbotapi.Message) {
	command, args := parseCommand(message.Text)
	switch command {
	case "/start", "/help":
		session.reply(MsgStartPrompt)
	case "/weight":
		b.handleMetadataCommand(session, breed.FieldWeight, args)
	case "/length":
		b.handleMetadataCommand(session, breed.FieldLength, args)
	case "/age":
		b.handleMetadataCommand(session, breed.FieldAge, args)
	case "/analyze":
		b.startAnalysis(session)
	case "/remove":
		b.handleRemoveCommand(session, args)
	case "/clear":
		b.handleClear(session)
	case "/status":
		b.sendStatus(session)
	case "/cancel":
		session.reply(MsgNothingToCancel)
	case "/version":
		session.reply(MsgVersionInfo, Version, BuildTime)
	default:
		session.reply(MsgStartPrompt)
	}
}

// handleCallbackQuery handles inline keyboard button presses.
// Called from session worker - no locking needed.
func (b *Bot) handleCallbackQuery(ctx context.Context, session *UserSession, query *tgbotapi.CallbackQuery) {
	// Answer the callback to remove the loading state
	callback := tgbotapi.NewCallback(query.ID, "")
	if _, err := b.tg.Request(callback); err != nil {
		log.Debug().Err(err).Msg("failed to answer callback query")
	}

	data := query.Data
	switch {
	case strings.HasPrefix(data, callbackRemoveImage):
		b.handleRemoveImage(session, strings.TrimPrefix(data, callbackRemoveImage))
	case data == callbackAnalyze:
		b.startAnalysis(session)
	case data == callbackClear:
		b.handleClear(session)
	case strings.HasPrefix(data, callbackMetadata):
		field, err := breed.ParseField(strings.TrimPrefix(data, callbackMetadata))
		if err != nil {
			log.Warn().Str("data", data).Msg("unknown metadata callback")
			return
		}
		b.promptMetadata(session, field)
	default:
		log.Warn().Str("data", data).Msg("unknown callback data")
	}
}

// handleClear resets the chat's images and metadata.
// Called from session worker - no locking needed.
func (b *Bot) handleClear(session *UserSession) {
	if session.breed.Loading() {
		session.reply(MsgAnalysisInProgress)
		return
	}
	if !session.breed.CanClear() {
		session.reply(MsgNothingToClear)
		return
	}

	session.stopAlbumTimer()
	session.awaitingField = nil
	if err := session.breed.Clear(); err != nil {
		session.replyWithError(err)
		return
	}
	log.Info().Int64("userId", session.userId).Msg("session cleared")
	session.reply(MsgCleared)
}
