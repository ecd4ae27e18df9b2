package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/raine/pup-ancestry-bot/internal/breed"
)

// SessionMessage represents a message to be processed by the session worker.
type SessionMessage struct {
	Type string
	Ctx  context.Context
	Done chan struct{} // Closed when processing is complete (for synchronous dispatch)

	// Message data (only one is set based on Type)
	Message       *tgbotapi.Message
	CallbackQuery *tgbotapi.CallbackQuery
	Text          string           // Free-form payload, used by tests
	AlbumBuffer   *AlbumBuffer     // For album_timeout messages
	Outcome       *AnalysisOutcome // For analysis_complete messages
}

// MessageSender abstracts the ability to send Telegram messages.
// This interface decouples UserSession from the full Bot struct,
// improving testability.
type MessageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// AlbumPhoto holds a photo from an album with its Telegram data.
type AlbumPhoto struct {
	FileID    string
	MessageID int // Message that carried the photo
}

// AlbumBuffer collects photos from a Telegram album (MediaGroup) before processing.
type AlbumBuffer struct {
	MediaGroupID string
	Photos       []AlbumPhoto
	Timer        *time.Timer
}

// AlbumBufferConfig holds configuration for album buffering behavior.
type AlbumBufferConfig struct {
	// GetBuffer returns the current album buffer (may be nil).
	GetBuffer func() *AlbumBuffer
	// SetBuffer sets the album buffer.
	SetBuffer func(buffer *AlbumBuffer)
	// OnFlush is called when a buffer needs to be processed (different album arrived).
	OnFlush func(ctx context.Context, photos []AlbumPhoto)
	// OnTimeout is called when the timer fires.
	OnTimeout func(buffer *AlbumBuffer)
	// Timeout duration for waiting for more photos.
	Timeout time.Duration
	// MaxPhotos is the maximum number of photos to buffer.
	MaxPhotos int
}

// BufferAlbumPhoto adds a photo to the album buffer and schedules processing.
func BufferAlbumPhoto(ctx context.Context, photo AlbumPhoto, mediaGroupID string, config AlbumBufferConfig) {
	buffer := config.GetBuffer()

	// Initialize or update album buffer
	if buffer == nil || buffer.MediaGroupID != mediaGroupID {
		// If there's an existing buffer with photos from a different album, flush it first
		if buffer != nil && len(buffer.Photos) > 0 {
			if buffer.Timer != nil {
				buffer.Timer.Stop()
			}
			config.OnFlush(ctx, buffer.Photos)
		}
		buffer = &AlbumBuffer{
			MediaGroupID: mediaGroupID,
			Photos:       []AlbumPhoto{},
		}
		config.SetBuffer(buffer)
	}

	// Add photo to buffer (respect max limit)
	if len(buffer.Photos) < config.MaxPhotos {
		buffer.Photos = append(buffer.Photos, photo)
	}

	// Reset or start timer - dispatch through worker channel when done
	if buffer.Timer != nil {
		buffer.Timer.Stop()
	}

	// Capture buffer reference for timer closure
	capturedBuffer := buffer
	buffer.Timer = time.AfterFunc(config.Timeout, func() {
		config.OnTimeout(capturedBuffer)
	})
}

// ProcessAlbumBufferTimeout validates the buffer is still current, clears it,
// and returns the photos. Returns nil if the buffer is stale or empty.
func ProcessAlbumBufferTimeout(albumBuffer *AlbumBuffer, config AlbumBufferConfig) []AlbumPhoto {
	// Verify this is still the active album buffer (wasn't replaced or cleared)
	if config.GetBuffer() != albumBuffer {
		return nil
	}

	photos := albumBuffer.Photos
	config.SetBuffer(nil)

	if len(photos) == 0 {
		return nil
	}

	return photos
}

// MessageHandler is the interface for processing session messages.
// This allows the session to dispatch to external handlers without circular dependencies.
type MessageHandler interface {
	HandleSessionMessage(ctx context.Context, session *UserSession, msg SessionMessage)
}

// UserSession represents a chat's session with the bot.
//
// Threading model:
//   - Each session has a dedicated worker goroutine that processes messages sequentially
//   - Message handlers are called only from the worker and can access session
//     state without locks
//   - The analysis call runs in its own goroutine and reports back through the inbox
type UserSession struct {
	userId int64
	sender MessageSender

	// Worker channel for sequential message processing
	inbox   chan SessionMessage
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	handler MessageHandler // Set after construction to avoid circular deps

	// Images, metadata and analysis lifecycle
	breed *breed.Session

	albumBuffer *AlbumBuffer

	// Metadata field awaiting a free-text value, nil when not prompting
	awaitingField *breed.Field
}

// ReleasePreview deletes the preview message of an image that left the session.
func (s *UserSession) ReleasePreview(img breed.UploadedImage) {
	if img.PreviewMessageID == 0 {
		return
	}
	_, err := s.sender.Request(tgbotapi.NewDeleteMessage(s.userId, img.PreviewMessageID))
	if err != nil {
		log.Warn().Err(err).Int64("userId", s.userId).Int("messageId", img.PreviewMessageID).Msg("failed to delete preview message")
	}
}

func (s *UserSession) stopAlbumTimer() {
	if s.albumBuffer != nil && s.albumBuffer.Timer != nil {
		s.albumBuffer.Timer.Stop()
	}
	s.albumBuffer = nil
}

func (s *UserSession) replyWithError(err error) tgbotapi.Message {
	log.Error().Stack().Err(err).Send()
	return s.reply(MsgUnexpectedErr, err)
}

// sendTypingAction sends a "typing" chat action to show the user that the bot is processing.
// The typing indicator automatically expires after ~5 seconds in Telegram.
func (s *UserSession) sendTypingAction() {
	action := tgbotapi.NewChatAction(s.userId, tgbotapi.ChatTyping)
	// Use Request instead of Send because sendChatAction returns a boolean, not a Message
	_, err := s.sender.Request(action)
	if err != nil {
		log.Debug().Err(err).Int64("userId", s.userId).Msg("failed to send typing action")
	}
}

// startTypingLoop sends a typing action every 4 seconds until the context is cancelled.
// Run this in a goroutine and cancel the context when done.
func (s *UserSession) startTypingLoop(ctx context.Context) {
	s.sendTypingAction()

	ticker := time.NewTicker(4 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sendTypingAction()
		}
	}
}

func (s *UserSession) replyWithMessage(msg tgbotapi.MessageConfig) tgbotapi.Message {
	msg.ChatID = s.userId
	sent, err := s.sender.Send(msg)
	if err != nil {
		log.Error().Stack().
			Interface("msg", msg).
			Err(fmt.Errorf("failed to send reply message: %w", err)).Send()
	} else {
		log.Debug().Int64("userId", s.userId).Int("messageId", sent.MessageID).Msg("sent message")
	}

	return sent
}

// replyWithKeyboard sends a text with an inline keyboard. A nil keyboard sends plain text.
func (s *UserSession) replyWithKeyboard(text string, keyboard *tgbotapi.InlineKeyboardMarkup) tgbotapi.Message {
	msg := tgbotapi.MessageConfig{
		Text:      text,
		ParseMode: tgbotapi.ModeMarkdown,
	}
	if keyboard != nil {
		msg.ReplyMarkup = *keyboard
	}
	return s.replyWithMessage(msg)
}

func (s *UserSession) reply(text string, a ...any) tgbotapi.Message {
	return s.replyWithKeyboard(formatReplyText(text, a...), nil)
}

// --- Worker methods ---

// StartWorker starts the session's message processing worker goroutine.
// Must be called after setting the handler.
func (s *UserSession) StartWorker() {
	s.wg.Add(1)
	go s.runWorker()
}

// SetHandler sets the message handler for this session.
func (s *UserSession) SetHandler(handler MessageHandler) {
	s.handler = handler
}

// runWorker is the main worker loop that processes messages sequentially.
func (s *UserSession) runWorker() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			// Drain any remaining messages and signal completion
			for {
				select {
				case msg := <-s.inbox:
					if msg.Done != nil {
						close(msg.Done)
					}
				default:
					return
				}
			}
		case msg := <-s.inbox:
			s.processMessage(msg)
		}
	}
}

// processMessage handles a single message from the inbox.
func (s *UserSession) processMessage(msg SessionMessage) {
	defer func() {
		// Recover from any panics to keep the worker running
		if r := recover(); r != nil {
			log.Error().
				Int64("userId", s.userId).
				Interface("panic", r).
				Msg("recovered from panic in session worker")
		}
		if msg.Done != nil {
			close(msg.Done)
		}
	}()

	if s.handler == nil {
		log.Error().Int64("userId", s.userId).Msg("session handler not set")
		return
	}

	s.handler.HandleSessionMessage(msg.Ctx, s, msg)
}

// Send queues a message for processing by the worker.
// This is non-blocking - it returns immediately after queuing.
func (s *UserSession) Send(msg SessionMessage) {
	select {
	case s.inbox <- msg:
	case <-s.ctx.Done():
		if msg.Done != nil {
			close(msg.Done)
		}
	}
}

// SendSync queues a message and waits for it to be processed.
// Returns when the message has been fully processed by the worker.
func (s *UserSession) SendSync(msg SessionMessage) {
	msg.Done = make(chan struct{})
	s.Send(msg)
	<-msg.Done
}

// Stop stops the worker and waits for it to finish.
func (s *UserSession) Stop() {
	s.cancel()
	s.wg.Wait()
}
