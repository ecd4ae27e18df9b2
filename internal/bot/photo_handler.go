package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/raine/pup-ancestry-bot/internal/breed"
)

// albumBufferTimeout is how long to wait for more photos of the same album.
const albumBufferTimeout = 1500 * time.Millisecond

// handlePhotoMessage processes a photo message. Album photos (MediaGroupID)
// are buffered so the whole album is added in one step.
// Called from session worker - no locking needed.
func (b *Bot) handlePhotoMessage(ctx context.Context, session *UserSession, message *tgbotapi.Message) {
	largestPhoto := message.Photo[len(message.Photo)-1]
	b.intakePhoto(ctx, session, AlbumPhoto{
		FileID:    largestPhoto.FileID,
		MessageID: message.MessageID,
	}, message.MediaGroupID)
}

// handleDocumentMessage accepts images sent as files.
// Called from session worker - no locking needed.
func (b *Bot) handleDocumentMessage(ctx context.Context, session *UserSession, message *tgbotapi.Message) {
	doc := message.Document
	if !strings.HasPrefix(doc.MimeType, "image/") {
		session.reply(MsgUnsupportedFile)
		return
	}
	b.intakePhoto(ctx, session, AlbumPhoto{
		FileID:    doc.FileID,
		MessageID: message.MessageID,
	}, message.MediaGroupID)
}

func (b *Bot) intakePhoto(ctx context.Context, session *UserSession, photo AlbumPhoto, mediaGroupID string) {
	if session.breed.Loading() {
		session.reply(MsgAnalysisInProgress)
		return
	}

	if mediaGroupID == "" {
		b.addPhotos(ctx, session, []AlbumPhoto{photo})
		return
	}

	BufferAlbumPhoto(ctx, photo, mediaGroupID, b.albumConfig(session))
}

func (b *Bot) albumConfig(session *UserSession) AlbumBufferConfig {
	return AlbumBufferConfig{
		GetBuffer: func() *AlbumBuffer { return session.albumBuffer },
		SetBuffer: func(buffer *AlbumBuffer) { session.albumBuffer = buffer },
		OnFlush: func(ctx context.Context, photos []AlbumPhoto) {
			b.addPhotos(ctx, session, photos)
		},
		OnTimeout: func(buffer *AlbumBuffer) {
			// Use context.Background() since the original request context may be cancelled by now
			session.Send(SessionMessage{
				Type:        "album_timeout",
				Ctx:         context.Background(),
				AlbumBuffer: buffer,
			})
		},
		Timeout:   albumBufferTimeout,
		MaxPhotos: b.maxImages + 1, // One past the cap so addPhotos rejects an oversized album
	}
}

// processAlbumTimeout adds a buffered album once no more photos have arrived.
// Called from session worker - no locking needed.
func (b *Bot) processAlbumTimeout(ctx context.Context, session *UserSession, albumBuffer *AlbumBuffer) {
	photos := ProcessAlbumBufferTimeout(albumBuffer, b.albumConfig(session))
	if photos == nil {
		return
	}
	b.addPhotos(ctx, session, photos)
}

// addPhotos downloads the photos, adds them to the session as one batch and
// replies with a preview per photo followed by the status panel.
// Called from session worker - no locking needed.
func (b *Bot) addPhotos(ctx context.Context, session *UserSession, photos []AlbumPhoto) {
	if session.breed.Loading() {
		session.reply(MsgAnalysisInProgress)
		return
	}
	if session.breed.ImageCount()+len(photos) > b.maxImages {
		session.reply(MsgTooManyPhotosFmt, b.maxImages)
		return
	}

	files := make([]breed.ImageFile, 0, len(photos))
	for _, photo := range photos {
		data, err := b.downloader.DownloadFromTelegramFileID(ctx, b.tg.GetFileDirectURL, photo.FileID)
		if err != nil {
			log.Error().Err(err).Str("fileID", photo.FileID).Msg("failed to download photo")
			session.reply(MsgPhotoDownloadFailed)
			return
		}
		mimeType, err := detectImageMIME(data)
		if err != nil {
			log.Warn().Err(err).Str("fileID", photo.FileID).Msg("rejected non-image file")
			session.reply(MsgUnsupportedFile)
			return
		}
		files = append(files, breed.ImageFile{Data: data, MIMEType: mimeType, FileID: photo.FileID})
	}

	added, err := session.breed.AddImages(files)
	switch {
	case errors.Is(err, breed.ErrTooManyImages):
		session.reply(MsgTooManyPhotosFmt, b.maxImages)
		return
	case errors.Is(err, breed.ErrAnalysisInProgress):
		session.reply(MsgAnalysisInProgress)
		return
	case err != nil:
		session.replyWithError(err)
		return
	}

	log.Info().Int64("userId", session.userId).Int("added", len(added)).Int("total", session.breed.ImageCount()).Msg("photos added")

	firstPos := session.breed.ImageCount() - len(added) + 1
	for i, img := range added {
		msg := tgbotapi.NewMessage(session.userId, fmt.Sprintf(MsgPhotoPreviewFmt, firstPos+i))
		msg.ReplyToMessageID = photos[i].MessageID
		msg.ReplyMarkup = previewKeyboard(img.ID)
		sent := session.replyWithMessage(msg)
		if sent.MessageID != 0 {
			if err := session.breed.SetPreview(img.ID, sent.MessageID); err != nil {
				log.Warn().Err(err).Str("imageId", img.ID).Msg("failed to record preview")
			}
		}
	}

	b.sendStatus(session)
}

// handleRemoveImage removes one image by ID.
// Called from session worker - no locking needed.
func (b *Bot) handleRemoveImage(session *UserSession, id string) {
	err := session.breed.RemoveImage(id)
	switch {
	case errors.Is(err, breed.ErrAnalysisInProgress):
		session.reply(MsgAnalysisInProgress)
	case errors.Is(err, breed.ErrImageNotFound):
		session.reply(MsgPhotoNotFound)
	case err != nil:
		session.replyWithError(err)
	default:
		log.Info().Int64("userId", session.userId).Str("imageId", id).Msg("photo removed")
		b.sendStatus(session)
	}
}

// handleRemoveCommand handles /remove <n|id>, where n is the 1-based photo position.
// Called from session worker - no locking needed.
func (b *Bot) handleRemoveCommand(session *UserSession, args []string) {
	if len(args) != 1 {
		session.reply(MsgRemoveUsage)
		return
	}

	id := args[0]
	if pos, err := strconv.Atoi(id); err == nil {
		img, ok := session.breed.ImageAt(pos)
		if !ok {
			session.reply(MsgPhotoNotFound)
			return
		}
		id = img.ID
	}
	b.handleRemoveImage(session, id)
}
