package bot

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/raine/pup-ancestry-bot/internal/breed"
	"github.com/raine/pup-ancestry-bot/internal/llm"
)

// AnalysisOutcome carries the result of a background analysis back to the
// session worker.
type AnalysisOutcome struct {
	Result   *breed.AnalysisResult
	Usage    llm.Usage
	Cached   bool
	Err      error
	Duration time.Duration
}

// startAnalysis begins an analysis of the session's images. The call to the
// analysis service runs in its own goroutine; the outcome is delivered back
// through the session inbox as an "analysis_complete" message.
// Called from session worker - no locking needed.
func (b *Bot) startAnalysis(session *UserSession) {
	req, err := session.breed.BeginAnalysis()
	switch {
	case errors.Is(err, breed.ErrNoImages):
		session.reply(MsgNoPhotosToAnalyze)
		return
	case errors.Is(err, breed.ErrAnalysisInProgress):
		session.reply(MsgAnalysisInProgress)
		return
	case err != nil:
		session.replyWithError(err)
		return
	}

	session.awaitingField = nil
	log.Info().
		Int64("userId", session.userId).
		Int("imageCount", len(req.Images)).
		Bool("hasMetadata", !req.Metadata.IsEmpty()).
		Msg("starting analysis")

	b.sendStatus(session)
	go b.runAnalysis(session, req)
}

// runAnalysis performs a single analysis attempt off the session worker.
// Process shutdown cancels it through the session context.
func (b *Bot) runAnalysis(session *UserSession, req *breed.AnalysisRequest) {
	ctx, cancel := context.WithCancel(session.ctx)
	defer cancel()

	go session.startTypingLoop(ctx)

	start := time.Now()
	outcome := &AnalysisOutcome{}
	analysis, err := b.client.Analyze(ctx, req.Images, req.Metadata)
	if err != nil {
		outcome.Err = err
	} else {
		outcome.Result = analysis.Result
		outcome.Usage = analysis.Usage
		outcome.Cached = analysis.Cached
	}
	outcome.Duration = time.Since(start)

	// Stop the typing indicator before the result is posted
	cancel()

	session.Send(SessionMessage{
		Type:    "analysis_complete",
		Ctx:     context.Background(),
		Outcome: outcome,
	})
}

// handleAnalysisComplete applies the outcome of an analysis to the session
// and renders it.
// Called from session worker - no locking needed.
func (b *Bot) handleAnalysisComplete(session *UserSession, outcome *AnalysisOutcome) {
	if outcome == nil {
		return
	}

	if outcome.Err != nil {
		log.Error().Err(outcome.Err).
			Int64("userId", session.userId).
			Dur("duration", outcome.Duration).
			Msg("analysis failed")
		session.breed.CompleteWithError(MsgAnalysisFailed)
		session.replyWithKeyboard(MsgAnalysisFailed, statusKeyboard(session.breed))
		return
	}

	session.breed.CompleteWithResult(outcome.Result)
	log.Info().
		Int64("userId", session.userId).
		Bool("isDog", outcome.Result.IsDog).
		Int("breeds", len(outcome.Result.Breeds)).
		Bool("cached", outcome.Cached).
		Float64("cost", outcome.Usage.CostUSD).
		Dur("duration", outcome.Duration).
		Msg("analysis complete")

	session.replyWithKeyboard(formatResult(outcome.Result), statusKeyboard(session.breed))
}
