// Package analysis turns prescription text into normalized medication records
// by way of the rate limiter, the language model and the response extractor.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"rxguardian/internal/extract"
	"rxguardian/internal/llm"
	"rxguardian/internal/logger"
	"rxguardian/internal/ratelimit"
	"rxguardian/pkg/models"
)

// Stage is how far a request got through the pipeline.
type Stage string

const (
	StageIdle             Stage = "idle"
	StageRateLimitChecked Stage = "rate_limit_checked"
	StagePromptSent       Stage = "prompt_sent"
	StageResponseReceived Stage = "response_received"
	StageExtracted        Stage = "extracted"
	StageNormalized       Stage = "normalized"
	StageDone             Stage = "done"
	StageErrored          Stage = "errored"
)

const logPreviewLength = 200

// Config configures the analysis service.
type Config struct {
	Timeout time.Duration // upper bound on a single model call; zero disables it
}

// Result is the outcome of one analysis with its bookkeeping.
type Result struct {
	ID       string
	Records  []models.MedicationRecord
	Stage    Stage // StageDone or StageErrored
	FailedAt Stage // last stage reached before the failure
	Err      *Error
	Strategy string // extraction strategy that succeeded
	Duration time.Duration
}

// Service orchestrates a single prescription analysis. It is safe for
// concurrent use as long as its Completer is.
type Service struct {
	completer llm.Completer
	limiter   *ratelimit.Limiter
	config    Config
	log       zerolog.Logger

	now   func() time.Time
	newID func() string
}

// NewService creates a service with explicit dependencies.
func NewService(completer llm.Completer, limiter *ratelimit.Limiter, config Config) *Service {
	return &Service{
		completer: completer,
		limiter:   limiter,
		config:    config,
		log:       logger.WithComponent("analysis"),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Analyze returns the normalized records for text. It never fails: problems
// are reported as a single record describing the failure.
func (s *Service) Analyze(ctx context.Context, text string) []models.MedicationRecord {
	return s.AnalyzeResult(ctx, text).Records
}

// AnalyzeResult is Analyze with the stage reached and the failure cause.
func (s *Service) AnalyzeResult(ctx context.Context, text string) (res Result) {
	start := s.now()
	res.ID = s.newID()
	stage := StageIdle

	log := s.log.With().Str("analysis_id", res.ID).Logger()
	log.Info().Str("input", preview(text)).Msg("Analyzing prescription")

	defer func() {
		if r := recover(); r != nil {
			res.fail(stage, newError(KindInternal, "Analyze", fmt.Errorf("%v", r)))
			log.Error().Interface("panic", r).Str("stage", string(stage)).Msg("Analysis panicked")
		}
		res.Duration = s.now().Sub(start)
	}()

	if strings.TrimSpace(text) == "" {
		log.Error().Msg("Invalid or empty prescription text provided")
		res.fail(stage, newError(KindInput, "Analyze", ErrEmptyInput))
		return res
	}

	if d := s.limiter.TryAcquire(); !d.Allowed {
		log.Warn().Str("reason", d.Reason).Msg("Rate limit exceeded")
		res.fail(stage, newError(KindRateLimit, "TryAcquire", errors.New(d.Reason)))
		return res
	}
	stage = StageRateLimitChecked

	prompt, err := BuildPrompt(text)
	if err != nil {
		res.fail(stage, newError(KindInternal, "BuildPrompt", err))
		return res
	}

	callCtx := ctx
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	log.Info().Msg("Sending analysis request to model")
	stage = StagePromptSent
	raw, err := s.completer.Complete(callCtx, prompt)
	if err != nil {
		if errors.Is(err, llm.ErrEmptyResponse) {
			log.Error().Msg("Invalid or empty response from model")
			res.fail(stage, newError(KindEmptyResponse, "Complete", err))
			return res
		}
		log.Error().Err(err).Msg("Error communicating with model")
		res.fail(stage, newError(KindUpstream, "Complete", err))
		return res
	}
	if strings.TrimSpace(raw) == "" {
		log.Error().Msg("Invalid or empty response from model")
		res.fail(stage, newError(KindEmptyResponse, "Complete", llm.ErrEmptyResponse))
		return res
	}
	stage = StageResponseReceived
	log.Debug().Str("response", raw).Msg("Received model response")

	extracted, err := extract.ExtractResult(raw)
	if err != nil {
		log.Error().Err(err).Msg("Could not extract JSON from model response")
		res.fail(stage, newError(KindExtraction, "Extract", err))
		return res
	}
	stage = StageExtracted
	res.Strategy = extracted.Strategy
	log.Debug().
		Str("strategy", extracted.Strategy).
		Str("parsed", extract.Compact(extracted.Value)).
		Msg("Parsed model response")

	res.Records = Normalize(extracted.Value)
	stage = StageNormalized

	res.Stage = StageDone
	log.Info().
		Int("medications", len(res.Records)).
		Dur("elapsed", s.now().Sub(start)).
		Msg("Analysis complete")
	return res
}

func (r *Result) fail(at Stage, err *Error) {
	r.Stage = StageErrored
	r.FailedAt = at
	r.Err = err
	r.Records = failureRecord(err.MedicationName(), err.Reasoning())
}

func preview(text string) string {
	if utf8.RuneCountInString(text) <= logPreviewLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:logPreviewLength]) + "..."
}
