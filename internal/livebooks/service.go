package livebooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"livebook-backend/internal/llm"
	"livebook-backend/internal/queue"
	"livebook-backend/internal/render"
	"livebook-backend/internal/shared/metrics"
	"livebook-backend/internal/shared/storage/object"
	"livebook-backend/internal/shared/telemetry"
	"livebook-backend/internal/talks"
	"livebook-backend/internal/transcribe"
)

// AudioDispatcher hands talk audio to the external transcription service.
type AudioDispatcher interface {
	Dispatch(ctx context.Context, userId, talkId, fileName string, audio io.Reader) error
}

// DocumentRenderer turns a livebook document into PDF bytes.
type DocumentRenderer interface {
	Render(doc render.Document) ([]byte, error)
}

// Service owns livebook lifecycle and runs the generation pipeline.
type Service struct {
	Repo        Repo
	Talks       talks.TalksRepo
	Store       object.ObjectStore
	Transcriber AudioDispatcher
	Router      llm.Router
	Primary     llm.Client
	Secondary   llm.Client
	Renderer    DocumentRenderer
	Queue       queue.Client

	Temperature       float32
	PollInterval      time.Duration
	PollMaxAttempts   int
	GenerationTimeout time.Duration
}

// StartOrReuse creates a livebook for the talk or returns the one already
// in flight. The bool reports whether a new generation was started.
func (s *Service) StartOrReuse(ctx context.Context, userId, talkId string) (Livebook, bool, error) {
	talk, err := s.Talks.GetByID(ctx, userId, talkId)
	if err != nil {
		if errors.Is(err, talks.ErrNotFound) {
			return Livebook{}, false, ErrNotFound
		}
		return Livebook{}, false, err
	}

	now := time.Now().UTC()
	lb := Livebook{
		ID:         uuid.NewString(),
		TalkID:     talk.ID,
		UserID:     userId,
		ProfileKey: talk.ProfileKey(),
		Status:     StatusWaiting,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	lb, created, err := s.Repo.GetOrCreateForTalk(ctx, lb)
	if err != nil {
		return Livebook{}, false, err
	}
	if !created {
		return lb, false, nil
	}

	if s.Queue != nil {
		msg := queue.Message{
			LivebookID: lb.ID,
			RequestID:  RequestIDFromContext(ctx),
			EnqueuedAt: now.Format(time.RFC3339),
			Version:    1,
		}
		if err := s.Queue.Send(ctx, msg); err != nil {
			// Queue outage must not strand the livebook in waiting.
			s.fail(ctx, lb.ID, talk.ID, userId, fmt.Errorf("enqueue generation: %w", err), now)
			return Livebook{}, false, err
		}
	} else {
		go func(runCtx context.Context) {
			_ = s.Run(runCtx, lb.ID)
		}(backgroundWithRequestID(ctx))
	}
	return lb, true, nil
}

// Run executes the full pipeline for one livebook: dispatch transcription,
// await the transcript, call the routed generation backend, render and
// upload the artifacts. Failures are terminal and recorded on the record;
// the returned error is for the caller's logging only.
func (s *Service) Run(ctx context.Context, livebookID string) (err error) {
	startedAt := time.Now().UTC()

	lb, err := s.Repo.GetAny(ctx, livebookID)
	if err != nil {
		return fmt.Errorf("livebook lookup: %w", err)
	}
	if lb.Status.Terminal() {
		return nil
	}
	talk, err := s.Talks.GetAny(ctx, lb.TalkID)
	if err != nil {
		return s.fail(ctx, lb.ID, lb.TalkID, lb.UserID, fmt.Errorf("talk lookup: %w", err), startedAt)
	}

	defer func() {
		if r := recover(); r != nil {
			err = s.fail(ctx, lb.ID, talk.ID, lb.UserID, fmt.Errorf("render pipeline panic: %v", r), startedAt)
		}
	}()

	metrics.IncGenerationStarted()

	transcript, err := s.obtainTranscript(ctx, &lb, talk)
	if err != nil {
		if errors.Is(err, transcribe.ErrTimeout) {
			metrics.IncTranscriptionTimeout()
		}
		return s.fail(ctx, lb.ID, talk.ID, lb.UserID, err, startedAt)
	}

	if err := s.advance(ctx, &lb, StatusGenerating); err != nil {
		return s.fail(ctx, lb.ID, talk.ID, lb.UserID, fmt.Errorf("set generating: %w", err), startedAt)
	}
	_ = s.Talks.SetStatus(ctx, talk.ID, talks.StatusGenerating)

	text, backend, err := s.generate(ctx, talk, transcript)
	if err != nil {
		return s.fail(ctx, lb.ID, talk.ID, lb.UserID, err, startedAt)
	}

	doc := render.Document{
		Title:   talk.Title,
		Speaker: talk.Speaker,
		Event:   talk.EventName,
		Body:    render.Sanitize(text),
	}
	pdfBytes, err := s.Renderer.Render(doc)
	if err != nil {
		return s.fail(ctx, lb.ID, talk.ID, lb.UserID, fmt.Errorf("render document: %w", err), startedAt)
	}
	plainText := render.FormatPlainText(doc)

	pdfURL := s.uploadArtifact(ctx, lb, fmt.Sprintf("%s/livebooks/%s.pdf", lb.UserID, lb.ID), "application/pdf", pdfBytes)
	textURL := s.uploadArtifact(ctx, lb, fmt.Sprintf("%s/livebooks/%s.txt", lb.UserID, lb.ID), "text/plain; charset=utf-8", []byte(plainText))
	// One surviving artifact is enough to call the generation a success;
	// losing both is not.
	if pdfURL == nil && textURL == nil {
		return s.fail(ctx, lb.ID, talk.ID, lb.UserID, errors.New("artifact upload: both uploads failed"), startedAt)
	}

	duration := time.Since(startedAt).Seconds()
	fields := AdvanceFields{PDFURL: pdfURL, TextURL: textURL, DurationSeconds: &duration}
	if err := s.Repo.Advance(ctx, lb.ID, StatusGenerating, StatusCompleted, fields); err != nil {
		return s.fail(ctx, lb.ID, talk.ID, lb.UserID, fmt.Errorf("set completed: %w", err), startedAt)
	}
	_ = s.Talks.SetStatus(ctx, talk.ID, talks.StatusCompleted)

	metrics.IncGenerationCompleted()
	metrics.ObserveGenerationDurationMs(duration * 1000)
	telemetry.Info("livebook.status", map[string]any{
		"request_id":        RequestIDFromContext(ctx),
		"user_id":           lb.UserID,
		"talk_id":           talk.ID,
		"livebook_id":       lb.ID,
		"status":            string(StatusCompleted),
		"status_transition": "generating->completed",
		"backend":           backend,
		"duration_s":        duration,
	})
	return nil
}

// obtainTranscript runs the transcription stage. A talk that already has a
// transcript (re-generation, or the callback beat the poller) skips the
// dispatch but still walks the status ladder.
func (s *Service) obtainTranscript(ctx context.Context, lb *Livebook, talk talks.Talk) (string, error) {
	if talk.Transcript != nil && strings.TrimSpace(*talk.Transcript) != "" {
		if lb.Status == StatusWaiting {
			if err := s.advance(ctx, lb, StatusTranscribing); err != nil {
				return "", fmt.Errorf("set transcribing: %w", err)
			}
		}
		return *talk.Transcript, nil
	}

	if lb.Status == StatusWaiting {
		audio, err := s.Store.Open(ctx, talk.AudioKey)
		if err != nil {
			return "", fmt.Errorf("open audio storage: %w", err)
		}
		err = s.Transcriber.Dispatch(ctx, lb.UserID, talk.ID, path.Base(talk.AudioKey), audio)
		audio.Close()
		if err != nil {
			// Dispatch failed, so the pipeline never reaches transcribing.
			return "", fmt.Errorf("transcription dispatch: %w", err)
		}
		if err := s.advance(ctx, lb, StatusTranscribing); err != nil {
			return "", fmt.Errorf("set transcribing: %w", err)
		}
		_ = s.Talks.SetStatus(ctx, talk.ID, talks.StatusTranscribing)
	}

	d := &transcribe.Dispatcher{
		Source:      talkStatusSource{repo: s.Talks},
		Interval:    s.PollInterval,
		MaxAttempts: s.PollMaxAttempts,
	}
	return d.Await(ctx, talk.ID)
}

// generate routes the transcript to a backend and returns the document text.
func (s *Service) generate(ctx context.Context, talk talks.Talk, transcript string) (string, string, error) {
	sel := s.Router.Route(utf8.RuneCountInString(transcript))

	prompt, err := llm.BuildPrompt(talk.Seniority, talk.Verbosity, llm.TalkMetadata{
		Title:   talk.Title,
		Speaker: talk.Speaker,
		Event:   talk.EventName,
	}, transcript)
	if err != nil {
		return "", string(sel.Backend), fmt.Errorf("build prompt: %w", err)
	}

	client := s.Primary
	if sel.Backend == llm.BackendSecondary {
		client = s.Secondary
	}
	if client == nil {
		return "", string(sel.Backend), fmt.Errorf("generation backend %s not configured", sel.Backend)
	}

	timeout := s.GenerationTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	genCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	temperature := s.Temperature
	if temperature == 0 {
		temperature = 0.3
	}
	text, err := client.Generate(genCtx, llm.GenerateInput{
		SystemPrompt:    prompt.System,
		UserPrompt:      prompt.User,
		Model:           sel.Model,
		Temperature:     temperature,
		MaxOutputTokens: sel.MaxOutputTokens,
	})
	if err != nil {
		return "", string(sel.Backend), fmt.Errorf("generation backend %s: %w", sel.Backend, err)
	}
	return text, string(sel.Backend), nil
}

// uploadArtifact stores one artifact and resolves its public URL. Upload
// problems are logged and swallowed; the caller decides whether losing
// both artifacts is fatal.
func (s *Service) uploadArtifact(ctx context.Context, lb Livebook, storageKey, contentType string, data []byte) *string {
	if _, err := s.Store.SaveWithKey(ctx, storageKey, contentType, bytes.NewReader(data)); err != nil {
		telemetry.Warn("livebook.artifact_upload_failed", map[string]any{
			"livebook_id": lb.ID,
			"storage_key": storageKey,
			"error":       sanitizeError(err),
		})
		return nil
	}
	url, err := s.Store.PublicURL(ctx, storageKey)
	if err != nil {
		telemetry.Warn("livebook.artifact_url_failed", map[string]any{
			"livebook_id": lb.ID,
			"storage_key": storageKey,
			"error":       sanitizeError(err),
		})
		return nil
	}
	return &url
}

// advance moves the livebook one step and logs the transition.
func (s *Service) advance(ctx context.Context, lb *Livebook, to Status) error {
	from := lb.Status
	if err := s.Repo.Advance(ctx, lb.ID, from, to, AdvanceFields{}); err != nil {
		return err
	}
	lb.Status = to
	telemetry.Info("livebook.status", map[string]any{
		"request_id":        RequestIDFromContext(ctx),
		"user_id":           lb.UserID,
		"talk_id":           lb.TalkID,
		"livebook_id":       lb.ID,
		"status":            string(to),
		"status_transition": string(from) + "->" + string(to),
	})
	return nil
}

func (s *Service) fail(ctx context.Context, livebookID, talkID, userID string, cause error, startedAt time.Time) error {
	code := classifyFailure(cause)
	detail := code + ": " + sanitizeError(cause)

	// A cancelled request context must not block recording the failure.
	if err := s.Repo.Fail(context.Background(), livebookID, detail); err != nil {
		telemetry.Error("livebook.fail_update_failed", map[string]any{
			"livebook_id": livebookID,
			"error":       sanitizeError(err),
			"cause":       sanitizeError(cause),
		})
	}
	_ = s.Talks.SetFailure(context.Background(), talkID, detail)

	metrics.IncGenerationFailed()
	duration := time.Since(startedAt).Seconds()
	telemetry.Info("livebook.status", map[string]any{
		"request_id":  RequestIDFromContext(ctx),
		"user_id":     userID,
		"talk_id":     talkID,
		"livebook_id": livebookID,
		"status":      string(StatusFailed),
		"error_code":  code,
		"detail":      detail,
		"duration_s":  duration,
	})
	return fmt.Errorf("%s: %w", code, cause)
}

// Get returns a livebook owned by the user.
func (s *Service) Get(ctx context.Context, userId, livebookId string) (Livebook, error) {
	return s.Repo.GetByID(ctx, userId, livebookId)
}

// List returns the user's livebooks, newest first.
func (s *Service) List(ctx context.Context, userId string, limit, offset int) ([]Livebook, error) {
	return s.Repo.ListByUser(ctx, userId, limit, offset)
}

// Delete removes a livebook record. Stored artifacts are left alone.
func (s *Service) Delete(ctx context.Context, userId, livebookId string) error {
	return s.Repo.Delete(ctx, userId, livebookId)
}

// Status is the polling read model: the talk and its newest livebook, if
// one exists.
func (s *Service) Status(ctx context.Context, userId, talkId string) (talks.Talk, *Livebook, error) {
	talk, err := s.Talks.GetByID(ctx, userId, talkId)
	if err != nil {
		if errors.Is(err, talks.ErrNotFound) {
			return talks.Talk{}, nil, ErrNotFound
		}
		return talks.Talk{}, nil, err
	}
	lb, err := s.Repo.LatestForTalk(ctx, talkId)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return talk, nil, nil
		}
		return talks.Talk{}, nil, err
	}
	return talk, &lb, nil
}

// talkStatusSource adapts the talks repo to the dispatcher's poll source.
type talkStatusSource struct {
	repo talks.TalksRepo
}

func (s talkStatusSource) TranscriptionState(ctx context.Context, talkId string) (transcribe.TalkState, error) {
	talk, err := s.repo.GetAny(ctx, talkId)
	if err != nil {
		return transcribe.TalkState{}, err
	}
	state := transcribe.TalkState{
		Transcript: talk.Transcript,
		Failed:     talk.Status == talks.StatusFailed,
	}
	if talk.ErrorDetail != nil {
		state.ErrorDetail = *talk.ErrorDetail
	}
	return state, nil
}

func classifyFailure(err error) string {
	if err == nil {
		return ErrorCodeInternal
	}
	var failure *transcribe.FailureError
	var backend *llm.BackendError
	var malformed *llm.MalformedResponseError
	switch {
	case errors.Is(err, transcribe.ErrTimeout):
		return ErrorCodeTranscriptionTimeout
	case errors.As(err, &failure):
		return ErrorCodeTranscriptionFailed
	case errors.As(err, &backend), errors.As(err, &malformed):
		return ErrorCodeGeneration
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "transcription dispatch"):
		return ErrorCodeDispatch
	case strings.Contains(msg, "upload"):
		return ErrorCodeUpload
	case strings.Contains(msg, "render"):
		return ErrorCodeRender
	case strings.Contains(msg, "generation backend"), strings.Contains(msg, "build prompt"):
		return ErrorCodeGeneration
	case strings.Contains(msg, "storage"), strings.Contains(msg, "lookup"),
		strings.Contains(msg, "set transcribing"), strings.Contains(msg, "set generating"), strings.Contains(msg, "set completed"):
		return ErrorCodeStorage
	default:
		return ErrorCodeInternal
	}
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}
