package livebooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"livebook-backend/internal/llm"
	"livebook-backend/internal/queue"
	"livebook-backend/internal/render"
	"livebook-backend/internal/talks"
	"livebook-backend/internal/transcribe"
)

type fakeObjectStore struct {
	mu          sync.Mutex
	saved       map[string][]byte
	failSuffix  []string
	urlBase     string
	urlFailures bool
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{saved: make(map[string][]byte), urlBase: "https://files.example.com/"}
}

func (s *fakeObjectStore) Save(ctx context.Context, userId, fileName string, r io.Reader) (string, int64, string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", 0, "", err
	}
	key := userId + "/" + fileName
	s.mu.Lock()
	s.saved[key] = data
	s.mu.Unlock()
	return key, int64(len(data)), "audio/mpeg", nil
}

func (s *fakeObjectStore) SaveWithKey(ctx context.Context, storageKey, contentType string, r io.Reader) (int64, error) {
	for _, suffix := range s.failSuffix {
		if strings.HasSuffix(storageKey, suffix) {
			return 0, errors.New("upstream store rejected object")
		}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	s.saved[storageKey] = data
	s.mu.Unlock()
	return int64(len(data)), nil
}

func (s *fakeObjectStore) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	s.mu.Lock()
	data, ok := s.saved[storageKey]
	s.mu.Unlock()
	if !ok {
		return nil, errors.New("object not found in storage")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *fakeObjectStore) PublicURL(ctx context.Context, storageKey string) (string, error) {
	if s.urlFailures {
		return "", errors.New("url resolution failed")
	}
	return s.urlBase + storageKey, nil
}

type stubDispatcher struct {
	err        error
	onDispatch func()
	calls      int
}

func (d *stubDispatcher) Dispatch(ctx context.Context, userId, talkId, fileName string, audio io.Reader) error {
	d.calls++
	if d.err != nil {
		return d.err
	}
	io.Copy(io.Discard, audio)
	if d.onDispatch != nil {
		d.onDispatch()
	}
	return nil
}

type stubLLM struct {
	text  string
	err   error
	calls int
	got   llm.GenerateInput
}

func (c *stubLLM) Generate(ctx context.Context, input llm.GenerateInput) (string, error) {
	c.calls++
	c.got = input
	if c.err != nil {
		return "", c.err
	}
	return c.text, nil
}

type fakeQueue struct {
	msgs []queue.Message
	err  error
}

func (q *fakeQueue) Send(ctx context.Context, msg queue.Message) error {
	if q.err != nil {
		return q.err
	}
	q.msgs = append(q.msgs, msg)
	return nil
}

const generatedBody = `## Overview
A talk about queues and the people who love them.

## Topics

### Backpressure
- Queues fill up.
- Consumers fall behind.

> Quote from the speaker about backpressure.

## Conclusions
- Measure first.`

type pipelineEnv struct {
	svc        *Service
	repo       *MemoryRepo
	talksRepo  *talks.MemoryRepo
	store      *fakeObjectStore
	dispatcher *stubDispatcher
	primary    *stubLLM
	secondary  *stubLLM
}

func newPipelineEnv(t *testing.T) *pipelineEnv {
	t.Helper()
	env := &pipelineEnv{
		repo:       NewMemoryRepo(),
		talksRepo:  talks.NewMemoryRepo(),
		store:      newFakeObjectStore(),
		dispatcher: &stubDispatcher{},
		primary:    &stubLLM{text: generatedBody},
		secondary:  &stubLLM{text: generatedBody},
	}
	env.svc = &Service{
		Repo:        env.repo,
		Talks:       env.talksRepo,
		Store:       env.store,
		Transcriber: env.dispatcher,
		Router: llm.Router{
			PrimaryMaxChars:    1000,
			EconomicalMaxChars: 5000,
			PrimaryModel:       "gpt-4o",
			ModelEconomical:    "gemini-1.5-flash",
			ModelHighCapacity:  "gemini-1.5-pro",
		},
		Primary:           env.primary,
		Secondary:         env.secondary,
		Renderer:          render.NewRenderer("livebook.example.com"),
		PollInterval:      time.Millisecond,
		PollMaxAttempts:   3,
		GenerationTimeout: time.Second,
	}
	return env
}

func (env *pipelineEnv) seedTalk(t *testing.T, transcript string) talks.Talk {
	t.Helper()
	now := time.Now().UTC()
	talk := talks.Talk{
		ID:        "talk-1",
		UserID:    "user-1",
		Title:     "Queues in Anger",
		Speaker:   "Grace Dev",
		EventName: "DevDays",
		AudioKey:  "user-1/talk.mp3",
		Seniority: llm.SenioritySenior,
		Verbosity: llm.VerbosityCompact,
		Status:    talks.StatusWaiting,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if transcript != "" {
		talk.Transcript = &transcript
	}
	if err := env.talksRepo.Create(context.Background(), talk); err != nil {
		t.Fatalf("seed talk: %v", err)
	}
	env.store.saved[talk.AudioKey] = []byte("fake-audio")
	return talk
}

func (env *pipelineEnv) seedLivebook(t *testing.T, talk talks.Talk) Livebook {
	t.Helper()
	now := time.Now().UTC()
	lb := Livebook{
		ID:         "lb-1",
		TalkID:     talk.ID,
		UserID:     talk.UserID,
		ProfileKey: talk.ProfileKey(),
		Status:     StatusWaiting,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, created, err := env.repo.GetOrCreateForTalk(context.Background(), lb); err != nil || !created {
		t.Fatalf("seed livebook: created=%v err=%v", created, err)
	}
	return lb
}

func wantFailed(t *testing.T, env *pipelineEnv, lbID, code string) Livebook {
	t.Helper()
	got, err := env.repo.GetAny(context.Background(), lbID)
	if err != nil {
		t.Fatalf("get livebook: %v", err)
	}
	if got.Status != StatusFailed {
		t.Fatalf("status = %q, want failed", got.Status)
	}
	if got.ErrorDetail == nil || !strings.HasPrefix(*got.ErrorDetail, code) {
		t.Fatalf("errorDetail = %v, want prefix %q", got.ErrorDetail, code)
	}
	return got
}

func TestRunCompletesWithExistingTranscript(t *testing.T) {
	env := newPipelineEnv(t)
	talk := env.seedTalk(t, "a short transcript well under the primary ceiling")
	lb := env.seedLivebook(t, talk)

	if err := env.svc.Run(context.Background(), lb.ID); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got, _ := env.repo.GetAny(context.Background(), lb.ID)
	if got.Status != StatusCompleted {
		t.Fatalf("status = %q, want completed", got.Status)
	}
	if got.PDFURL == nil || got.TextURL == nil {
		t.Fatalf("artifact urls = %v / %v, want both set", got.PDFURL, got.TextURL)
	}
	if got.DurationSeconds == nil || *got.DurationSeconds < 0 {
		t.Errorf("duration = %v", got.DurationSeconds)
	}
	if env.dispatcher.calls != 0 {
		t.Errorf("dispatch calls = %d, want 0 when transcript already present", env.dispatcher.calls)
	}
	if env.primary.calls != 1 || env.secondary.calls != 0 {
		t.Errorf("backend calls = primary %d / secondary %d, want 1 / 0", env.primary.calls, env.secondary.calls)
	}

	pdf := env.store.saved["user-1/livebooks/lb-1.pdf"]
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Errorf("stored artifact is not a PDF (prefix %q)", pdf[:min(8, len(pdf))])
	}
	text := string(env.store.saved["user-1/livebooks/lb-1.txt"])
	if !strings.Contains(text, "Queues in Anger") {
		t.Errorf("plain text artifact missing title")
	}

	talkAfter, _ := env.talksRepo.GetAny(context.Background(), talk.ID)
	if talkAfter.Status != talks.StatusCompleted {
		t.Errorf("talk status = %q, want completed", talkAfter.Status)
	}
}

func TestRunRoutesLongTranscriptToSecondary(t *testing.T) {
	env := newPipelineEnv(t)
	talk := env.seedTalk(t, strings.Repeat("x", 2000))
	lb := env.seedLivebook(t, talk)

	if err := env.svc.Run(context.Background(), lb.ID); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if env.secondary.calls != 1 || env.primary.calls != 0 {
		t.Fatalf("backend calls = primary %d / secondary %d, want 0 / 1", env.primary.calls, env.secondary.calls)
	}
	if env.secondary.got.Model != "gemini-1.5-flash" {
		t.Errorf("model = %q, want economical tier", env.secondary.got.Model)
	}
}

func TestRunRoutesByRunesNotBytes(t *testing.T) {
	env := newPipelineEnv(t)
	// 1000 two-byte runes: exactly the primary ceiling in characters even
	// though the byte length is double it.
	talk := env.seedTalk(t, strings.Repeat("é", 1000))
	lb := env.seedLivebook(t, talk)

	if err := env.svc.Run(context.Background(), lb.ID); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if env.primary.calls != 1 || env.secondary.calls != 0 {
		t.Fatalf("backend calls = primary %d / secondary %d, want 1 / 0", env.primary.calls, env.secondary.calls)
	}
	if env.primary.got.Model != "gpt-4o" {
		t.Errorf("model = %q, want primary tier", env.primary.got.Model)
	}
}

func TestRunDispatchError(t *testing.T) {
	env := newPipelineEnv(t)
	talk := env.seedTalk(t, "")
	lb := env.seedLivebook(t, talk)
	env.dispatcher.err = errors.New("connect refused")

	if err := env.svc.Run(context.Background(), lb.ID); err == nil {
		t.Fatal("expected pipeline error")
	}
	wantFailed(t, env, lb.ID, ErrorCodeDispatch)

	// The pipeline must never have reached transcribing.
	talkAfter, _ := env.talksRepo.GetAny(context.Background(), talk.ID)
	if talkAfter.Status != talks.StatusFailed {
		t.Errorf("talk status = %q, want failed", talkAfter.Status)
	}
}

func TestRunTranscriptionTimeout(t *testing.T) {
	env := newPipelineEnv(t)
	talk := env.seedTalk(t, "")
	lb := env.seedLivebook(t, talk)
	// Dispatch succeeds but the transcript never arrives.

	if err := env.svc.Run(context.Background(), lb.ID); err == nil {
		t.Fatal("expected pipeline error")
	}
	wantFailed(t, env, lb.ID, ErrorCodeTranscriptionTimeout)
	if env.dispatcher.calls != 1 {
		t.Errorf("dispatch calls = %d", env.dispatcher.calls)
	}
	_ = talk
}

func TestRunTranscriptionFailure(t *testing.T) {
	env := newPipelineEnv(t)
	talk := env.seedTalk(t, "")
	lb := env.seedLivebook(t, talk)
	env.dispatcher.onDispatch = func() {
		env.talksRepo.SetFailure(context.Background(), talk.ID, "audio undecodable")
	}

	if err := env.svc.Run(context.Background(), lb.ID); err == nil {
		t.Fatal("expected pipeline error")
	}
	got := wantFailed(t, env, lb.ID, ErrorCodeTranscriptionFailed)
	if !strings.Contains(*got.ErrorDetail, "audio undecodable") {
		t.Errorf("detail = %q, want collaborator text", *got.ErrorDetail)
	}
}

func TestRunGenerationError(t *testing.T) {
	env := newPipelineEnv(t)
	talk := env.seedTalk(t, "short transcript")
	lb := env.seedLivebook(t, talk)
	env.primary.err = &llm.BackendError{Backend: "openai", StatusCode: 500}

	if err := env.svc.Run(context.Background(), lb.ID); err == nil {
		t.Fatal("expected pipeline error")
	}
	got := wantFailed(t, env, lb.ID, ErrorCodeGeneration)
	if !strings.Contains(*got.ErrorDetail, "openai") {
		t.Errorf("detail = %q, want backend name", *got.ErrorDetail)
	}
}

func TestRunPartialUploadStillCompletes(t *testing.T) {
	env := newPipelineEnv(t)
	talk := env.seedTalk(t, "short transcript")
	lb := env.seedLivebook(t, talk)
	env.store.failSuffix = []string{".txt"}

	if err := env.svc.Run(context.Background(), lb.ID); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got, _ := env.repo.GetAny(context.Background(), lb.ID)
	if got.Status != StatusCompleted {
		t.Fatalf("status = %q, want completed with partial upload", got.Status)
	}
	if got.PDFURL == nil {
		t.Error("pdfUrl missing")
	}
	if got.TextURL != nil {
		t.Errorf("textUrl = %q, want null after failed upload", *got.TextURL)
	}
}

func TestRunBothUploadsFailed(t *testing.T) {
	env := newPipelineEnv(t)
	talk := env.seedTalk(t, "short transcript")
	lb := env.seedLivebook(t, talk)
	env.store.failSuffix = []string{".txt", ".pdf"}

	if err := env.svc.Run(context.Background(), lb.ID); err == nil {
		t.Fatal("expected pipeline error")
	}
	wantFailed(t, env, lb.ID, ErrorCodeUpload)
}

func TestStartOrReuse(t *testing.T) {
	env := newPipelineEnv(t)
	talk := env.seedTalk(t, "")
	q := &fakeQueue{}
	env.svc.Queue = q

	first, created, err := env.svc.StartOrReuse(context.Background(), talk.UserID, talk.ID)
	if err != nil || !created {
		t.Fatalf("first start: created=%v err=%v", created, err)
	}
	if len(q.msgs) != 1 || q.msgs[0].LivebookID != first.ID {
		t.Fatalf("queue msgs = %+v", q.msgs)
	}

	second, created, err := env.svc.StartOrReuse(context.Background(), talk.UserID, talk.ID)
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if created {
		t.Fatal("second start must reuse the active livebook")
	}
	if second.ID != first.ID {
		t.Errorf("reused id = %q, want %q", second.ID, first.ID)
	}
	if len(q.msgs) != 1 {
		t.Errorf("queue msgs = %d, want no second enqueue", len(q.msgs))
	}

	if _, _, err := env.svc.StartOrReuse(context.Background(), "someone-else", talk.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign user: err = %v, want ErrNotFound", err)
	}
}

func TestStatusReadModel(t *testing.T) {
	env := newPipelineEnv(t)
	talk := env.seedTalk(t, "hello transcript")
	lb := env.seedLivebook(t, talk)

	gotTalk, gotLb, err := env.svc.Status(context.Background(), talk.UserID, talk.ID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if gotTalk.Transcript == nil || *gotTalk.Transcript != "hello transcript" {
		t.Errorf("transcript = %v", gotTalk.Transcript)
	}
	if gotLb == nil || gotLb.ID != lb.ID {
		t.Fatalf("livebook = %+v, want %q", gotLb, lb.ID)
	}

	// A talk with no livebook yet still answers, with a nil document.
	talk2 := talks.Talk{ID: "talk-2", UserID: "user-1", Title: "T", AudioKey: "k",
		Seniority: llm.SeniorityMid, Verbosity: llm.VerbosityFull, Status: talks.StatusWaiting}
	env.talksRepo.Create(context.Background(), talk2)
	_, gotLb, err = env.svc.Status(context.Background(), "user-1", "talk-2")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if gotLb != nil {
		t.Errorf("livebook = %+v, want nil", gotLb)
	}
}

func TestClassifyFailure(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code string
	}{
		{"timeout", fmt.Errorf("await: %w", transcribe.ErrTimeout), ErrorCodeTranscriptionTimeout},
		{"dispatch", errors.New("transcription dispatch: http status 502"), ErrorCodeDispatch},
		{"backend error", &llm.BackendError{Backend: "openai", StatusCode: 500}, ErrorCodeGeneration},
		{"malformed", &llm.MalformedResponseError{Backend: "gemini", Reason: "no parts"}, ErrorCodeGeneration},
		{"render", errors.New("render document: bad glyph"), ErrorCodeRender},
		{"upload", errors.New("artifact upload: both uploads failed"), ErrorCodeUpload},
		{"storage", errors.New("open audio storage: gone"), ErrorCodeStorage},
		{"unknown", errors.New("weird"), ErrorCodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyFailure(tc.err); got != tc.code {
				t.Errorf("classifyFailure = %q, want %q", got, tc.code)
			}
		})
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
