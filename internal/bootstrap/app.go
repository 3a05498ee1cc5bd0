package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"livebook-backend/internal/livebooks"
	"livebook-backend/internal/llm"
	gemini "livebook-backend/internal/llm/gemini"
	openai "livebook-backend/internal/llm/openai"
	"livebook-backend/internal/queue"
	"livebook-backend/internal/render"
	"livebook-backend/internal/services/health"
	"livebook-backend/internal/shared/config"
	"livebook-backend/internal/shared/server"
	"livebook-backend/internal/shared/storage/db"
	"livebook-backend/internal/shared/storage/object"
	localstore "livebook-backend/internal/shared/storage/object/local"
	s3store "livebook-backend/internal/shared/storage/object/s3"
	supabasestore "livebook-backend/internal/shared/storage/object/supabase"
	"livebook-backend/internal/talks"
	"livebook-backend/internal/transcribe"
)

// App holds shared dependencies for the API server and the worker.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Queue  queue.Client

	TalksRepo     talks.TalksRepo
	LivebooksRepo livebooks.Repo

	TalksService      *talks.Service
	LivebooksService  *livebooks.Service
	LivebookProcessor LivebookProcessor
	Health            *health.Service

	TalksHandler     *talks.Handler
	LivebooksHandler *livebooks.Handler
}

// LivebookProcessor allows callers to override pipeline processing for tests.
type LivebookProcessor interface {
	Run(ctx context.Context, livebookID string) error
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Queue:  queueClient,
	}

	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:           app.Config,
		Health:           app.Health,
		TalksHandler:     app.TalksHandler,
		LivebooksHandler: app.LivebooksHandler,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.AWSRegion) == "" || strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires AWS_REGION and S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix)
	case "supabase":
		return supabasestore.New(cfg.SupabaseURL, cfg.SupabaseKey, cfg.SupabaseBucket)
	default:
		return localstore.New(cfg.LocalStoreDir, cfg.LocalStoreURL), nil
	}
}

func buildQueue(ctx context.Context) (queue.Client, error) {
	if strings.TrimSpace(os.Getenv("LB_SQS_QUEUE_URL")) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func buildServices(app *App) error {
	var talksRepo talks.TalksRepo
	var livebooksRepo livebooks.Repo

	if app.DB != nil {
		talksRepo = &talks.PGRepo{DB: app.DB}
		livebooksRepo = &livebooks.PGRepo{DB: app.DB}
	} else {
		talksRepo = talks.NewMemoryRepo()
		livebooksRepo = livebooks.NewMemoryRepo()
	}

	talksSvc := &talks.Service{
		Store: app.Store,
		Repo:  talksRepo,
	}

	dispatcher := livebooks.AudioDispatcher(dispatchPlaceholder{})
	if strings.TrimSpace(app.Config.TranscribeURL) != "" {
		client, err := transcribe.NewClient(app.Config.TranscribeURL, app.Config.DispatchTimeout)
		if err != nil {
			return err
		}
		dispatcher = client
	}

	primary := llm.Client(backendPlaceholder{name: "primary"})
	if strings.TrimSpace(app.Config.PrimaryAPIKey) != "" {
		client, err := openai.NewClient(app.Config.PrimaryBackendURL, app.Config.PrimaryAPIKey, app.Config.GenerationTimeout)
		if err != nil {
			return err
		}
		primary = client
	}

	secondary := llm.Client(backendPlaceholder{name: "secondary"})
	if strings.TrimSpace(app.Config.SecondaryAPIKey) != "" {
		client, err := gemini.NewClient(app.Config.SecondaryBackendURL, app.Config.SecondaryAPIKey, app.Config.GenerationTimeout)
		if err != nil {
			return err
		}
		secondary = client
	}

	livebooksSvc := &livebooks.Service{
		Repo:        livebooksRepo,
		Talks:       talksRepo,
		Store:       app.Store,
		Transcriber: dispatcher,
		Router: llm.Router{
			PrimaryMaxChars:    app.Config.PrimaryMaxChars,
			EconomicalMaxChars: app.Config.EconomicalMaxChars,
			PrimaryModel:       app.Config.PrimaryModel,
			ModelEconomical:    app.Config.ModelEconomical,
			ModelHighCapacity:  app.Config.ModelHighCapacity,
		},
		Primary:   primary,
		Secondary: secondary,
		Renderer:  render.NewRenderer(pdfAttribution()),
		Queue:     app.Queue,

		PollInterval:      app.Config.PollInterval,
		PollMaxAttempts:   app.Config.PollMaxAttempts,
		GenerationTimeout: app.Config.GenerationTimeout,
	}

	app.TalksRepo = talksRepo
	app.LivebooksRepo = livebooksRepo
	app.TalksService = talksSvc
	app.LivebooksService = livebooksSvc
	app.LivebookProcessor = livebooksSvc
	app.Health = health.NewService(app.DB)
	app.TalksHandler = talks.NewHandler(talksSvc)
	app.LivebooksHandler = livebooks.NewHandler(livebooksSvc)

	if app.TalksHandler == nil || app.LivebooksHandler == nil {
		return errors.New("failed to initialize handlers")
	}

	return nil
}

func pdfAttribution() string {
	if v := strings.TrimSpace(os.Getenv("PDF_ATTRIBUTION")); v != "" {
		return v
	}
	return "livebook.app"
}

type dispatchPlaceholder struct{}

func (dispatchPlaceholder) Dispatch(ctx context.Context, userId, talkId, fileName string, audio io.Reader) error {
	_ = ctx
	_ = audio
	return errors.New("transcription service not configured")
}

type backendPlaceholder struct {
	name string
}

func (p backendPlaceholder) Generate(ctx context.Context, input llm.GenerateInput) (string, error) {
	_ = ctx
	_ = input
	return "", fmt.Errorf("%s llm backend not configured", p.name)
}
