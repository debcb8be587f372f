package app

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/gramsight/gramsight-backend/internal/db"
	"github.com/gramsight/gramsight-backend/internal/jobs"
	"github.com/gramsight/gramsight-backend/internal/logger"
	"github.com/gramsight/gramsight-backend/internal/tasks"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Repos    Repos
	Clients  Clients
	Services Services

	worker *jobs.Worker
	beat   *jobs.Beat
	cancel context.CancelFunc
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	clients, err := wireClients(log)
	if err != nil {
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(theDB, log)
	enqueuer := jobs.NewEnqueuer(reposet.JobRun, log)

	serviceset, err := wireServices(theDB, log, reposet, clients, enqueuer)
	if err != nil {
		log.Sync()
		return nil, err
	}

	registry := jobs.NewRegistry()
	err = tasks.RegisterAll(registry, tasks.Deps{
		Accounts:   serviceset.Account,
		Posts:      serviceset.Post,
		Stories:    serviceset.Story,
		Insights:   serviceset.Insight,
		Embeddings: serviceset.Embedding,
		Payments:   serviceset.Payment,

		AccountRepo:   reposet.Account,
		PostRepo:      reposet.Post,
		PostMediaRepo: reposet.PostMedia,
		StoryRepo:     reposet.Story,

		Enqueuer: enqueuer,
		Log:      log,
	})
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("register task handlers: %w", err)
	}

	worker := jobs.NewWorker(theDB, log, reposet.JobRun, registry)
	beat := jobs.NewBeat(enqueuer, clients.Redis, log, beatEntries(cfg))

	handlerset := wireHandlers(log, serviceset)
	middlewareset := wireMiddleware(log, serviceset)
	router := wireRouter(cfg, handlerset, middlewareset)

	return &App{
		Log:      log,
		DB:       theDB,
		Router:   router,
		Cfg:      cfg,
		Repos:    reposet,
		Clients:  clients,
		Services: serviceset,
		worker:   worker,
		beat:     beat,
	}, nil
}

func beatEntries(cfg Config) []jobs.BeatEntry {
	return []jobs.BeatEntry{
		{JobType: tasks.JobSweepAutoUpdateProfiles, Interval: cfg.SweepProfileInterval},
		{JobType: tasks.JobSweepAutoUpdateStories, Interval: cfg.SweepStoryInterval},
		{JobType: tasks.JobSweepAccountBlur, Interval: cfg.SweepBlurInterval},
		{JobType: tasks.JobSweepPostBlur, Interval: cfg.SweepBlurInterval},
		{JobType: tasks.JobSweepPostMediaBlur, Interval: cfg.SweepBlurInterval},
		{JobType: tasks.JobSweepStoryBlur, Interval: cfg.SweepBlurInterval},
		{JobType: tasks.JobSweepPostInsights, Interval: cfg.SweepInsightInterval},
		{JobType: tasks.JobSweepPostEmbeddings, Interval: cfg.SweepEmbeddingInterval},
	}
}

// Start launches the background worker and the beat scheduler.
func (a *App) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.worker.Start(ctx)
	a.beat.Start(ctx)
}

// Run starts background processing and serves HTTP until the process exits.
func (a *App) Run() error {
	a.Start()
	defer a.Shutdown()
	a.Log.Info("Starting HTTP server...", "port", a.Cfg.Port)
	return a.Router.Run(":" + a.Cfg.Port)
}

func (a *App) Shutdown() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.Clients.Redis != nil {
		a.Clients.Redis.Close()
	}
	a.Log.Sync()
}
