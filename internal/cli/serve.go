package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quest-progression-service/internal/app"
	"quest-progression-service/internal/config"
	"quest-progression-service/internal/domain"
	"quest-progression-service/internal/infra/memory"
	pgstore "quest-progression-service/internal/infra/postgres"
	redisstore "quest-progression-service/internal/infra/redis"
	"quest-progression-service/internal/logging"
	"quest-progression-service/internal/quest"
	transport "quest-progression-service/internal/transport/http"
)

// NewServeCmd builds the CLI subcommand to start the server.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the quest server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	slog.SetDefault(slog.New(logging.NewColorHandler(os.Stderr, slog.LevelInfo)))

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.QuestionLoader = memory.NewStaticQuestionLoader(sampleQuestionSets())
	if pool != nil {
		loader = pgstore.NewQuestionLoader(pool)
	}

	cacheTTL := config.TTLDuration(cfg.Quest.CacheTTL, 10*time.Minute)
	var questions app.QuestionRepository
	if redisClient != nil {
		questions = redisstore.NewQuestionRepository(redisClient, loader, cacheTTL)
	} else {
		questions = memory.NewQuestionRepository(loader, cacheTTL)
	}

	var progress app.ProgressStore
	switch {
	case pool != nil:
		progress = pgstore.NewProgressStore(pool)
	case redisClient != nil:
		progress = redisstore.NewProgressStore(redisClient)
	default:
		progress = memory.NewProgressStore()
	}

	runnerCfg := quest.RunnerConfig{
		TickInterval:  config.TTLDuration(cfg.Quest.TickInterval, quest.DefaultTickInterval),
		FeedbackDwell: config.TTLDuration(cfg.Quest.FeedbackDwell, quest.DefaultFeedbackDwell),
	}
	service := app.NewQuestService(questions, progress, runnerCfg)

	router := mux.NewRouter()
	transport.Register(router, transport.NewAPIHandler(service), transport.NewWSHandler(service))

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		slog.Info("starting quest service", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		slog.Info("shutting down server")
	case <-ctx.Done():
		slog.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuestionSets provides a minimal question table for running without
// Postgres; production deployments load sets from the question_sets table.
func sampleQuestionSets() map[string][]domain.Question {
	base := []domain.Question{
		{
			ID:            "go-0-1",
			Text:          "Which keyword declares a new variable with inferred type?",
			Options:       []string{"var", ":=", "let", "def"},
			CorrectOption: 1,
			Explanation:   ":= declares and initializes in one step inside a function.",
		},
		{
			ID:            "go-0-2",
			Text:          "What does a nil map lookup return?",
			Options:       []string{"panic", "nil", "the zero value", "an error"},
			CorrectOption: 2,
			Explanation:   "Reading a nil map yields the element type's zero value.",
		},
		{
			ID:            "go-0-3",
			Text:          "Which builtin grows a slice?",
			Options:       []string{"push", "append", "add", "grow"},
			CorrectOption: 1,
		},
		{
			ID:            "go-0-4",
			Text:          "What is the zero value of a bool?",
			Options:       []string{"true", "false", "nil", "0"},
			CorrectOption: 1,
		},
	}
	sets := make(map[string][]domain.Question)
	for level := 0; level <= 5; level++ {
		sets[memory.StaticKey("go", level)] = base
	}
	return sets
}
