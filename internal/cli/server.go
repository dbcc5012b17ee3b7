package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quiz-engine/internal/app"
	"quiz-engine/internal/config"
	"quiz-engine/internal/domain"
	"quiz-engine/internal/infra/memory"
	pgloader "quiz-engine/internal/infra/postgres"
	redisinfra "quiz-engine/internal/infra/redis"
	transport "quiz-engine/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz engine server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
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
	sessionTTL := config.TTLDuration(cfg.Redis.TTL, 24*time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(demoQuizzes())
	if pool != nil {
		loader = pgloader.NewQuizLoader(pool)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizzes app.QuizRepository
	if redisClient != nil {
		quizzes = redisinfra.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizzes = memory.NewQuizRepository(loader, quizTTL)
	}

	var store app.SessionStore
	if redisClient != nil {
		store = redisinfra.NewSessionStore(redisClient, sessionTTL)
	} else {
		store = memory.NewSessionStore()
	}

	registry := app.NewRegistry(store, quizzes, cfg.Limits.MaxConnections)
	engine := app.NewEngine(store, quizzes)
	wsHandler := transport.NewWSHandler(registry, engine)
	apiHandler := transport.NewAPIHandler(registry, quizzes)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	apiHandler.Register(mux, wsHandler)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz engine on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	// Stop timers first; remaining time is persisted per tick, so sessions
	// resume where they left off after a restart.
	engine.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// demoQuizzes backs the server when no Postgres URL is configured.
func demoQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"demo-quiz": {
			ID:               "demo-quiz",
			Title:            "Go Fundamentals Quiz",
			Description:      "Test your Go knowledge!",
			TimeLimitSeconds: 300,
			Questions: []domain.Question{
				{ID: "q1", QuizID: "demo-quiz", Number: 1, Text: "Which keyword declares a new goroutine?",
					Options: []string{"go", "run", "async", "spawn"}, CorrectAnswer: "go", Points: 1},
				{ID: "q2", QuizID: "demo-quiz", Number: 2, Text: "What is the zero value of an int?",
					Options: []string{"nil", "0", "-1", "undefined"}, CorrectAnswer: "0", Points: 1},
				{ID: "q3", QuizID: "demo-quiz", Number: 3, Text: "Which builtin appends to a slice?",
					Options: []string{"push", "add", "append", "insert"}, CorrectAnswer: "append", Points: 1},
				{ID: "q4", QuizID: "demo-quiz", Number: 4, Text: "What does cap(make([]int, 2, 5)) return?",
					Options: []string{"2", "5", "7", "0"}, CorrectAnswer: "5", Points: 1},
				{ID: "q5", QuizID: "demo-quiz", Number: 5, Text: "Which type is used for text?",
					Options: []string{"char", "text", "string", "rune[]"}, CorrectAnswer: "string", Points: 1},
			},
		},
	}
}
