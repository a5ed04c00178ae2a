package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"qcm-service/internal/app"
	"qcm-service/internal/auth"
	"qcm-service/internal/config"
	"qcm-service/internal/domain"
	"qcm-service/internal/infra/memory"
	pgstore "qcm-service/internal/infra/postgres"
	redisrepo "qcm-service/internal/infra/redis"
	transport "qcm-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the QCM server",
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

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	if pool != nil {
		loader = pgstore.NewQuizLoader(pool)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisrepo.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	var attempts app.AttemptStore
	if pool != nil {
		attempts = pgstore.NewAttemptStore(pool)
	} else {
		attempts = memory.NewAttemptStore(sampleQuizzes())
	}

	secret := cfg.Auth.Secret
	if secret == "" {
		secret = "dev-secret"
		log.Printf("auth secret not configured, using development default")
	}
	tokens := auth.NewTokenService(secret, config.TTLDuration(cfg.Auth.TokenTTL, 8*time.Hour))

	service := app.NewQCMService(quizRepo, attempts)
	router := transport.NewRouter(service, tokens)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting qcm service on :%s", finalPort)
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuizzes provides a minimal quiz set for running without Postgres.
func sampleQuizzes() map[int64]domain.Quiz {
	return map[int64]domain.Quiz{
		1: {
			ID:         1,
			Name:       "Arithmetic warmup",
			Difficulty: "easy",
			Questions: []domain.Question{
				{
					ID: 1, Heading: "What is 2 + 2?", Points: 5, NegativePoints: 2,
					Type: domain.QuestionSingle,
					Propositions: []domain.Proposition{
						{ID: 1, Text: "3", Correct: false},
						{ID: 2, Text: "4", Correct: true},
						{ID: 3, Text: "5", Correct: false},
					},
				},
				{
					ID: 2, Heading: "Which numbers are even?", Points: 10, NegativePoints: 2,
					Type: domain.QuestionMultiple,
					Propositions: []domain.Proposition{
						{ID: 4, Text: "2", Correct: true},
						{ID: 5, Text: "3", Correct: false},
						{ID: 6, Text: "8", Correct: true},
					},
				},
			},
		},
	}
}
