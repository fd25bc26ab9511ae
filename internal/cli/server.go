package cli

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"chat-quiz-service/internal/app"
	"chat-quiz-service/internal/config"
	"chat-quiz-service/internal/domain"
	"chat-quiz-service/internal/infra/memory"
	"chat-quiz-service/internal/infra/postgres"
	rediscache "chat-quiz-service/internal/infra/redis"
	transport "chat-quiz-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
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
		defer redisClient.Close()
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	var results app.ResultStore = memory.NewResultStore()
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		loader = postgres.NewQuizLoader(pool)

		db := postgres.OpenDB(cfg.Postgres.URL)
		defer db.Close()
		results = postgres.NewResultStore(db)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = rediscache.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	opts := app.Options{
		StartDelay:  config.TTLDuration(cfg.Engine.StartDelay, 3*time.Second),
		GracePeriod: config.TTLDuration(cfg.Engine.GracePeriod, time.Second),
		IOTimeout:   config.TTLDuration(cfg.Engine.PersistTimeout, 10*time.Second),
	}
	if redisClient != nil {
		opts.Tracker = rediscache.NewSessionMarker(redisClient, config.TTLDuration(cfg.Redis.TTL, 2*time.Hour))
	}

	gateway := transport.NewGateway()
	registry := app.NewRegistry(gateway, results, opts)
	service := app.NewQuizService(registry, quizRepo)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewMux(service, gateway),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("starting quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("shutting down server...")
		for _, snap := range service.ActiveSessions(context.Background()) {
			if err := service.CancelQuiz(context.Background(), snap.ChatID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
				log.Printf("cancel session in chat %s: %v", snap.ChatID, err)
			}
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// sampleQuizzes backs the server when no Postgres is configured, and is what `seed` stores.
func sampleQuizzes() map[string]domain.QuizDefinition {
	return map[string]domain.QuizDefinition{
		"quiz-1": {
			ID:                 "quiz-1",
			Title:              "Warm-up",
			SecondsPerQuestion: 15,
			Questions: []domain.Question{
				{
					Text:          "What is 2 + 2?",
					Options:       [domain.OptionCount]string{"3", "4", "5", "22"},
					CorrectOption: 1,
				},
				{
					Text:          "Which planet is known as the Red Planet?",
					Options:       [domain.OptionCount]string{"Venus", "Jupiter", "Mars", "Mercury"},
					CorrectOption: 2,
					Explanation:   "Iron oxide on its surface gives Mars its colour.",
				},
			},
		},
	}
}
