package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"live-session-service/internal/app"
	"live-session-service/internal/auth"
	"live-session-service/internal/config"
	"live-session-service/internal/domain"
	"live-session-service/internal/gamification"
	"live-session-service/internal/grading"
	"live-session-service/internal/infra/memory"
	pgloader "live-session-service/internal/infra/postgres"
	redisinfra "live-session-service/internal/infra/redis"
	transport "live-session-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the live session server",
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

	var loader memory.SessionLoader = memory.NewStaticSessionLoader(sampleSessions())
	if pool != nil {
		loader = pgloader.NewSessionLoader(pool)
	}

	sessionStore := memory.NewSessionStore(loader)
	responseStore := memory.NewResponseStore()
	participationStore := memory.NewParticipationStore()
	awardStore := memory.NewAwardStore()

	var purger app.CachePurger = app.NopPurger{}
	if redisClient != nil {
		purger = redisinfra.NewCachePurger(redisClient)
	}

	levels := gamification.New(cfg.Gamification.PointsFirstLevel, cfg.Gamification.TuningFactor)
	base := grading.DefaultBasePoints
	if cfg.Gamification.BasePoints > 0 {
		base = grading.BasePoints{Correct: cfg.Gamification.BasePoints}
	}

	leaderboards := app.NewLeaderboardService(sessionStore, responseStore, participationStore, base, levels)
	leaderboardTTL := config.TTLDuration(cfg.Leaderboard.TTL, 2*time.Second)
	var leaderboardProvider app.LeaderboardProvider
	if redisClient != nil {
		leaderboardProvider = redisinfra.NewLeaderboardCache(redisClient, leaderboards, leaderboardTTL)
	} else {
		leaderboardProvider = memory.NewLeaderboardCache(leaderboards, leaderboardTTL)
	}

	hub := app.NewLeaderboardHub(leaderboards)
	sessionService := app.NewSessionService(sessionStore, leaderboards, participationStore, awardStore, purger)
	responseService := app.NewResponseService(sessionStore, responseStore, purger, hub)
	participationService := app.NewParticipationService(participationStore, purger)

	tokenTTL := config.TTLDuration(cfg.Auth.TokenTTL, auth.DefaultTokenTTL)
	tokens := auth.NewTokenService(cfg.Auth.Secret, tokenTTL)

	handler := transport.NewHandler(sessionService, responseService, participationService, leaderboardProvider, tokens)
	wsHandler := transport.NewWSHandler(hub)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	handler.Register(mux)
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting live session service on :%s", finalPort)
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

// sampleSessions provides a minimal authored session; swap the loader
// with the Postgres-backed one in production.
func sampleSessions() map[string]*domain.Session {
	return map[string]*domain.Session{
		"session-1": {
			ID:       "session-1",
			Name:     "Demo Session",
			CourseID: "course-1",
			OwnerID:  "owner-1",
			Status:   domain.SessionPrepared,
			Blocks: []*domain.SessionBlock{
				{
					ID:     "block-1",
					Order:  0,
					Status: domain.BlockScheduled,
					Instances: []*domain.QuestionInstance{
						{
							ID:   "instance-1",
							Type: domain.TypeSC,
							Question: domain.QuestionData{
								Name:        "warmup",
								Content:     "What is 2 + 2?",
								Choices:     []string{"3", "4", "5"},
								SolutionIxs: []int{1},
							},
							PointsMultiplier: 1,
						},
					},
				},
			},
		},
	}
}
