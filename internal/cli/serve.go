package cli

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	api "github.com/quizdeck/quizdeck/internal/api/http"
	"github.com/quizdeck/quizdeck/internal/attempt"
	authmw "github.com/quizdeck/quizdeck/internal/auth/middleware"
	"github.com/quizdeck/quizdeck/internal/config"
	"github.com/quizdeck/quizdeck/internal/db"
	"github.com/quizdeck/quizdeck/internal/identity"
	"github.com/quizdeck/quizdeck/internal/leaderboard"
	"github.com/quizdeck/quizdeck/internal/mail"
	"github.com/quizdeck/quizdeck/internal/quiz"
)

// NewServeCmd builds the subcommand that runs the HTTP server.
func NewServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath)
		},
	}
}

func runServer(ctx context.Context, configPath string) error {
	cfg, err := config.LoadFile(configPath, config.FromEnv(), true)
	if err != nil {
		return err
	}

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	dbh, err := db.Open(dbCtx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		return err
	}
	defer dbh.Close()

	users := identity.NewSQLStore(dbh)
	quizzes := quiz.NewSQLStore(dbh)
	attempts := attempt.NewSQLStore(dbh)

	hub := leaderboard.NewHub()

	// With Redis configured, finalize notices fan out through pub/sub so
	// every replica's sockets see them. Without it, the local hub suffices.
	var redisClient *redis.Client
	var notifier attempt.Notifier
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		notifier = leaderboard.NewRedisNotifier(redisClient)
	} else {
		notifier = leaderboard.NewHubNotifier(hub)
	}

	var mailer mail.Sender
	if cfg.SMTPHost != "" {
		mailer = mail.NewSMTPSender(cfg)
	} else {
		mailer = mail.NoopSender{}
	}

	authSvc := authmw.NewAuthService(cfg.AuthSecret)
	coord := attempt.NewCoordinator(attempts, quizzes, notifier)
	proj := leaderboard.NewProjector(attempts, quizzes, users)

	router := api.NewRouter(api.Deps{
		Cfg:      cfg,
		Auth:     authSvc,
		Users:    users,
		Quizzes:  quizzes,
		Attempts: attempts,
		Coord:    coord,
		Proj:     proj,
		Hub:      hub,
		Mailer:   mailer,
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		log.Printf("listening on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if redisClient != nil {
		g.Go(func() error {
			return leaderboard.Relay(gctx, redisClient, hub)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Println("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
