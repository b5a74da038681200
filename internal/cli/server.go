package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"lms-exam-service/internal/app"
	"lms-exam-service/internal/auth"
	"lms-exam-service/internal/config"
	"lms-exam-service/internal/domain"
	"lms-exam-service/internal/infra/memory"
	pgloader "lms-exam-service/internal/infra/postgres"
	rediscache "lms-exam-service/internal/infra/redis"
	"lms-exam-service/internal/infra/sqlstore"
	"lms-exam-service/internal/logging"
	transport "lms-exam-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the exam service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// application is the wired service graph plus whatever must be released on shutdown.
type application struct {
	handler http.Handler
	closers []func()
}

func (a *application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format)

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}

	a, err := buildApplication(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close()

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      a.handler,
		ReadTimeout:  config.TTLDuration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout: config.TTLDuration(cfg.Server.WriteTimeout, 15*time.Second),
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", finalPort).WithField("driver", cfg.Database.Driver).Info("starting exam service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildApplication wires storage, caches, notifications and transport from cfg.
func buildApplication(ctx context.Context, cfg config.Config, log *logrus.Logger) (*application, error) {
	a := &application{}
	fail := func(err error) (*application, error) {
		a.close()
		return nil, err
	}

	if cfg.Auth.Secret == "" {
		return nil, errors.New("auth secret not configured (auth.secret or JWT_SECRET)")
	}

	var store app.Store
	var loader app.QuestionLoader
	switch cfg.Database.Driver {
	case "memory":
		mem := memory.NewStore()
		store, loader = mem, mem
	case sqlstore.DriverSQLite, sqlstore.DriverPostgres:
		db, err := sqlstore.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return fail(err)
		}
		a.closers = append(a.closers, func() { _ = db.Close() })
		applied, err := sqlstore.Migrate(ctx, db)
		if err != nil {
			return fail(err)
		}
		log.WithField("applied", applied).Info("migrations checked")
		rel := sqlstore.New(db)
		store, loader = rel, rel

		if cfg.Database.Driver == sqlstore.DriverPostgres {
			pool, err := pgxpool.Connect(ctx, cfg.Database.DSN)
			if err != nil {
				return fail(fmt.Errorf("connect pgx pool: %w", err))
			}
			a.closers = append(a.closers, pool.Close)
			loader = pgloader.NewQuestionLoader(pool)
		}
	default:
		return fail(fmt.Errorf("unknown database driver %q", cfg.Database.Driver))
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.closers = append(a.closers, func() { _ = redisClient.Close() })
	}

	cacheTTL := config.TTLDuration(cfg.Cache.TTL, 10*time.Minute)
	var cache app.QuestionSource
	if redisClient != nil {
		cache = rediscache.NewQuestionCache(redisClient, loader, cacheTTL)
	} else {
		cache = memory.NewQuestionCache(loader, cacheTTL)
	}

	var scoring *app.ScoringService
	board := app.NewBoard(func(ctx context.Context, examID string) (domain.Leaderboard, error) {
		return scoring.Leaderboard(ctx, examID)
	})

	var notifier app.Notifier = board
	if redisClient != nil {
		relay := rediscache.NewRelay(redisClient, board, log)
		stopRelay, err := relay.Start(ctx)
		if err != nil {
			return fail(err)
		}
		a.closers = append(a.closers, stopRelay)
		notifier = rediscache.NewPublisher(redisClient)
	}

	exams := app.NewExamService(store, store, cache)
	questions := app.NewQuestionService(store, store, cache)
	scoring = app.NewScoringService(store, cache, store, app.WithNotifier(notifier))

	a.handler = transport.NewRouter(transport.Deps{
		Exams:          exams,
		Questions:      questions,
		Scoring:        scoring,
		Board:          board,
		Tokens:         auth.NewTokenService(cfg.Auth.Secret, cfg.Auth.Issuer, config.TTLDuration(cfg.Auth.TokenTTL, 8*time.Hour)),
		Logger:         log,
		AllowedOrigins: cfg.Server.CORSOrigins,
	})
	return a, nil
}
