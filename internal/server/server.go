package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bhojansetu/bhojansetu/config"
	"github.com/bhojansetu/bhojansetu/internal/helpers"
	"github.com/bhojansetu/bhojansetu/internal/metrics"
	"github.com/bhojansetu/bhojansetu/internal/middleware"
	"github.com/bhojansetu/bhojansetu/internal/notify"
	"github.com/bhojansetu/bhojansetu/internal/realtime"
	"github.com/bhojansetu/bhojansetu/internal/repository"
	"github.com/bhojansetu/bhojansetu/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App owns every long-lived resource of the process.
type App struct {
	cfg *config.Config
	log *zap.Logger

	db      *gorm.DB
	redis   *redis.Client
	mongo   *mongo.Client
	hub     *realtime.Hub
	broker  realtime.Broker
	sweeper *services.ExpirySweeper
	limiter *middleware.IPRateLimiter
	metrics *metrics.Manager

	router *gin.Engine
}

// New connects to the configured backends and wires the HTTP router.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	app := &App{cfg: cfg, log: log, metrics: metrics.NewManager("bhojansetu")}

	if err := app.init(ctx); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) init(ctx context.Context) error {
	db, err := config.InitDatabase(a.cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	a.db = db

	if err := config.EnsureAdmin(db, a.cfg.Admin, a.log); err != nil {
		return fmt.Errorf("failed to ensure admin account: %w", err)
	}

	messages, err := a.messageStore(ctx)
	if err != nil {
		return err
	}

	notifier, err := a.notifier()
	if err != nil {
		return err
	}

	a.hub = realtime.NewHub(a.log.Named("realtime"), a.metrics)
	if a.cfg.Redis.Addr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     a.cfg.Redis.Addr,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		broker, err := realtime.NewRedisBroker(ctx, a.redis, a.cfg.Redis.Channel, a.hub, a.log.Named("broker"))
		if err != nil {
			return err
		}
		a.broker = broker
		a.log.Info("realtime broker: redis", zap.String("addr", a.cfg.Redis.Addr))
	} else {
		a.broker = realtime.NewLocalBroker(a.hub)
		a.log.Info("realtime broker: local")
	}

	donationRepo := repository.NewDonationRepository(db)
	userRepo := repository.NewUserRepository(db)
	tokens := helpers.NewTokenIssuer(a.cfg.JWT.Secret, a.cfg.JWT.TTL)

	donations := services.NewDonationService(donationRepo, messages, notifier, a.metrics, a.log.Named("donations"))
	svc := &middleware.Services{
		Donations: donations,
		Chat:      services.NewChatService(donationRepo, userRepo, messages, a.broker, a.metrics, a.log.Named("chat")),
		Users:     services.NewUserService(userRepo, donationRepo, notifier, tokens, a.log.Named("users")),
		Contact:   services.NewContactService(notifier, a.cfg.ContactReceiverEmail, a.log.Named("contact")),
		Tokens:    tokens,
		Hub:       a.hub,
		Log:       a.log,
	}

	if interval := a.cfg.Donation.ExpirySweepInterval; interval > 0 {
		a.sweeper = services.NewExpirySweeper(donations, a.log.Named("sweeper"), interval)
		a.sweeper.Start()
	}

	a.limiter = middleware.NewIPRateLimiter(a.cfg.HTTP.RateLimitPerMinute, a.log)
	if a.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	a.router = NewRouter(svc, RouterOptions{
		Log:        a.log,
		Metrics:    a.metrics,
		Limiter:    a.limiter,
		ClientURLs: a.cfg.HTTP.ClientURLs,
	})
	return nil
}

func (a *App) messageStore(ctx context.Context) (repository.MessageRepository, error) {
	if a.cfg.MessageStore != "mongo" {
		return repository.NewSQLMessageRepository(a.db), nil
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(a.cfg.Mongo.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	a.mongo = client
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	store := repository.NewMongoMessageRepository(client.Database(a.cfg.Mongo.Database))
	if err := store.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to create message indexes: %w", err)
	}
	a.log.Info("message store: mongo", zap.String("database", a.cfg.Mongo.Database))
	return store, nil
}

func (a *App) notifier() (notify.Notifier, error) {
	if !a.cfg.SMTP.Enabled() {
		if a.cfg.IsProduction() {
			return nil, errors.New("SMTP must be configured in production")
		}
		a.log.Warn("SMTP not configured, emails will be logged instead of sent")
		return notify.NewLogNotifier(a.log.Named("mail")), nil
	}
	return notify.NewSMTPNotifier(notify.SMTPConfig{
		Host:        a.cfg.SMTP.Host,
		Port:        a.cfg.SMTP.Port,
		Username:    a.cfg.SMTP.Username,
		Password:    a.cfg.SMTP.Password,
		SenderEmail: a.cfg.SMTP.SenderEmail,
		Encryption:  a.cfg.SMTP.Encryption,
		Timeout:     a.cfg.SMTP.Timeout,
	}, a.log.Named("mail"))
}

func (a *App) Router() *gin.Engine {
	return a.router
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		a.Close()
		return err
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	a.Close()
	return err
}

// Close releases resources in reverse order of creation. It tolerates a
// partially initialised App.
func (a *App) Close() {
	if a.sweeper != nil {
		a.sweeper.Stop()
	}
	if a.limiter != nil {
		a.limiter.Stop()
	}
	if a.broker != nil {
		if err := a.broker.Close(); err != nil {
			a.log.Warn("failed to close broker", zap.Error(err))
		}
	}
	if a.hub != nil {
		a.hub.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("failed to close redis", zap.Error(err))
		}
	}
	if a.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.mongo.Disconnect(ctx); err != nil {
			a.log.Warn("failed to disconnect mongo", zap.Error(err))
		}
		cancel()
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

// Start builds the application and serves until ctx is done.
func Start(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	app, err := New(ctx, cfg, log)
	if err != nil {
		return err
	}
	return app.Run(ctx)
}
