// Package voiceservice собирает приложение: подключает хранилище,
// кеш и брокер сообщений, инициализирует сервисы и HTTP-сервер.
package voiceservice

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/retainvoice/voice-service/internal/cache"
	"github.com/retainvoice/voice-service/internal/config"
	"github.com/retainvoice/voice-service/internal/lib/jwt"
	"github.com/retainvoice/voice-service/internal/lib/rabbitmq"
	"github.com/retainvoice/voice-service/internal/lib/sl"
	"github.com/retainvoice/voice-service/internal/migrations"
	"github.com/retainvoice/voice-service/internal/paymentgateway"
	authservice "github.com/retainvoice/voice-service/internal/services/auth"
	entitlementservice "github.com/retainvoice/voice-service/internal/services/entitlement"
	voicesvc "github.com/retainvoice/voice-service/internal/services/voice"
	"github.com/retainvoice/voice-service/internal/storage"
	"github.com/retainvoice/voice-service/internal/voiceprovider"
)

// App — собранное приложение с HTTP-сервером и внешними подключениями.
type App struct {
	server     *http.Server
	logger     *slog.Logger
	db         *storage.Storage
	rabbitConn *amqp.Connection
	rabbitCh   *amqp.Channel
}

// New инициализирует все зависимости приложения. Недоступный RabbitMQ
// не мешает запуску: уведомления о покупках тогда не публикуются,
// зачисление прав от этого не зависит.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	var rabbitConn *amqp.Connection
	var rabbitCh *amqp.Channel
	var notifier *rabbitmq.Notifier
	if cfg.RabbitURL != "" {
		rabbitConn, err = rabbitmq.Connect(cfg.RabbitURL, cfg.RabbitRetries, cfg.RabbitDelay)
		if err != nil {
			logger.Warn("rabbitmq unavailable, purchase notifications disabled", sl.Err(err))
		} else {
			rabbitCh, err = rabbitmq.SetupChannel(rabbitConn, []rabbitmq.QueueConfig{
				{QueueName: "purchase-notifications", RoutingKey: rabbitmq.RoutingKeyPurchaseFulfilled},
			})
			if err != nil {
				return nil, err
			}
			notifier = rabbitmq.NewNotifier(rabbitCh)
		}
	}

	gatewayClient := paymentgateway.NewClient(cfg.PaymentGateway.APIKey, cfg.PaymentGateway.APIURL)
	providerClient := voiceprovider.NewClient(cfg.VoiceAPIKey, cfg.VoiceAPIURL, cfg.VoiceAPIVersion, cfg.VoiceTimeout)
	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)

	entitlementService := entitlementservice.New(db, cacheRedis, notifierOrNil(notifier), logger)
	voiceService := voicesvc.New(db, providerClient, entitlementService, cacheRedis, cfg.FreeVoices, logger)
	authService := authservice.New(db, jwtMaker)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, cfg, jwtMaker, gatewayClient,
		entitlementService, voiceService, authService)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:     srv,
		logger:     logger,
		db:         db,
		rabbitConn: rabbitConn,
		rabbitCh:   rabbitCh,
	}, nil
}

// notifierOrNil разворачивает типизированный nil в нетипизированный,
// чтобы сервис мог проверить notifier == nil.
func notifierOrNil(n *rabbitmq.Notifier) entitlementservice.Notifier {
	if n == nil {
		return nil
	}
	return n
}

// Run запускает HTTP-сервер и блокируется до отмены контекста
// или фатальной ошибки сервера.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if a.rabbitCh != nil {
			_ = a.rabbitCh.Close()
		}
		if a.rabbitConn != nil {
			_ = a.rabbitConn.Close()
		}
		_ = a.db.DB.Close()
		return err
	}
}
