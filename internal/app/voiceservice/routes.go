// Package voiceservice предоставляет маршруты для основного приложения.
package voiceservice

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/retainvoice/voice-service/internal/config"
	"github.com/retainvoice/voice-service/internal/http/handlers/auth/login"
	"github.com/retainvoice/voice-service/internal/http/handlers/auth/register"
	"github.com/retainvoice/voice-service/internal/http/handlers/health"
	"github.com/retainvoice/voice-service/internal/http/handlers/payment/checkoutcreate"
	"github.com/retainvoice/voice-service/internal/http/handlers/payment/checkoutwebhook"
	"github.com/retainvoice/voice-service/internal/http/handlers/payment/entitlementclaim"
	"github.com/retainvoice/voice-service/internal/http/handlers/payment/entitlementread"
	"github.com/retainvoice/voice-service/internal/http/handlers/payment/purchaselist"
	"github.com/retainvoice/voice-service/internal/http/handlers/voice/speechcreate"
	"github.com/retainvoice/voice-service/internal/http/handlers/voice/voicecreate"
	"github.com/retainvoice/voice-service/internal/http/handlers/voice/voicelist"
	"github.com/retainvoice/voice-service/internal/http/handlers/voice/voiceremove"
	"github.com/retainvoice/voice-service/internal/http/middlewarectx"
	"github.com/retainvoice/voice-service/internal/lib/jwt"
	"github.com/retainvoice/voice-service/internal/paymentgateway"
	authservice "github.com/retainvoice/voice-service/internal/services/auth"
	entitlementservice "github.com/retainvoice/voice-service/internal/services/entitlement"
	voicesvc "github.com/retainvoice/voice-service/internal/services/voice"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, cfg *config.Config,
	jwtMaker jwt.Maker, gatewayClient *paymentgateway.Client,
	entitlementService *entitlementservice.Service,
	voiceService *voicesvc.Service, authService *authservice.Service) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/register", register.New(logger, authService).ServeHTTP)
		r.Post("/login", login.New(logger, authService).ServeHTTP)

		// Поток покупки: создание сессии, webhook шлюза и сверка
		// клиентом. Webhook и компенсирующая запись идемпотентны
		// по session_id, аутентификация им не нужна.
		r.Post("/checkout/session", checkoutcreate.New(logger, gatewayClient, cfg.PaymentGateway, cfg.Env).ServeHTTP)
		r.Post("/payments/webhook", checkoutwebhook.New(logger, entitlementService, cfg.WebhookSecret).ServeHTTP)
		r.Get("/entitlements/{user_uid}", entitlementread.New(logger, entitlementService).ServeHTTP)
		r.Post("/entitlements/claim", entitlementclaim.New(logger, entitlementService).ServeHTTP)
		r.Get("/entitlements/{user_uid}/purchases", purchaselist.New(logger, entitlementService).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(jwtMaker, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Post("/voices", voicecreate.New(logger, voiceService).ServeHTTP)
			r.Get("/voices", voicelist.New(logger, voiceService).ServeHTTP)
			r.Delete("/voices/{id}", voiceremove.New(logger, voiceService).ServeHTTP)
			r.Post("/voices/speech", speechcreate.New(logger, voiceService).ServeHTTP)
		})
	})

	r.Get("/health", health.New(logger).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
