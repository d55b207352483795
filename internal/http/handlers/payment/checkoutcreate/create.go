// Package checkoutcreate реализует HTTP-обработчик создания checkout-сессии
// платёжного шлюза для покупки пакета голосовых слотов.
//
// Обработчик не пишет локального состояния: зачисление происходит позже,
// когда шлюз подтвердит оплату webhook-событием.
package checkoutcreate

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/retainvoice/voice-service/internal/config"
	"github.com/retainvoice/voice-service/internal/http/response"
	"github.com/retainvoice/voice-service/internal/lib/sl"
	"github.com/retainvoice/voice-service/internal/paymentgateway"
)

// Request — входные данные для создания checkout-сессии.
type Request struct {
	UserUID string `json:"user_uid" validate:"required"`
}

// GatewayClient определяет интерфейс для работы с платёжным шлюзом.
type GatewayClient interface {
	CreateCheckoutSession(ctx context.Context, reqParams paymentgateway.CreateCheckoutSessionRequest) (*paymentgateway.CheckoutSession, error)
}

// Handler обрабатывает запросы на создание checkout-сессий.
type Handler struct {
	log           *slog.Logger
	gatewayClient GatewayClient
	cfg           config.PaymentGateway
	env           string
	validate      *validator.Validate // Валидатор структуры входящих данных
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, gatewayClient GatewayClient, cfg config.PaymentGateway, env string) *Handler {
	return &Handler{
		log:           log,
		gatewayClient: gatewayClient,
		cfg:           cfg,
		env:           env,
		validate:      validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Создать checkout-сессию
// @Description Создает сессию оплаты пакета голосовых слотов и возвращает URL страницы оплаты
// @Tags Payments
// @Accept  json
// @Produce  json
// @Param request body Request true "Идентификатор пользователя"
// @Success 200 {object} map[string]any "URL страницы оплаты"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или отсутствует user_uid"
// @Failure 500 {object} response.ErrorResponse "Ошибка платёжного шлюза"
// @Router /checkout/session [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.checkoutcreate"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("user_uid is required"))
		return
	}

	sessionReq := paymentgateway.CreateCheckoutSessionRequest{
		Mode:        "payment",
		ProductName: h.cfg.PackName,
		UnitAmount:  h.cfg.PackAmount,
		Currency:    "usd",
		Quantity:    1,
		SuccessURL:  h.cfg.ClientURL + "/dashboard?payment=success&session_id=" + paymentgateway.SessionIDPlaceholder,
		CancelURL:   h.cfg.ClientURL + "/dashboard?payment=cancelled",
		Metadata: map[string]string{
			"user_uid":       req.UserUID,
			"units_to_grant": strconv.Itoa(h.cfg.PackUnits),
		},
	}

	session, err := h.gatewayClient.CreateCheckoutSession(r.Context(), sessionReq)
	if err != nil {
		log.Error("failed to create checkout session", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		// Текст ошибки шлюза наружу не уходит вне dev-режима.
		msg := "payment session creation failed"
		if h.env == "local" || h.env == "dev" {
			msg = err.Error()
		}
		render.JSON(w, r, response.Error(msg))
		return
	}

	log.Info("checkout session created",
		slog.String("session_id", session.ID),
		slog.String("user_uid", req.UserUID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"url": session.URL,
	}))
}
