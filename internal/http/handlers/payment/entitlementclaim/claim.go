// Package entitlementclaim реализует HTTP-обработчик компенсирующей записи:
// клиент вызывает его, если после редиректа со страницы оплаты webhook
// так и не зачислил покупку за отведённое время.
//
// Запись проходит ту же атомарную транзакцию с ключом session_id, что и
// webhook, поэтому поздно пришедший webhook после компенсации (и наоборот)
// становится no-op, а не вторым зачислением. В аудите такая покупка
// помечается источником client_fallback.
package entitlementclaim

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/retainvoice/voice-service/internal/http/response"
	"github.com/retainvoice/voice-service/internal/lib/sl"
	"github.com/retainvoice/voice-service/internal/metrics"
	"github.com/retainvoice/voice-service/internal/models"
	"github.com/retainvoice/voice-service/internal/services/entitlement"
)

// Request — входные данные компенсирующей записи.
type Request struct {
	UserUID      string `json:"user_uid" validate:"required"`
	SessionID    string `json:"session_id" validate:"required"`
	UnitsToGrant int    `json:"units_to_grant" validate:"required,gt=0"`
	Amount       int    `json:"amount"`
}

// Service описывает интерфейс бизнес-логики зачисления покупок.
type Service interface {
	Fulfill(ctx context.Context, p models.Purchase) (bool, error)
	Get(ctx context.Context, userUID string) (*models.Entitlement, error)
}

// Handler обрабатывает компенсирующие записи от клиента.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate // Валидатор структуры входящих данных
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Компенсирующая запись покупки
// @Description Зачисляет покупку по session_id, если webhook не успел; идемпотентно по session_id
// @Tags Entitlements
// @Accept  json
// @Produce  json
// @Param request body Request true "Данные покупки"
// @Success 200 {object} map[string]any "Результат зачисления и текущий счётчик"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка хранилища"
// @Router /entitlements/claim [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.entitlementclaim"
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
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	applied, err := h.service.Fulfill(r.Context(), models.Purchase{
		SessionID:    req.SessionID,
		UserUID:      req.UserUID,
		UnitsGranted: req.UnitsToGrant,
		Amount:       req.Amount,
		Source:       models.PurchaseSourceClientFallback,
	})
	if err != nil {
		if errors.Is(err, entitlement.ErrMalformedEvent) {
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("malformed claim"))
			return
		}
		log.Error("failed to apply claim",
			slog.String("session_id", req.SessionID), sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not apply claim"))
		return
	}

	if applied {
		metrics.PurchasesFulfilled.WithLabelValues(models.PurchaseSourceClientFallback).Inc()
		log.Info("client fallback claim applied",
			slog.String("session_id", req.SessionID),
			slog.String("user_uid", req.UserUID))
	} else {
		metrics.PurchasesDuplicate.Inc()
	}

	ent, err := h.service.Get(r.Context(), req.UserUID)
	if err != nil {
		log.Error("failed to read entitlement after claim", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not read entitlement"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"applied":         applied,
		"purchased_units": ent.PurchasedUnits,
	}))
}
