// Package entitlementread реализует HTTP-обработчик чтения прав пользователя.
//
// Этот маршрут — цель опроса для клиентской сверки после редиректа
// со страницы оплаты: webhook и редирект не упорядочены между собой,
// поэтому клиент перечитывает счётчик по расписанию.
package entitlementread

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/retainvoice/voice-service/internal/http/response"
	"github.com/retainvoice/voice-service/internal/lib/sl"
	"github.com/retainvoice/voice-service/internal/models"
)

// Service описывает интерфейс бизнес-логики чтения прав.
type Service interface {
	Get(ctx context.Context, userUID string) (*models.Entitlement, error)
}

// Handler обрабатывает запросы чтения прав пользователя.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Прочитать права пользователя
// @Description Возвращает счётчик купленных голосовых слотов; 0, если покупок ещё не было
// @Tags Entitlements
// @Produce  json
// @Param user_uid path string true "Идентификатор пользователя"
// @Success 200 {object} models.Entitlement "Права пользователя"
// @Failure 400 {object} response.ErrorResponse "Отсутствует user_uid"
// @Failure 500 {object} response.ErrorResponse "Ошибка хранилища"
// @Router /entitlements/{user_uid} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.entitlementread"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID := chi.URLParam(r, "user_uid")
	if userUID == "" {
		log.Error("user_uid is empty")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("user_uid is required"))
		return
	}

	result, err := h.service.Get(r.Context(), userUID)
	if err != nil {
		log.Error("failed to read entitlement", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not read entitlement"))
		return
	}

	render.JSON(w, r, result)
}
