// Package purchaselist реализует HTTP-обработчик для просмотра истории
// покупок пользователя.
package purchaselist

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

// Service описывает интерфейс бизнес-логики истории покупок.
type Service interface {
	ListPurchases(ctx context.Context, userUID string) ([]*models.Purchase, error)
}

// Handler обрабатывает запросы истории покупок.
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
// @Summary История покупок
// @Description Возвращает список покупок пользователя, включая компенсирующие записи
// @Tags Entitlements
// @Produce  json
// @Param user_uid path string true "UID пользователя"
// @Success 200 {array} models.Purchase "Список покупок"
// @Failure 400 {object} response.ErrorResponse "Не указан user_uid"
// @Failure 500 {object} response.ErrorResponse "Ошибка хранилища"
// @Router /entitlements/{user_uid}/purchases [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.purchaselist"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID := chi.URLParam(r, "user_uid")
	if userUID == "" {
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("user_uid is required"))
		return
	}

	purchases, err := h.service.ListPurchases(r.Context(), userUID)
	if err != nil {
		log.Error("failed to list purchases",
			slog.String("user_uid", userUID), sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list purchases"))
		return
	}

	render.JSON(w, r, purchases)
}
