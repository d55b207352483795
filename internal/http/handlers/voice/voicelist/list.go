// Package voicelist реализует HTTP-обработчик списка голосов пользователя.
package voicelist

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/retainvoice/voice-service/internal/http/middlewarectx"
	"github.com/retainvoice/voice-service/internal/http/response"
	"github.com/retainvoice/voice-service/internal/lib/sl"
	"github.com/retainvoice/voice-service/internal/models"
)

// Service описывает интерфейс бизнес-логики списка голосов.
type Service interface {
	List(ctx context.Context, userUID string) ([]*models.Voice, error)
}

// Handler обрабатывает запросы списка голосов.
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
// @Summary Список голосов
// @Description Возвращает голоса текущего пользователя
// @Tags Voices
// @Produce  json
// @Success 200 {array} models.Voice "Голоса пользователя"
// @Failure 500 {object} response.ErrorResponse "Ошибка хранилища"
// @Security BearerAuth
// @Router /voices [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.voice.voicelist"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	voices, err := h.service.List(r.Context(), userUID)
	if err != nil {
		log.Error("failed to list voices",
			slog.String("user_uid", userUID), sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list voices"))
		return
	}

	render.JSON(w, r, voices)
}
