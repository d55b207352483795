// Package voiceremove реализует HTTP-обработчик удаления голоса.
package voiceremove

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/retainvoice/voice-service/internal/http/middlewarectx"
	"github.com/retainvoice/voice-service/internal/http/response"
	"github.com/retainvoice/voice-service/internal/lib/sl"
)

// Service описывает интерфейс бизнес-логики удаления голосов.
type Service interface {
	Remove(ctx context.Context, id, userUID string) (int, error)
}

// Handler обрабатывает запросы удаления голоса.
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
// @Summary Удаление голоса
// @Description Удаляет голос текущего пользователя по идентификатору
// @Tags Voices
// @Produce  json
// @Param id path string true "Идентификатор голоса"
// @Success 200 {object} map[string]any "Количество удалённых записей"
// @Failure 404 {object} response.ErrorResponse "Голос не найден"
// @Failure 500 {object} response.ErrorResponse "Ошибка хранилища"
// @Security BearerAuth
// @Router /voices/{id} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.voice.voiceremove"
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

	id := chi.URLParam(r, "id")
	if id == "" {
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("id is required"))
		return
	}

	removed, err := h.service.Remove(r.Context(), id, userUID)
	if err != nil {
		log.Error("failed to remove voice",
			slog.String("voice_id", id), sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not remove voice"))
		return
	}
	if removed == 0 {
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("voice not found"))
		return
	}

	log.Info("voice removed",
		slog.String("user_uid", userUID),
		slog.String("voice_id", id))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"removed": removed,
	}))
}
