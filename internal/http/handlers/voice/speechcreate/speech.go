// Package speechcreate реализует HTTP-обработчик синтеза речи
// сохранённым голосом пользователя. Ответ — бинарный аудиопоток.
package speechcreate

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/retainvoice/voice-service/internal/http/middlewarectx"
	"github.com/retainvoice/voice-service/internal/http/response"
	"github.com/retainvoice/voice-service/internal/lib/sl"
	"github.com/retainvoice/voice-service/internal/services/voice"
	"github.com/retainvoice/voice-service/internal/storage"
)

// Request — входные данные синтеза речи.
type Request struct {
	VoiceID string `json:"voice_id" validate:"required"`
	Text    string `json:"text" validate:"required,max=2000"`
}

// Service описывает интерфейс бизнес-логики синтеза речи.
type Service interface {
	Speak(ctx context.Context, userUID, voiceID, text string) ([]byte, error)
}

// Handler обрабатывает запросы синтеза речи.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
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
// @Summary Синтез речи
// @Description Генерирует аудио с голосом пользователя. Возвращает mp3-поток.
// @Tags Voices
// @Accept  json
// @Produce  audio/mpeg
// @Param request body Request true "Голос и текст"
// @Success 200 {file} binary "Аудиопоток"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 403 {object} response.ErrorResponse "Чужой голос"
// @Failure 404 {object} response.ErrorResponse "Голос не найден"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка синтеза"
// @Security BearerAuth
// @Router /voices/speech [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.voice.speechcreate"
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

	audio, err := h.service.Speak(r.Context(), userUID, req.VoiceID, req.Text)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("voice not found"))
		case errors.Is(err, voice.ErrForbidden):
			log.Info("speech denied", slog.String("voice_id", req.VoiceID))
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("voice belongs to another user"))
		default:
			log.Error("failed to generate speech", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not generate speech"))
		}
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(audio)))
	if _, err := w.Write(audio); err != nil {
		log.Error("failed to write audio response", sl.Err(err))
	}
}
