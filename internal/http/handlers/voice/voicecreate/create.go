// Package voicecreate реализует HTTP-обработчик клонирования голоса.
//
// Обработчик принимает multipart-форму с аудиозаписью и названием,
// проверяет лимит слотов пользователя и делегирует клонирование
// бизнес-логике. Аудиоклип дальше сервиса не сохраняется.
package voicecreate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/retainvoice/voice-service/internal/http/middlewarectx"
	"github.com/retainvoice/voice-service/internal/http/response"
	"github.com/retainvoice/voice-service/internal/lib/sl"
	"github.com/retainvoice/voice-service/internal/models"
	"github.com/retainvoice/voice-service/internal/services/voice"
)

// maxClipSize ограничивает размер загружаемой аудиозаписи.
const maxClipSize = 10 << 20 // 10 MB

// Service описывает интерфейс бизнес-логики клонирования голосов.
type Service interface {
	Clone(ctx context.Context, userUID, name, filename, mimeType string, clip []byte) (*models.Voice, error)
}

// Handler обрабатывает запросы клонирования голоса.
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
// @Summary Клонирование голоса
// @Description Создает новый голос из аудиозаписи пользователя. Требует свободного слота.
// @Tags Voices
// @Accept  multipart/form-data
// @Produce  json
// @Param clip formData file true "Аудиозапись голоса"
// @Param name formData string true "Название голоса"
// @Success 200 {object} models.Voice "Созданный голос"
// @Failure 400 {object} response.ErrorResponse "Некорректная форма"
// @Failure 402 {object} response.ErrorResponse "Лимит голосов исчерпан"
// @Failure 500 {object} response.ErrorResponse "Ошибка клонирования"
// @Security BearerAuth
// @Router /voices [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.voice.voicecreate"
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

	if err := r.ParseMultipartForm(maxClipSize); err != nil {
		log.Error("failed to parse multipart form", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid multipart form"))
		return
	}

	name := r.FormValue("name")
	if name == "" {
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("name is required"))
		return
	}

	file, header, err := r.FormFile("clip")
	if err != nil {
		log.Error("failed to read clip", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("clip file is required"))
		return
	}
	defer file.Close()

	clip, err := io.ReadAll(io.LimitReader(file, maxClipSize))
	if err != nil {
		log.Error("failed to read clip body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("could not read clip"))
		return
	}

	created, err := h.service.Clone(r.Context(), userUID, name,
		header.Filename, header.Header.Get("Content-Type"), clip)
	if err != nil {
		if errors.Is(err, voice.ErrVoiceLimitReached) {
			log.Info("voice limit reached", slog.String("user_uid", userUID))
			w.WriteHeader(http.StatusPaymentRequired)
			render.JSON(w, r, response.Error("voice limit reached"))
			return
		}
		log.Error("failed to clone voice", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not clone voice"))
		return
	}

	log.Info("voice created",
		slog.String("user_uid", userUID),
		slog.String("voice_id", created.ID))
	render.JSON(w, r, created)
}
