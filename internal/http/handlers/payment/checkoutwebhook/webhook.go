// Package checkoutwebhook реализует HTTP-обработчик webhook-событий
// платёжного шлюза: проверку подписи, разбор события и зачисление покупки.
//
// Обработчик читает сырое тело запроса и проверяет подпись до любого
// разбора JSON: шлюз подписывает именно байты тела, и никакой промежуточный
// слой не должен их переупаковывать. Доставка событий как минимум
// однократная, поэтому зачисление идемпотентно по session_id.
package checkoutwebhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/retainvoice/voice-service/internal/http/response"
	"github.com/retainvoice/voice-service/internal/lib/sl"
	"github.com/retainvoice/voice-service/internal/metrics"
	"github.com/retainvoice/voice-service/internal/models"
	"github.com/retainvoice/voice-service/internal/paymentgateway"
	"github.com/retainvoice/voice-service/internal/services/entitlement"
)

// Service описывает интерфейс бизнес-логики зачисления покупок.
type Service interface {
	Fulfill(ctx context.Context, p models.Purchase) (bool, error)
}

// Handler обрабатывает webhook-события платёжного шлюза.
type Handler struct {
	log           *slog.Logger
	service       Service
	webhookSecret string // Секрет для проверки подписи
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service, secret string) *Handler {
	return &Handler{
		log:           log,
		service:       service,
		webhookSecret: secret,
	}
}

// ServeHTTP godoc
// @Summary Webhook платёжного шлюза
// @Description Принимает подписанные события шлюза; на checkout.session.completed зачисляет покупку
// @Tags Payments
// @Accept  json
// @Produce  json
// @Success 200 {object} map[string]any "Событие принято"
// @Failure 400 {object} response.ErrorResponse "Неверная подпись или некорректное событие"
// @Failure 500 {object} response.ErrorResponse "Временная ошибка, шлюз повторит доставку"
// @Router /payments/webhook [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.checkoutwebhook"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to read body"))
		return
	}
	defer r.Body.Close()

	signature := r.Header.Get(paymentgateway.SignatureHeader)
	if signature == "" || !paymentgateway.VerifySignature(h.webhookSecret, body, signature) {
		log.Error("invalid or missing webhook signature")
		metrics.WebhookRejected.WithLabelValues("bad_signature").Inc()
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid signature"))
		return
	}

	var event paymentgateway.Event
	if err := json.Unmarshal(body, &event); err != nil {
		log.Error("failed to unmarshal webhook payload", sl.Err(err))
		metrics.WebhookRejected.WithLabelValues("malformed").Inc()
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid payload"))
		return
	}

	metrics.WebhookEventsReceived.WithLabelValues(event.Type).Inc()

	if event.Type != paymentgateway.EventCheckoutCompleted {
		// Остальные типы подтверждаем без побочных эффектов.
		log.Info("ignored webhook event", slog.String("event_type", event.Type))
		render.JSON(w, r, map[string]any{"received": true})
		return
	}

	session := event.Data.Object
	units, convErr := strconv.Atoi(session.Metadata["units_to_grant"])
	purchase := models.Purchase{
		SessionID:    session.ID,
		UserUID:      session.Metadata["user_uid"],
		UnitsGranted: units,
		Amount:       session.AmountTotal,
		Source:       models.PurchaseSourceWebhook,
	}
	if convErr != nil {
		purchase.UnitsGranted = 0 // сервис отклонит событие как некорректное
	}

	applied, err := h.service.Fulfill(r.Context(), purchase)
	if err != nil {
		if errors.Is(err, entitlement.ErrMalformedEvent) {
			log.Error("malformed checkout event",
				slog.String("session_id", session.ID),
				slog.String("user_uid", purchase.UserUID),
				sl.Err(err))
			metrics.WebhookRejected.WithLabelValues("malformed").Inc()
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("malformed event metadata"))
			return
		}
		// Временная ошибка: 500 заставит шлюз доставить событие повторно.
		log.Error("failed to fulfill checkout",
			slog.String("session_id", session.ID),
			slog.String("user_uid", purchase.UserUID),
			sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("fulfillment failed"))
		return
	}

	if applied {
		metrics.PurchasesFulfilled.WithLabelValues(models.PurchaseSourceWebhook).Inc()
	} else {
		metrics.PurchasesDuplicate.Inc()
	}

	log.Info("webhook processed successfully",
		slog.String("event_type", event.Type),
		slog.String("session_id", session.ID),
		slog.Bool("duplicate", !applied))
	render.JSON(w, r, map[string]any{
		"received":  true,
		"duplicate": !applied,
	})
}
