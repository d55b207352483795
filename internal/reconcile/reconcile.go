package reconcile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/retainvoice/voice-service/internal/lib/sl"
	"github.com/retainvoice/voice-service/internal/models"
)

// Result — итог сверки после редиректа с оплаты.
type Result struct {
	// Fulfilled — покупка зачислена (неважно кем).
	Fulfilled bool
	// ViaFallback — зачисление выполнила компенсирующая запись,
	// а не webhook.
	ViaFallback bool
	// PurchasedUnits — итоговый счётчик прав пользователя.
	PurchasedUnits int
}

// Client выполняет сверку зачисления покупки против HTTP API сервиса.
type Client struct {
	baseURL    string
	httpClient *http.Client
	// schedule — паузы между повторными чтениями счётчика. Длина
	// расписания определяет число попыток до компенсирующей записи.
	schedule []time.Duration
	log      *slog.Logger
}

// NewClient создает клиент сверки. baseURL — адрес API без завершающего
// слэша, например http://localhost:8080/api/v1.
func NewClient(baseURL string, schedule []time.Duration, log *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		schedule:   schedule,
		log:        log,
	}
}

// Reconcile проверяет, что покупка по sessionID зачислена: сначала
// немедленное чтение, затем повторные чтения по расписанию. Если счётчик
// так и не превысил baseline, выполняется компенсирующая запись с тем же
// sessionID — благодаря идемпотентности по ключу сессии она безопасна
// даже при гонке с опоздавшим webhook.
//
// Ошибки отдельных попыток чтения не прерывают сверку: следующая попытка
// может увидеть уже зачисленную покупку.
func (c *Client) Reconcile(ctx context.Context, userUID, sessionID string, baseline, units int) (*Result, error) {
	const op = "reconcile.Reconcile"
	log := c.log.With(
		slog.String("op", op),
		slog.String("session_id", sessionID),
	)

	if ent, err := c.readEntitlement(ctx, userUID); err == nil && ent.PurchasedUnits > baseline {
		log.Info("purchase already fulfilled", slog.Int("purchased_units", ent.PurchasedUnits))
		return &Result{Fulfilled: true, PurchasedUnits: ent.PurchasedUnits}, nil
	} else if err != nil {
		log.Warn("entitlement read failed", sl.Err(err))
	}

	for attempt, delay := range c.schedule {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		ent, err := c.readEntitlement(ctx, userUID)
		if err != nil {
			log.Warn("entitlement read failed",
				slog.Int("attempt", attempt+1), sl.Err(err))
			continue
		}
		if ent.PurchasedUnits > baseline {
			log.Info("purchase fulfilled by webhook",
				slog.Int("attempt", attempt+1),
				slog.Int("purchased_units", ent.PurchasedUnits))
			return &Result{Fulfilled: true, PurchasedUnits: ent.PurchasedUnits}, nil
		}
	}

	log.Info("webhook did not arrive in time, submitting claim")
	applied, total, err := c.submitClaim(ctx, userUID, sessionID, units)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Result{
		Fulfilled:      true,
		ViaFallback:    applied,
		PurchasedUnits: total,
	}, nil
}

func (c *Client) readEntitlement(ctx context.Context, userUID string) (*models.Entitlement, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/entitlements/"+userUID, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}

	var ent models.Entitlement
	if err := json.NewDecoder(resp.Body).Decode(&ent); err != nil {
		return nil, err
	}
	return &ent, nil
}

func (c *Client) submitClaim(ctx context.Context, userUID, sessionID string, units int) (bool, int, error) {
	payload, err := json.Marshal(map[string]any{
		"user_uid":       userUID,
		"session_id":     sessionID,
		"units_to_grant": units,
	})
	if err != nil {
		return false, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/entitlements/claim", bytes.NewReader(payload))
	if err != nil {
		return false, 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, 0, fmt.Errorf("claim rejected with status %d: %s", resp.StatusCode, body)
	}

	var parsed struct {
		Data struct {
			Applied        bool `json:"applied"`
			PurchasedUnits int  `json:"purchased_units"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return false, 0, err
	}
	return parsed.Data.Applied, parsed.Data.PurchasedUnits, nil
}
