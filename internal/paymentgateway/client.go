// Package paymentgateway реализует клиент платёжного шлюза: создание
// checkout-сессий и проверку подписи входящих webhook-событий.
//
// Шлюз — внешний чёрный ящик: клиент отправляет описание продукта и
// метаданные, получает URL страницы оплаты. Подтверждение оплаты приходит
// асинхронно отдельным webhook-запросом.
package paymentgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// SessionIDPlaceholder — литерал, который шлюз подставляет в success URL
// при редиректе обратно, заменяя его на реальный идентификатор сессии.
const SessionIDPlaceholder = "{CHECKOUT_SESSION_ID}"

// Client клиент платёжного шлюза.
type Client struct {
	apiKey     string
	apiURL     string
	httpClient *http.Client
}

// NewClient создаёт новый клиент платёжного шлюза.
func NewClient(apiKey, apiURL string) *Client {
	return &Client{
		apiKey:     apiKey,
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	url := c.apiURL + path
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// CreateCheckoutSession отправляет запрос на создание checkout-сессии
// и возвращает её идентификатор вместе с URL страницы оплаты.
func (c *Client) CreateCheckoutSession(ctx context.Context, reqParams CreateCheckoutSessionRequest) (*CheckoutSession, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/checkout/sessions", reqParams)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, errors.New("unexpected status: " + resp.Status)
	}

	var session CheckoutSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, err
	}
	if session.URL == "" {
		return nil, errors.New("gateway response has no checkout url")
	}
	return &session, nil
}
