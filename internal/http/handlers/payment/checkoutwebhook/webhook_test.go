package checkoutwebhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/retainvoice/voice-service/internal/models"
	"github.com/retainvoice/voice-service/internal/paymentgateway"
	"github.com/retainvoice/voice-service/internal/services/entitlement"
)

// MockService реализует интерфейс checkoutwebhook.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Fulfill(ctx context.Context, p models.Purchase) (bool, error) {
	args := m.Called(ctx, p)
	return args.Bool(0), args.Error(1)
}

const testSecret = "test_webhook_secret"

func completedEvent(sessionID, userUID, units string) []byte {
	payload := map[string]any{
		"type": paymentgateway.EventCheckoutCompleted,
		"data": map[string]any{
			"object": map[string]any{
				"id":           sessionID,
				"amount_total": 499,
				"metadata": map[string]string{
					"user_uid":       userUID,
					"units_to_grant": units,
				},
			},
		},
	}
	body, _ := json.Marshal(payload)
	return body
}

func TestWebhookHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		body           []byte
		sign           bool
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "успешное зачисление покупки",
			body: completedEvent("cs_001", "user-1", "4"),
			sign: true,
			setupMock: func(m *MockService) {
				m.On("Fulfill", mock.Anything, mock.MatchedBy(func(p models.Purchase) bool {
					return p.SessionID == "cs_001" &&
						p.UserUID == "user-1" &&
						p.UnitsGranted == 4 &&
						p.Source == models.PurchaseSourceWebhook
				})).Return(true, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"duplicate":false`,
		},
		{
			name: "повторная доставка того же события",
			body: completedEvent("cs_001", "user-1", "4"),
			sign: true,
			setupMock: func(m *MockService) {
				m.On("Fulfill", mock.Anything, mock.Anything).Return(false, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"duplicate":true`,
		},
		{
			name:           "отсутствует подпись",
			body:           completedEvent("cs_002", "user-1", "4"),
			sign:           false,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"error":"invalid signature"`,
		},
		{
			name:           "подписанный, но некорректный JSON",
			body:           []byte(`{"type":`),
			sign:           true,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"error":"invalid payload"`,
		},
		{
			name: "другой тип события подтверждается без зачисления",
			body: func() []byte {
				b, _ := json.Marshal(map[string]any{"type": "charge.refunded"})
				return b
			}(),
			sign:           true,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusOK,
			expectedBody:   `"received":true`,
		},
		{
			name: "некорректные метаданные",
			body: completedEvent("cs_003", "", "not-a-number"),
			sign: true,
			setupMock: func(m *MockService) {
				m.On("Fulfill", mock.Anything, mock.Anything).
					Return(false, fmt.Errorf("event cs_003: %w", entitlement.ErrMalformedEvent))
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"error":"malformed event metadata"`,
		},
		{
			name: "временная ошибка хранилища",
			body: completedEvent("cs_004", "user-1", "4"),
			sign: true,
			setupMock: func(m *MockService) {
				m.On("Fulfill", mock.Anything, mock.Anything).Return(false, errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"error":"fulfillment failed"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService, testSecret)

			req := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewReader(tt.body))
			if tt.sign {
				req.Header.Set(paymentgateway.SignatureHeader,
					paymentgateway.ComputeSignature(testSecret, tt.body))
			}

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.expectedBody),
				"response body should contain %s, got %s", tt.expectedBody, w.Body.String())

			mockService.AssertExpectations(t)
		})
	}
}

// Подпись считается от сырых байтов тела: то же событие, сериализованное
// заново с другим порядком полей, должно быть отвергнуто.
func TestWebhookHandler_SignatureOverRawBody(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	mockService := new(MockService)
	handler := New(logger, mockService, testSecret)

	original := completedEvent("cs_010", "user-1", "4")
	reserialized := []byte(`{` + strings.TrimPrefix(string(original), `{"type":"checkout.session.completed",`))

	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewReader(reserialized))
	req.Header.Set(paymentgateway.SignatureHeader,
		paymentgateway.ComputeSignature(testSecret, original))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertExpectations(t)
}
