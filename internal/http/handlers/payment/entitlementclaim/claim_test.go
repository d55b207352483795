package entitlementclaim

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/retainvoice/voice-service/internal/models"
	"github.com/retainvoice/voice-service/internal/services/entitlement"
)

// MockService реализует интерфейс entitlementclaim.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Fulfill(ctx context.Context, p models.Purchase) (bool, error) {
	args := m.Called(ctx, p)
	return args.Bool(0), args.Error(1)
}

func (m *MockService) Get(ctx context.Context, userUID string) (*models.Entitlement, error) {
	args := m.Called(ctx, userUID)
	if res := args.Get(0); res != nil {
		return res.(*models.Entitlement), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestEntitlementClaimHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "компенсирующая запись применяется",
			body: `{"user_uid":"user-1","session_id":"cs_001","units_to_grant":4}`,
			setupMock: func(m *MockService) {
				m.On("Fulfill", mock.Anything, mock.MatchedBy(func(p models.Purchase) bool {
					return p.SessionID == "cs_001" &&
						p.UserUID == "user-1" &&
						p.UnitsGranted == 4 &&
						p.Source == models.PurchaseSourceClientFallback
				})).Return(true, nil)
				m.On("Get", mock.Anything, "user-1").Return(&models.Entitlement{
					UserUID:        "user-1",
					PurchasedUnits: 4,
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"applied":true`,
		},
		{
			name: "webhook уже зачислил эту сессию",
			body: `{"user_uid":"user-1","session_id":"cs_001","units_to_grant":4}`,
			setupMock: func(m *MockService) {
				m.On("Fulfill", mock.Anything, mock.Anything).Return(false, nil)
				m.On("Get", mock.Anything, "user-1").Return(&models.Entitlement{
					UserUID:        "user-1",
					PurchasedUnits: 4,
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"applied":false`,
		},
		{
			name:           "отсутствует session_id",
			body:           `{"user_uid":"user-1","units_to_grant":4}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field SessionID is a required field`,
		},
		{
			name: "сервис отклоняет некорректную заявку",
			body: `{"user_uid":"user-1","session_id":"cs_002","units_to_grant":4}`,
			setupMock: func(m *MockService) {
				m.On("Fulfill", mock.Anything, mock.Anything).
					Return(false, entitlement.ErrMalformedEvent)
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"error":"malformed claim"`,
		},
		{
			name: "ошибка хранилища",
			body: `{"user_uid":"user-1","session_id":"cs_003","units_to_grant":4}`,
			setupMock: func(m *MockService) {
				m.On("Fulfill", mock.Anything, mock.Anything).Return(false, errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"error":"could not apply claim"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/entitlements/claim", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.expectedBody),
				"response body should contain %s, got %s", tt.expectedBody, w.Body.String())

			mockService.AssertExpectations(t)
		})
	}
}
