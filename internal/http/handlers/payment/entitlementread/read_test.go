package entitlementread

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/retainvoice/voice-service/internal/models"
)

// MockService реализует интерфейс entitlementread.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Get(ctx context.Context, userUID string) (*models.Entitlement, error) {
	args := m.Called(ctx, userUID)
	if res := args.Get(0); res != nil {
		return res.(*models.Entitlement), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestEntitlementReadHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		userUID        string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:    "пользователь с покупками",
			userUID: "user-1",
			setupMock: func(m *MockService) {
				m.On("Get", mock.Anything, "user-1").Return(&models.Entitlement{
					UserUID:        "user-1",
					PurchasedUnits: 8,
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"purchased_units":8`,
		},
		{
			name:    "пользователь без покупок получает нулевой счётчик",
			userUID: "user-2",
			setupMock: func(m *MockService) {
				m.On("Get", mock.Anything, "user-2").Return(&models.Entitlement{
					UserUID:        "user-2",
					PurchasedUnits: 0,
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"purchased_units":0`,
		},
		{
			name:    "ошибка хранилища",
			userUID: "user-3",
			setupMock: func(m *MockService) {
				m.On("Get", mock.Anything, "user-3").Return(nil, errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"error":"could not read entitlement"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodGet, "/entitlements/"+tt.userUID, nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("user_uid", tt.userUID)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.expectedBody),
				"response body should contain %s, got %s", tt.expectedBody, w.Body.String())

			mockService.AssertExpectations(t)
		})
	}
}
