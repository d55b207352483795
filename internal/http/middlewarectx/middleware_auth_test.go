package middlewarectx

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retainvoice/voice-service/internal/lib/jwt"
)

func TestJWTMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	maker := jwt.NewJWTMaker("test-secret", time.Hour)

	validToken, err := maker.GenerateToken("testuser", "user", "user-1")
	require.NoError(t, err)

	expiredMaker := jwt.NewJWTMaker("test-secret", -time.Hour)
	expiredToken, err := expiredMaker.GenerateToken("testuser", "user", "user-1")
	require.NoError(t, err)

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
		expectNext     bool
	}{
		{
			name:           "валидный токен пропускается",
			authHeader:     "Bearer " + validToken,
			expectedStatus: http.StatusOK,
			expectNext:     true,
		},
		{
			name:           "отсутствует заголовок",
			authHeader:     "",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "нет префикса Bearer",
			authHeader:     validToken,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "просроченный токен",
			authHeader:     "Bearer " + expiredToken,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "токен с другим секретом",
			authHeader:     "Bearer " + mustToken(t, "other-secret"),
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nextCalled := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
				assert.Equal(t, "testuser", r.Context().Value(User))
				assert.Equal(t, "user", r.Context().Value(Role))
				assert.Equal(t, "user-1", r.Context().Value(UserUID))
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/voices", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()

			JWTMiddleware(maker, logger)(next).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectNext, nextCalled)
		})
	}
}

func mustToken(t *testing.T, secret string) string {
	t.Helper()
	token, err := jwt.NewJWTMaker(secret, time.Hour).GenerateToken("testuser", "user", "user-1")
	require.NoError(t, err)
	return token
}
