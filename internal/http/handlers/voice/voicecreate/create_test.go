package voicecreate

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/retainvoice/voice-service/internal/http/middlewarectx"
	"github.com/retainvoice/voice-service/internal/models"
	"github.com/retainvoice/voice-service/internal/services/voice"
)

// MockService реализует интерфейс voicecreate.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Clone(ctx context.Context, userUID, name, filename, mimeType string, clip []byte) (*models.Voice, error) {
	args := m.Called(ctx, userUID, name, filename, mimeType, clip)
	if res := args.Get(0); res != nil {
		return res.(*models.Voice), args.Error(1)
	}
	return nil, args.Error(1)
}

func multipartBody(t *testing.T, name string, clip []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if name != "" {
		require.NoError(t, writer.WriteField("name", name))
	}
	if clip != nil {
		part, err := writer.CreateFormFile("clip", "clip.wav")
		require.NoError(t, err)
		_, err = part.Write(clip)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func TestVoiceCreateHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		formName       string
		clip           []byte
		userUID        string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:     "успешное клонирование",
			formName: "My Voice",
			clip:     []byte("audio-bytes"),
			userUID:  "user-1",
			setupMock: func(m *MockService) {
				m.On("Clone", mock.Anything, "user-1", "My Voice", "clip.wav",
					mock.Anything, []byte("audio-bytes")).
					Return(&models.Voice{
						ID:              "voice-1",
						UserUID:         "user-1",
						ProviderVoiceID: "prov-1",
						Name:            "My Voice",
					}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"name":"My Voice"`,
		},
		{
			name:           "отсутствует название",
			formName:       "",
			clip:           []byte("audio-bytes"),
			userUID:        "user-1",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"error":"name is required"`,
		},
		{
			name:           "отсутствует аудиофайл",
			formName:       "My Voice",
			clip:           nil,
			userUID:        "user-1",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"error":"clip file is required"`,
		},
		{
			name:     "лимит слотов исчерпан",
			formName: "Second Voice",
			clip:     []byte("audio-bytes"),
			userUID:  "user-1",
			setupMock: func(m *MockService) {
				m.On("Clone", mock.Anything, "user-1", "Second Voice", "clip.wav",
					mock.Anything, mock.Anything).
					Return(nil, voice.ErrVoiceLimitReached)
			},
			expectedStatus: http.StatusPaymentRequired,
			expectedBody:   `"error":"voice limit reached"`,
		},
		{
			name:     "ошибка внешнего API",
			formName: "My Voice",
			clip:     []byte("audio-bytes"),
			userUID:  "user-1",
			setupMock: func(m *MockService) {
				m.On("Clone", mock.Anything, mock.Anything, mock.Anything, mock.Anything,
					mock.Anything, mock.Anything).
					Return(nil, errors.New("provider unavailable"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"error":"could not clone voice"`,
		},
		{
			name:           "без аутентификации",
			formName:       "My Voice",
			clip:           []byte("audio-bytes"),
			userUID:        "",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `"error":"unauthorized"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			body, contentType := multipartBody(t, tt.formName, tt.clip)
			req := httptest.NewRequest(http.MethodPost, "/voices", body)
			req.Header.Set("Content-Type", contentType)
			if tt.userUID != "" {
				req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserUID, tt.userUID))
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
