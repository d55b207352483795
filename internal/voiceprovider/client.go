// Package voiceprovider реализует клиент внешнего API клонирования голоса
// и синтеза речи. Аудио для сервиса непрозрачно: байты образца уходят
// в API, обратно приходит идентификатор модели голоса; при синтезе —
// идентификатор и текст уходят, байты аудио возвращаются как есть.
package voiceprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

const versionHeader = "Cartesia-Version"

// Client клиент API клонирования голоса.
type Client struct {
	apiKey     string
	apiURL     string
	apiVersion string
	httpClient *http.Client
}

// NewClient создаёт новый клиент API голосов.
func NewClient(apiKey, apiURL, apiVersion string, timeout time.Duration) *Client {
	return &Client{
		apiKey:     apiKey,
		apiURL:     apiURL,
		apiVersion: apiVersion,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// CloneVoiceResponse ответ API на клонирование: непрозрачный идентификатор
// модели голоса и эхо переданных атрибутов.
type CloneVoiceResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Language string `json:"language"`
}

// CloneVoice отправляет образец аудио в API клонирования и возвращает
// идентификатор созданной модели голоса.
func (c *Client) CloneVoice(ctx context.Context, name, filename, mimeType string, clip []byte) (*CloneVoiceResponse, error) {
	const op = "voiceprovider.CloneVoice"

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="clip"; filename="%s"`, filename))
	header.Set("Content-Type", mimeType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if _, err = part.Write(clip); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	fields := map[string]string{
		"name":     name,
		"language": "en",
		"mode":     "stability",
		"enhance":  "true",
	}
	for k, v := range fields {
		if err = writer.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	if err = writer.Close(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/voices/clone", &body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set(versionHeader, c.apiVersion)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var result CloneVoiceResponse
	if err = json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("%s: voice api error (%d): %s", op, resp.StatusCode, truncate(raw, 100))
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("%s: unexpected status %s", op, resp.Status)
	}
	if result.ID == "" {
		return nil, fmt.Errorf("%s: no voice id in response", op)
	}
	return &result, nil
}

// speechRequest тело запроса синтеза речи.
type speechRequest struct {
	ModelID    string `json:"model_id"`
	Transcript string `json:"transcript"`
	Voice      struct {
		Mode string `json:"mode"`
		ID   string `json:"id"`
	} `json:"voice"`
	OutputFormat struct {
		Container  string `json:"container"`
		BitRate    int    `json:"bit_rate"`
		SampleRate int    `json:"sample_rate"`
	} `json:"output_format"`
	Language string `json:"language"`
}

// GenerateSpeech синтезирует речь заданным голосом и возвращает
// аудио как непрозрачные байты (mp3).
func (c *Client) GenerateSpeech(ctx context.Context, providerVoiceID, text string) ([]byte, error) {
	const op = "voiceprovider.GenerateSpeech"

	reqBody := speechRequest{
		ModelID:    "sonic-english",
		Transcript: text,
		Language:   "en",
	}
	reqBody.Voice.Mode = "id"
	reqBody.Voice.ID = providerVoiceID
	reqBody.OutputFormat.Container = "mp3"
	reqBody.OutputFormat.BitRate = 128000
	reqBody.OutputFormat.SampleRate = 44100

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(reqBody); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/tts/bytes", &buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set(versionHeader, c.apiVersion)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errText, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%s: tts failed (%d): %s", op, resp.StatusCode, truncate(errText, 100))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return audio, nil
}

func truncate(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
