package reconcile

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retainvoice/voice-service/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// apiStub эмулирует HTTP API сервиса: счётчик прав и приём компенсирующих
// записей. units хранится атомарно, тест может менять его между опросами.
type apiStub struct {
	units       atomic.Int64
	claimCalled atomic.Int64
	server      *httptest.Server
}

func newAPIStub(t *testing.T) *apiStub {
	t.Helper()
	stub := &apiStub{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /entitlements/", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(models.Entitlement{
			UserUID:        "user-1",
			PurchasedUnits: int(stub.units.Load()),
		})
	})
	mux.HandleFunc("POST /entitlements/claim", func(w http.ResponseWriter, r *http.Request) {
		stub.claimCalled.Add(1)
		var req struct {
			UnitsToGrant int `json:"units_to_grant"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		stub.units.Add(int64(req.UnitsToGrant))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "OK",
			"data": map[string]any{
				"applied":         true,
				"purchased_units": int(stub.units.Load()),
			},
		})
	})
	stub.server = httptest.NewServer(mux)
	t.Cleanup(stub.server.Close)
	return stub
}

func TestReconcile_FulfilledBeforeFirstRead(t *testing.T) {
	stub := newAPIStub(t)
	stub.units.Store(4)

	client := NewClient(stub.server.URL, []time.Duration{time.Second}, testLogger())

	result, err := client.Reconcile(context.Background(), "user-1", "cs_001", 0, 4)
	require.NoError(t, err)
	assert.True(t, result.Fulfilled)
	assert.False(t, result.ViaFallback)
	assert.Equal(t, 4, result.PurchasedUnits)
	assert.Zero(t, stub.claimCalled.Load(), "claim must not be submitted")
}

func TestReconcile_WebhookArrivesDuringPolling(t *testing.T) {
	stub := newAPIStub(t)

	// Webhook "приходит" после первой паузы расписания.
	go func() {
		time.Sleep(30 * time.Millisecond)
		stub.units.Store(4)
	}()

	schedule := []time.Duration{
		20 * time.Millisecond,
		50 * time.Millisecond,
		50 * time.Millisecond,
	}
	client := NewClient(stub.server.URL, schedule, testLogger())

	result, err := client.Reconcile(context.Background(), "user-1", "cs_001", 0, 4)
	require.NoError(t, err)
	assert.True(t, result.Fulfilled)
	assert.False(t, result.ViaFallback)
	assert.Zero(t, stub.claimCalled.Load(), "claim must not be submitted")
}

func TestReconcile_ClaimAfterScheduleExhausted(t *testing.T) {
	stub := newAPIStub(t)

	schedule := []time.Duration{5 * time.Millisecond, 5 * time.Millisecond}
	client := NewClient(stub.server.URL, schedule, testLogger())

	result, err := client.Reconcile(context.Background(), "user-1", "cs_001", 0, 4)
	require.NoError(t, err)
	assert.True(t, result.Fulfilled)
	assert.True(t, result.ViaFallback)
	assert.Equal(t, 4, result.PurchasedUnits)
	assert.Equal(t, int64(1), stub.claimCalled.Load())
}

func TestReconcile_BaselineAboveZero(t *testing.T) {
	// Пользователь уже имел 4 слота до этой покупки: сверка должна ждать
	// превышения baseline, а не просто ненулевого счётчика.
	stub := newAPIStub(t)
	stub.units.Store(4)

	schedule := []time.Duration{5 * time.Millisecond}
	client := NewClient(stub.server.URL, schedule, testLogger())

	result, err := client.Reconcile(context.Background(), "user-1", "cs_002", 4, 4)
	require.NoError(t, err)
	assert.True(t, result.ViaFallback)
	assert.Equal(t, 8, result.PurchasedUnits)
}

func TestReconcile_ContextCancellation(t *testing.T) {
	stub := newAPIStub(t)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	client := NewClient(stub.server.URL, []time.Duration{time.Minute}, testLogger())

	_, err := client.Reconcile(ctx, "user-1", "cs_001", 0, 4)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, stub.claimCalled.Load())
}

func TestReconcile_ReadErrorsAreTolerated(t *testing.T) {
	var reads atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("GET /entitlements/", func(w http.ResponseWriter, r *http.Request) {
		// Первые чтения падают, последнее отвечает зачисленной покупкой.
		if reads.Add(1) < 3 {
			http.Error(w, "temporarily unavailable", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(models.Entitlement{UserUID: "user-1", PurchasedUnits: 4})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	schedule := []time.Duration{5 * time.Millisecond, 5 * time.Millisecond}
	client := NewClient(server.URL, schedule, testLogger())

	result, err := client.Reconcile(context.Background(), "user-1", "cs_001", 0, 4)
	require.NoError(t, err)
	assert.True(t, result.Fulfilled)
	assert.False(t, result.ViaFallback)
}
