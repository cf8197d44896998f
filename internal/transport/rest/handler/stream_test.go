package handler

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"edubattle/internal/model"
	"edubattle/internal/service"
)

type fixedReader struct {
	battle *model.Battle
}

func (r *fixedReader) GetStatus(ctx context.Context, code string) (*model.Battle, error) {
	return r.battle, nil
}

func streamRouter(reader service.StateReader, budget time.Duration) *mux.Router {
	notifier := service.NewNotifier(reader, service.NotifierConfig{
		TickInterval:      5 * time.Millisecond,
		HeartbeatInterval: 20 * time.Millisecond,
		StreamBudget:      budget,
	}, zap.NewNop())
	h := NewStreamHandler(notifier)

	r := mux.NewRouter()
	r.HandleFunc("/v1/battles/{code}/stream", h.Stream).Methods("GET")
	return r
}

func TestStreamUnknownCodeEmitsErrorEvent(t *testing.T) {
	router := streamRouter(&fixedReader{}, time.Second)

	req := httptest.NewRequest("GET", "/v1/battles/GHOST1/stream", nil)
	rec := httptest.NewRecorder()

	start := time.Now()
	router.ServeHTTP(rec, req)

	assert.Less(t, time.Since(start), 500*time.Millisecond, "unknown code must close the stream, not run the budget out")
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "event: error")
	assert.Contains(t, body, "battle not found")
	assert.NotContains(t, body, "event: message")
}

func TestStreamPushesStateAndHeartbeats(t *testing.T) {
	battle := &model.Battle{
		Code:      "LIVE42",
		Status:    model.BattleInProgress,
		UpdatedAt: time.Now(),
	}
	router := streamRouter(&fixedReader{battle: battle}, 50*time.Millisecond)

	req := httptest.NewRequest("GET", "/v1/battles/LIVE42/stream", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	body := rec.Body.String()
	require.Contains(t, body, "event: message")
	assert.Contains(t, body, `"code":"LIVE42"`)
	assert.Contains(t, body, ": keep-alive")
	// Unchanged state is pushed once, not once per tick.
	assert.Equal(t, 1, strings.Count(body, "event: message"))
}

func TestStreamStopsOnClientDisconnect(t *testing.T) {
	battle := &model.Battle{Code: "LIVE42", UpdatedAt: time.Now()}
	router := streamRouter(&fixedReader{battle: battle}, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest("GET", "/v1/battles/LIVE42/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	router.ServeHTTP(rec, req)
	assert.Less(t, time.Since(start), time.Second, "disconnect must tear the stream down")
}
