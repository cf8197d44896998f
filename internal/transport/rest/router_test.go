package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"edubattle/internal/model"
	"edubattle/internal/service"
)

type stubReader struct{}

func (stubReader) GetStatus(ctx context.Context, code string) (*model.Battle, error) {
	return nil, nil
}

func testRouter() http.Handler {
	authSvc := service.NewAuthService()
	notifier := service.NewNotifier(stubReader{}, service.NotifierConfig{
		TickInterval: 5 * time.Millisecond,
		StreamBudget: 50 * time.Millisecond,
	}, zap.NewNop())

	return NewRouter(&Container{
		AuthService: authSvc,
		Notifier:    notifier,
		WSHandler:   nil, // websocket route is not exercised here
	})
}

func TestMutatingEndpointsRequireIdentity(t *testing.T) {
	router := testRouter()

	requests := []struct {
		method, path string
	}{
		{"POST", "/v1/battles"},
		{"POST", "/v1/battles/join"},
		{"GET", "/v1/battles/ABC123"},
		{"PATCH", "/v1/battles/ABC123"},
		{"POST", "/v1/battles/ABC123/submit"},
		{"GET", "/v1/battles/ABC123/results"},
	}

	for _, tc := range requests {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader("{}"))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestBadTokenRejected(t *testing.T) {
	router := testRouter()

	req := httptest.NewRequest("GET", "/v1/battles/ABC123", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStreamIsPublic(t *testing.T) {
	router := testRouter()

	// No Authorization header: the stream still proceeds (and closes with an
	// error event because the code is unknown).
	req := httptest.NewRequest("GET", "/v1/battles/ABC123/stream", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "event: error")
}

func TestLoginIssuesToken(t *testing.T) {
	router := testRouter()

	req := httptest.NewRequest("POST", "/v1/auth/login",
		strings.NewReader(`{"email":"Student@School.EDU","name":"Student"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp model.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "student@school.edu", resp.Email)
}

func TestHealthCheck(t *testing.T) {
	router := testRouter()

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
