package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/assistbridge/server/domain/entities"
	"github.com/satriahrh/assistbridge/server/internal/auth"
	"github.com/satriahrh/assistbridge/server/usecase"
)

type fakeHandler struct {
	requests []usecase.TurnRequest
	result   *usecase.TurnResult
	err      error
}

func (f *fakeHandler) Handle(ctx context.Context, req usecase.TurnRequest) (*usecase.TurnResult, error) {
	f.requests = append(f.requests, req)
	return f.result, f.err
}

func newTestServer(t *testing.T, handler QueryHandler) (*echo.Echo, *auth.Authenticator) {
	t.Helper()
	e := echo.New()
	authenticator := auth.NewAuthenticator("test-secret")
	metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("# metrics\n"))
	})
	InitRoutes(e, handler, authenticator, metricsHandler, zaptest.NewLogger(t))
	return e, authenticator
}

func doQuery(e *echo.Echo, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndMetrics(t *testing.T) {
	e, _ := newTestServer(t, &fakeHandler{})

	for _, path := range []string{"/health", "/metrics"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}

func TestQuerySuccess(t *testing.T) {
	handler := &fakeHandler{result: &usecase.TurnResult{
		AudioURL:        "https://bucket/u/1.mp3",
		DisplayText:     "It is noon.",
		CardTitle:       "What time is it?",
		KeepSessionOpen: true,
	}}
	e, a := newTestServer(t, handler)
	token, _ := a.GenerateUserToken("user-1", time.Hour)

	rec := doQuery(e, token, `{
		"text": "what time is it",
		"locale": "en-GB",
		"access_token": "google-token",
		"device": {"device_id": "dev", "api_endpoint": "https://api.example", "api_access_token": "api"}
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp QueryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if resp.AudioURL != "https://bucket/u/1.mp3" || !resp.KeepSessionOpen || resp.CardTitle != "What time is it?" {
		t.Errorf("response = %+v", resp)
	}
	if resp.RequestID == "" {
		t.Error("RequestID should be set")
	}

	got := handler.requests[0]
	if got.UserID != "user-1" || got.AccessToken != "google-token" || got.Locale != "en-GB" {
		t.Errorf("turn request = %+v", got)
	}
	if got.Device == nil || got.Device.DeviceID != "dev" || got.Device.APIEndpoint != "https://api.example" {
		t.Errorf("device = %+v", got.Device)
	}
}

func TestQueryAuth(t *testing.T) {
	e, _ := newTestServer(t, &fakeHandler{})
	foreign, _ := auth.NewAuthenticator("other").GenerateUserToken("user-1", time.Hour)

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"garbage", "abc", http.StatusUnauthorized},
		{"wrong secret", foreign, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doQuery(e, tt.token, `{"text":"hi"}`)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestQueryValidation(t *testing.T) {
	handler := &fakeHandler{}
	e, a := newTestServer(t, handler)
	token, _ := a.GenerateUserToken("user-1", time.Hour)

	for _, body := range []string{`{"text": "  "}`, `{"text": `} {
		rec := doQuery(e, token, body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
		}
	}
	if len(handler.requests) != 0 {
		t.Error("handler should not be called for invalid requests")
	}
}

func TestQueryErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
		kind   string
	}{
		{entities.ErrMissingAccessToken, http.StatusBadRequest, "error.access_token"},
		{fmt.Errorf("%w after 9s", entities.ErrTimeout), http.StatusGatewayTimeout, "error.assistant_timeout"},
		{fmt.Errorf("%w: unavailable", entities.ErrTransport), http.StatusBadGateway, "error.assistant"},
		{entities.ErrNoAudio, http.StatusBadGateway, "error.assistant_audio"},
		{entities.ErrDeviceAddress, http.StatusForbidden, "error.device_address"},
		{fmt.Errorf("%w: boom", entities.ErrEncodePipeline), http.StatusInternalServerError, "error.transcoder_encode"},
		{entities.ErrStorageSignedURL, http.StatusInternalServerError, "error.storage_signed_url"},
		{fmt.Errorf("unexpected"), http.StatusInternalServerError, "error.default"},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			e, a := newTestServer(t, &fakeHandler{err: tt.err})
			token, _ := a.GenerateUserToken("user-1", time.Hour)

			rec := doQuery(e, token, `{"text":"hi","access_token":"x"}`)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}

			var resp ErrorResponse
			json.Unmarshal(rec.Body.Bytes(), &resp)
			if resp.Error != tt.kind {
				t.Errorf("error = %s, want %s", resp.Error, tt.kind)
			}
			if resp.Message != Message(tt.kind) || resp.Message == "" {
				t.Errorf("message = %q", resp.Message)
			}
		})
	}
}
