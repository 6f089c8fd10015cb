package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/slack-go/slack"

	"github.com/hrbotdev/hrbot/internal/api"
	"github.com/hrbotdev/hrbot/internal/assistant"
	"github.com/hrbotdev/hrbot/internal/cache/memory"
	"github.com/hrbotdev/hrbot/internal/config"
	"github.com/hrbotdev/hrbot/internal/crypto"
	"github.com/hrbotdev/hrbot/internal/greythr"
	"github.com/hrbotdev/hrbot/internal/httpclient"
	"github.com/hrbotdev/hrbot/internal/identity"
	"github.com/hrbotdev/hrbot/internal/server"
	"github.com/hrbotdev/hrbot/internal/slackbot"
	"github.com/hrbotdev/hrbot/internal/store"
	_ "github.com/hrbotdev/hrbot/internal/store/sqlite"
)

type fakeSlackAPI struct{}

func (fakeSlackAPI) GetUserInfoContext(ctx context.Context, user string) (*slack.User, error) {
	return &slack.User{Name: user}, nil
}

func (fakeSlackAPI) GetConversationHistoryContext(ctx context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error) {
	return &slack.GetConversationHistoryResponse{}, nil
}

func (fakeSlackAPI) GetUsersInConversationContext(ctx context.Context, params *slack.GetUsersInConversationParameters) ([]string, string, error) {
	return nil, "", nil
}

func (fakeSlackAPI) AuthTestContext(ctx context.Context) (*slack.AuthTestResponse, error) {
	return &slack.AuthTestResponse{UserID: "UBOT1"}, nil
}

func (fakeSlackAPI) PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error) {
	return channelID, "ts", nil
}

type stubAnswerer struct{}

func (stubAnswerer) Answer(ctx context.Context, q assistant.Question) (string, error) {
	return "stub answer", nil
}

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)

	driver, err := store.New(&store.DriverConfig{Driver: "sqlite", DataDir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	db := driver.(store.Backend)
	if err := db.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	cipher, err := crypto.NewCipher([]string{key})
	if err != nil {
		t.Fatal(err)
	}

	issuer := identity.NewTokenIssuer("test-secret", 30*time.Minute)
	cookies := identity.NewCookieCodec(cipher, "", false, "lax")

	hc := httpclient.New(nil)
	tokens := greythr.NewTokenSource(hc, cipher, "http://127.0.0.1:0/tenants/%s/token", logger)
	syncer := greythr.NewSyncer(greythr.NewClient(hc, "http://127.0.0.1:0"), tokens, 25, logger)

	events := memory.New(time.Minute, 0)
	t.Cleanup(func() { events.Close() })

	workspace := slackbot.NewWorkspace(fakeSlackAPI{}, logger)
	relay := slackbot.NewRelay(workspace, slackbot.NewDedupStore(events, time.Minute, logger), stubAnswerer{}, logger)

	cfg := config.DefaultConfig()
	cfg.AllowedOrigins = []string{"http://app.example.com"}

	srv := server.New(cfg, server.Handlers{
		Auth:      api.NewAuthHandler(db, issuer, cookies, 30*time.Minute, logger),
		Companies: api.NewCompanyHandler(db, cipher, syncer, logger),
		Slack:     api.NewSlackHandler(relay, logger),
		MCP:       api.NewMCPHandler(workspace, stubAnswerer{}, logger),
	}, server.AuthDeps{
		Users:   db,
		Cookies: cookies,
		Issuer:  issuer,
	}, logger)

	return srv.Handler()
}

func postJSON(t *testing.T, handler http.Handler, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestServer_OpenEndpoints(t *testing.T) {
	handler := newTestServer(t)

	for _, target := range []string{"/", "/health", "/api/v1/mcp/health"} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s: expected 200 without auth, got %d", target, rec.Code)
		}
	}

	rec := postJSON(t, handler, "/api/v1/slack/events", map[string]any{
		"type":      "url_verification",
		"challenge": "abc",
	})
	if rec.Code != http.StatusOK {
		t.Errorf("slack events: expected 200 without auth, got %d", rec.Code)
	}
}

func TestServer_ProtectedEndpointsRequireAuth(t *testing.T) {
	handler := newTestServer(t)

	targets := []struct{ method, path string }{
		{http.MethodGet, "/api/v1/auth/me"},
		{http.MethodPost, "/api/v1/auth/logout"},
		{http.MethodGet, "/api/v1/companies"},
		{http.MethodPost, "/api/v1/companies"},
	}
	for _, target := range targets {
		req := httptest.NewRequest(target.method, target.path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401, got %d", target.method, target.path, rec.Code)
		}
	}
}

func TestServer_CookieAndBearerAuth(t *testing.T) {
	handler := newTestServer(t)

	rec := postJSON(t, handler, "/api/v1/auth/register", map[string]any{
		"email":    "admin@example.com",
		"name":     "Admin",
		"password": "opensesame123",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}

	rec = postJSON(t, handler, "/api/v1/auth/login", map[string]any{
		"email":    "admin@example.com",
		"password": "opensesame123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected auth cookie, got %v", cookies)
	}
	var login struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &login); err != nil {
		t.Fatal(err)
	}

	// Cookie session.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.AddCookie(cookies[0])
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusOK {
		t.Errorf("me with cookie: expected 200, got %d", rec2.Code)
	}

	// Bearer session for non-browser clients.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+login.AccessToken)
	rec2 = httptest.NewRecorder()
	handler.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusOK {
		t.Errorf("me with bearer: expected 200, got %d", rec2.Code)
	}

	// Garbage bearer is rejected.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec2 = httptest.NewRecorder()
	handler.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusUnauthorized {
		t.Errorf("me with bad bearer: expected 401, got %d", rec2.Code)
	}
}

func TestServer_CORS(t *testing.T) {
	handler := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/auth/login", nil)
	req.Header.Set("Origin", "http://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight: expected 204, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://app.example.com" {
		t.Errorf("unexpected allow-origin: %q", got)
	}
	if rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Error("credentials not allowed for configured origin")
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("disallowed origin granted CORS access")
	}
}
