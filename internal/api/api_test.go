package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hrbotdev/hrbot/internal/api"
	"github.com/hrbotdev/hrbot/internal/crypto"
	"github.com/hrbotdev/hrbot/internal/greythr"
	"github.com/hrbotdev/hrbot/internal/httpclient"
	"github.com/hrbotdev/hrbot/internal/identity"
	"github.com/hrbotdev/hrbot/internal/store"
	_ "github.com/hrbotdev/hrbot/internal/store/sqlite"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestBackend(t *testing.T) store.Backend {
	t.Helper()
	driver, err := store.New(&store.DriverConfig{Driver: "sqlite", DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("create driver: %v", err)
	}
	db, ok := driver.(store.Backend)
	if !ok {
		t.Fatal("sqlite driver does not implement Backend")
	}
	if err := db.Init(context.Background()); err != nil {
		t.Fatalf("init driver: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestCipher(t *testing.T) *crypto.Cipher {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	cipher, err := crypto.NewCipher([]string{key})
	if err != nil {
		t.Fatal(err)
	}
	return cipher
}

func seedUser(t *testing.T, db store.Backend, email string) *store.User {
	t.Helper()
	hash, err := identity.HashPassword("opensesame123")
	if err != nil {
		t.Fatal(err)
	}
	user := &store.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         "Admin",
		PasswordHash: hash,
	}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

// asUser injects an authenticated user the way the auth middleware does.
func asUser(user *store.User) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(api.WithUser(r.Context(), user)))
		})
	}
}

// companyRouter mounts the company routes the way the server does,
// authenticated as user.
func companyRouter(user *store.User, h *api.CompanyHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(asUser(user))
	r.Route("/companies", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Route("/{name}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Put("/", h.Update)
			r.Delete("/", h.Delete)
			r.Post("/import-employees", h.ImportEmployees)
			r.Get("/employees", h.Employees)
		})
	})
	return r
}

func doJSON(t *testing.T, handler http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func reasonCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope api.ErrorEnvelope
	decodeBody(t, rec, &envelope)
	return envelope.Error.ReasonCode
}

// newGreytHRStack wires a token source and syncer against srvURL.
func newGreytHRStack(srvURL string, cipher *crypto.Cipher, pageSize int) (*greythr.TokenSource, *greythr.Syncer) {
	hc := httpclient.New(nil)
	tokens := greythr.NewTokenSource(hc, cipher, srvURL+"/tenants/%s/token", testLogger())
	syncer := greythr.NewSyncer(greythr.NewClient(hc, srvURL), tokens, pageSize, testLogger())
	return tokens, syncer
}
