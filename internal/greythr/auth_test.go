package greythr

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hrbotdev/hrbot/internal/crypto"
	"github.com/hrbotdev/hrbot/internal/httpclient"
	"github.com/hrbotdev/hrbot/internal/store"
)

// fakeStore implements SyncStores in memory for token and sync tests.
type fakeStore struct {
	company      *store.Company
	tokenUpdates int
	employees    map[string]*store.Employee
	batches      [][]*store.Employee
	createErr    error
}

func newFakeStore(company *store.Company) *fakeStore {
	return &fakeStore{
		company:   company,
		employees: make(map[string]*store.Employee),
	}
}

func (f *fakeStore) CreateCompany(ctx context.Context, company *store.Company) error {
	return errors.New("not implemented")
}

func (f *fakeStore) GetCompany(ctx context.Context, id string) (*store.Company, error) {
	if f.company != nil && f.company.ID == id {
		return f.company, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) GetCompanyByName(ctx context.Context, userID, name string) (*store.Company, error) {
	return nil, store.ErrNotFound
}

func (f *fakeStore) ListCompanies(ctx context.Context, userID string, offset, limit int) ([]*store.Company, error) {
	return nil, nil
}

func (f *fakeStore) UpdateCompany(ctx context.Context, company *store.Company) error {
	return errors.New("not implemented")
}

func (f *fakeStore) UpdateCompanyToken(ctx context.Context, companyID, token string, expiry time.Time) error {
	if f.company == nil || f.company.ID != companyID {
		return store.ErrNotFound
	}
	f.tokenUpdates++
	f.company.AccessToken = token
	f.company.TokenExpiry = &expiry
	return nil
}

func (f *fakeStore) DeleteCompany(ctx context.Context, id string) error {
	return errors.New("not implemented")
}

func (f *fakeStore) CreateEmployees(ctx context.Context, employees []*store.Employee) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.batches = append(f.batches, employees)
	for _, e := range employees {
		f.employees[e.EmployeeID] = e
	}
	return nil
}

func (f *fakeStore) GetEmployeeByExternalID(ctx context.Context, companyID, employeeID string) (*store.Employee, error) {
	if e, ok := f.employees[employeeID]; ok && e.CompanyID == companyID {
		return e, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) GetEmployeeByEmail(ctx context.Context, email string) (*store.Employee, error) {
	for _, e := range f.employees {
		if e.Email == email {
			return e, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) ListEmployees(ctx context.Context, companyID string) ([]*store.Employee, error) {
	var out []*store.Employee
	for _, e := range f.employees {
		if e.CompanyID == companyID {
			out = append(out, e)
		}
	}
	return out, nil
}

var _ SyncStores = (*fakeStore)(nil)

func testCipher(t *testing.T) *crypto.Cipher {
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

func testCompany(t *testing.T, cipher *crypto.Cipher) *store.Company {
	t.Helper()
	encrypted, err := cipher.Encrypt([]byte("api-password"))
	if err != nil {
		t.Fatal(err)
	}
	return &store.Company{
		ID:              "company-1",
		Name:            "Acme Corp",
		GreytHRUsername: "api-user",
		GreytHRPassword: encrypted,
		UserID:          "user-1",
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestTokenSource(srvURL string, cipher *crypto.Cipher) *TokenSource {
	client := httpclient.New(nil)
	return NewTokenSource(client, cipher, srvURL+"/tenants/%s/token", testLogger())
}

func TestDomain(t *testing.T) {
	cases := map[string]string{
		"Acme Corp":     "acmecorp.greythr.com",
		"north-wind":    "northwind.greythr.com",
		"Plain":         "plain.greythr.com",
		"Mixed-Case Co": "mixedcaseco.greythr.com",
	}
	for name, want := range cases {
		if got := Domain(name); got != want {
			t.Errorf("Domain(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestTokenSource_ValidTokenSkipsRefresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("token endpoint called despite valid stored token")
	}))
	defer srv.Close()

	cipher := testCipher(t)
	company := testCompany(t, cipher)
	expiry := time.Now().Add(time.Hour)
	company.AccessToken = "stored-token"
	company.TokenExpiry = &expiry

	db := newFakeStore(company)
	source := newTestTokenSource(srv.URL, cipher)

	token, err := source.Token(context.Background(), db, company)
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if token != "stored-token" {
		t.Errorf("expected stored-token, got %q", token)
	}
	if db.tokenUpdates != 0 {
		t.Errorf("expected no persistence, got %d updates", db.tokenUpdates)
	}
}

func TestTokenSource_RefreshesMissingToken(t *testing.T) {
	var gotUser, gotPass, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, _ = r.BasicAuth()
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"fresh-token","expires_in":3600}`))
	}))
	defer srv.Close()

	cipher := testCipher(t)
	company := testCompany(t, cipher)
	db := newFakeStore(company)
	source := newTestTokenSource(srv.URL, cipher)

	token, err := source.Token(context.Background(), db, company)
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if token != "fresh-token" {
		t.Errorf("expected fresh-token, got %q", token)
	}
	if gotUser != "api-user" || gotPass != "api-password" {
		t.Errorf("wrong basic auth: %q / %q", gotUser, gotPass)
	}
	if gotPath != "/tenants/acmecorp.greythr.com/token" {
		t.Errorf("wrong token path: %q", gotPath)
	}
	if db.tokenUpdates != 1 {
		t.Errorf("expected 1 persisted update, got %d", db.tokenUpdates)
	}
	if company.AccessToken != "fresh-token" || company.TokenExpiry == nil {
		t.Error("company not updated in memory")
	}
	if remaining := time.Until(*company.TokenExpiry); remaining < 59*time.Minute || remaining > 61*time.Minute {
		t.Errorf("expiry not ~1h out: %v", remaining)
	}
}

func TestTokenSource_RefreshesExpiredToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"fresh-token","expires_in":3600}`))
	}))
	defer srv.Close()

	cipher := testCipher(t)
	company := testCompany(t, cipher)
	expired := time.Now().Add(-time.Minute)
	company.AccessToken = "stale-token"
	company.TokenExpiry = &expired

	db := newFakeStore(company)
	source := newTestTokenSource(srv.URL, cipher)

	token, err := source.Token(context.Background(), db, company)
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if token != "fresh-token" {
		t.Errorf("expected fresh-token, got %q", token)
	}
	if db.tokenUpdates != 1 {
		t.Errorf("expected 1 persisted update, got %d", db.tokenUpdates)
	}
}

func TestTokenSource_RefreshFailures(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "redirect to login",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Location", "/uas/portal/auth")
				w.WriteHeader(http.StatusFound)
			},
		},
		{
			name: "invalid credentials",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
		},
		{
			name: "access denied",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
			},
		},
		{
			name: "unknown domain",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
		},
		{
			name: "non-json success body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("<html>login</html>"))
			},
		},
		{
			name: "empty access token",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"access_token":"","expires_in":3600}`))
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			cipher := testCipher(t)
			company := testCompany(t, cipher)
			db := newFakeStore(company)
			source := newTestTokenSource(srv.URL, cipher)

			_, err := source.Token(context.Background(), db, company)
			var authErr *AuthError
			if !errors.As(err, &authErr) {
				t.Fatalf("expected AuthError, got %v", err)
			}
			if db.tokenUpdates != 0 {
				t.Errorf("failed refresh must not persist, got %d updates", db.tokenUpdates)
			}
		})
	}
}

func TestTokenSource_IncompleteCredentials(t *testing.T) {
	cipher := testCipher(t)
	company := testCompany(t, cipher)
	company.GreytHRUsername = ""

	db := newFakeStore(company)
	source := newTestTokenSource("http://127.0.0.1:0", cipher)

	_, err := source.Token(context.Background(), db, company)
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError for missing credentials, got %v", err)
	}
}
