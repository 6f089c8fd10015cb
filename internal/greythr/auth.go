package greythr

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hrbotdev/hrbot/internal/crypto"
	"github.com/hrbotdev/hrbot/internal/httpclient"
	"github.com/hrbotdev/hrbot/internal/store"
)

// TokenSource provides usable GreytHR access tokens for a tenant,
// refreshing and persisting them when the stored token is absent or
// expired. Concurrent refreshes for the same tenant are harmless: both
// obtain a valid token and the last write wins.
type TokenSource struct {
	http            *httpclient.Client
	cipher          *crypto.Cipher
	authURLTemplate string
	logger          *slog.Logger
	now             func() time.Time
}

// NewTokenSource creates a TokenSource. authURLTemplate receives the
// tenant domain, e.g. "https://%s/uas/v1/oauth2/client-token".
func NewTokenSource(client *httpclient.Client, cipher *crypto.Cipher, authURLTemplate string, logger *slog.Logger) *TokenSource {
	return &TokenSource{
		http:            client,
		cipher:          cipher,
		authURLTemplate: authURLTemplate,
		logger:          logger,
		now:             time.Now,
	}
}

// Token returns a usable access token for the company, refreshing it
// first when the stored one is missing or expired. A refreshed token is
// persisted through companies and mirrored onto the passed company.
func (s *TokenSource) Token(ctx context.Context, companies store.CompanyStore, company *store.Company) (string, error) {
	if company.TokenValid(s.now()) {
		return company.AccessToken, nil
	}

	token, expiresIn, err := s.refresh(ctx, company)
	if err != nil {
		return "", err
	}

	expiry := s.now().Add(time.Duration(expiresIn) * time.Second)
	if err := companies.UpdateCompanyToken(ctx, company.ID, token, expiry); err != nil {
		return "", fmt.Errorf("persist refreshed token: %w", err)
	}
	company.AccessToken = token
	company.TokenExpiry = &expiry

	s.logger.Info("refreshed greythr token",
		"company_id", company.ID,
		"expires_in", expiresIn)
	return token, nil
}

// tokenResponse is the GreytHR client-token response body.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (s *TokenSource) refresh(ctx context.Context, company *store.Company) (string, int64, error) {
	if company.GreytHRUsername == "" || company.GreytHRPassword == "" {
		return "", 0, &AuthError{Reason: "incomplete GreytHR credentials"}
	}

	password, err := s.cipher.Decrypt(company.GreytHRPassword)
	if err != nil {
		return "", 0, &AuthError{Reason: "stored GreytHR password cannot be decrypted", Err: err}
	}

	url := fmt.Sprintf(s.authURLTemplate, Domain(company.Name))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return "", 0, fmt.Errorf("build token request: %w", err)
	}
	req.SetBasicAuth(company.GreytHRUsername, string(password))

	resp, err := s.http.Do(req)
	if err != nil {
		return "", 0, &AuthError{Reason: "token endpoint unreachable", Err: err}
	}
	body, err := s.http.ReadBody(resp)
	if err != nil {
		return "", 0, &AuthError{Reason: "reading token response", Err: err}
	}

	// GreytHR redirects to its login page instead of returning 401 when
	// the tenant domain resolves but the credentials are rejected.
	switch {
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		return "", 0, &AuthError{Reason: "redirected to login page, credentials rejected"}
	case resp.StatusCode == http.StatusUnauthorized:
		return "", 0, &AuthError{Reason: "invalid credentials"}
	case resp.StatusCode == http.StatusForbidden:
		return "", 0, &AuthError{Reason: "API access denied for this tenant"}
	case resp.StatusCode == http.StatusNotFound:
		return "", 0, &AuthError{Reason: fmt.Sprintf("unknown tenant domain %q", Domain(company.Name))}
	case resp.StatusCode != http.StatusOK:
		return "", 0, &AuthError{Reason: fmt.Sprintf("unexpected status %d from token endpoint", resp.StatusCode)}
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", 0, &AuthError{Reason: "token endpoint returned non-JSON response", Err: err}
	}
	if tok.AccessToken == "" {
		return "", 0, &AuthError{Reason: "token endpoint returned no access token"}
	}
	return tok.AccessToken, tok.ExpiresIn, nil
}
