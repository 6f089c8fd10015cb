package identity

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/hrbotdev/hrbot/internal/crypto"
)

// AuthCookieName is the cookie carrying the encrypted auth payload.
const AuthCookieName = "auth_data"

// ErrNoCredentials is returned when a request carries neither the auth
// cookie nor a bearer header.
var ErrNoCredentials = errors.New("no credentials in request")

// cookiePayload is the JSON encrypted into the auth cookie.
type cookiePayload struct {
	AccessToken string `json:"access_token"`
	RememberMe  bool   `json:"remember_me"`
}

// CookieCodec writes and reads the Fernet-encrypted auth cookie.
type CookieCodec struct {
	cipher   *crypto.Cipher
	domain   string
	secure   bool
	sameSite http.SameSite
}

// NewCookieCodec creates a CookieCodec. sameSite is "lax", "strict", or
// "none"; SameSite=None without Secure is downgraded to Lax since browsers
// reject that combination.
func NewCookieCodec(cipher *crypto.Cipher, domain string, secure bool, sameSite string) *CookieCodec {
	mode := http.SameSiteLaxMode
	switch sameSite {
	case "strict":
		mode = http.SameSiteStrictMode
	case "none":
		if secure {
			mode = http.SameSiteNoneMode
		}
	}
	return &CookieCodec{
		cipher:   cipher,
		domain:   domain,
		secure:   secure,
		sameSite: mode,
	}
}

// Set encrypts the access token into the auth cookie on the response.
func (c *CookieCodec) Set(w http.ResponseWriter, accessToken string, rememberMe bool, maxAge time.Duration) error {
	payload, err := json.Marshal(cookiePayload{
		AccessToken: accessToken,
		RememberMe:  rememberMe,
	})
	if err != nil {
		return err
	}
	encrypted, err := c.cipher.Encrypt(payload)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    encrypted,
		Path:     "/",
		Domain:   c.domain,
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: c.sameSite,
	})
	return nil
}

// Clear expires the auth cookie.
func (c *CookieCodec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    "",
		Path:     "/",
		Domain:   c.domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: c.sameSite,
	})
}

// Token extracts the access token from the request: the encrypted cookie
// first, then an Authorization: Bearer fallback for non-browser clients.
func (c *CookieCodec) Token(r *http.Request) (string, error) {
	if cookie, err := r.Cookie(AuthCookieName); err == nil && cookie.Value != "" {
		plaintext, err := c.cipher.Decrypt(cookie.Value)
		if err != nil {
			return "", err
		}
		var payload cookiePayload
		if err := json.Unmarshal(plaintext, &payload); err != nil {
			return "", err
		}
		if payload.AccessToken == "" {
			return "", ErrNoCredentials
		}
		return payload.AccessToken, nil
	}

	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer "), nil
	}

	return "", ErrNoCredentials
}
