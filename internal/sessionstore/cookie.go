package sessionstore

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// DefaultCookieName is the session cookie name used when no
// configuration overrides it.
const DefaultCookieName = "ruuth"

// idBytes is the number of random bytes in a freshly minted session id,
// before HMAC signing.
const idBytes = 32

// Manager glues a Store to the HTTP layer: reading/writing the signed
// session cookie with a fixed attribute set (SameSite=Strict; Secure;
// HttpOnly), and refreshing the cookie's TTL.
type Manager struct {
	Store      Store
	SigningKey []byte
	CookieName string
	Domain     string
	TTL        time.Duration // zero means no expiry is set on the cookie
}

// NewManager constructs a Manager. signingKey should come from
// DeriveSigningKey, a SHA-512 derivation of the configured cluster secret
// that is domain-separated from users.DerivePepper's pepper -- the same
// secret, two different derived uses, never persisted either way.
func NewManager(store Store, signingKey []byte, cookieName, domain string, ttl time.Duration) *Manager {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	return &Manager{Store: store, SigningKey: signingKey, CookieName: cookieName, Domain: domain, TTL: ttl}
}

// Load reads the session cookie from the request, verifies its signature,
// and loads the session from the store. A missing or invalid cookie yields
// a fresh empty session and an empty id -- fail closed, never panic on a
// tampered cookie.
func (m *Manager) Load(ctx context.Context, c echo.Context) (*Session, string, error) {
	cookie, err := c.Cookie(m.CookieName)
	if err != nil {
		sess, loadErr := m.Store.Load(ctx, "")
		return sess, "", loadErr
	}

	id, ok := m.verify(cookie.Value)
	if !ok {
		sess, loadErr := m.Store.Load(ctx, "")
		return sess, "", loadErr
	}

	sess, err := m.Store.Load(ctx, id)
	if err != nil {
		return nil, "", err
	}
	return sess, id, nil
}

// Save persists sess under id (minting one if id is empty) and writes the
// signed cookie onto the response.
func (m *Manager) Save(ctx context.Context, c echo.Context, id string, sess *Session) error {
	newID, err := m.Store.Save(ctx, id, sess)
	if err != nil {
		return err
	}
	m.writeCookie(c, newID)
	return nil
}

// Regenerate mints a new session id for sess, discards oldID, and writes
// the new signed cookie. Used on login and logout.
func (m *Manager) Regenerate(ctx context.Context, c echo.Context, oldID string, sess *Session) error {
	newID, err := m.Store.Regenerate(ctx, oldID, sess)
	if err != nil {
		return err
	}
	m.writeCookie(c, newID)
	return nil
}

// writeCookie sets the session cookie with a fixed attribute set:
// SameSite=Strict, Secure, HttpOnly, the configured name and domain, and
// the configured TTL if any.
func (m *Manager) writeCookie(c echo.Context, id string) {
	cookie := &http.Cookie{
		Name:     m.CookieName,
		Value:    m.sign(id),
		Path:     "/",
		Domain:   m.Domain,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
	if m.TTL > 0 {
		cookie.MaxAge = int(m.TTL.Seconds())
	}
	c.SetCookie(cookie)
}

// sign produces "<id>.<hmac>" so a tampered id is rejected on the next read.
func (m *Manager) sign(id string) string {
	mac := hmac.New(sha256.New, m.SigningKey)
	mac.Write([]byte(id))
	return fmt.Sprintf("%s.%s", id, hex.EncodeToString(mac.Sum(nil)))
}

// verify checks the "<id>.<hmac>" cookie value against the signing key and
// returns the embedded id on success.
func (m *Manager) verify(value string) (string, bool) {
	for i := len(value) - 1; i >= 0; i-- {
		if value[i] != '.' {
			continue
		}
		id, sig := value[:i], value[i+1:]
		expectedSig, err := hex.DecodeString(sig)
		if err != nil {
			return "", false
		}
		mac := hmac.New(sha256.New, m.SigningKey)
		mac.Write([]byte(id))
		expected := mac.Sum(nil)
		if subtle.ConstantTimeCompare(expected, expectedSig) == 1 {
			return id, true
		}
		return "", false
	}
	return "", false
}

// newSessionID mints idBytes of cryptographic randomness, hex-encoded.
func newSessionID() (string, error) {
	b := make([]byte, idBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
