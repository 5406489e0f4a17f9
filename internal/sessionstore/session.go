// Package sessionstore is the cookie-backed session abstraction: a
// pluggable server-side store (memory/SQL/Redis) behind a signed cookie.
package sessionstore

import "context"

// Session is the payload referenced by the signed cookie.
// authenticity_token and captcha_solution are single-use: the next
// successful read of either consumes it ("take" semantics).
type Session struct {
	AuthenticityToken *string `json:"authenticity_token,omitempty"`
	CaptchaSolution   *string `json:"captcha_solution,omitempty"`
	LoggedIn          bool    `json:"logged_in"`
}

// TakeAuthenticityToken returns the stored CSRF token and clears it. A
// second call for the same Session value returns nil, enforcing single use
// within one request; persisting the cleared Session back to the store
// enforces it across requests.
func (s *Session) TakeAuthenticityToken() *string {
	v := s.AuthenticityToken
	s.AuthenticityToken = nil
	return v
}

// TakeCaptchaSolution returns the stored CAPTCHA solution and clears it.
func (s *Session) TakeCaptchaSolution() *string {
	v := s.CaptchaSolution
	s.CaptchaSolution = nil
	return v
}

// Store is implemented by each backend (memory, SQL, Redis). Migrate is a
// no-op for backends with no schema of their own to manage (memory,
// Redis); Cleanup is a no-op for Redis, which expires keys itself.
type Store interface {
	// Load returns the session referenced by id. An empty id, or an id
	// unknown to the backend, yields a fresh zero-value Session -- never
	// an error; a missing session is a normal new-visitor case.
	Load(ctx context.Context, id string) (*Session, error)

	// Save persists sess under id. If id is empty, a new id is minted and
	// returned; otherwise the same id is returned.
	Save(ctx context.Context, id string, sess *Session) (string, error)

	// Regenerate saves sess under a freshly minted id and removes oldID
	// from the backend, defeating session fixation across login/logout.
	Regenerate(ctx context.Context, oldID string, sess *Session) (string, error)

	// Migrate creates the backing table on first use. No-op for memory
	// and Redis.
	Migrate(ctx context.Context) error

	// Cleanup deletes expired rows. No-op for Redis (keys expire via their
	// TTL) and for a memory store with no TTL configured.
	Cleanup(ctx context.Context) error
}
