// Package challenge is the challenge manager: CSRF token issuance,
// adaptive CAPTCHA, the per-origin-host failure counter feeding both the
// CAPTCHA and "fake login" gates, and the periodic GC task.
package challenge

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/outurnate/ruuth/internal/ruuthdb"
	"github.com/outurnate/ruuth/internal/sessionstore"
)

// tokenBytes is the CSRF/CAPTCHA-bearing token length: 128 bytes, a
// startup constant rather than hard-coded at each call site.
const tokenBytes = 128

// Manager is the challenge manager. Immutable after construction -- its
// clones (callers holding a *Manager) share the database handle; there is
// no package-level singleton state.
type Manager struct {
	db                 *ruuthdb.DB
	captchaThreshold   *int
	fakeLoginThreshold *int
	expirationMinutes  int64
}

// NewManager constructs a Manager. captchaThreshold and fakeLoginThreshold
// are nil when the corresponding gate is disabled.
func NewManager(db *ruuthdb.DB, captchaThreshold, fakeLoginThreshold *int, expirationMinutes int64) *Manager {
	return &Manager{
		db:                 db,
		captchaThreshold:   captchaThreshold,
		fakeLoginThreshold: fakeLoginThreshold,
		expirationMinutes:  expirationMinutes,
	}
}

// nowMinutes returns minutes since the Unix epoch. If the system clock is
// somehow before the epoch, it returns 0 rather than a negative number --
// a degraded mode (the failure count will read 0, bypassing gating) is
// acceptable; panicking or erroring over a clock anomaly is not.
func nowMinutes() int64 {
	seconds := time.Now().Unix()
	if seconds < 0 {
		return 0
	}
	return seconds / 60
}

// randomToken returns base64 of tokenBytes bytes of cryptographic
// randomness.
func randomToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating random token: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// IssueChallenge writes a fresh CSRF token into sess and returns it for
// embedding in the login form.
func (m *Manager) IssueChallenge(sess *sessionstore.Session) (string, error) {
	token, err := randomToken()
	if err != nil {
		return "", err
	}
	sess.AuthenticityToken = &token
	return token, nil
}

// failureCount returns the number of failures recorded for host within the
// current sliding window: every failure stamped at or after
// now - expirationMinutes, i.e. the current minute and the
// expirationMinutes minutes before it.
func (m *Manager) failureCount(ctx context.Context, host string) (uint64, error) {
	since := nowMinutes() - m.expirationMinutes
	return m.db.CountFailures(ctx, host, since)
}

// MaybeIssueCaptcha checks host's current failure count against
// captchaThreshold; if it strictly exceeds the threshold, a CAPTCHA image
// is rendered, its solution stored in sess, and the base64-encoded PNG is
// returned. Returns nil, nil when no CAPTCHA is required -- clearing any
// solution a previous issuance left behind, so a stored solution exists
// exactly when the page just served carries a CAPTCHA.
func (m *Manager) MaybeIssueCaptcha(ctx context.Context, sess *sessionstore.Session, host string) (*string, error) {
	sess.CaptchaSolution = nil

	if m.captchaThreshold == nil {
		return nil, nil
	}

	count, err := m.failureCount(ctx, host)
	if err != nil {
		return nil, err
	}
	if count <= uint64(*m.captchaThreshold) {
		return nil, nil
	}

	solution, png, err := renderCaptcha()
	if err != nil {
		return nil, err
	}

	sess.CaptchaSolution = &solution
	encoded := base64.StdEncoding.EncodeToString(png)
	return &encoded, nil
}

// Validate applies the three gates in order and returns their conjunction:
// CSRF take-and-compare, CAPTCHA take-and-compare (absent stored solution
// passes), and the ban threshold. All three gates run before the result is
// combined; the corresponding both-sides-always-run rule between this
// function's result and the credential check lives one layer up, in the
// web dispatcher's login handler.
func (m *Manager) Validate(ctx context.Context, sess *sessionstore.Session, submittedToken string, submittedCaptcha *string, host string) (bool, error) {
	csrfValid := m.validateCSRF(sess, submittedToken)
	captchaValid := m.validateCaptcha(sess, submittedCaptcha)
	banned, err := m.isBanned(ctx, host)
	if err != nil {
		return false, err
	}

	return csrfValid && captchaValid && !banned, nil
}

// validateCSRF takes the stored authenticity token and compares it against
// submitted. Missing or mismatched -> false. Single use: the stored value
// is cleared regardless of outcome.
func (m *Manager) validateCSRF(sess *sessionstore.Session, submitted string) bool {
	stored := sess.TakeAuthenticityToken()
	return stored != nil && *stored == submitted
}

// validateCaptcha takes the stored CAPTCHA solution and compares it
// against submitted. No stored solution means no CAPTCHA was required, so
// the gate passes; a stored solution with no submission fails.
func (m *Manager) validateCaptcha(sess *sessionstore.Session, submitted *string) bool {
	stored := sess.TakeCaptchaSolution()
	if stored == nil {
		return true
	}
	return submitted != nil && *stored == *submitted
}

// isBanned reports whether host's current failure count exceeds
// fakeLoginThreshold. Always false when the threshold is unset.
func (m *Manager) isBanned(ctx context.Context, host string) (bool, error) {
	if m.fakeLoginThreshold == nil {
		return false, nil
	}
	count, err := m.failureCount(ctx, host)
	if err != nil {
		return false, err
	}
	return count > uint64(*m.fakeLoginThreshold), nil
}

// AddFailure records a failed login attempt for host at the current
// minute.
func (m *Manager) AddFailure(ctx context.Context, host string) error {
	return m.db.InsertFailure(ctx, host, nowMinutes())
}

// Cleanup deletes ban_tracker rows strictly older than the current
// expiration window. Errors are logged by the caller (the scheduled job),
// never propagated as a process-terminating failure.
func (m *Manager) Cleanup(ctx context.Context) error {
	cutoff := nowMinutes() - m.expirationMinutes
	if err := m.db.DeleteFailuresOlderThan(ctx, cutoff); err != nil {
		slog.Error("ban tracker cleanup failed", slog.Any("error", err))
		return err
	}
	return nil
}
