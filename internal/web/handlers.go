package web

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/outurnate/ruuth/internal/apperror"
	"github.com/outurnate/ruuth/internal/sessionstore"
)

// loginForm is the POST /login body: authenticity token, credentials, and
// an optional captcha solution (only present when a CAPTCHA was issued).
type loginForm struct {
	AuthenticityToken string `form:"authenticity_token"`
	Username          string `form:"username"`
	Password          string `form:"password"`
	Passcode          string `form:"passcode"`
	Captcha           string `form:"captcha"`
	URL               string `form:"url"`
}

// captchaSolution returns nil when the form's captcha field is absent or
// empty, so challenge.Manager.Validate's take-and-compare gate treats both
// as "not submitted".
func (f loginForm) captchaSolution() *string {
	if f.Captcha == "" {
		return nil
	}
	return &f.Captcha
}

// originHost reads X-Forwarded-For as a single opaque string -- no
// comma-splitting, no CIDR-based trust decisions. A missing header yields
// the empty string, which the ban tracker treats as one shared (if
// poorly-distinguished) host, not the direct peer address -- there is no
// fallback to the direct peer address.
func originHost(c echo.Context) string {
	return c.Request().Header.Get("X-Forwarded-For")
}

// authHandler answers GET /. It always issues a fresh CSRF token,
// conditionally issues a CAPTCHA, and renders
// the login challenge page. Always 200: the browser always gets a page to
// act on, never an error status, even when the caller is already
// logged in (redirect-after-login belongs to the caller's auth_request
// proxy config, not this handler).
func (s *Server) authHandler(c echo.Context) error {
	ctx := c.Request().Context()

	sess, sessID, err := s.sessions.Load(ctx, c)
	if err != nil {
		return err
	}

	token, err := s.challengeManager.IssueChallenge(sess)
	if err != nil {
		return err
	}

	host := originHost(c)
	captcha, err := s.challengeManager.MaybeIssueCaptcha(ctx, sess, host)
	if err != nil {
		return err
	}

	if err := s.sessions.Save(ctx, c, sessID, sess); err != nil {
		return err
	}

	page := loginPage{
		AuthenticityToken: token,
		Captcha:           captcha,
		URL:               c.QueryParam("url"),
		Error:             c.QueryParam("error") == "true",
		Realm:             s.realm,
	}
	return renderLoginPage(c, http.StatusOK, page)
}

// loginHandler answers POST /login. A failed login surfaces from
// authenticate as the CredentialInvalid sentinel, which drives the
// /?error=true redirect; anything else is a genuine infrastructure
// failure and propagates to the error handler as a 500.
func (s *Server) loginHandler(c echo.Context) error {
	ctx := c.Request().Context()

	var form loginForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid login form")
	}

	sess, sessID, err := s.sessions.Load(ctx, c)
	if err != nil {
		return err
	}

	host := originHost(c)

	if err := s.authenticate(ctx, sess, form, host); err != nil {
		if apperror.IsCredentialInvalid(err) {
			return s.failLogin(ctx, c, sess, sessID, host)
		}
		return err
	}

	return s.completeLogin(ctx, c, sess, sessID, form.URL)
}

// authenticate runs the challenge and credential checks for a login
// attempt. Both are evaluated into local variables before the results are
// combined, rather than short-circuiting one call on the other's outcome:
// both carry side effects (the challenge check consumes the CSRF/CAPTCHA
// tokens, the user check pays its hashing/TOTP cost) that must happen
// regardless of which check would fail first, so neither call is ever
// skipped. Returns nil on success, the CredentialInvalid sentinel on a
// failed login, and any genuine infrastructure error unchanged.
func (s *Server) authenticate(ctx context.Context, sess *sessionstore.Session, form loginForm, host string) error {
	challengeValid, challengeErr := s.challengeManager.Validate(ctx, sess, form.AuthenticityToken, form.captchaSolution(), host)
	userValid, userErr := s.userManager.Validate(ctx, form.Username, form.Password, form.Passcode)

	if challengeErr != nil {
		return challengeErr
	}
	if userErr != nil {
		return userErr
	}

	if challengeValid && userValid {
		return nil
	}
	return apperror.NewCredentialInvalid()
}

func (s *Server) completeLogin(ctx context.Context, c echo.Context, sess *sessionstore.Session, sessID, redirectURL string) error {
	sess.LoggedIn = true
	if err := s.sessions.Regenerate(ctx, c, sessID, sess); err != nil {
		return err
	}
	if redirectURL == "" {
		redirectURL = "/"
	}
	return c.Redirect(http.StatusSeeOther, redirectURL)
}

func (s *Server) failLogin(ctx context.Context, c echo.Context, sess *sessionstore.Session, sessID, host string) error {
	if err := s.challengeManager.AddFailure(ctx, host); err != nil {
		return err
	}
	if err := s.sessions.Save(ctx, c, sessID, sess); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/?error=true")
}

// logoutHandler answers POST /logout. The session is regenerated (not
// merely cleared) so a captured cookie
// can't be replayed after logout.
func (s *Server) logoutHandler(c echo.Context) error {
	ctx := c.Request().Context()

	sess, sessID, err := s.sessions.Load(ctx, c)
	if err != nil {
		return err
	}

	sess.LoggedIn = false
	if err := s.sessions.Regenerate(ctx, c, sessID, sess); err != nil {
		return err
	}

	return c.NoContent(http.StatusOK)
}

// validateHandler answers GET /validate -- the auth_request endpoint a
// reverse proxy calls on every protected request. Refreshes the session
// TTL on every call (an active session should not expire out from under a
// user who keeps browsing), then returns 200 or 401 with nothing else: no
// body, no redirect -- the proxy owns what happens next.
func (s *Server) validateHandler(c echo.Context) error {
	ctx := c.Request().Context()

	sess, sessID, err := s.sessions.Load(ctx, c)
	if err != nil {
		return err
	}

	if err := s.sessions.Save(ctx, c, sessID, sess); err != nil {
		return err
	}

	if !sess.LoggedIn {
		return c.NoContent(http.StatusUnauthorized)
	}
	return c.NoContent(http.StatusOK)
}
