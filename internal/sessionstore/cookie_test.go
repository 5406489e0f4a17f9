package sessionstore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func newTestContext(cookies ...*http.Cookie) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e := echo.New()
	return e.NewContext(req, rec), rec
}

func extractCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	resp := http.Response{Header: rec.Header()}
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestManager_Save_SetsSignedCookie(t *testing.T) {
	mgr := NewManager(NewMemoryStore(0), []byte("signing-key"), "", "", 0)
	ctx := context.Background()
	c, rec := newTestContext()

	sess := &Session{LoggedIn: true}
	if err := mgr.Save(ctx, c, "", sess); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	cookie := extractCookie(rec, DefaultCookieName)
	if cookie == nil {
		t.Fatal("expected a session cookie to be set")
	}
	if !cookie.Secure || !cookie.HttpOnly || cookie.SameSite != http.SameSiteStrictMode {
		t.Errorf("expected Secure/HttpOnly/SameSite=Strict, got %+v", cookie)
	}
}

func TestManager_Load_RoundTripsThroughCookie(t *testing.T) {
	mgr := NewManager(NewMemoryStore(0), []byte("signing-key"), "", "", 0)
	ctx := context.Background()

	c1, rec1 := newTestContext()
	if err := mgr.Save(ctx, c1, "", &Session{LoggedIn: true}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	cookie := extractCookie(rec1, DefaultCookieName)
	if cookie == nil {
		t.Fatal("expected a session cookie")
	}

	c2, _ := newTestContext(cookie)
	sess, id, err := mgr.Load(ctx, c2)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if id == "" {
		t.Error("expected a non-empty session id recovered from the cookie")
	}
	if !sess.LoggedIn {
		t.Error("expected the persisted session payload to round-trip")
	}
}

func TestManager_Load_TamperedCookieYieldsFreshSession(t *testing.T) {
	mgr := NewManager(NewMemoryStore(0), []byte("signing-key"), "", "", 0)
	ctx := context.Background()

	c1, rec1 := newTestContext()
	if err := mgr.Save(ctx, c1, "", &Session{LoggedIn: true}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	cookie := extractCookie(rec1, DefaultCookieName)
	if cookie == nil {
		t.Fatal("expected a session cookie")
	}

	tampered := *cookie
	tampered.Value = cookie.Value + "x"

	c2, _ := newTestContext(&tampered)
	sess, id, err := mgr.Load(ctx, c2)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if id != "" {
		t.Errorf("expected a tampered cookie to yield no recovered id, got %q", id)
	}
	if sess.LoggedIn {
		t.Error("expected a tampered cookie to yield a fresh, unauthenticated session")
	}
}

func TestManager_Load_WrongSigningKeyYieldsFreshSession(t *testing.T) {
	ctx := context.Background()

	writer := NewManager(NewMemoryStore(0), []byte("key-a"), "", "", 0)
	c1, rec1 := newTestContext()
	if err := writer.Save(ctx, c1, "", &Session{LoggedIn: true}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	cookie := extractCookie(rec1, DefaultCookieName)

	reader := NewManager(writer.Store, []byte("key-b"), "", "", 0)
	c2, _ := newTestContext(cookie)
	sess, id, err := reader.Load(ctx, c2)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if id != "" || sess.LoggedIn {
		t.Error("expected a cookie signed under a different key to be rejected")
	}
}

// TestManager_Regenerate_ChangesCookieValue checks that after a successful
// login the Set-Cookie header carries a different session id than the
// request's.
func TestManager_Regenerate_ChangesCookieValue(t *testing.T) {
	mgr := NewManager(NewMemoryStore(0), []byte("signing-key"), "", "", 0)
	ctx := context.Background()

	c1, rec1 := newTestContext()
	if err := mgr.Save(ctx, c1, "", &Session{}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	originalCookie := extractCookie(rec1, DefaultCookieName)

	c2, _ := newTestContext(originalCookie)
	sess, id, err := mgr.Load(ctx, c2)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	c3, rec3 := newTestContext(originalCookie)
	sess.LoggedIn = true
	if err := mgr.Regenerate(ctx, c3, id, sess); err != nil {
		t.Fatalf("Regenerate failed: %v", err)
	}
	regeneratedCookie := extractCookie(rec3, DefaultCookieName)
	if regeneratedCookie == nil {
		t.Fatal("expected a new cookie to be set after regeneration")
	}
	if regeneratedCookie.Value == originalCookie.Value {
		t.Error("expected the regenerated cookie to carry a different signed value")
	}
}
