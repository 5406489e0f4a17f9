package users

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/outurnate/ruuth/internal/apperror"
	"github.com/outurnate/ruuth/internal/ruuthdb"
)

// fakeUsername, fakePassword, and the all-zero fake TOTP secret are the
// fixed decorrelated-work fallback: a constant username/password pair and
// a 128-zero-byte secret so the fake path costs the same CPU time as a
// real lookup.
const (
	fakeUsername = "kevin"
	fakePassword = "hunter2"
)

// Manager is the user manager: CRUD plus the credential-validation hot
// path. Immutable after construction -- db, issuer, and pepper never
// change after NewManager returns.
type Manager struct {
	db     *ruuthdb.DB
	issuer string
	pepper []byte
}

// NewManager constructs a Manager. pepper should come from DerivePepper.
func NewManager(db *ruuthdb.DB, issuer string, pepper []byte) *Manager {
	return &Manager{db: db, issuer: issuer, pepper: pepper}
}

// Register creates a new user: a fresh TOTP secret, an Argon2id hash of
// password, and the row insert. Fails with apperror.NewConflict if the
// username already exists.
func (m *Manager) Register(ctx context.Context, username, password string) (SetupCode, error) {
	secret, err := NewTOTPSecret()
	if err != nil {
		return "", apperror.NewCrypto(err)
	}

	hash, err := HashPassword(password, m.pepper)
	if err != nil {
		return "", apperror.NewCrypto(fmt.Errorf("hashing password: %w", err))
	}

	if err := m.db.InsertUser(ctx, &ruuthdb.User{
		Username:     username,
		PasswordHash: hash,
		TOTPSecret:   secret,
	}); err != nil {
		return "", err
	}

	slog.Info("user registered", slog.String("username", username))
	return NewSetupCode(secret, username, m.issuer), nil
}

// Delete removes a user. Fails with apperror.NewNotFound if absent.
func (m *Manager) Delete(ctx context.Context, username string) error {
	if err := m.db.DeleteUser(ctx, username); err != nil {
		return err
	}
	slog.Info("user deleted", slog.String("username", username))
	return nil
}

// ResetPassword replaces a user's password hash. Fails with
// apperror.NewNotFound if absent.
func (m *Manager) ResetPassword(ctx context.Context, username, password string) error {
	user, err := m.db.FindUser(ctx, username)
	if err != nil {
		return err
	}

	hash, err := HashPassword(password, m.pepper)
	if err != nil {
		return apperror.NewCrypto(fmt.Errorf("hashing password: %w", err))
	}
	user.PasswordHash = hash

	if err := m.db.UpdateUser(ctx, user); err != nil {
		return err
	}
	slog.Info("password reset", slog.String("username", username))
	return nil
}

// ResetMFA generates and stores a new TOTP secret for a user. Fails with
// apperror.NewNotFound if absent.
func (m *Manager) ResetMFA(ctx context.Context, username string) (SetupCode, error) {
	user, err := m.db.FindUser(ctx, username)
	if err != nil {
		return "", err
	}

	secret, err := NewTOTPSecret()
	if err != nil {
		return "", apperror.NewCrypto(err)
	}
	user.TOTPSecret = secret

	if err := m.db.UpdateUser(ctx, user); err != nil {
		return "", err
	}

	slog.Info("mfa secret reset", slog.String("username", username))
	return NewSetupCode(secret, username, m.issuer), nil
}

// fakeUser builds the decorrelated-work fallback: a real Argon2id hash of
// a fixed dummy password and an all-zero TOTP secret. Built fresh on every
// Validate call regardless of whether the lookup found a real user --
// never cached, never skipped -- so its cost is paid unconditionally,
// equalizing CPU time between a present and an absent username.
func (m *Manager) fakeUser() (*ruuthdb.User, error) {
	hash, err := HashPassword(fakePassword, m.pepper)
	if err != nil {
		return nil, apperror.NewCrypto(fmt.Errorf("hashing fake password: %w", err))
	}
	return &ruuthdb.User{
		Username:     fakeUsername,
		PasswordHash: hash,
		TOTPSecret:   make([]byte, totpSecretBytes),
	}, nil
}

// Validate is the critical credential-verification path. The fake user is
// constructed on every call -- its hashing cost is paid whether or not the
// lookup found a real user -- and its hash is only substituted in when the
// username is genuinely absent, so the present and absent paths both
// perform one password hash plus one verification and take
// indistinguishable time. A genuine infrastructure failure from the
// lookup (as opposed to "no such user") is not a credential outcome at
// all; it propagates immediately as an error.
func (m *Manager) Validate(ctx context.Context, username, password, passcode string) (bool, error) {
	found, lookupErr := m.db.FindUser(ctx, username)
	faked := false
	if lookupErr != nil {
		if !apperror.IsNotFound(lookupErr) {
			return false, lookupErr
		}
		faked = true
	}

	fake, err := m.fakeUser()
	if err != nil {
		slog.Error("failed to construct fake user for decorrelated validation", slog.Any("error", err))
		return false, err
	}

	user := found
	if faked {
		user = fake
	}

	passcodeValid := validateTOTP(user.TOTPSecret, passcode)
	passwordValid := VerifyPassword(password, user.PasswordHash, m.pepper)

	slog.Info("credential validation",
		slog.Bool("username_found", !faked),
		slog.Bool("passcode_valid", passcodeValid),
		slog.Bool("password_valid", passwordValid),
	)

	return !faked && passcodeValid && passwordValid, nil
}
