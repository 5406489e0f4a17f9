package users

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"net/url"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// totpSecretBytes is the raw TOTP secret size: 128 random bytes,
// deliberately larger than the conventional 20-byte secret.
const totpSecretBytes = 128

// totpValidateOpts fixes the RFC 6238 parameters this deployment mandates:
// HMAC-SHA1, 30-second step, 6 digits.
var totpValidateOpts = totp.ValidateOpts{
	Period:    30,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// NewTOTPSecret generates 128 bytes of cryptographic randomness for a new
// user's TOTP secret.
func NewTOTPSecret() ([]byte, error) {
	secret := make([]byte, totpSecretBytes)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generating totp secret: %w", err)
	}
	return secret, nil
}

// SetupCode is the otpauth:// URL an admin shows (as text or a QR code) so
// a user can enroll their secret in an authenticator app.
type SetupCode string

// NewSetupCode builds the otpauth:// URL for secret:
// otpauth://totp/{issuer}:{username}?secret=...&issuer=...&algorithm=SHA1&digits=6&period=30
func NewSetupCode(secret []byte, username, issuer string) SetupCode {
	encodedSecret := base32.StdEncoding.WithPadding(base32.StdPadding).EncodeToString(secret)
	return SetupCode(fmt.Sprintf(
		"otpauth://totp/%s:%s?secret=%s&issuer=%s&algorithm=SHA1&digits=6&period=30",
		url.QueryEscape(issuer), url.QueryEscape(username), encodedSecret, url.QueryEscape(issuer),
	))
}

// String returns the raw otpauth:// URL text.
func (c SetupCode) String() string { return string(c) }

// validateTOTP checks passcode against secret for the current time step.
func validateTOTP(secret []byte, passcode string) bool {
	encodedSecret := base32.StdEncoding.WithPadding(base32.StdPadding).EncodeToString(secret)
	valid, err := totp.ValidateCustom(passcode, encodedSecret, time.Now().UTC(), totpValidateOpts)
	return err == nil && valid
}
