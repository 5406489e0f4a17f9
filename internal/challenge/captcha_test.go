package challenge

import (
	"bytes"
	"image/png"
	"strings"
	"testing"
)

func TestRandomCaptchaText_LengthAndAlphabet(t *testing.T) {
	for i := 0; i < 50; i++ {
		text, err := randomCaptchaText()
		if err != nil {
			t.Fatalf("randomCaptchaText failed: %v", err)
		}
		if len(text) < captchaMinLen || len(text) > captchaMaxLen {
			t.Fatalf("expected length in [%d, %d], got %d (%q)", captchaMinLen, captchaMaxLen, len(text), text)
		}
		for _, ch := range text {
			if !strings.ContainsRune(captchaAlphabet, ch) {
				t.Fatalf("character %q not in captcha alphabet", ch)
			}
		}
	}
}

func TestRenderCaptcha_ProducesValidPNGMatchingSolutionLength(t *testing.T) {
	solution, data, err := renderCaptcha()
	if err != nil {
		t.Fatalf("renderCaptcha failed: %v", err)
	}
	if len(solution) < captchaMinLen || len(solution) > captchaMaxLen {
		t.Errorf("unexpected solution length %d", len(solution))
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decoding rendered captcha as png: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != captchaWidth || bounds.Dy() != captchaHeight {
		t.Errorf("expected a %dx%d image, got %dx%d", captchaWidth, captchaHeight, bounds.Dx(), bounds.Dy())
	}
}

func TestRandomInt_StaysInBounds(t *testing.T) {
	for i := 0; i < 100; i++ {
		n, err := randomInt(5, 9)
		if err != nil {
			t.Fatalf("randomInt failed: %v", err)
		}
		if n < 5 || n > 9 {
			t.Fatalf("expected n in [5, 9], got %d", n)
		}
	}
}
