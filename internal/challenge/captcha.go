package challenge

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"math/big"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// CAPTCHA image geometry and the character alphabet: a 220x120 canvas,
// 4-6 characters drawn then distorted.
const (
	captchaWidth  = 220
	captchaHeight = 120
	captchaMinLen = 4
	captchaMaxLen = 6
)

const captchaAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// renderCaptcha draws a random solution string onto a canvas and applies
// distortion filters in a fixed order: Noise(0.3), Grid(6, 6),
// Wave(2.0, 10.0), Dots(15, max_radius=7, min_radius=4). Returns the
// solution text and the encoded PNG bytes.
func renderCaptcha() (string, []byte, error) {
	solution, err := randomCaptchaText()
	if err != nil {
		return "", nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, captchaWidth, captchaHeight))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	if err := drawCaptchaText(img, solution); err != nil {
		return "", nil, err
	}

	if err := applyNoise(img, 0.3); err != nil {
		return "", nil, err
	}
	applyGrid(img, 6, 6)
	applyWave(img, 2.0, 10.0)
	if err := applyDots(img, 15, 7, 4); err != nil {
		return "", nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", nil, fmt.Errorf("encoding captcha png: %w", err)
	}

	return solution, buf.Bytes(), nil
}

// randomCaptchaText picks a cryptographically random length in
// [captchaMinLen, captchaMaxLen] and that many characters from
// captchaAlphabet.
func randomCaptchaText() (string, error) {
	span := big.NewInt(int64(captchaMaxLen - captchaMinLen + 1))
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", fmt.Errorf("choosing captcha length: %w", err)
	}
	length := captchaMinLen + int(n.Int64())

	out := make([]byte, length)
	for i := range out {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(captchaAlphabet))))
		if err != nil {
			return "", fmt.Errorf("choosing captcha character: %w", err)
		}
		out[i] = captchaAlphabet[idx.Int64()]
	}
	return string(out), nil
}

// drawCaptchaText renders text centered vertically, spaced evenly across
// the canvas width with a small per-character vertical jitter.
func drawCaptchaText(img *image.RGBA, text string) error {
	face := basicfont.Face7x13
	spacing := captchaWidth / (len(text) + 1)

	for i, ch := range text {
		jitter, err := randomInt(-10, 10)
		if err != nil {
			return err
		}
		x := spacing*(i+1) - 4
		y := captchaHeight/2 + 5 + jitter

		d := &font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(color.RGBA{R: 20, G: 20, B: 20, A: 255}),
			Face: face,
			Dot:  fixed.P(x, y),
		}
		d.DrawString(string(ch))
	}
	return nil
}

// randomInt returns a uniform random int in [min, max].
func randomInt(min, max int) (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max-min+1)))
	if err != nil {
		return 0, fmt.Errorf("generating random int: %w", err)
	}
	return min + int(n.Int64()), nil
}

// applyNoise randomly recolors a fraction of pixels to simulate sensor
// noise. amount is the fraction of pixels affected, in [0, 1].
func applyNoise(img *image.RGBA, amount float64) error {
	bounds := img.Bounds()
	total := bounds.Dx() * bounds.Dy()
	affected := int(float64(total) * amount)

	for i := 0; i < affected; i++ {
		x, err := randomInt(bounds.Min.X, bounds.Max.X-1)
		if err != nil {
			return err
		}
		y, err := randomInt(bounds.Min.Y, bounds.Max.Y-1)
		if err != nil {
			return err
		}
		gray, err := randomInt(0, 255)
		if err != nil {
			return err
		}
		img.Set(x, y, color.RGBA{R: uint8(gray), G: uint8(gray), B: uint8(gray), A: 255})
	}
	return nil
}

// applyGrid overlays rows x cols evenly spaced light gray lines.
func applyGrid(img *image.RGBA, rows, cols int) {
	bounds := img.Bounds()
	gridColor := color.RGBA{R: 180, G: 180, B: 180, A: 255}

	for c := 1; c < cols; c++ {
		x := bounds.Min.X + c*bounds.Dx()/cols
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			img.Set(x, y, gridColor)
		}
	}
	for r := 1; r < rows; r++ {
		y := bounds.Min.Y + r*bounds.Dy()/rows
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			img.Set(x, y, gridColor)
		}
	}
}

// applyWave horizontally shifts each row by amplitude*sin(y/period),
// wrapping shifted-out pixels around rather than leaving a blank edge.
func applyWave(img *image.RGBA, amplitude, period float64) {
	bounds := img.Bounds()
	src := image.NewRGBA(bounds)
	draw.Draw(src, bounds, img, bounds.Min, draw.Src)

	width := bounds.Dx()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		shift := int(amplitude * math.Sin(float64(y)/period))
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			srcX := ((x-bounds.Min.X+shift)%width + width) % width
			img.Set(x, y, src.At(bounds.Min.X+srcX, y))
		}
	}
}

// applyDots stamps count filled circles of random radius in
// [minRadius, maxRadius] at random positions, a final layer of visual
// noise on top of the wave distortion.
func applyDots(img *image.RGBA, count, maxRadius, minRadius int) error {
	bounds := img.Bounds()
	dotColor := color.RGBA{R: 100, G: 100, B: 100, A: 200}

	for i := 0; i < count; i++ {
		radius, err := randomInt(minRadius, maxRadius)
		if err != nil {
			return err
		}
		cx, err := randomInt(bounds.Min.X+radius, bounds.Max.X-1-radius)
		if err != nil {
			return err
		}
		cy, err := randomInt(bounds.Min.Y+radius, bounds.Max.Y-1-radius)
		if err != nil {
			return err
		}

		for dy := -radius; dy <= radius; dy++ {
			for dx := -radius; dx <= radius; dx++ {
				if dx*dx+dy*dy <= radius*radius {
					img.Set(cx+dx, cy+dy, dotColor)
				}
			}
		}
	}
	return nil
}
