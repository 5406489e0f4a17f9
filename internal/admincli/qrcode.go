package admincli

import (
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"
)

// printQRCode renders content's QR code as block characters to stdout.
// go-qrcode only encodes to PNG/raw bitmap, not terminal art, so this
// walks the matrix two rows at a time using half-block characters -- the
// standard trick for printing a bitmap in a text terminal at roughly
// square aspect ratio.
func printQRCode(content string) error {
	qr, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return fmt.Errorf("encoding qr code: %w", err)
	}

	bitmap := qr.Bitmap()
	var b strings.Builder
	for y := 0; y < len(bitmap); y += 2 {
		for x := 0; x < len(bitmap[y]); x++ {
			top := bitmap[y][x]
			bottom := false
			if y+1 < len(bitmap) {
				bottom = bitmap[y+1][x]
			}
			b.WriteRune(halfBlock(top, bottom))
		}
		b.WriteByte('\n')
	}

	fmt.Print(b.String())
	return nil
}

// halfBlock picks the Unicode block character representing a 1x2 pixel
// pair: both dark, both light, or one of each.
func halfBlock(top, bottom bool) rune {
	switch {
	case top && bottom:
		return '█'
	case top && !bottom:
		return '▀'
	case !top && bottom:
		return '▄'
	default:
		return ' '
	}
}
