package fallback

// asset.go renders the deterministic placeholder image used when visual
// generation is unavailable or exhausts its iterations. The placeholder is
// a flat brand-colored canvas with a contrasting center band, derived only
// from the business context — no network, no randomness.

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/rs/zerolog/log"

	"github.com/fpang/campaign-engine/internal/campaign"
)

// Placeholder dimensions match the common 1.91:1 social card.
const (
	placeholderWidth  = 1200
	placeholderHeight = 628
)

// Asset renders a placeholder image for a post of the given type. Video
// posts get the same rendered frame, served as a poster image. Returns the
// encoded bytes and content type.
func (e *Engine) Asset(bc campaign.BusinessContext, postType campaign.PostType) ([]byte, string, error) {
	base, accent := paletteColors(bc.ProductContext.ColorPalette)

	img := image.NewRGBA(image.Rect(0, 0, placeholderWidth, placeholderHeight))
	fillRect(img, 0, 0, placeholderWidth, placeholderHeight, base)

	// Contrasting center band where a caption overlay would sit.
	bandTop := placeholderHeight * 2 / 5
	bandBottom := placeholderHeight * 3 / 5
	fillRect(img, 0, bandTop, placeholderWidth, bandBottom, accent)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, "", fmt.Errorf("failed to encode placeholder image: %w", err)
	}

	log.Debug().
		Str("post_type", string(postType)).
		Int("bytes", buf.Len()).
		Msg("Rendered placeholder asset")

	return buf.Bytes(), "image/png", nil
}

// paletteColors picks the first two parsable palette entries, defaulting to
// the engine's own neutral pair.
func paletteColors(palette []string) (color.RGBA, color.RGBA) {
	base := color.RGBA{R: 0x2D, G: 0x6C, B: 0xDF, A: 0xFF}
	accent := color.RGBA{R: 0x1B, G: 0x2A, B: 0x4A, A: 0xFF}

	var parsed []color.RGBA
	for _, p := range palette {
		if c, ok := parseHexColor(p); ok {
			parsed = append(parsed, c)
		}
		if len(parsed) == 2 {
			break
		}
	}

	if len(parsed) > 0 {
		base = parsed[0]
	}
	if len(parsed) > 1 {
		accent = parsed[1]
	}
	return base, accent
}

// parseHexColor parses #RGB and #RRGGBB strings.
func parseHexColor(s string) (color.RGBA, bool) {
	if len(s) == 0 || s[0] != '#' {
		return color.RGBA{}, false
	}
	hex := s[1:]

	nibble := func(c byte) (uint8, bool) {
		switch {
		case c >= '0' && c <= '9':
			return c - '0', true
		case c >= 'a' && c <= 'f':
			return c - 'a' + 10, true
		case c >= 'A' && c <= 'F':
			return c - 'A' + 10, true
		}
		return 0, false
	}

	byteAt := func(i int) (uint8, bool) {
		hi, ok1 := nibble(hex[i])
		lo, ok2 := nibble(hex[i+1])
		if !ok1 || !ok2 {
			return 0, false
		}
		return hi<<4 | lo, true
	}

	switch len(hex) {
	case 3:
		r, ok1 := nibble(hex[0])
		g, ok2 := nibble(hex[1])
		b, ok3 := nibble(hex[2])
		if !ok1 || !ok2 || !ok3 {
			return color.RGBA{}, false
		}
		return color.RGBA{R: r * 17, G: g * 17, B: b * 17, A: 0xFF}, true
	case 6:
		r, ok1 := byteAt(0)
		g, ok2 := byteAt(2)
		b, ok3 := byteAt(4)
		if !ok1 || !ok2 || !ok3 {
			return color.RGBA{}, false
		}
		return color.RGBA{R: r, G: g, B: b, A: 0xFF}, true
	}
	return color.RGBA{}, false
}

// fillRect fills a rectangular area of the image with the given color.
func fillRect(img *image.RGBA, x1, y1, x2, y2 int, c color.RGBA) {
	for y := y1; y < y2; y++ {
		for x := x1; x < x2; x++ {
			img.Set(x, y, c)
		}
	}
}
