package palette

import (
	"fmt"
	"strings"

	"github.com/n0remac/ascii-chat-server/internal/wire"
)

// Image is a source image in pixel space, RGB-interleaved (spec 4.E/4.F).
type Image struct {
	Width, Height int
	Pix           []byte // len == Width*Height*3
}

// At returns the RGB triple at (x, y).
func (im *Image) At(x, y int) (r, g, b uint8) {
	off := (y*im.Width + x) * 3
	return im.Pix[off], im.Pix[off+1], im.Pix[off+2]
}

// Capabilities is the subset of a client's negotiated terminal
// capabilities the renderer needs (spec §3/4.E).
type Capabilities struct {
	ColorTier  wire.ColorTier
	RenderMode wire.RenderMode
}

// ErrNotNegotiated is returned when rendering is attempted before the
// palette LUT or capabilities are ready (spec 4.E: "rendering fails...
// if palette_initialized == false or capabilities have not been
// negotiated; the caller skips that output pass").
var ErrNotNegotiated = fmt.Errorf("palette: capabilities or palette not negotiated")

// resetSeq is appended at flush (spec 4.E).
const resetSeq = "\x1b[0m"

// Render converts a source image into an ANSI-decorated ASCII string
// for the given receiver capabilities and palette (spec 4.E).
func Render(img *Image, caps Capabilities, pal *Palette) (string, error) {
	if pal == nil || !pal.Ready() {
		return "", ErrNotNegotiated
	}

	var out strings.Builder
	rle := newRLEEmitter(&out, caps.ColorTier)

	// Color16 alone benefits from error-diffusion dithering: 256-color and
	// truecolor tiers already render each pixel's nearest color directly,
	// but 16-color's much coarser palette otherwise bands visibly (spec
	// 4.E, "16-color mode only").
	var eb *ErrorBuffer
	if caps.ColorTier == wire.Color16 {
		eb = NewErrorBuffer(img.Width, img.Height)
	}

	switch caps.RenderMode {
	case wire.RenderHalfBlock:
		renderHalfBlock(img, pal, rle, eb)
	case wire.RenderBackground:
		renderFlat(img, pal, rle, true, eb)
	default: // RenderForeground
		renderFlat(img, pal, rle, false, eb)
	}

	rle.flush()
	return out.String(), nil
}

// ditherPixel applies and distributes Floyd-Steinberg error at (x, y)
// when eb is non-nil, returning the color to actually render; with eb
// nil (every tier but Color16) it's a no-op passthrough of the source
// pixel.
func ditherPixel(eb *ErrorBuffer, x, y int, r, g, b uint8) (uint8, uint8, uint8) {
	if eb == nil {
		return r, g, b
	}
	q, _ := DitherQuantize16(eb, x, y, r, g, b)
	return q.R, q.G, q.B
}

func renderFlat(img *Image, pal *Palette, rle *rleEmitter, background bool, eb *ErrorBuffer) {
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			r, g, b := img.At(x, y)
			lum := Luminance(r, g, b)
			glyph := pal.GlyphForLuminance(lum)
			cr, cg, cb := ditherPixel(eb, x, y, r, g, b)
			if background {
				rle.writeBG(cr, cg, cb, glyph)
			} else {
				rle.writeFG(cr, cg, cb, glyph)
			}
		}
		rle.newline()
	}
}

// renderHalfBlock uses the unicode U+2580 glyph so each terminal cell
// carries two vertically stacked source pixels: foreground = top pixel,
// background = bottom pixel (spec 4.E). The source's vertical dimension
// is consumed two rows at a time.
const halfBlockGlyph = "▀"

func renderHalfBlock(img *Image, pal *Palette, rle *rleEmitter, eb *ErrorBuffer) {
	_ = pal // glyph is fixed for half-block; palette/LUT only gates readiness
	for y := 0; y+1 < img.Height; y += 2 {
		for x := 0; x < img.Width; x++ {
			tr, tg, tb := img.At(x, y)
			br, bg, bb := img.At(x, y+1)
			tr, tg, tb = ditherPixel(eb, x, y, tr, tg, tb)
			br, bg, bb = ditherPixel(eb, x, y+1, br, bg, bb)
			rle.writeHalfBlock(tr, tg, tb, br, bg, bb)
		}
		rle.newline()
	}
	// odd trailing row: render as foreground-only against default background.
	if img.Height%2 == 1 {
		if rle.anyEmitted {
			// clear the background color left set by the half-block rows above.
			rle.out.WriteString(resetSeq)
			rle.haveFG, rle.haveBG = false, false
		}
		y := img.Height - 1
		for x := 0; x < img.Width; x++ {
			r, g, b := img.At(x, y)
			r, g, b = ditherPixel(eb, x, y, r, g, b)
			rle.writeFG(r, g, b, halfBlockGlyph)
		}
		rle.newline()
	}
}
