// Package palette implements the RGB -> ASCII renderer of spec 4.E: the
// luminance ramp, per-client LUT, ANSI color quantizers, RLE-coalesced
// SGR emission, and the three render modes (foreground, background,
// half-block).
package palette

import (
	"fmt"
	"unicode/utf8"
)

// DefaultRamp is the stock luminance ramp used when no custom palette
// string is negotiated (darkest to brightest).
const DefaultRamp = " .:-=+*#%@"

// rampSize is the 64-entry luminance ramp of spec 4.E.
const rampSize = 64

// Palette holds a client's negotiated glyph sequence and the precomputed
// 256-entry luminance LUT that maps brightness to a glyph index, which
// offsets turns into a byte-offset into Raw (spec §3: "palette_chars", "luminance_lut", "palette_chars").
type Palette struct {
	Raw     string // concatenation of every glyph, in order
	offsets []int  // byte offset of each glyph's first byte within Raw
	lut     [256]int // luminance -> index into offsets (byte-offset lookup, spec §3)
	ready   bool
}

// New builds a Palette from a glyph source string. Each Unicode code
// point in chars is treated as one glyph (spec §3/4.E: "ordered sequence
// of glyphs, may be multi-byte"; §4.E: "1- to 4-byte glyphs are
// supported"). The LUT is built immediately; building a Palette twice
// from the same string is idempotent (spec testable property 9).
func New(chars string) (*Palette, error) {
	if chars == "" {
		return nil, fmt.Errorf("palette: empty glyph sequence")
	}
	p := &Palette{Raw: chars}
	for i, r := range chars {
		if r == utf8.RuneError {
			return nil, fmt.Errorf("palette: invalid UTF-8 at byte %d", i)
		}
		p.offsets = append(p.offsets, i)
	}
	p.buildLUT()
	return p, nil
}

// Len returns the number of glyphs in the palette.
func (p *Palette) Len() int {
	return len(p.offsets)
}

// Ready reports whether the LUT has been built (spec §3:
// "palette_initialized"). New always returns a ready palette; this
// exists so callers mirror the client record's own flag faithfully.
func (p *Palette) Ready() bool {
	return p.ready
}

// glyphAt returns the glyph string whose index into p.offsets is idx.
func (p *Palette) glyphAt(idx int) string {
	off := p.offsets[idx]
	if idx+1 < len(p.offsets) {
		return p.Raw[off:p.offsets[idx+1]]
	}
	return p.Raw[off:]
}

// ByteOffset returns the byte-offset into Raw that the LUT maps a given
// luminance to (spec §3: "luminance_lut[256] mapping 0-255 brightness to
// palette index... The LUT stores byte-offsets into the palette string").
func (p *Palette) ByteOffset(y uint8) int {
	return p.offsets[p.lut[y]]
}

// Ramp builds the 64-entry luminance ramp for a palette of length L:
// ramp[i] = floor(i*(L-1)/63) (spec 4.E).
func Ramp(paletteLen int) [rampSize]int {
	var ramp [rampSize]int
	if paletteLen < 1 {
		paletteLen = 1
	}
	for i := 0; i < rampSize; i++ {
		ramp[i] = i * (paletteLen - 1) / (rampSize - 1)
	}
	return ramp
}

// buildLUT flattens the ramp across all 256 luminance values into the
// byte-offset LUT (spec §3/4.E).
func (p *Palette) buildLUT() {
	ramp := Ramp(p.Len())
	for y := 0; y < 256; y++ {
		p.lut[y] = ramp[y>>2]
	}
	p.ready = true
}

// GlyphForLuminance returns the glyph for a 0-255 luminance value via the
// precomputed LUT (spec testable property 4).
func (p *Palette) GlyphForLuminance(y uint8) string {
	return p.glyphAt(p.lut[y])
}

// Luminance computes Y = (77R + 150G + 29B + 128) >> 8 (spec 4.E).
func Luminance(r, g, b uint8) uint8 {
	return uint8((77*uint32(r) + 150*uint32(g) + 29*uint32(b) + 128) >> 8)
}
