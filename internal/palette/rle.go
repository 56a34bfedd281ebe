package palette

import (
	"fmt"
	"strings"

	"github.com/n0remac/ascii-chat-server/internal/wire"
)

// rleEmitter buffers the current foreground/background SGR state and
// emits a fresh escape sequence only when the quantized color actually
// changes from the previous cell (spec 4.E: "run-length coalescing").
type rleEmitter struct {
	out  *strings.Builder
	tier wire.ColorTier

	haveFG, haveBG bool
	fgKey, bgKey   int
	anyEmitted     bool
}

func newRLEEmitter(out *strings.Builder, tier wire.ColorTier) *rleEmitter {
	return &rleEmitter{out: out, tier: tier}
}

// colorKey returns the value this tier actually renders for c: the
// quantized palette index for Color256/Color16, or the exact packed RGB
// for ColorTrue. Coalescing must compare this, not the raw RGB — two
// pixels with different raw RGB can still quantize to the same 256/16
// color, and spec 4.E's RLE rule is "emit only when the pixel's
// quantized color differs."
func (e *rleEmitter) colorKey(c RGB) int {
	switch e.tier {
	case wire.ColorTrue:
		return int(c.R)<<16 | int(c.G)<<8 | int(c.B)
	case wire.Color256:
		return int(RGBTo256Color(c.R, c.G, c.B))
	case wire.Color16:
		return int(RGBTo16Color(c.R, c.G, c.B))
	default:
		return 0
	}
}

func (e *rleEmitter) writeFG(r, g, b uint8, glyph string) {
	if e.tier == wire.ColorNone {
		e.out.WriteString(glyph)
		return
	}
	c := RGB{r, g, b}
	key := e.colorKey(c)
	if !e.haveFG || key != e.fgKey {
		e.out.WriteString(e.sgrFG(c))
		e.fgKey = key
		e.haveFG = true
	}
	e.out.WriteString(glyph)
	e.anyEmitted = true
}

func (e *rleEmitter) writeBG(r, g, b uint8, glyph string) {
	if e.tier == wire.ColorNone {
		e.out.WriteString(glyph)
		return
	}
	c := RGB{r, g, b}
	key := e.colorKey(c)
	if !e.haveBG || key != e.bgKey {
		e.out.WriteString(e.sgrBG(c))
		e.bgKey = key
		e.haveBG = true
	}
	e.out.WriteString(glyph)
	e.anyEmitted = true
}

// writeHalfBlock emits one cell of half-block output: foreground color
// from the top pixel, background color from the bottom pixel, glyph is
// always U+2580.
func (e *rleEmitter) writeHalfBlock(tr, tg, tb, br, bg, bb uint8) {
	if e.tier == wire.ColorNone {
		e.out.WriteString(halfBlockGlyph)
		return
	}
	fgC := RGB{tr, tg, tb}
	bgC := RGB{br, bg, bb}
	fgKey := e.colorKey(fgC)
	bgKey := e.colorKey(bgC)
	changed := false
	if !e.haveFG || fgKey != e.fgKey {
		changed = true
	}
	if !e.haveBG || bgKey != e.bgKey {
		changed = true
	}
	if changed {
		e.out.WriteString(e.sgrFG(fgC))
		e.out.WriteString(e.sgrBGRaw(bgC))
		e.fgKey, e.bgKey = fgKey, bgKey
		e.haveFG, e.haveBG = true, true
	}
	e.out.WriteString(halfBlockGlyph)
	e.anyEmitted = true
}

// newline resets only the builder's line; color state deliberately
// carries across lines so a constant-color frame still emits one SGR
// sequence total, not once per row.
func (e *rleEmitter) newline() {
	e.out.WriteByte('\n')
}

func (e *rleEmitter) flush() {
	if e.anyEmitted {
		e.out.WriteString(resetSeq)
	}
}

func (e *rleEmitter) sgrFG(c RGB) string {
	switch e.tier {
	case wire.ColorTrue:
		return fmt.Sprintf("\x1b[38;2;%d;%d;%dm", c.R, c.G, c.B)
	case wire.Color256:
		return fmt.Sprintf("\x1b[38;5;%dm", RGBTo256Color(c.R, c.G, c.B))
	case wire.Color16:
		return fmt.Sprintf("\x1b[%dm", FGCode16(RGBTo16Color(c.R, c.G, c.B)))
	default:
		return ""
	}
}

func (e *rleEmitter) sgrBG(c RGB) string {
	return e.sgrBGRaw(c)
}

func (e *rleEmitter) sgrBGRaw(c RGB) string {
	switch e.tier {
	case wire.ColorTrue:
		return fmt.Sprintf("\x1b[48;2;%d;%d;%dm", c.R, c.G, c.B)
	case wire.Color256:
		return fmt.Sprintf("\x1b[48;5;%dm", RGBTo256Color(c.R, c.G, c.B))
	case wire.Color16:
		return fmt.Sprintf("\x1b[%dm", BGCode16(RGBTo16Color(c.R, c.G, c.B)))
	default:
		return ""
	}
}
