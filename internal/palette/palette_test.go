package palette

import (
	"strings"
	"testing"

	"github.com/n0remac/ascii-chat-server/internal/wire"
)

func TestLUTCorrectnessASCII(t *testing.T) {
	for _, chars := range []string{" .:-=+*#%@", "ab", "0123456789abcdef"} {
		pal, err := New(chars)
		if err != nil {
			t.Fatal(err)
		}
		L := pal.Len()
		for y := 0; y < 256; y++ {
			want := wantGlyph(chars, L, uint8(y))
			got := pal.GlyphForLuminance(uint8(y))
			if got != want {
				t.Fatalf("chars=%q y=%d: got %q want %q", chars, y, got, want)
			}
		}
	}
}

func TestLUTCorrectnessMultiByteUTF8(t *testing.T) {
	cases := []string{
		"日本語", // 3-byte glyphs
		"アイウエオ",
		"😀😁😂😃", // 4-byte glyphs
		"αβ",  // 2-byte glyphs
	}
	for _, chars := range cases {
		pal, err := New(chars)
		if err != nil {
			t.Fatalf("%q: %v", chars, err)
		}
		L := pal.Len()
		for y := 0; y < 256; y++ {
			want := wantGlyph(chars, L, uint8(y))
			got := pal.GlyphForLuminance(uint8(y))
			if got != want {
				t.Fatalf("chars=%q y=%d: got %q want %q", chars, y, got, want)
			}
		}
	}
}

// wantGlyph independently reproduces spec 4.E's formula:
// palette[floor((y>>2) * (L-1) / 63)].
func wantGlyph(chars string, L int, y uint8) string {
	glyphs := splitGlyphs(chars)
	idx := (int(y) >> 2) * (L - 1) / 63
	return glyphs[idx]
}

func splitGlyphs(s string) []string {
	var out []string
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

func TestIdempotentReinit(t *testing.T) {
	p1, _ := New("abcdef")
	p2, _ := New("abcdef")
	for y := 0; y < 256; y++ {
		if p1.GlyphForLuminance(uint8(y)) != p2.GlyphForLuminance(uint8(y)) {
			t.Fatalf("reinit mismatch at y=%d", y)
		}
	}
}

func Test16ColorRoundTrip(t *testing.T) {
	for i := 0; i < 16; i++ {
		c := Get16ColorRGB(i)
		got := RGBTo16Color(c.R, c.G, c.B)
		if got != i {
			t.Errorf("RGBTo16Color(Get16ColorRGB(%d)) = %d, want %d", i, got, i)
		}
	}
}

func Test256ColorRange(t *testing.T) {
	samples := [][3]uint8{{0, 0, 0}, {255, 255, 255}, {128, 128, 128}, {10, 200, 50}, {1, 2, 3}, {254, 1, 128}}
	for _, s := range samples {
		idx := RGBTo256Color(s[0], s[1], s[2])
		if idx < 16 || idx > 255 {
			t.Errorf("RGBTo256Color(%v) = %d, out of [16,255]", s, idx)
		}
	}
}

func Test256ColorGrayscaleLandsInRamp(t *testing.T) {
	for _, g := range []uint8{0, 10, 50, 128, 200, 255} {
		idx := RGBTo256Color(g, g, g)
		if idx < 232 || idx > 255 {
			t.Errorf("grayscale RGBTo256Color(%d,%d,%d) = %d, want [232,255]", g, g, g, idx)
		}
	}
}

func TestRenderRejectsUnreadyPalette(t *testing.T) {
	img := &Image{Width: 1, Height: 1, Pix: []byte{1, 2, 3}}
	_, err := Render(img, Capabilities{ColorTier: wire.ColorNone, RenderMode: wire.RenderForeground}, nil)
	if err != ErrNotNegotiated {
		t.Fatalf("got %v, want ErrNotNegotiated", err)
	}
}

func TestRenderMonoEmitsGlyphOnly(t *testing.T) {
	pal, _ := New("@")
	img := &Image{Width: 2, Height: 1, Pix: []byte{255, 255, 255, 0, 0, 0}}
	out, err := Render(img, Capabilities{ColorTier: wire.ColorNone, RenderMode: wire.RenderForeground}, pal)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("mono output should contain no escape sequences: %q", out)
	}
}

func TestRenderTruecolorEndsWithReset(t *testing.T) {
	pal, _ := New(DefaultRamp)
	img := &Image{Width: 2, Height: 2, Pix: make([]byte, 2*2*3)}
	out, err := Render(img, Capabilities{ColorTier: wire.ColorTrue, RenderMode: wire.RenderForeground}, pal)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(out, "\x1b[0m") {
		t.Fatalf("output must end with reset sequence, got %q", out[max(0, len(out)-10):])
	}
}

func TestRLECoalescesConstantColorRun(t *testing.T) {
	pal, _ := New(DefaultRamp)
	// A uniform-color 10x1 image should emit exactly one SGR sequence.
	img := &Image{Width: 10, Height: 1, Pix: make([]byte, 10*3)}
	for i := range img.Pix {
		img.Pix[i] = 100
	}
	out, err := Render(img, Capabilities{ColorTier: wire.ColorTrue, RenderMode: wire.RenderForeground}, pal)
	if err != nil {
		t.Fatal(err)
	}
	n := strings.Count(out, "\x1b[38;2;")
	if n != 1 {
		t.Fatalf("expected exactly 1 foreground SGR sequence for a constant-color run, got %d in %q", n, out)
	}
}

func TestHalfBlockPixelDoubling(t *testing.T) {
	// spec testable property 8: 200x150 source, 80x24 half-block receiver
	// -> compositor (not exercised here) would hand the renderer an
	// 80x48-pixel canvas; the renderer must then emit exactly 24 lines of
	// 80 half-block glyphs, plus a final reset.
	const w, h = 80, 48
	pal, _ := New(DefaultRamp)
	img := &Image{Width: w, Height: h, Pix: make([]byte, w*h*3)}
	out, err := Render(img, Capabilities{ColorTier: wire.ColorTrue, RenderMode: wire.RenderHalfBlock}, pal)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(out, "\x1b[0m") {
		t.Fatal("expected trailing reset sequence")
	}
	lines := strings.Split(strings.TrimSuffix(out, "\x1b[0m"), "\n")
	// last element after the final \n is empty
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) != 24 {
		t.Fatalf("got %d lines, want 24", len(lines))
	}
	for _, line := range lines {
		if strings.Count(line, halfBlockGlyph) != w {
			t.Fatalf("line has %d half-block glyphs, want %d: %q", strings.Count(line, halfBlockGlyph), w, line)
		}
	}
}

// TestRLECoalescesByQuantizedColorNot256 covers spec 4.E's "emit only
// when the pixel's quantized color differs": two adjacent pixels whose
// raw RGB differs slightly but quantize to the same 256-color code must
// still coalesce into one SGR sequence.
func TestRLECoalescesByQuantizedColorNot256(t *testing.T) {
	pal, _ := New(DefaultRamp)
	img := &Image{Width: 2, Height: 1, Pix: []byte{10, 10, 10, 11, 11, 11}}
	if RGBTo256Color(10, 10, 10) != RGBTo256Color(11, 11, 11) {
		t.Skip("fixture colors no longer quantize identically")
	}
	out, err := Render(img, Capabilities{ColorTier: wire.Color256, RenderMode: wire.RenderForeground}, pal)
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(out, "\x1b[38;5;"); n != 1 {
		t.Fatalf("expected exactly 1 foreground SGR sequence for identically-quantized pixels, got %d in %q", n, out)
	}
}

func TestDitherPixelNoOpWithoutErrorBuffer(t *testing.T) {
	r, g, b := ditherPixel(nil, 0, 0, 10, 20, 30)
	if r != 10 || g != 20 || b != 30 {
		t.Fatalf("expected passthrough without an ErrorBuffer, got %d,%d,%d", r, g, b)
	}
}

func TestDitherPixelQuantizesToNearest16Color(t *testing.T) {
	eb := NewErrorBuffer(1, 1)
	r, g, b := ditherPixel(eb, 0, 0, 100, 100, 100)
	want := Get16ColorRGB(RGBTo16Color(100, 100, 100))
	if r != want.R || g != want.G || b != want.B {
		t.Fatalf("ditherPixel = %d,%d,%d, want quantized %+v", r, g, b, want)
	}
}

// TestRenderColor16UsesDithering covers the Color16 render path actually
// calling into dither.go's error-diffusion quantizer (spec 4.E: "16-color
// mode only"), rather than leaving it implemented-but-unreachable.
func TestRenderColor16UsesDithering(t *testing.T) {
	pal, _ := New(DefaultRamp)
	img := &Image{Width: 4, Height: 1, Pix: make([]byte, 4*3)}
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	out, err := Render(img, Capabilities{ColorTier: wire.Color16, RenderMode: wire.RenderForeground}, pal)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "\x1b[") {
		t.Fatal("expected Color16 output to carry SGR sequences")
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
