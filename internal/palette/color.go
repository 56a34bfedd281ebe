package palette

// RGB is a single 8-bit-per-channel color sample.
type RGB struct {
	R, G, B uint8
}

// grayscaleThreshold (T in spec 4.E) gates the 256-color near-grayscale
// test: |R-G| < T && |G-B| < T.
const grayscaleThreshold = 8

// ansi16 is the standard 16-color ANSI palette, in index order 0..15
// (0-7 = normal, 8-15 = bright), used both to answer "what RGB does
// index i mean" and, by nearest-distance search, "what index is this
// RGB closest to" (spec testable property 5: these must round-trip).
var ansi16 = [16]RGB{
	{0, 0, 0},       // 0 black
	{128, 0, 0},     // 1 red
	{0, 128, 0},     // 2 green
	{128, 128, 0},   // 3 yellow
	{0, 0, 128},     // 4 blue
	{128, 0, 128},   // 5 magenta
	{0, 128, 128},   // 6 cyan
	{192, 192, 192}, // 7 white
	{128, 128, 128}, // 8 bright black
	{255, 0, 0},     // 9 bright red
	{0, 255, 0},     // 10 bright green
	{255, 255, 0},   // 11 bright yellow
	{0, 0, 255},     // 12 bright blue
	{255, 0, 255},   // 13 bright magenta
	{0, 255, 255},   // 14 bright cyan
	{255, 255, 255}, // 15 bright white
}

// Get16ColorRGB returns the canonical RGB for standard color index i
// (spec 4.E / testable property 5). Invalid indices default to white.
func Get16ColorRGB(i int) RGB {
	if i < 0 || i > 15 {
		return ansi16[7]
	}
	return ansi16[i]
}

// RGBTo16Color maps an RGB triple to the nearest of the 16 standard ANSI
// colors by minimum squared distance (spec 4.E).
func RGBTo16Color(r, g, b uint8) int {
	best := 0
	bestDist := sq2(r, g, b, ansi16[0])
	for i := 1; i < 16; i++ {
		d := sq2(r, g, b, ansi16[i])
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

func sq2(r, g, b uint8, c RGB) int {
	dr := int(r) - int(c.R)
	dg := int(g) - int(c.G)
	db := int(b) - int(c.B)
	return dr*dr + dg*dg + db*db
}

// FGCode16 returns the SGR foreground code for a 16-color index
// (30..37 normal, 90..97 bright). Invalid indices default to white (37).
func FGCode16(i int) int {
	if i < 0 || i > 15 {
		return 37
	}
	if i < 8 {
		return 30 + i
	}
	return 90 + (i - 8)
}

// BGCode16 returns the SGR background code for a 16-color index
// (40..47 normal, 100..107 bright). Invalid indices default to black (40).
func BGCode16(i int) int {
	if i < 0 || i > 15 {
		return 40
	}
	if i < 8 {
		return 40 + i
	}
	return 100 + (i - 8)
}

// RGBTo256Color quantizes RGB into the xterm 256-color index space (spec
// 4.E): near-grayscale inputs land on the 24-step ramp (232..255),
// everything else on the 6x6x6 color cube (16..231).
func RGBTo256Color(r, g, b uint8) int {
	dRG := absInt(int(r) - int(g))
	dGB := absInt(int(g) - int(b))
	if dRG < grayscaleThreshold && dGB < grayscaleThreshold {
		// Map average brightness onto the 24-step grayscale ramp.
		avg := (int(r) + int(g) + int(b)) / 3
		step := avg * 23 / 255
		return 232 + step
	}
	r6 := round5(r)
	g6 := round5(g)
	b6 := round5(b)
	return 16 + 36*r6 + 6*g6 + b6
}

func round5(c uint8) int {
	v := (int(c)*5 + 127) / 255
	if v > 5 {
		v = 5
	}
	if v < 0 {
		v = 0
	}
	return v
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
