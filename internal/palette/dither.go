package palette

// ErrorBuffer holds per-pixel residual quantization error for the
// Floyd-Steinberg distributor (spec 4.E), one entry per channel per
// pixel so each of R/G/B accumulates its own error independently.
type ErrorBuffer struct {
	Width, Height int
	R, G, B       []float64
}

// NewErrorBuffer allocates a zeroed width*height error buffer.
func NewErrorBuffer(width, height int) *ErrorBuffer {
	n := width * height
	return &ErrorBuffer{Width: width, Height: height, R: make([]float64, n), G: make([]float64, n), B: make([]float64, n)}
}

func (e *ErrorBuffer) idx(x, y int) int { return y*e.Width + x }

// At returns the accumulated error for pixel (x, y).
func (e *ErrorBuffer) At(x, y int) (r, g, b float64) {
	i := e.idx(x, y)
	return e.R[i], e.G[i], e.B[i]
}

// Distribute spreads the quantization error (actual - quantized) for
// pixel (x, y) to its right, down-left, down, and down-right neighbors
// with Floyd-Steinberg weights 7/16, 3/16, 5/16, 1/16 (spec 4.E,
// 16-color mode only).
func (e *ErrorBuffer) Distribute(x, y int, errR, errG, errB float64) {
	type off struct {
		dx, dy int
		w      float64
	}
	neighbors := [4]off{
		{1, 0, 7.0 / 16},
		{-1, 1, 3.0 / 16},
		{0, 1, 5.0 / 16},
		{1, 1, 1.0 / 16},
	}
	for _, n := range neighbors {
		nx, ny := x+n.dx, y+n.dy
		if nx < 0 || nx >= e.Width || ny < 0 || ny >= e.Height {
			continue
		}
		i := e.idx(nx, ny)
		e.R[i] += errR * n.w
		e.G[i] += errG * n.w
		e.B[i] += errB * n.w
	}
}

// DitherQuantize16 applies the accumulated error at (x, y) to the source
// color, quantizes to the nearest 16-color, distributes the residual
// error to neighbors, and returns the quantized RGB actually displayed
// (for the renderer to use consistently for glyph-luminance purposes).
func DitherQuantize16(e *ErrorBuffer, x, y int, r, g, b uint8) (quantized RGB, index int) {
	er, eg, eb := e.At(x, y)
	ar := clamp255(float64(r) + er)
	ag := clamp255(float64(g) + eg)
	ab := clamp255(float64(b) + eb)

	idx := RGBTo16Color(uint8(ar), uint8(ag), uint8(ab))
	q := Get16ColorRGB(idx)

	e.Distribute(x, y, ar-float64(q.R), ag-float64(q.G), ab-float64(q.B))
	return q, idx
}

func clamp255(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
