// Package compositor implements spec 4.F: collecting one frame per
// sending client and building either a single-source letterboxed fit or
// an N-up grid mosaic, in pixel space, ready for the palette renderer.
package compositor

import (
	"sort"

	"github.com/n0remac/ascii-chat-server/internal/palette"
)

// Source is one sending client's most recent validated frame.
type Source struct {
	ClientID uint32
	Frame    *palette.Image
}

// Target describes the receiver's negotiated character-cell dimensions
// and render mode (spec 4.F step 3: half-block doubles the canvas height).
type Target struct {
	Width, Height int // character cells
	HalfBlock     bool
}

// Compose builds the pixel-space canvas for one render tick. Sources
// must already be validated (spec 4.F step 2 happens upstream, at the
// point each frame is read from its ring or cache). Ties when assigning
// grid cells are broken by ascending ClientID (spec 4.F, "bit-exact grid
// tie-breaks").
func Compose(sources []Source, target Target) *palette.Image {
	canvasH := target.Height
	if target.HalfBlock {
		canvasH = target.Height * 2
	}
	canvas := &palette.Image{Width: target.Width, Height: canvasH, Pix: make([]byte, target.Width*canvasH*3)}

	if len(sources) == 0 {
		return canvas
	}

	sorted := make([]Source, len(sources))
	copy(sorted, sources)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ClientID < sorted[j].ClientID })

	if len(sorted) == 1 {
		fitCentered(canvas, 0, 0, target.Width, canvasH, sorted[0].Frame)
		return canvas
	}

	cols := gridCols(len(sorted))
	rows := (len(sorted) + cols - 1) / cols
	cellW := target.Width / cols
	cellHChars := target.Height / rows
	cellH := cellHChars
	if target.HalfBlock {
		cellH = cellHChars * 2
	}

	for i, src := range sorted {
		col := i % cols
		row := i / cols
		x := col * cellW
		y := row * cellH
		fitCentered(canvas, x, y, cellW, cellH, src.Frame)
	}
	return canvas
}

// gridCols implements spec 4.F step 5: cols = 2 if N=2 else (2 if N<=4
// else 3).
func gridCols(n int) int {
	if n == 2 {
		return 2
	}
	if n <= 4 {
		return 2
	}
	return 3
}

// fitCentered scales src into the box (x, y, w, h) preserving aspect
// ratio, letterboxed and centered (spec 4.F step 4/5). A nil src leaves
// the box as background (already zeroed).
func fitCentered(canvas *palette.Image, x, y, w, h int, src *palette.Image) {
	if src == nil || src.Width == 0 || src.Height == 0 || w <= 0 || h <= 0 {
		return
	}
	fittedW, fittedH := fitDimensions(src.Width, src.Height, w, h)
	if fittedW <= 0 || fittedH <= 0 {
		return
	}
	offX := (w - fittedW) / 2
	offY := (h - fittedH) / 2
	blitNearest(canvas, x+offX, y+offY, fittedW, fittedH, src)
}

// fitDimensions computes fitted_w, fitted_h per spec 4.F step 4: scale
// src to fit inside box w x h while preserving its own aspect ratio.
func fitDimensions(srcW, srcH, boxW, boxH int) (int, int) {
	srcAspect := float64(srcW) / float64(srcH)
	boxAspect := float64(boxW) / float64(boxH)
	if boxAspect > srcAspect {
		// box is relatively wider than source: fit by height.
		fh := boxH
		fw := int(float64(fh) * srcAspect)
		return fw, fh
	}
	fw := boxW
	fh := int(float64(fw) / srcAspect)
	return fw, fh
}

// blitNearest nearest-neighbor-scales src into canvas at (x, y) with
// target size (w, h).
func blitNearest(canvas *palette.Image, x, y, w, h int, src *palette.Image) {
	for dy := 0; dy < h; dy++ {
		cy := y + dy
		if cy < 0 || cy >= canvas.Height {
			continue
		}
		sy := dy * src.Height / h
		if sy >= src.Height {
			sy = src.Height - 1
		}
		for dx := 0; dx < w; dx++ {
			cx := x + dx
			if cx < 0 || cx >= canvas.Width {
				continue
			}
			sx := dx * src.Width / w
			if sx >= src.Width {
				sx = src.Width - 1
			}
			so := (sy*src.Width + sx) * 3
			co := (cy*canvas.Width + cx) * 3
			canvas.Pix[co] = src.Pix[so]
			canvas.Pix[co+1] = src.Pix[so+1]
			canvas.Pix[co+2] = src.Pix[so+2]
		}
	}
}
