package compositor

import (
	"testing"

	"github.com/n0remac/ascii-chat-server/internal/palette"
)

func solidImage(w, h int, r, g, b byte) *palette.Image {
	pix := make([]byte, w*h*3)
	for i := 0; i < w*h; i++ {
		pix[i*3] = r
		pix[i*3+1] = g
		pix[i*3+2] = b
	}
	return &palette.Image{Width: w, Height: h, Pix: pix}
}

func TestComposeEmptyReturnsBlackCanvas(t *testing.T) {
	canvas := Compose(nil, Target{Width: 10, Height: 5})
	for _, v := range canvas.Pix {
		if v != 0 {
			t.Fatal("expected all-black canvas when no sources")
		}
	}
}

func TestComposeSingleSourceLetterboxesAndCenters(t *testing.T) {
	// 4x2 source into a 10x10 box: aspect 2:1, box aspect 1:1 -> fit by width? box wider? box is square (1.0) vs src aspect 2 -> boxAspect(1) < srcAspect(2) -> fit by width.
	src := solidImage(4, 2, 255, 0, 0)
	canvas := Compose([]Source{{ClientID: 1, Frame: src}}, Target{Width: 10, Height: 10})
	if canvas.Width != 10 || canvas.Height != 10 {
		t.Fatalf("canvas size = %dx%d", canvas.Width, canvas.Height)
	}
	// top-left corner (letterbox) should remain black.
	if canvas.Pix[0] != 0 {
		t.Fatalf("expected letterbox border to be black, got %v", canvas.Pix[0:3])
	}
	// somewhere near vertical center should carry the red source.
	midRow := canvas.Height / 2
	off := (midRow*canvas.Width + canvas.Width/2) * 3
	if canvas.Pix[off] == 0 {
		t.Fatalf("expected red source visible at canvas center, got %v", canvas.Pix[off:off+3])
	}
}

func TestComposeHalfBlockDoublesCanvasHeight(t *testing.T) {
	src := solidImage(4, 4, 1, 2, 3)
	canvas := Compose([]Source{{ClientID: 1, Frame: src}}, Target{Width: 80, Height: 24, HalfBlock: true})
	if canvas.Height != 48 {
		t.Fatalf("canvas height = %d, want 48", canvas.Height)
	}
}

func TestGridColsMatchesSpec(t *testing.T) {
	cases := map[int]int{2: 2, 3: 2, 4: 2, 5: 3, 6: 3, 9: 3}
	for n, want := range cases {
		if got := gridCols(n); got != want {
			t.Errorf("gridCols(%d) = %d, want %d", n, got, want)
		}
	}
}

func TestComposeGridTieBreakByAscendingClientID(t *testing.T) {
	// sources supplied out of order; cell assignment must follow ascending client_id.
	a := solidImage(2, 2, 255, 0, 0) // will be client 5
	b := solidImage(2, 2, 0, 255, 0) // will be client 1
	canvas := Compose([]Source{{ClientID: 5, Frame: a}, {ClientID: 1, Frame: b}}, Target{Width: 20, Height: 10})
	// cols=2, rows=1; client 1 (green) goes to cell 0 (left), client 5 (red) to cell 1 (right).
	leftOff := (5*canvas.Width + 5) * 3
	rightOff := (5*canvas.Width + 15) * 3
	if canvas.Pix[leftOff+1] == 0 {
		t.Fatalf("expected green (client 1) in left cell, got %v", canvas.Pix[leftOff:leftOff+3])
	}
	if canvas.Pix[rightOff] == 0 {
		t.Fatalf("expected red (client 5) in right cell, got %v", canvas.Pix[rightOff:rightOff+3])
	}
}
