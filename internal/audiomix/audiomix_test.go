package audiomix

import (
	"testing"

	"github.com/n0remac/ascii-chat-server/internal/audioring"
)

func TestSingleSourceExcludedIsSilence(t *testing.T) {
	m := New()
	r := audioring.New(16)
	r.Write([]float32{0.5, 0.5, 0.5})
	m.AddSource(1, r)

	out := make([]float32, 4)
	m.ProcessExcluding(out, 1)
	for i, v := range out {
		if v != 0 {
			t.Fatalf("out[%d] = %v, want 0", i, v)
		}
	}
}

func TestMixExclusionMatchesNaiveReference(t *testing.T) {
	m := New()
	rings := map[uint32]*audioring.Ring{
		1: audioring.New(16),
		2: audioring.New(16),
		3: audioring.New(16),
	}
	data := map[uint32][]float32{
		1: {0.1, 0.2, 0.1, 0.1},
		2: {0.05, 0.05, 0.05, 0.05},
		3: {0.2, 0.1, 0.1, 0.1},
	}
	for id, r := range rings {
		r.Write(data[id])
		m.AddSource(id, r)
	}

	for _, exclude := range []uint32{1, 2, 3} {
		// Rebuild fresh rings each iteration so each exclusion test reads
		// from a known, unconsumed data set.
		m2 := New()
		fresh := make(map[uint32]*audioring.Ring)
		for id, samples := range data {
			r := audioring.New(16)
			r.Write(samples)
			fresh[id] = r
			m2.AddSource(id, r)
		}

		out := make([]float32, 4)
		m2.ProcessExcluding(out, exclude)

		want := make([]float32, 4)
		for id, samples := range data {
			if id == exclude {
				continue
			}
			for i, s := range samples {
				want[i] += s
			}
		}
		naiveSoftClip(want)

		for i := range out {
			if out[i] != want[i] {
				t.Fatalf("exclude=%d out[%d] = %v, want %v", exclude, i, out[i], want[i])
			}
		}
	}
}

func TestShortSourceZeroPadsRemainder(t *testing.T) {
	m := New()
	short := audioring.New(16)
	short.Write([]float32{1, 1}) // only 2 samples available
	m.AddSource(1, short)
	long := audioring.New(16)
	long.Write([]float32{0.1, 0.1, 0.1, 0.1})
	m.AddSource(2, long)

	out := make([]float32, 4)
	m.ProcessExcluding(out, 0) // exclude nobody registered under id 0
	want := []float32{1, 1, 0.1, 0.1} // 1 + 0.1 exceeds 1 and is clipped
	for i := range out {
		if out[i] != want[i] {
			t.Fatalf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}

func naiveSoftClip(samples []float32) {
	for i, s := range samples {
		if s > 1 {
			samples[i] = 1
		} else if s < -1 {
			samples[i] = -1
		}
	}
}
