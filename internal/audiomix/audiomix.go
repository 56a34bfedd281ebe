// Package audiomix implements the per-client audio mixer of spec 4.G:
// a registry of per-source rings, summed with one source excluded on
// demand (so a participant never hears their own voice) and soft-clipped.
package audiomix

import (
	"sync"

	"github.com/n0remac/ascii-chat-server/internal/audioring"
)

// Mixer holds source_id -> ring registrations (spec 4.G).
type Mixer struct {
	mu      sync.RWMutex
	sources map[uint32]*audioring.Ring
}

// New creates an empty mixer.
func New() *Mixer {
	return &Mixer{sources: make(map[uint32]*audioring.Ring)}
}

// AddSource registers a client's incoming audio ring with the mixer.
func (m *Mixer) AddSource(id uint32, ring *audioring.Ring) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources[id] = ring
}

// RemoveSource unregisters a client's ring.
func (m *Mixer) RemoveSource(id uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sources, id)
}

// ProcessExcluding reads up to len(output) samples from every registered
// source except excludeID, sums them into output, and soft-clips the
// result (spec 4.G). It always fills the entirety of output (zero-pads
// any source with too little data) and returns len(output).
//
// If only one source is registered and it is excludeID, the output is
// all zeros (spec 4.G invariant, testable property 3).
func (m *Mixer) ProcessExcluding(output []float32, excludeID uint32) int {
	for i := range output {
		output[i] = 0
	}

	m.mu.RLock()
	rings := make(map[uint32]*audioring.Ring, len(m.sources))
	for id, r := range m.sources {
		if id == excludeID {
			continue
		}
		rings[id] = r
	}
	m.mu.RUnlock()

	if len(rings) == 0 {
		return len(output)
	}

	scratch := make([]float32, len(output))
	for _, r := range rings {
		for i := range scratch {
			scratch[i] = 0
		}
		n := r.Read(scratch)
		_ = n // unread tail of scratch stays zero, contributing silence
		for i, s := range scratch {
			output[i] += s
		}
	}

	softClip(output)
	return len(output)
}

// softClip applies spec 4.G's limiter: if the sum's magnitude exceeds
// 1.0, scale the whole sample down so it doesn't.
func softClip(samples []float32) {
	for i, s := range samples {
		if s > 1 {
			samples[i] = 1
		} else if s < -1 {
			samples[i] = -1
		}
	}
}
