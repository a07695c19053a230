package workout

import (
	"sort"
	"sync"

	"backend-stridequest/internal/metrics"
)

// SampleSource is a platform location feed. Subscribe registers a callback
// for every position fix and returns the matching unsubscribe. Indoor
// sessions attach no source.
type SampleSource interface {
	Subscribe(fn func(metrics.PositionSample)) (unsubscribe func())
}

// PushSource is a SampleSource fed by explicit Push calls. The HTTP sample
// ingest route and in-process tests both drive sessions through one.
type PushSource struct {
	mu   sync.Mutex
	next int
	subs map[int]func(metrics.PositionSample)
}

func NewPushSource() *PushSource {
	return &PushSource{subs: map[int]func(metrics.PositionSample){}}
}

func (p *PushSource) Subscribe(fn func(metrics.PositionSample)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.next
	p.next++
	p.subs[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subs, id)
	}
}

func (p *PushSource) Push(sample metrics.PositionSample) {
	p.mu.Lock()
	fns := make([]func(metrics.PositionSample), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(sample)
	}
}

// sortSamples orders buffered samples by timestamp before they reach the
// accumulator. Transport jitter may deliver them out of order; distance
// accuracy needs them applied in recorded order.
func sortSamples(samples []metrics.PositionSample) {
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].RecordedAt.Before(samples[j].RecordedAt)
	})
}
