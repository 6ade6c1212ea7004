package camera

import "sync/atomic"

// Provider hands out the current Source. Each request takes one snapshot
// and keeps it for its whole lifetime, so a reload never changes a running
// capture or stream.
type Provider struct {
	current atomic.Pointer[Source]
}

// NewProvider creates a provider seeded with src (defaults applied).
func NewProvider(src Source) *Provider {
	p := &Provider{}
	p.Set(src)
	return p
}

// Source returns the current snapshot.
func (p *Provider) Source() Source {
	if s := p.current.Load(); s != nil {
		return *s
	}
	return DefaultSource()
}

// Set replaces the snapshot used by future requests.
func (p *Provider) Set(src Source) {
	src = src.WithDefaults()
	p.current.Store(&src)
}
