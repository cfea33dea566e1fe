package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/cryguy/mermaid"
)

// errPoolClosed is returned by get after Close.
var errPoolClosed = errors.New("session pool closed")

// Pool holds a fixed set of render sessions. Each session serializes its
// own renders, so the pool size is the server's render parallelism.
type Pool struct {
	sessions chan *mermaid.Renderer
	all      []*mermaid.Renderer
	done     chan struct{}
}

// NewPool creates size sessions with opts.
func NewPool(size int, opts ...mermaid.Option) (*Pool, error) {
	if size < 1 {
		size = 1
	}
	p := &Pool{
		sessions: make(chan *mermaid.Renderer, size),
		done:     make(chan struct{}),
	}
	for i := 0; i < size; i++ {
		r, err := mermaid.NewRenderer(opts...)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("creating session %d: %w", i+1, err)
		}
		p.all = append(p.all, r)
		p.sessions <- r
	}
	return p, nil
}

// Size returns the number of sessions.
func (p *Pool) Size() int { return len(p.all) }

func (p *Pool) get(ctx context.Context) (*mermaid.Renderer, error) {
	select {
	case r := <-p.sessions:
		return r, nil
	case <-p.done:
		return nil, errPoolClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *Pool) put(r *mermaid.Renderer) {
	select {
	case p.sessions <- r:
	default:
	}
}

// Render runs one render on a free session.
func (p *Pool) Render(ctx context.Context, diagram string, f mermaid.Format, opts mermaid.RenderOptions) ([]byte, error) {
	r, err := p.get(ctx)
	if err != nil {
		return nil, err
	}
	defer p.put(r)
	return r.Render(ctx, diagram, f, opts)
}

// Close releases every session.
func (p *Pool) Close() {
	select {
	case <-p.done:
		return
	default:
		close(p.done)
	}
	for _, r := range p.all {
		_ = r.Close()
	}
}
