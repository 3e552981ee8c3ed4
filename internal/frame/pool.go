package frame

import (
	"image"
	"sync"
)

// Pool recycles masks per frame size so the output surface is not
// reallocated every frame.
type Pool struct {
	mu    sync.Mutex
	pools map[image.Point]*sync.Pool
}

// NewPool creates an empty pool.
func NewPool() *Pool {
	return &Pool{pools: make(map[image.Point]*sync.Pool)}
}

func (p *Pool) pool(size image.Point) *sync.Pool {
	p.mu.Lock()
	defer p.mu.Unlock()
	sp, ok := p.pools[size]
	if !ok {
		sp = &sync.Pool{New: func() any { return NewMask(size.X, size.Y) }}
		p.pools[size] = sp
	}
	return sp
}

// Get returns a mask of the requested size. Contents are unspecified;
// callers reset it before use.
func (p *Pool) Get(width, height int) *Mask {
	return p.pool(image.Pt(width, height)).Get().(*Mask)
}

// Put returns m to the pool.
func (p *Pool) Put(m *Mask) {
	if m == nil || m.Image == nil {
		return
	}
	p.pool(image.Pt(m.Width(), m.Height())).Put(m)
}
