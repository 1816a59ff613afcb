package sim

import (
	"sync"

	"github.com/san-kum/magnetsim/internal/cluster"
)

// FramePool recycles transform buffers sized for one cluster.
type FramePool struct {
	pool sync.Pool
	size int
}

func NewFramePool(items int) *FramePool {
	return &FramePool{
		size: items,
		pool: sync.Pool{
			New: func() interface{} {
				buf := make([]cluster.Transform, items)
				return &buf
			},
		},
	}
}

func (p *FramePool) Get() []cluster.Transform {
	return *p.pool.Get().(*[]cluster.Transform)
}

// Put returns buf to the pool. Buffers of the wrong size are dropped.
func (p *FramePool) Put(buf []cluster.Transform) {
	if cap(buf) < p.size {
		return
	}
	buf = buf[:p.size]
	clear(buf)
	p.pool.Put(&buf)
}
