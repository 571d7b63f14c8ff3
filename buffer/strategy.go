package buffer

// ReplacementStrategy picks the unpinned buffer that receives a new block.
// Implementations are called with the manager's lock held.
type ReplacementStrategy interface {
	initialize(pool []*Buffer)
	pinBuffer(b *Buffer)
	unpinBuffer(b *Buffer)
	chooseUnpinnedBuffer() *Buffer
}

// NaiveStrategy returns the first unpinned buffer in pool order.
type NaiveStrategy struct {
	pool []*Buffer
}

func NewNaiveStrategy() *NaiveStrategy {
	return &NaiveStrategy{}
}

func (s *NaiveStrategy) initialize(pool []*Buffer) { s.pool = pool }
func (s *NaiveStrategy) pinBuffer(*Buffer)          {}
func (s *NaiveStrategy) unpinBuffer(*Buffer)        {}

func (s *NaiveStrategy) chooseUnpinnedBuffer() *Buffer {
	for _, b := range s.pool {
		if !b.isPinned() {
			return b
		}
	}
	return nil
}

// LRUStrategy returns the unpinned buffer whose last unpin is the oldest.
type LRUStrategy struct {
	pool  []*Buffer
	clock int64
}

func NewLRUStrategy() *LRUStrategy {
	return &LRUStrategy{}
}

func (s *LRUStrategy) initialize(pool []*Buffer) { s.pool = pool }
func (s *LRUStrategy) pinBuffer(*Buffer)          {}

func (s *LRUStrategy) unpinBuffer(b *Buffer) {
	s.clock++
	b.lastUsed = s.clock
}

func (s *LRUStrategy) chooseUnpinnedBuffer() *Buffer {
	var victim *Buffer
	for _, b := range s.pool {
		if b.isPinned() {
			continue
		}
		if b.block == nil {
			return b
		}
		if victim == nil || b.lastUsed < victim.lastUsed {
			victim = b
		}
	}
	return victim
}
