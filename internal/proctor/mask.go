package proctor

import "sync"

// MaskReader is the read side of a Mask, consulted by the session reducer.
type MaskReader interface {
	Ignores(c Category) bool
}

// Mask records which signal categories are currently ignorable.
// Holders nest: a category stays masked until every acquisition is released.
type Mask struct {
	mu   sync.Mutex
	held map[Category]int
}

// NewMask returns a mask that ignores nothing.
func NewMask() *Mask {
	return &Mask{held: make(map[Category]int)}
}

// Acquire masks c until the returned release func is called.
// Calling release more than once has no further effect.
func (m *Mask) Acquire(c Category) (release func()) {
	m.mu.Lock()
	m.held[c]++
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if m.held[c] <= 1 {
				delete(m.held, c)
				return
			}
			m.held[c]--
		})
	}
}

// Ignores reports whether signals of category c are currently masked.
func (m *Mask) Ignores(c Category) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.held[c] > 0
}

// NoMask ignores nothing.
type NoMask struct{}

func (NoMask) Ignores(Category) bool { return false }
