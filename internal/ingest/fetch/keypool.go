package fetch

import (
	"strings"
	"sync"
)

// KeyPool is the rotation state over a set of API credentials. Each client
// or job owns its own pool.
type KeyPool struct {
	mu   sync.Mutex
	keys []string
	idx  int
}

// NewKeyPool drops blank keys and starts at the first one.
func NewKeyPool(keys ...string) *KeyPool {
	clean := make([]string, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			clean = append(clean, k)
		}
	}
	return &KeyPool{keys: clean}
}

// Len returns the number of credentials.
func (p *KeyPool) Len() int {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.keys)
}

// Current returns the active key and its position.
func (p *KeyPool) Current() (string, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.keys) == 0 {
		return "", -1
	}
	return p.keys[p.idx], p.idx
}

// Advance moves past the key at position from. It is a no-op when another
// caller already rotated away from it.
func (p *KeyPool) Advance(from int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.keys) == 0 || p.idx != from {
		return
	}
	p.idx = (p.idx + 1) % len(p.keys)
}

// Position returns the 1-based index of the active key, for logs.
func (p *KeyPool) Position() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.idx + 1
}
