package scanner

import (
	"context"
	"sync"
	"time"
)

// CooldownTracker suppresses repeat signals for a market inside a window.
type CooldownTracker interface {
	// Active reports whether symbol is still cooling down.
	Active(ctx context.Context, symbol string) bool
	// Mark starts a cooldown window for symbol.
	Mark(ctx context.Context, symbol string, d time.Duration) error
}

// MemoryCooldown is the in-process fallback used when Redis is not
// configured. State is lost on restart, which at worst means one duplicate
// alert after a redeploy.
type MemoryCooldown struct {
	mu    sync.Mutex
	until map[string]time.Time
}

// NewMemoryCooldown builds an empty in-memory tracker.
func NewMemoryCooldown() *MemoryCooldown {
	return &MemoryCooldown{until: make(map[string]time.Time)}
}

func (m *MemoryCooldown) Active(_ context.Context, symbol string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return time.Now().Before(m.until[symbol])
}

func (m *MemoryCooldown) Mark(_ context.Context, symbol string, d time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.until[symbol] = time.Now().Add(d)
	return nil
}
