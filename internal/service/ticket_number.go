package service

import (
	"fmt"
	"sync"
	"time"
)

// TicketNumberGenerator issues TKT-<unix millis> numbers. Numbers are strictly
// increasing within a process even when the clock stalls or steps back.
type TicketNumberGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewTicketNumberGenerator() *TicketNumberGenerator {
	return &TicketNumberGenerator{now: time.Now}
}

// Next returns a new ticket number.
func (g *TicketNumberGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	ms := g.now().UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return fmt.Sprintf("TKT-%d", ms)
}
