package events

import (
	"context"

	"github.com/fjod/go_pizza/pkg/circuitbreaker"
)

// BreakerPublisher fails fast with circuitbreaker.ErrOpen while the broker keeps failing.
type BreakerPublisher struct {
	next    Publisher
	breaker *circuitbreaker.Breaker
}

func NewBreakerPublisher(next Publisher, breaker *circuitbreaker.Breaker) *BreakerPublisher {
	return &BreakerPublisher{next: next, breaker: breaker}
}

func (p *BreakerPublisher) Publish(ctx context.Context, e Event) error {
	return p.breaker.Do(func() error {
		return p.next.Publish(ctx, e)
	})
}
