// Package payment defines the value-transfer primitive used to pay out
// withdrawn proceeds. Funds received for purchases are held by the
// marketplace and leave it only through Send.
package payment

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// Gateway sends value to an identity. Implementations must report failure
// rather than silently losing funds; the ledger rolls back the withdrawal
// when Send fails.
type Gateway interface {
	Send(ctx context.Context, to string, amount decimal.Decimal) error
}

// GatewayFunc adapts a function to the Gateway interface.
type GatewayFunc func(ctx context.Context, to string, amount decimal.Decimal) error

func (f GatewayFunc) Send(ctx context.Context, to string, amount decimal.Decimal) error {
	return f(ctx, to, amount)
}

// MemoryGateway accumulates sent value per recipient. Used for tests and
// single-node development deployments.
type MemoryGateway struct {
	mu       sync.RWMutex
	received map[string]decimal.Decimal
}

// NewMemoryGateway creates an empty in-memory gateway.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{received: make(map[string]decimal.Decimal)}
}

func (g *MemoryGateway) Send(_ context.Context, to string, amount decimal.Decimal) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.received[to] = g.received[to].Add(amount)
	return nil
}

// Received returns the total value sent to an identity.
func (g *MemoryGateway) Received(to string) decimal.Decimal {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.received[to]
}
