// Package skeleton wraps the external transaction-skeleton builder: the
// native component that encodes the vault locking script and produces the
// unfunded, zero-input peg-in transaction.
package skeleton

import (
	"context"
	"sync"

	"github.com/babylonlabs-io/vault-sdk/types"
)

// CreatePeginRequest identifies the vault participants and the deposit.
type CreatePeginRequest struct {
	DepositorPubKey   types.XOnlyKey
	ProviderPubKey    types.XOnlyKey
	LiquidatorPubKeys []types.XOnlyKey
	Amount            uint64
	Network           string
}

// Builder is the opaque skeleton-building collaborator. The SDK never
// inspects the result beyond treating it as a zero-input transaction with
// the vault output at index 0.
type Builder interface {
	CreatePegin(ctx context.Context, req CreatePeginRequest) (*types.PeginSkeleton, error)
}

// Factory constructs a Builder. Construction may be expensive (loading a
// native module) and is deferred until first use.
type Factory func(ctx context.Context) (Builder, error)

// Lazy defers builder construction to the first call and guarantees the
// factory runs at most once at a time. A failed initialization is not
// cached, so the next call retries it.
type Lazy struct {
	factory Factory

	mu      sync.Mutex
	builder Builder
}

func NewLazy(factory Factory) *Lazy {
	return &Lazy{factory: factory}
}

func (l *Lazy) CreatePegin(
	ctx context.Context, req CreatePeginRequest,
) (*types.PeginSkeleton, error) {
	builder, err := l.instance(ctx)
	if err != nil {
		return nil, err
	}

	return builder.CreatePegin(ctx, req)
}

func (l *Lazy) instance(ctx context.Context) (Builder, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.builder != nil {
		return l.builder, nil
	}

	builder, err := l.factory(ctx)
	if err != nil {
		return nil, err
	}

	l.builder = builder
	return builder, nil
}
