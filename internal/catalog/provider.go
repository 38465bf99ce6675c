package catalog

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Provider owns the catalog and is the only way consumers change it. Every
// applied mutation is followed by a fresh snapshot published to subscribers.
type Provider struct {
	store   Store
	log     *zap.Logger
	metrics *Metrics
	hub     *Hub

	// single writer: publish order matches apply order
	wmu sync.Mutex
}

func NewProvider(store Store, log *zap.Logger, metrics *Metrics) *Provider {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Provider{store: store, log: log, metrics: metrics}
	if metrics != nil {
		p.hub = NewHub(metrics.Subscribers)
	} else {
		p.hub = NewHub(nil)
	}
	return p
}

func (p *Provider) Ping(ctx context.Context) error {
	return p.store.Ping(ctx)
}

func (p *Provider) GetSnapshot(ctx context.Context) (State, error) {
	return p.store.Snapshot(ctx)
}

func (p *Provider) IncrementPrice(ctx context.Context, id string) (Item, error) {
	p.wmu.Lock()
	defer p.wmu.Unlock()
	return p.adjustLocked(ctx, id, 1)
}

func (p *Provider) DecrementPrice(ctx context.Context, id string) (Item, error) {
	p.wmu.Lock()
	defer p.wmu.Unlock()
	return p.adjustLocked(ctx, id, -1)
}

func (p *Provider) IncrementAt(ctx context.Context, index int) (Item, error) {
	return p.adjustAt(ctx, index, 1)
}

func (p *Provider) DecrementAt(ctx context.Context, index int) (Item, error) {
	return p.adjustAt(ctx, index, -1)
}

// Subscribe returns a channel that first carries the current snapshot and
// then each published one. It is closed once ctx is done.
func (p *Provider) Subscribe(ctx context.Context) (<-chan State, error) {
	st, err := p.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return p.hub.Subscribe(ctx, st), nil
}

func (p *Provider) Subscribers() int {
	return p.hub.Len()
}

func (p *Provider) adjustAt(ctx context.Context, index int, delta int64) (Item, error) {
	p.wmu.Lock()
	defer p.wmu.Unlock()

	st, err := p.store.Snapshot(ctx)
	if err != nil {
		return Item{}, err
	}
	if index < 0 || index >= len(st.Primary) {
		return Item{}, fmt.Errorf("%w: index=%d len=%d", ErrIndexOutOfRange, index, len(st.Primary))
	}
	return p.adjustLocked(ctx, st.Primary[index].ID, delta)
}

func (p *Provider) adjustLocked(ctx context.Context, id string, delta int64) (Item, error) {
	it, version, err := p.store.AdjustPrice(ctx, id, delta)
	if err != nil {
		p.log.Debug("price adjustment rejected",
			zap.String("id", id),
			zap.Int64("delta", delta),
			zap.Error(err),
		)
		return Item{}, err
	}

	if p.metrics != nil {
		p.metrics.Adjustments.WithLabelValues(direction(delta)).Inc()
	}
	p.log.Debug("price adjusted",
		zap.String("id", it.ID),
		zap.String("name", it.Name),
		zap.Int64("price", it.Price),
		zap.Uint64("version", version),
	)

	st, err := p.store.Snapshot(ctx)
	if err != nil {
		p.log.Error("snapshot after adjustment failed", zap.Error(err), zap.Uint64("version", version))
		return it, nil
	}
	p.hub.Publish(st)
	return it, nil
}
