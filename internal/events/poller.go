package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/Roseyco-management/puxxireland-sub001/internal/cache"
	"github.com/segmentio/kafka-go"
)

// Poller consumes cart-change events and evicts the local cache entry for
// each changed cart. Every cartd instance runs its own consumer group so the
// eviction reaches all of them.
type Poller struct {
	cache  cache.CartCache
	reader *kafka.Reader
	log    *slog.Logger
}

func NewPoller(cartCache cache.CartCache, log *slog.Logger, groupID string, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    Topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
	return &Poller{cache: cartCache, reader: reader, log: log}
}

func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		p.processMessage(ctx)
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.log.Error("error closing kafka reader", "error", err)
	}
}

func (p *Poller) processMessage(ctx context.Context) {
	m, err := p.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		p.log.Error("error reading message", "error", err)
		return
	}

	p.handle(ctx, m.Value)
}

func (p *Poller) handle(ctx context.Context, value []byte) {
	var event CartEvent
	if err := json.Unmarshal(value, &event); err != nil {
		p.log.Error("error parsing cart event", "error", err)
		return
	}
	if event.CartID == "" {
		p.log.Warn("cart event without cart_id, skipping")
		return
	}

	if err := p.cache.Delete(ctx, event.CartID); err != nil {
		p.log.Error("failed to evict cached cart", "cart_id", event.CartID, "error", err)
		return
	}

	p.log.Debug("evicted cached cart", "cart_id", event.CartID, "action", event.Action, "version", event.Version)
}
