package app

import (
	"context"
	"time"

	"github.com/Blaze-0903/NextStepAI/internal/domain/pending"
	"github.com/Blaze-0903/NextStepAI/internal/infrastructure/cache"
	"github.com/Blaze-0903/NextStepAI/internal/ws"

	"go.uber.org/zap"
)

// eventNotifier fans workflow events out to admin websockets and, for
// ontology changes, to the other replicas over Redis.
type eventNotifier struct {
	push   *ws.Notifier
	bus    *cache.Redis
	origin string
	logger *zap.Logger
}

func (n *eventNotifier) PendingCreated(ctx context.Context, updates []pending.Update) {
	n.push.PendingCreated(ctx, updates)
}

func (n *eventNotifier) Reviewed(ctx context.Context, u pending.Update) {
	n.push.Reviewed(ctx, u)
}

func (n *eventNotifier) OntologyChanged(ctx context.Context, version int64) {
	n.push.OntologyChanged(ctx, version)
	msg := cache.ReloadMessage{Origin: n.origin, Version: version, SentAt: time.Now().UTC()}
	if err := n.bus.PublishReload(ctx, msg); err != nil {
		n.logger.Warn("reload broadcast failed", zap.Int64("version", version), zap.Error(err))
	}
}
