package cache

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

const ReloadChannel = "nextstep:ontology:reload"

// ReloadMessage tells other replicas that the backing ontology changed.
type ReloadMessage struct {
	Origin  string    `json:"origin"`
	Version int64     `json:"version"`
	SentAt  time.Time `json:"sent_at"`
}

// PublishReload announces a local ontology change. It is a no-op without a
// server.
func (r *Redis) PublishReload(ctx context.Context, msg ReloadMessage) error {
	if !r.Available() {
		return nil
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, ReloadChannel, b).Err(); err != nil {
		r.warnUnavailableOnce(err)
		return err
	}
	return nil
}

// SubscribeReload calls fn for every reload announced by a replica other than
// origin. It blocks until ctx is done.
func (r *Redis) SubscribeReload(ctx context.Context, origin string, fn func(context.Context, ReloadMessage)) error {
	if !r.Available() {
		return ErrUnavailable
	}
	sub := r.client.Subscribe(ctx, ReloadChannel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	r.logger.Info("subscribed to ontology reload channel", zap.String("channel", ReloadChannel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var msg ReloadMessage
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				r.logger.Warn("malformed reload message", zap.String("payload", m.Payload), zap.Error(err))
				continue
			}
			if msg.Origin == origin {
				continue
			}
			fn(ctx, msg)
		}
	}
}
