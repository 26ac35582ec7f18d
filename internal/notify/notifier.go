// Package notify implements the post-commit change-notification hook.
// Services call the Notifier after every successful entry mutation; the
// signal is fire-and-forget and carries no guarantee beyond "something
// changed".
package notify

import (
	"context"
	"encoding/json"

	"github.com/presenze/apiserver/internal/mq"
	"github.com/rs/zerolog"
)

// Notifier receives a signal after a committed entry mutation.
type Notifier interface {
	EntriesChanged(ctx context.Context, op, ref string)
}

// Noop discards all notifications. Used when no broker is configured.
type Noop struct{}

func (Noop) EntriesChanged(context.Context, string, string) {}

// Publisher forwards change signals to a broker channel.
type Publisher struct {
	backend mq.Backend
	channel string
	log     zerolog.Logger
}

func NewPublisher(backend mq.Backend, channel string, log zerolog.Logger) *Publisher {
	return &Publisher{backend: backend, channel: channel, log: log}
}

// EntriesChanged publishes the change event. Publish failures are logged
// and never surfaced to the request that triggered them; the mutation has
// already committed.
func (p *Publisher) EntriesChanged(ctx context.Context, op, ref string) {
	// The mutation outlives the request, so the publish should too.
	ctx = context.WithoutCancel(ctx)

	payload, _ := json.Marshal(map[string]string{"type": "entries_changed"})
	attrs := map[string]string{"op": op, "ref": ref}
	if _, err := p.backend.Publish(ctx, p.channel, payload, attrs); err != nil {
		p.log.Warn().Err(err).Str("op", op).Msg("change notification dropped")
	}
}
