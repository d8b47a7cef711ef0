package channels

import (
	"context"
	"errors"

	"procurement_backend/internal/requests/repository"
	"procurement_backend/platform/logger"

	"github.com/google/uuid"
)

// ErrNoChannel is returned when no configured channel matches a message.
var ErrNoChannel = errors.New("no channel configured for message")

// drainBatchSize caps one sweep of the outbound queue.
const drainBatchSize = 50

// Dispatcher delivers queued outbound messages through the configured
// channels and marks them processed on success. Failed sends stay queued and
// are retried by the next sweep.
type Dispatcher struct {
	store    repository.Store
	channels map[string]MessageChannel
	log      *logger.Logger
}

// NewDispatcher creates a dispatcher. Nil channels are skipped, so partially
// configured deployments (no SMTP, no bridge) degrade per channel.
func NewDispatcher(store repository.Store, log *logger.Logger, chans ...MessageChannel) *Dispatcher {
	byName := make(map[string]MessageChannel, len(chans))
	for _, ch := range chans {
		if ch == nil || isNilChannel(ch) {
			continue
		}
		byName[ch.Name()] = ch
	}
	return &Dispatcher{store: store, channels: byName, log: log}
}

// Dispatch delivers one queued message by id.
func (d *Dispatcher) Dispatch(ctx context.Context, messageID uuid.UUID) error {
	msg, err := d.store.GetMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.Processed == nil || *msg.Processed {
		return nil
	}
	return d.deliver(ctx, msg)
}

// DrainOutbound delivers all unprocessed outbound messages, oldest first.
// Returns how many were delivered.
func (d *Dispatcher) DrainOutbound(ctx context.Context) (int, error) {
	messages, err := d.store.ListUnprocessedOutbound(ctx, drainBatchSize)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, msg := range messages {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if err := d.deliver(ctx, msg); err != nil {
			d.log.Warn("outbound delivery failed, message stays queued",
				"error", err, "messageId", msg.ID, "channel", msg.Channel)
			continue
		}
		sent++
	}
	return sent, nil
}

func (d *Dispatcher) deliver(ctx context.Context, msg repository.Message) error {
	channel, ok := d.channels[msg.Channel]
	if !ok {
		return ErrNoChannel
	}

	result, err := channel.Send(ctx, msg.SenderIdentity, msg.Content)
	if err != nil {
		return err
	}
	return d.store.MarkOutboundProcessed(ctx, msg.ID, result.ProviderMessageID)
}

// isNilChannel catches typed nils from constructors that return nil pointers.
func isNilChannel(ch MessageChannel) bool {
	switch v := ch.(type) {
	case *WhatsAppChannel:
		return v == nil
	case *EmailChannel:
		return v == nil
	}
	return false
}
