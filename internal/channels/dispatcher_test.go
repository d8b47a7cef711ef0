package channels

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"procurement_backend/internal/requests/repository"
	"procurement_backend/platform/logger"

	"github.com/google/uuid"
)

func testLogger() *logger.Logger {
	return &logger.Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// outboundStore fakes only the queue operations the dispatcher touches.
type outboundStore struct {
	repository.Store
	messages map[uuid.UUID]*repository.Message
}

func newOutboundStore(msgs ...*repository.Message) *outboundStore {
	store := &outboundStore{messages: make(map[uuid.UUID]*repository.Message)}
	for _, msg := range msgs {
		store.messages[msg.ID] = msg
	}
	return store
}

func (s *outboundStore) GetMessage(_ context.Context, id uuid.UUID) (repository.Message, error) {
	msg, ok := s.messages[id]
	if !ok {
		return repository.Message{}, repository.ErrNotFound
	}
	return *msg, nil
}

func (s *outboundStore) ListUnprocessedOutbound(_ context.Context, limit int) ([]repository.Message, error) {
	var out []repository.Message
	for _, msg := range s.messages {
		if msg.Direction == "outbound" && msg.Processed != nil && !*msg.Processed {
			out = append(out, *msg)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *outboundStore) MarkOutboundProcessed(_ context.Context, id uuid.UUID, providerMessageID string) error {
	msg, ok := s.messages[id]
	if !ok {
		return repository.ErrNotFound
	}
	processed := true
	msg.Processed = &processed
	if providerMessageID != "" {
		msg.ExternalID = &providerMessageID
	}
	return nil
}

type fakeChannel struct {
	name       string
	err        error
	providerID string
	sent       []string
}

func (c *fakeChannel) Name() string { return c.name }

func (c *fakeChannel) Send(_ context.Context, to, _ string) (SendResult, error) {
	if c.err != nil {
		return SendResult{}, c.err
	}
	c.sent = append(c.sent, to)
	return SendResult{Success: true, ProviderMessageID: c.providerID}, nil
}

func queuedMessage(channel string) *repository.Message {
	processed := false
	return &repository.Message{
		ID:             uuid.New(),
		RequestID:      uuid.New(),
		Direction:      "outbound",
		Channel:        channel,
		SenderIdentity: "+5215512345678",
		Content:        "Para avanzar con tu solicitud necesitamos: cantidad.",
		Processed:      &processed,
	}
}

func TestDispatchDeliversAndMarksProcessed(t *testing.T) {
	msg := queuedMessage("whatsapp")
	store := newOutboundStore(msg)
	channel := &fakeChannel{name: "whatsapp", providerID: "wamid.out.1"}
	dispatcher := NewDispatcher(store, testLogger(), channel)

	if err := dispatcher.Dispatch(context.Background(), msg.ID); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(channel.sent) != 1 || channel.sent[0] != msg.SenderIdentity {
		t.Errorf("sent = %v", channel.sent)
	}
	if msg.Processed == nil || !*msg.Processed {
		t.Error("message must be marked processed")
	}
	if msg.ExternalID == nil || *msg.ExternalID != "wamid.out.1" {
		t.Errorf("provider id not stored: %v", msg.ExternalID)
	}
}

func TestDispatchSkipsAlreadyProcessed(t *testing.T) {
	msg := queuedMessage("whatsapp")
	processed := true
	msg.Processed = &processed
	channel := &fakeChannel{name: "whatsapp"}
	dispatcher := NewDispatcher(newOutboundStore(msg), testLogger(), channel)

	if err := dispatcher.Dispatch(context.Background(), msg.ID); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(channel.sent) != 0 {
		t.Error("processed message must not be resent")
	}
}

func TestDispatchUnconfiguredChannel(t *testing.T) {
	msg := queuedMessage("email")
	dispatcher := NewDispatcher(newOutboundStore(msg), testLogger(), &fakeChannel{name: "whatsapp"})

	if err := dispatcher.Dispatch(context.Background(), msg.ID); !errors.Is(err, ErrNoChannel) {
		t.Errorf("err = %v, want ErrNoChannel", err)
	}
}

func TestDrainOutboundKeepsFailuresQueued(t *testing.T) {
	ok1 := queuedMessage("whatsapp")
	ok2 := queuedMessage("whatsapp")
	failing := queuedMessage("email")
	store := newOutboundStore(ok1, ok2, failing)

	dispatcher := NewDispatcher(store, testLogger(),
		&fakeChannel{name: "whatsapp"},
		&fakeChannel{name: "email", err: errors.New("smtp down")},
	)

	sent, err := dispatcher.DrainOutbound(context.Background())
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if sent != 2 {
		t.Errorf("sent = %d, want 2", sent)
	}
	if failing.Processed == nil || *failing.Processed {
		t.Error("failed delivery must stay queued for the next sweep")
	}
}

func TestNewDispatcherSkipsNilChannels(t *testing.T) {
	var nilWA *WhatsAppChannel
	var nilEmail *EmailChannel
	dispatcher := NewDispatcher(newOutboundStore(), testLogger(), nilWA, nilEmail, nil)

	if len(dispatcher.channels) != 0 {
		t.Errorf("channels = %d, typed nils must be skipped", len(dispatcher.channels))
	}
}
