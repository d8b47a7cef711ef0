package scheduler

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
)

type stubSchedulerConfig struct {
	redisURL string
	queue    string
}

func (c stubSchedulerConfig) GetRedisURL() string       { return c.redisURL }
func (c stubSchedulerConfig) GetAsynqQueueName() string { return c.queue }
func (c stubSchedulerConfig) GetAsynqConcurrency() int  { return 1 }

func TestNewClientRequiresRedisURL(t *testing.T) {
	if _, err := NewClient(stubSchedulerConfig{}); err == nil {
		t.Fatal("expected an error without REDIS_URL")
	}
}

func TestNewClientRejectsMalformedURL(t *testing.T) {
	if _, err := NewClient(stubSchedulerConfig{redisURL: "not-a-url"}); err == nil {
		t.Fatal("expected an error for a malformed redis url")
	}
}

func TestEnqueueOutboundDispatch(t *testing.T) {
	srv := miniredis.RunT(t)

	client, err := NewClient(stubSchedulerConfig{redisURL: "redis://" + srv.Addr(), queue: "outbound"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer client.Close()

	if err := client.EnqueueOutboundDispatch(context.Background(), uuid.New()); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	// asynq stores pending task ids in the queue's pending list.
	pending, err := srv.List("asynq:{outbound}:pending")
	if err != nil {
		t.Fatalf("read pending list: %v", err)
	}
	if len(pending) != 1 {
		t.Errorf("pending tasks = %d, want 1", len(pending))
	}
}

func TestNilClientIsNoOp(t *testing.T) {
	var client *Client
	if err := client.EnqueueOutboundDispatch(context.Background(), uuid.New()); err != nil {
		t.Errorf("nil client enqueue: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("nil client close: %v", err)
	}
}

func TestOutboundDispatchPayloadRoundTrip(t *testing.T) {
	id := uuid.New()
	task, err := NewOutboundDispatchTask(OutboundDispatchPayload{MessageID: id.String()})
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if task.Type() != TaskOutboundDispatch {
		t.Errorf("task type = %q", task.Type())
	}

	payload, err := ParseOutboundDispatchPayload(task)
	if err != nil {
		t.Fatalf("parse payload: %v", err)
	}
	if payload.MessageID != id.String() {
		t.Errorf("message id = %q, want %q", payload.MessageID, id)
	}
}
