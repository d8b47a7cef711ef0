package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store is the persistence contract for the requests bounded context.
// The pgx Repository implements it; tests substitute in-memory fakes.
type Store interface {
	CreateRequestWithMessage(ctx context.Context, req *Request, msg *Message) error
	GetRequest(ctx context.Context, id uuid.UUID) (Request, error)
	ListRequests(ctx context.Context, filter ListFilter) ([]Request, error)
	UpdateContent(ctx context.Context, id uuid.UUID, rawContent string, fields map[string]string, category *string, urgency string) error
	UpdateStageStatus(ctx context.Context, id uuid.UUID, stage, status string) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	ListSiblings(ctx context.Context, req Request) ([]Request, error)
	FindCandidate(ctx context.Context, clientID *uuid.UUID, channel, senderIdentity string, since time.Time) (*Request, error)

	FindMessageByExternal(ctx context.Context, channel, externalID string) (*Message, error)
	InsertMessage(ctx context.Context, msg *Message) error
	ListMessages(ctx context.Context, requestID uuid.UUID) ([]Message, error)
	LastInboundContents(ctx context.Context, requestID uuid.UUID, limit int) ([]string, error)

	QueueOutbound(ctx context.Context, msg *Message) error
	GetMessage(ctx context.Context, id uuid.UUID) (Message, error)
	ListUnprocessedOutbound(ctx context.Context, limit int) ([]Message, error)
	MarkOutboundProcessed(ctx context.Context, id uuid.UUID, providerMessageID string) error

	AppendTimeline(ctx context.Context, event *TimelineEvent) error
	ListTimeline(ctx context.Context, requestID uuid.UUID) ([]TimelineEvent, error)
}
