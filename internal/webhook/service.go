package webhook

import (
	"context"

	requestsvc "procurement_backend/internal/requests/service"
	"procurement_backend/platform/logger"
)

// Ingestor turns normalized envelopes into ledger state.
// Satisfied by the requests ledger service.
type Ingestor interface {
	Ingest(ctx context.Context, in requestsvc.InboundMessage) (requestsvc.IngestResult, error)
}

// Service normalizes provider payloads and hands them to the ledger.
type Service struct {
	ingestor Ingestor
	log      *logger.Logger
}

// NewService creates a new webhook service.
func NewService(ingestor Ingestor, log *logger.Logger) *Service {
	return &Service{ingestor: ingestor, log: log}
}

// IngestEnvelope forwards one normalized envelope to the ledger.
func (s *Service) IngestEnvelope(ctx context.Context, env Envelope) (requestsvc.IngestResult, error) {
	return s.ingestor.Ingest(ctx, requestsvc.InboundMessage{
		Channel:        env.Channel,
		ExternalID:     env.ExternalID,
		SenderIdentity: env.SenderIdentity,
		Content:        env.Content,
		Timestamp:      env.Timestamp,
		Attachments:    env.Attachments,
	})
}

// IngestBatch forwards a batch of envelopes, continuing past per-message
// failures so one bad message cannot block a provider batch.
func (s *Service) IngestBatch(ctx context.Context, envelopes []Envelope) []requestsvc.IngestResult {
	results := make([]requestsvc.IngestResult, 0, len(envelopes))
	for _, env := range envelopes {
		result, err := s.IngestEnvelope(ctx, env)
		if err != nil {
			s.log.Error("webhook ingestion failed", "error", err,
				"channel", env.Channel, "externalId", env.ExternalID)
			continue
		}
		results = append(results, result)
	}
	return results
}
