package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"procurement_backend/internal/ai"
	"procurement_backend/internal/events"
	"procurement_backend/internal/requests/domain"
	"procurement_backend/internal/requests/repository"
	"procurement_backend/platform/apperr"

	"github.com/google/uuid"
)

func newTestLedger(store repository.Store, classifier ai.ContinuationClassifier, bus events.Bus) *LedgerService {
	log := testLogger()
	completeness := NewCompletenessEngine(herramientasRules(), nil, log)
	automation := NewAutomationEngine(store, completeness, &fakeRFQ{}, &fakePO{}, bus, 0.8, log)
	resolver := NewContinuationResolver(classifier, log)
	return NewLedgerService(store, nil, resolver, completeness, automation, nil, bus, time.Hour, log)
}

func inbound(externalID, content string) InboundMessage {
	return InboundMessage{
		Channel:        domain.SourceWhatsApp,
		ExternalID:     externalID,
		SenderIdentity: "+5215512345678",
		Content:        content,
	}
}

func TestIngestRejectsUnknownChannel(t *testing.T) {
	ledger := newTestLedger(newMemStore(), nil, &recordingBus{})

	_, err := ledger.Ingest(context.Background(), InboundMessage{Channel: "fax", ExternalID: "x", Content: "hola"})
	if !apperr.Is(err, apperr.KindBadRequest) {
		t.Errorf("err = %v, want bad request", err)
	}
}

func TestIngestRequiresExternalID(t *testing.T) {
	ledger := newTestLedger(newMemStore(), nil, &recordingBus{})

	_, err := ledger.Ingest(context.Background(), InboundMessage{Channel: domain.SourceWhatsApp, ExternalID: "  ", Content: "hola"})
	if !apperr.Is(err, apperr.KindBadRequest) {
		t.Errorf("err = %v, want bad request", err)
	}
}

func TestIngestOpensRequestAndQueuesClarification(t *testing.T) {
	store := newMemStore()
	bus := &recordingBus{}
	ledger := newTestLedger(store, nil, bus)

	result, err := ledger.Ingest(context.Background(), inbound("wamid.1", "necesito tornillos urgente"))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if result.Duplicate || result.Continuation {
		t.Errorf("result = %+v, want fresh request", result)
	}
	if result.Stage != domain.StageNeedsInfo {
		t.Errorf("stage = %q, want needs_info after automation", result.Stage)
	}

	req, err := store.GetRequest(context.Background(), result.RequestID)
	if err != nil {
		t.Fatalf("get request: %v", err)
	}
	if req.Category == nil || *req.Category != "herramientas" {
		t.Errorf("category = %v, want herramientas", req.Category)
	}
	if req.Urgency != domain.UrgencyUrgent {
		t.Errorf("urgency = %q, want urgent", req.Urgency)
	}

	outbound := store.outboundMessages(result.RequestID)
	if len(outbound) != 1 {
		t.Fatalf("outbound messages = %d, want 1 clarification", len(outbound))
	}
	if !strings.Contains(outbound[0].Content, "cantidad") || !strings.Contains(outbound[0].Content, "unidad") {
		t.Errorf("clarification = %q, must name the missing fields", outbound[0].Content)
	}
	if outbound[0].Processed == nil || *outbound[0].Processed {
		t.Error("clarification must stay queued until delivery")
	}

	if got := bus.named("requests.created"); len(got) != 1 {
		t.Errorf("requests.created events = %d, want 1", len(got))
	}
	if got := bus.named("requests.outbound.queued"); len(got) != 1 {
		t.Errorf("outbound.queued events = %d, want 1", len(got))
	}
	if got := store.timelineEvents(result.RequestID, repository.TimelineClarification); len(got) != 1 {
		t.Errorf("clarification timeline entries = %d, want 1", len(got))
	}
}

func TestIngestCompleteRequestSkipsClarification(t *testing.T) {
	store := newMemStore()
	ledger := newTestLedger(store, nil, &recordingBus{})

	result, err := ledger.Ingest(context.Background(), inbound("wamid.1", "necesito 100 piezas de tornillos"))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if result.Stage != domain.StageFindingSuppliers {
		t.Errorf("stage = %q, want finding_suppliers", result.Stage)
	}
	if got := store.outboundMessages(result.RequestID); len(got) != 0 {
		t.Errorf("outbound messages = %d, want none", len(got))
	}
}

func TestIngestIsIdempotentOnExternalID(t *testing.T) {
	store := newMemStore()
	ledger := newTestLedger(store, nil, &recordingBus{})

	first, err := ledger.Ingest(context.Background(), inbound("wamid.1", "necesito tornillos"))
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}

	second, err := ledger.Ingest(context.Background(), inbound("wamid.1", "necesito tornillos"))
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if !second.Duplicate {
		t.Error("redelivery must report duplicate")
	}
	if second.RequestID != first.RequestID || second.MessageID != first.MessageID {
		t.Errorf("redelivery result %+v does not match original %+v", second, first)
	}

	messages, _ := store.ListMessages(context.Background(), first.RequestID)
	inboundCount := 0
	for _, msg := range messages {
		if msg.Direction == domain.DirectionInbound {
			inboundCount++
		}
	}
	if inboundCount != 1 {
		t.Errorf("inbound messages = %d, want 1", inboundCount)
	}
}

func TestIngestContinuationAttachesToOpenRequest(t *testing.T) {
	store := newMemStore()
	bus := &recordingBus{}
	ledger := newTestLedger(store, nil, bus)

	first, err := ledger.Ingest(context.Background(), inbound("wamid.1", "necesito tornillos"))
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}

	second, err := ledger.Ingest(context.Background(), inbound("wamid.2", "son 100 piezas"))
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if !second.Continuation {
		t.Fatal("follow-up from same sender within window must attach")
	}
	if second.RequestID != first.RequestID {
		t.Errorf("attached to %v, want %v", second.RequestID, first.RequestID)
	}

	// The follow-up completed the request: quantity and unit are now known.
	if second.Stage != domain.StageFindingSuppliers {
		t.Errorf("stage = %q, want finding_suppliers after completion", second.Stage)
	}

	req, _ := store.GetRequest(context.Background(), first.RequestID)
	if !strings.Contains(req.RawContent, "necesito tornillos") || !strings.Contains(req.RawContent, "son 100 piezas") {
		t.Errorf("raw content = %q, must accumulate both messages", req.RawContent)
	}
	if req.ExtractedFields["quantity"] != "100" {
		t.Errorf("extracted quantity = %q, want 100", req.ExtractedFields["quantity"])
	}

	if got := bus.named("requests.message.ingested"); len(got) != 1 {
		t.Errorf("message.ingested events = %d, want 1", len(got))
	}
}

func TestIngestContinuationKeepsSubstringFollowUp(t *testing.T) {
	store := newMemStore()
	ledger := newTestLedger(store, nil, &recordingBus{})

	first, err := ledger.Ingest(context.Background(), inbound("wamid.1", "necesito tornillos"))
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}

	// "si" is a substring of the accumulated text; it must still be appended.
	second, err := ledger.Ingest(context.Background(), inbound("wamid.2", "si"))
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if !second.Continuation || second.RequestID != first.RequestID {
		t.Fatalf("follow-up result = %+v, want continuation on %v", second, first.RequestID)
	}

	req, _ := store.GetRequest(context.Background(), first.RequestID)
	if req.RawContent != "necesito tornillos\nsi" {
		t.Errorf("raw content = %q, want both messages concatenated", req.RawContent)
	}
}

func TestIngestOpensNewRequestWhenClassifierDeclines(t *testing.T) {
	store := newMemStore()
	classifier := &stubClassifier{decision: ai.ContinuationDecision{IsContinuation: false, Confidence: 0.9, Reason: "different need"}}
	ledger := newTestLedger(store, classifier, &recordingBus{})

	first, err := ledger.Ingest(context.Background(), inbound("wamid.1", "necesito 100 piezas de tornillos"))
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}

	second, err := ledger.Ingest(context.Background(), inbound("wamid.2", "ahora necesito papeleria"))
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if second.Continuation {
		t.Error("classifier said no, a new request must open")
	}
	if second.RequestID == first.RequestID {
		t.Error("new request must not reuse the candidate")
	}

	all, _ := store.ListRequests(context.Background(), repository.ListFilter{})
	if len(all) != 2 {
		t.Errorf("requests = %d, want 2", len(all))
	}
}

func TestRunAutomationUnknownRequest(t *testing.T) {
	ledger := newTestLedger(newMemStore(), nil, &recordingBus{})

	_, err := ledger.RunAutomation(context.Background(), uuid.New())
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}
