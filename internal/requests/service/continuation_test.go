package service

import (
	"context"
	"errors"
	"testing"

	"procurement_backend/internal/ai"
)

type stubClassifier struct {
	decision    ai.ContinuationDecision
	err         error
	gotHistory  []string
	gotNewText  string
	invocations int
}

func (s *stubClassifier) ClassifyContinuation(_ context.Context, history []string, newText string) (ai.ContinuationDecision, error) {
	s.invocations++
	s.gotHistory = history
	s.gotNewText = newText
	return s.decision, s.err
}

func TestResolveWithoutClassifierUsesDefaultPolicy(t *testing.T) {
	resolver := NewContinuationResolver(nil, testLogger())

	decision := resolver.Resolve(context.Background(), []string{"msg"}, "otra cosa")
	if !decision.IsContinuation {
		t.Error("default policy must favor continuation")
	}
	if decision.Confidence != defaultContinuationConfidence {
		t.Errorf("confidence = %v, want %v", decision.Confidence, defaultContinuationConfidence)
	}
}

func TestResolveClassifierErrorFallsBack(t *testing.T) {
	classifier := &stubClassifier{err: errors.New("api unavailable")}
	resolver := NewContinuationResolver(classifier, testLogger())

	decision := resolver.Resolve(context.Background(), nil, "texto")
	if !decision.IsContinuation || decision.Confidence != defaultContinuationConfidence {
		t.Errorf("fallback decision = %+v", decision)
	}
}

func TestResolveClampsConfidence(t *testing.T) {
	classifier := &stubClassifier{decision: ai.ContinuationDecision{IsContinuation: false, Confidence: 1.7}}
	resolver := NewContinuationResolver(classifier, testLogger())

	decision := resolver.Resolve(context.Background(), nil, "texto")
	if decision.IsContinuation {
		t.Error("classifier verdict must be respected")
	}
	if decision.Confidence != 1 {
		t.Errorf("confidence = %v, want clamped to 1", decision.Confidence)
	}
	if decision.Reason == "" {
		t.Error("empty reason must get a default")
	}
}

func TestResolveTrimsHistory(t *testing.T) {
	classifier := &stubClassifier{decision: ai.ContinuationDecision{IsContinuation: true, Confidence: 0.9, Reason: "same topic"}}
	resolver := NewContinuationResolver(classifier, testLogger())

	history := make([]string, 25)
	for i := range history {
		history[i] = "mensaje"
	}
	history[24] = "ultimo"

	resolver.Resolve(context.Background(), history, "texto")
	if len(classifier.gotHistory) != classifierHistoryLimit {
		t.Fatalf("history handed to classifier = %d entries, want %d", len(classifier.gotHistory), classifierHistoryLimit)
	}
	if classifier.gotHistory[len(classifier.gotHistory)-1] != "ultimo" {
		t.Error("trimming must keep the most recent messages")
	}
}
