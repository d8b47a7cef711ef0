package domain

import "testing"

func TestStageOrderIsFixed(t *testing.T) {
	ordered := []string{
		StageNewRequest, StageNeedsInfo, StageFindingSuppliers, StageQuotesInProgress,
		StageSelectingQuote, StagePurchaseInProgress, StageDelivered, StageClosed,
	}
	for i, stage := range ordered {
		if got := StageIndex(stage); got != i {
			t.Errorf("StageIndex(%q) = %d, want %d", stage, got, i)
		}
	}
	if StageIndex("unknown") != -1 {
		t.Error("unknown stage must index -1")
	}
}

func TestStatusForStage(t *testing.T) {
	cases := map[string]string{
		StageNewRequest:         StatusNewRequest,
		StageNeedsInfo:          StatusIncompleteInformation,
		StageFindingSuppliers:   StatusReadyForMatching,
		StageQuotesInProgress:   StatusRFQSent,
		StageSelectingQuote:     StatusQuotesReceived,
		StagePurchaseInProgress: StatusPOCreated,
		StageDelivered:          StatusDelivered,
		StageClosed:             StatusClosed,
	}
	for stage, want := range cases {
		if got := StatusForStage(stage); got != want {
			t.Errorf("StatusForStage(%q) = %q, want %q", stage, got, want)
		}
	}
}

func TestValidateManualMove(t *testing.T) {
	cases := []struct {
		name          string
		from, to      string
		allowBackward bool
		valid         bool
	}{
		{"forward", StageNewRequest, StageFindingSuppliers, false, true},
		{"forward skip", StageNewRequest, StageDelivered, false, true},
		{"backward without override", StageSelectingQuote, StageNeedsInfo, false, false},
		{"backward with override", StageSelectingQuote, StageNeedsInfo, true, true},
		{"same stage", StageNeedsInfo, StageNeedsInfo, true, false},
		{"from closed", StageClosed, StageNewRequest, true, false},
		{"unknown target", StageNewRequest, "archived", true, false},
		{"close manually", StageDelivered, StageClosed, false, true},
	}
	for _, tc := range cases {
		reason := ValidateManualMove(tc.from, tc.to, tc.allowBackward)
		if tc.valid && reason != "" {
			t.Errorf("%s: unexpected rejection %q", tc.name, reason)
		}
		if !tc.valid && reason == "" {
			t.Errorf("%s: move %s -> %s should be rejected", tc.name, tc.from, tc.to)
		}
	}
}

func TestDetectUrgency(t *testing.T) {
	cases := []struct {
		content string
		want    string
	}{
		{"necesito 100 tornillos URGENTE", UrgencyUrgent},
		{"lo necesito hoy mismo por favor", UrgencyUrgent},
		{"need this asap", UrgencyUrgent},
		{"lo ocupo esta semana", UrgencyHigh},
		{"es de alta prioridad", UrgencyHigh},
		{"necesito 100 tornillos", UrgencyNormal},
		{"", UrgencyNormal},
	}
	for _, tc := range cases {
		if got := DetectUrgency(tc.content); got != tc.want {
			t.Errorf("DetectUrgency(%q) = %q, want %q", tc.content, got, tc.want)
		}
	}
}

func TestCoerceAction(t *testing.T) {
	cases := map[string]string{
		"keep":       ActionKeep,
		"  Close  ":  ActionClose,
		"DELETE":     ActionDelete,
		"merge":      ActionMerge,
		"create_new": ActionCreateNew,
		"escalate":   ActionKeep,
		"":           ActionKeep,
	}
	for raw, want := range cases {
		if got := CoerceAction(raw); got != want {
			t.Errorf("CoerceAction(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestIsKnownSource(t *testing.T) {
	for _, source := range []string{SourceWhatsApp, SourceEmail, SourceWeb, SourceAPI} {
		if !IsKnownSource(source) {
			t.Errorf("IsKnownSource(%q) = false", source)
		}
	}
	if IsKnownSource("fax") || IsKnownSource("") {
		t.Error("unknown sources must be rejected")
	}
}
