// Package domain provides core business rules for the requests bounded context.
package domain

import "strings"

// Pipeline stages, in workflow order. Closed is terminal.
const (
	StageNewRequest         = "new_request"
	StageNeedsInfo          = "needs_info"
	StageFindingSuppliers   = "finding_suppliers"
	StageQuotesInProgress   = "quotes_in_progress"
	StageSelectingQuote     = "selecting_quote"
	StagePurchaseInProgress = "purchase_in_progress"
	StageDelivered          = "delivered"
	StageClosed             = "closed"
)

// Request statuses.
const (
	StatusNewRequest            = "new_request"
	StatusIncompleteInformation = "incomplete_information"
	StatusReadyForMatching      = "ready_for_supplier_matching"
	StatusRFQSent               = "rfq_sent"
	StatusQuotesReceived        = "quotes_received"
	StatusPOCreated             = "po_created"
	StatusDelivered             = "delivered"
	StatusClosed                = "closed"
	StatusCancelled             = "cancelled"
)

// stageOrder fixes the forward direction of the pipeline.
var stageOrder = []string{
	StageNewRequest,
	StageNeedsInfo,
	StageFindingSuppliers,
	StageQuotesInProgress,
	StageSelectingQuote,
	StagePurchaseInProgress,
	StageDelivered,
	StageClosed,
}

// stageStatus is the fixed stage -> status mapping applied on every transition.
var stageStatus = map[string]string{
	StageNewRequest:         StatusNewRequest,
	StageNeedsInfo:          StatusIncompleteInformation,
	StageFindingSuppliers:   StatusReadyForMatching,
	StageQuotesInProgress:   StatusRFQSent,
	StageSelectingQuote:     StatusQuotesReceived,
	StagePurchaseInProgress: StatusPOCreated,
	StageDelivered:          StatusDelivered,
	StageClosed:             StatusClosed,
}

var knownStatuses = map[string]struct{}{
	StatusNewRequest:            {},
	StatusIncompleteInformation: {},
	StatusReadyForMatching:      {},
	StatusRFQSent:               {},
	StatusQuotesReceived:        {},
	StatusPOCreated:             {},
	StatusDelivered:             {},
	StatusClosed:                {},
	StatusCancelled:             {},
}

// StageIndex returns the position of a stage in the workflow order, or -1.
func StageIndex(stage string) int {
	for i, s := range stageOrder {
		if s == stage {
			return i
		}
	}
	return -1
}

// IsKnownStage reports whether stage is a valid pipeline stage.
func IsKnownStage(stage string) bool {
	return StageIndex(stage) >= 0
}

// IsKnownStatus reports whether status is a valid request status.
func IsKnownStatus(status string) bool {
	_, ok := knownStatuses[status]
	return ok
}

// IsTerminalStage reports whether no automatic transition may leave the stage.
func IsTerminalStage(stage string) bool {
	return stage == StageClosed
}

// StatusForStage returns the status paired with a stage per the fixed mapping.
func StatusForStage(stage string) string {
	return stageStatus[stage]
}

// ValidateManualMove checks a manual stage override. Moving backward requires
// the explicit override flag; automation never moves backward. Returns a
// non-empty reason when the move is invalid.
func ValidateManualMove(from, to string, allowBackward bool) string {
	fromIdx, toIdx := StageIndex(from), StageIndex(to)
	if toIdx < 0 {
		return "unknown pipeline stage: " + to
	}
	if fromIdx < 0 {
		return "request has unknown pipeline stage: " + from
	}
	if IsTerminalStage(from) {
		return "request is closed"
	}
	if toIdx == fromIdx {
		return "request is already in stage " + to
	}
	if toIdx < fromIdx && !allowBackward {
		return "moving backward requires an explicit override"
	}
	return ""
}

// Message sources and directions.
const (
	SourceWhatsApp = "whatsapp"
	SourceEmail    = "email"
	SourceWeb      = "web"
	SourceAPI      = "api"

	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// IsKnownSource reports whether a channel/source identifier is supported.
func IsKnownSource(source string) bool {
	switch source {
	case SourceWhatsApp, SourceEmail, SourceWeb, SourceAPI:
		return true
	}
	return false
}

// Urgency levels.
const (
	UrgencyLow    = "low"
	UrgencyNormal = "normal"
	UrgencyHigh   = "high"
	UrgencyUrgent = "urgent"
)

var urgentMarkers = []string{"urgente", "urgent", "hoy mismo", "lo antes posible", "asap"}
var highMarkers = []string{"esta semana", "pronto", "prioridad"}

// DetectUrgency derives an urgency level from message content keywords.
// Defaults to normal.
func DetectUrgency(content string) string {
	lowered := strings.ToLower(content)
	for _, marker := range urgentMarkers {
		if strings.Contains(lowered, marker) {
			return UrgencyUrgent
		}
	}
	for _, marker := range highMarkers {
		if strings.Contains(lowered, marker) {
			return UrgencyHigh
		}
	}
	return UrgencyNormal
}

// Disposition actions the management advisor may propose.
const (
	ActionKeep      = "keep"
	ActionClose     = "close"
	ActionDelete    = "delete"
	ActionCreateNew = "create_new"
	ActionMerge     = "merge"
)

var allowedActions = map[string]struct{}{
	ActionKeep:      {},
	ActionClose:     {},
	ActionDelete:    {},
	ActionCreateNew: {},
	ActionMerge:     {},
}

// CoerceAction maps any unrecognized advisory action to keep.
func CoerceAction(action string) string {
	if _, ok := allowedActions[strings.ToLower(strings.TrimSpace(action))]; ok {
		return strings.ToLower(strings.TrimSpace(action))
	}
	return ActionKeep
}
