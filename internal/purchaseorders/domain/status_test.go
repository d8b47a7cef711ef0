package domain

import "testing"

func TestValidateTransitionFollowsLifecycleOrder(t *testing.T) {
	chain := []string{
		StatusApprovedByClient, StatusPurchaseOrderCreated, StatusPaymentPending,
		StatusPaymentReceived, StatusSupplierConfirmed, StatusInTransit,
		StatusDelivered, StatusClosed,
	}
	for i := 0; i < len(chain)-1; i++ {
		if reason := ValidateTransition(chain[i], chain[i+1]); reason != "" {
			t.Errorf("%s -> %s rejected: %s", chain[i], chain[i+1], reason)
		}
	}
}

func TestValidateTransitionRejectsSkipsAndBackward(t *testing.T) {
	if ValidateTransition(StatusApprovedByClient, StatusPaymentPending) == "" {
		t.Error("skipping a status must be rejected")
	}
	if ValidateTransition(StatusInTransit, StatusSupplierConfirmed) == "" {
		t.Error("moving backward must be rejected")
	}
	if ValidateTransition(StatusApprovedByClient, StatusApprovedByClient) == "" {
		t.Error("staying in place must be rejected")
	}
}

func TestValidateTransitionCancellation(t *testing.T) {
	for _, from := range []string{
		StatusApprovedByClient, StatusPaymentPending, StatusInTransit, StatusDelivered,
	} {
		if reason := ValidateTransition(from, StatusCancelled); reason != "" {
			t.Errorf("%s -> cancelled rejected: %s", from, reason)
		}
	}
	if ValidateTransition(StatusClosed, StatusCancelled) == "" {
		t.Error("closed orders cannot be cancelled")
	}
	if ValidateTransition(StatusCancelled, StatusApprovedByClient) == "" {
		t.Error("cancelled orders are immutable")
	}
}

func TestValidateTransitionUnknownTarget(t *testing.T) {
	if ValidateTransition(StatusApprovedByClient, "archived") == "" {
		t.Error("unknown status must be rejected")
	}
}

func TestIsTerminal(t *testing.T) {
	if !IsTerminal(StatusClosed) || !IsTerminal(StatusCancelled) {
		t.Error("closed and cancelled are terminal")
	}
	if IsTerminal(StatusDelivered) {
		t.Error("delivered is not terminal")
	}
}

func TestStatusIndex(t *testing.T) {
	if StatusIndex(StatusApprovedByClient) != 0 {
		t.Error("approved_by_client must be first")
	}
	if StatusIndex(StatusCancelled) != -1 {
		t.Error("cancelled sits outside the lifecycle order")
	}
	if !IsKnownStatus(StatusCancelled) {
		t.Error("cancelled is still a known status")
	}
}
