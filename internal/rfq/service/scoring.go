package service

import (
	"math"
	"sort"
	"time"

	"procurement_backend/internal/rfq/repository"

	"github.com/google/uuid"
)

// Score is one quote's normalized ranking.
type Score struct {
	QuoteID       uuid.UUID `json:"quoteId"`
	SupplierName  string    `json:"supplierName"`
	TotalScore    float64   `json:"totalScore"`
	PriceScore    float64   `json:"priceScore"`
	DeliveryScore float64   `json:"deliveryScore"`
}

// InvalidQuote flags a quote excluded from scoring.
type InvalidQuote struct {
	QuoteID uuid.UUID `json:"quoteId"`
	Reason  string    `json:"reason"`
}

// Summary aggregates the valid quotes of a comparison.
type Summary struct {
	MinPrice        float64 `json:"minPrice"`
	MaxPrice        float64 `json:"maxPrice"`
	AvgPrice        float64 `json:"avgPrice"`
	MinDeliveryDays int     `json:"minDeliveryDays"`
	MaxDeliveryDays int     `json:"maxDeliveryDays"`
	ValidCount      int     `json:"validCount"`
	InvalidCount    int     `json:"invalidCount"`
}

// Comparison is the full scoring result for an RFQ.
type Comparison struct {
	Quotes        []repository.Quote `json:"quotes"`
	Scores        []Score            `json:"scores"`
	BestQuote     *uuid.UUID         `json:"bestQuote,omitempty"`
	Summary       Summary            `json:"summary"`
	InvalidQuotes []InvalidQuote     `json:"invalidQuotes"`
}

// ScoringEngine ranks quotes by weighted price and delivery speed.
type ScoringEngine struct {
	priceWeight    float64
	deliveryWeight float64
}

// NewScoringEngine creates the engine with normalized weights.
func NewScoringEngine(priceWeight, deliveryWeight float64) *ScoringEngine {
	sum := priceWeight + deliveryWeight
	if sum <= 0 {
		priceWeight, deliveryWeight, sum = 0.7, 0.3, 1
	}
	return &ScoringEngine{
		priceWeight:    priceWeight / sum,
		deliveryWeight: deliveryWeight / sum,
	}
}

// Compare scores the given quotes. Quotes with inconsistent totals or past
// their validity date are excluded and flagged. Price and delivery are
// min-max normalized over the valid set so each dimension contributes on the
// same scale; a single valid quote scores 100.
func (e *ScoringEngine) Compare(quotes []repository.Quote, now time.Time) Comparison {
	comparison := Comparison{Quotes: quotes}

	var valid []repository.Quote
	for _, quote := range quotes {
		if reason := invalidReason(quote, now); reason != "" {
			comparison.InvalidQuotes = append(comparison.InvalidQuotes, InvalidQuote{
				QuoteID: quote.ID,
				Reason:  reason,
			})
			continue
		}
		valid = append(valid, quote)
	}

	comparison.Summary = summarize(valid, len(comparison.InvalidQuotes))
	if len(valid) == 0 {
		return comparison
	}

	minPrice, maxPrice := comparison.Summary.MinPrice, comparison.Summary.MaxPrice
	minDays, maxDays := comparison.Summary.MinDeliveryDays, comparison.Summary.MaxDeliveryDays

	for _, quote := range valid {
		priceScore := normalizeInverse(quote.Total, minPrice, maxPrice)
		deliveryScore := normalizeInverse(float64(quote.DeliveryDays), float64(minDays), float64(maxDays))
		comparison.Scores = append(comparison.Scores, Score{
			QuoteID:       quote.ID,
			SupplierName:  quote.SupplierName,
			PriceScore:    priceScore,
			DeliveryScore: deliveryScore,
			TotalScore:    100 * (e.priceWeight*priceScore + e.deliveryWeight*deliveryScore),
		})
	}

	// Rank best-first; ties go to the earlier submission.
	order := make(map[uuid.UUID]time.Time, len(valid))
	for _, quote := range valid {
		order[quote.ID] = quote.SubmittedAt
	}
	sort.SliceStable(comparison.Scores, func(i, j int) bool {
		a, b := comparison.Scores[i], comparison.Scores[j]
		if a.TotalScore != b.TotalScore {
			return a.TotalScore > b.TotalScore
		}
		return order[a.QuoteID].Before(order[b.QuoteID])
	})

	best := comparison.Scores[0].QuoteID
	comparison.BestQuote = &best
	return comparison
}

func invalidReason(quote repository.Quote, now time.Time) string {
	if quote.Status == repository.QuoteStatusInvalid ||
		math.Abs(quote.Total-(quote.Subtotal+quote.Taxes+quote.Shipping)) > totalTolerance {
		return "total does not match subtotal + taxes + shipping"
	}
	if quote.Status == repository.QuoteStatusRejected {
		return "quote was rejected"
	}
	if quote.ValidUntil != nil && quote.ValidUntil.Before(now) {
		return "quote has expired"
	}
	return ""
}

// normalizeInverse maps value onto [0,1] where the minimum (cheapest/fastest)
// scores 1. A degenerate range scores 1 for everyone.
func normalizeInverse(value, min, max float64) float64 {
	if max <= min {
		return 1
	}
	return (max - value) / (max - min)
}

func summarize(valid []repository.Quote, invalidCount int) Summary {
	summary := Summary{ValidCount: len(valid), InvalidCount: invalidCount}
	if len(valid) == 0 {
		return summary
	}

	summary.MinPrice = valid[0].Total
	summary.MaxPrice = valid[0].Total
	summary.MinDeliveryDays = valid[0].DeliveryDays
	summary.MaxDeliveryDays = valid[0].DeliveryDays

	var priceSum float64
	for _, quote := range valid {
		priceSum += quote.Total
		if quote.Total < summary.MinPrice {
			summary.MinPrice = quote.Total
		}
		if quote.Total > summary.MaxPrice {
			summary.MaxPrice = quote.Total
		}
		if quote.DeliveryDays < summary.MinDeliveryDays {
			summary.MinDeliveryDays = quote.DeliveryDays
		}
		if quote.DeliveryDays > summary.MaxDeliveryDays {
			summary.MaxDeliveryDays = quote.DeliveryDays
		}
	}
	summary.AvgPrice = priceSum / float64(len(valid))
	return summary
}
