package payments

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// SimulatedProcessor implements Processor without contacting any
// external service. Every intent succeeds immediately and carries no
// client secret, so it can never be confirmed as a real charge.
type SimulatedProcessor struct{}

// NewSimulatedProcessor creates a processor that synthesizes intents locally.
func NewSimulatedProcessor() *SimulatedProcessor {
	return &SimulatedProcessor{}
}

// CreateIntent synthesizes a succeeded intent with a locally generated
// reference.
func (p *SimulatedProcessor) CreateIntent(_ context.Context, req IntentRequest) (*Intent, error) {
	ref := "sim_" + strings.ReplaceAll(uuid.New().String(), "-", "")

	return &Intent{
		Reference:   ref,
		Status:      "succeeded",
		AmountMinor: req.AmountMinor,
		Currency:    req.Currency,
	}, nil
}
