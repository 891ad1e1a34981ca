package services

import (
	"context"

	"github.com/rs/zerolog"
)

// PaymentGateway is the seam to the card provider. The core never retries
// gateway calls; it records the reported outcome and moves on.
type PaymentGateway interface {
	Charge(ctx context.Context, clientID int64, amount float64) error
	Refund(ctx context.Context, clientID int64, amount float64) error
}

// ManualGateway stands in for a real provider integration: it logs the
// intent and reports success, leaving settlement to the operator's provider
// dashboard.
type ManualGateway struct {
	logger zerolog.Logger
}

func NewManualGateway(logger zerolog.Logger) *ManualGateway {
	return &ManualGateway{logger: logger}
}

func (g *ManualGateway) Charge(_ context.Context, clientID int64, amount float64) error {
	g.logger.Info().Int64("client_id", clientID).Float64("amount", amount).Msg("manual charge recorded")
	return nil
}

func (g *ManualGateway) Refund(_ context.Context, clientID int64, amount float64) error {
	g.logger.Info().Int64("client_id", clientID).Float64("amount", amount).Msg("manual refund recorded")
	return nil
}
