package orchestrator

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"imgto3d/internal/api"
	"imgto3d/internal/infra"
)

// StudioOutcome is the result of the pre-commit studio flow. When OK is
// false the warnings explain why and no payment artifact exists. When OK is
// true the caller finishes payment at CheckoutURL out of band; no job is
// created by this client.
type StudioOutcome struct {
	OK              bool
	Warnings        []string
	CheckoutURL     string
	SessionID       string
	EstimateCredits float64
	EstimateMinutes int
}

// PreviewGate runs the optional pre-commit step of the studio flow:
// validation first, then a checkout session for the issued preview token.
type PreviewGate struct {
	client *api.Client
	logger *infra.Logger
	limits GroupLimits
}

// NewPreviewGate constructs a gate bound to the studio group limits.
func NewPreviewGate(client *api.Client, logger *infra.Logger) *PreviewGate {
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &PreviewGate{client: client, logger: logger, limits: StudioLimits}
}

// Run submits the uploaded group for validation and, on success, exchanges
// the preview token for a checkout session URL. Validation failure is a
// domain outcome, not an error: the warnings are returned and nothing else
// happens. This path never creates a job directly.
func (g *PreviewGate) Run(ctx context.Context, refs []api.ImageRef, successURL, cancelURL string) (*StudioOutcome, error) {
	if !g.limits.Valid(len(refs)) {
		return nil, fmt.Errorf("orchestrator: studio group needs %d-%d images, got %d",
			g.limits.Min, g.limits.Max, len(refs))
	}

	preview, err := g.client.PreviewJob(ctx, refs)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: preview: %w", err)
	}
	if !preview.OK {
		g.logger.Info().Strs("warnings", preview.Warnings).Msg("orchestrator: preview rejected group")
		return &StudioOutcome{OK: false, Warnings: preview.Warnings}, nil
	}

	session, err := g.client.CreateCheckoutSession(ctx, preview.PreviewToken, successURL, cancelURL)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: checkout session: %w", err)
	}

	g.logger.Info().Str("session_id", session.SessionID).Msg("orchestrator: checkout session created")
	return &StudioOutcome{
		OK:              true,
		Warnings:        preview.Warnings,
		CheckoutURL:     session.SessionURL,
		SessionID:       session.SessionID,
		EstimateCredits: preview.EstimateCredits,
		EstimateMinutes: preview.EstimateMinutes,
	}, nil
}
