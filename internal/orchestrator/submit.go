package orchestrator

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"imgto3d/internal/api"
	"imgto3d/internal/infra"
)

// Submitter converts an uploaded group plus parameters into a durable job
// record on the backend. Authenticated flow only.
type Submitter struct {
	client *api.Client
	logger *infra.Logger
	limits GroupLimits
}

// NewSubmitter constructs a Submitter bound to the authenticated group limits.
func NewSubmitter(client *api.Client, logger *infra.Logger) *Submitter {
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Submitter{client: client, logger: logger, limits: APILimits}
}

func validateParams(params api.JobParameters) error {
	switch params.Quality {
	case api.QualityFast, api.QualityHigh:
	default:
		return fmt.Errorf("orchestrator: quality must be %q or %q, got %q",
			api.QualityFast, api.QualityHigh, params.Quality)
	}
	if len(params.TargetFormats) == 0 {
		return fmt.Errorf("orchestrator: at least one target format is required")
	}
	for _, f := range params.TargetFormats {
		if f != api.FormatGLB && f != api.FormatUSDZ {
			return fmt.Errorf("orchestrator: unsupported target format %q", f)
		}
	}
	return nil
}

// Submit validates the group bounds and parameters locally, then creates the
// job. The backend assigns the id and reports the initial status, which is
// always queued at creation.
func (s *Submitter) Submit(ctx context.Context, refs []api.ImageRef, params api.JobParameters) (*api.JobCreated, error) {
	if !s.limits.Valid(len(refs)) {
		return nil, fmt.Errorf("orchestrator: group needs %d-%d images, got %d",
			s.limits.Min, s.limits.Max, len(refs))
	}
	if err := validateParams(params); err != nil {
		return nil, err
	}

	created, err := s.client.CreateJob(ctx, refs, params)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: create job: %w", err)
	}
	if created.Status != api.StatusQueued {
		return nil, fmt.Errorf("orchestrator: job %s created with status %q, want %q",
			created.ID, created.Status, api.StatusQueued)
	}

	s.logger.Info().Str("job_id", created.ID).Float64("credits", created.CostCredits).
		Msg("orchestrator: job submitted")
	return created, nil
}

// Cancel issues a best-effort cancel and re-polls the record. The backend is
// not required to honor the request instantly, so the observed status is
// returned instead of optimistically marking the job canceled.
func (s *Submitter) Cancel(ctx context.Context, id string) (*api.JobRecord, error) {
	rec, err := s.client.GetJob(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: cancel: %w", err)
	}
	if !rec.Status.Cancelable() {
		return rec, fmt.Errorf("orchestrator: job %s is %s and cannot be canceled", id, rec.Status)
	}
	if err := s.client.CancelJob(ctx, id); err != nil {
		return nil, fmt.Errorf("orchestrator: cancel: %w", err)
	}
	observed, err := s.client.GetJob(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: confirm cancel: %w", err)
	}
	s.logger.Info().Str("job_id", id).Str("status", string(observed.Status)).
		Msg("orchestrator: cancel requested")
	return observed, nil
}
