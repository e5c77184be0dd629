package orchestrator

import (
	"context"
	"io"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"imgto3d/internal/api"
	"imgto3d/internal/infra"
)

// GroupResult reports the outcome of one group's pipeline. Groups fail
// independently; a failed group never aborts its siblings.
type GroupResult struct {
	Index  int
	JobID  string
	Record *api.JobRecord
	Err    error
}

// Runner drives the upload-submit-poll pipeline for many groups with bounded
// concurrency. The bound replaces a fixed inter-group pause as the throttling
// mechanism; set it to one to reproduce strictly serial submission.
type Runner struct {
	uploader    *Uploader
	submitter   *Submitter
	poller      *Poller
	logger      *infra.Logger
	concurrency int
}

// NewRunner assembles a Runner from the pipeline stages.
func NewRunner(uploader *Uploader, submitter *Submitter, poller *Poller, logger *infra.Logger, concurrency int) *Runner {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Runner{
		uploader:    uploader,
		submitter:   submitter,
		poller:      poller,
		logger:      logger,
		concurrency: concurrency,
	}
}

// Run processes each group to a terminal job state and returns one result
// per group, in group order. Within a group the stages are strictly ordered:
// submission never starts until every file has uploaded. Across groups there
// is no ordering guarantee.
func (r *Runner) Run(ctx context.Context, groups [][]api.LocalFile, params api.JobParameters) []GroupResult {
	results := make([]GroupResult, len(groups))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i := range groups {
		g.Go(func() error {
			results[i] = r.runGroup(gctx, i, groups[i], params)
			// Group failures are recorded, not propagated: siblings continue.
			return nil
		})
	}
	g.Wait()

	return results
}

func (r *Runner) runGroup(ctx context.Context, index int, files []api.LocalFile, params api.JobParameters) GroupResult {
	res := GroupResult{Index: index}

	refs, err := r.uploader.Upload(ctx, files)
	if err != nil {
		res.Err = err
		r.logger.Error().Err(err).Int("group", index).Msg("orchestrator: group upload failed")
		return res
	}

	created, err := r.submitter.Submit(ctx, refs, params)
	if err != nil {
		res.Err = err
		r.logger.Error().Err(err).Int("group", index).Msg("orchestrator: group submit failed")
		return res
	}
	res.JobID = created.ID

	watch := r.poller.Watch(ctx, created.ID, nil, nil)
	<-watch.Done()
	res.Record, res.Err = watch.Result()
	return res
}
