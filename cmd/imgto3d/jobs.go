package main

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"imgto3d/internal/api"
	"imgto3d/internal/orchestrator"
	"imgto3d/internal/storage"
	ziputil "imgto3d/pkg/zip"
)

func jobParams(quality, formats, webhookURL string) (api.JobParameters, error) {
	params := api.JobParameters{
		Quality:    api.Quality(quality),
		WebhookURL: webhookURL,
	}
	for _, f := range strings.Split(formats, ",") {
		f = strings.TrimSpace(f)
		if f != "" {
			params.TargetFormats = append(params.TargetFormats, f)
		}
	}
	if len(params.TargetFormats) == 0 {
		return params, fmt.Errorf("at least one target format is required")
	}
	return params, nil
}

func runSubmit(a *app, args []string) {
	fs := flag.NewFlagSet("submit", flag.ExitOnError)
	quality := fs.String("quality", "fast", "reconstruction quality (fast|high)")
	formats := fs.String("formats", "glb", "comma-separated target formats (glb,usdz)")
	webhookURL := fs.String("webhook", "", "optional completion callback URL")
	watch := fs.Bool("watch", false, "poll the job until it finishes")
	_ = fs.Parse(args)

	if fs.NArg() == 0 {
		fail("submit: at least one image file is required")
	}

	params, err := jobParams(*quality, *formats, *webhookURL)
	if err != nil {
		fail("submit: %v", err)
	}

	files, err := loadLocalFiles(fs.Args())
	if err != nil {
		fail("submit: %v", err)
	}

	accepted, rejected := orchestrator.ValidateFiles(files)
	for _, r := range rejected {
		fmt.Printf("rejected %s: %s\n", r.File.Name, r.Reason)
	}
	if !orchestrator.APILimits.Valid(len(accepted)) {
		fail("submit: need %d-%d valid images, have %d",
			orchestrator.APILimits.Min, orchestrator.APILimits.Max, len(accepted))
	}

	ctx := context.Background()
	refs, err := a.uploader().Upload(ctx, accepted)
	if err != nil {
		fail("submit: %v", err)
	}

	created, err := orchestrator.NewSubmitter(a.client, &a.logger).Submit(ctx, refs, params)
	if err != nil {
		fail("submit: %v", err)
	}
	fmt.Printf("job %s created (status %s, estimate %.2f credits)\n",
		created.ID, created.Status, created.CostCredits)

	if *watch {
		watchJob(ctx, a, created.ID)
	}
}

func runStatus(a *app, args []string) {
	if len(args) != 1 {
		fail("usage: imgto3d status <job-id>")
	}
	rec, err := a.client.GetJob(context.Background(), args[0])
	if err != nil {
		fail("status: %v", err)
	}
	printJob(rec)
}

func runWatch(a *app, args []string) {
	if len(args) != 1 {
		fail("usage: imgto3d watch <job-id>")
	}
	watchJob(context.Background(), a, args[0])
}

func watchJob(ctx context.Context, a *app, jobID string) {
	watch := a.poller().Watch(ctx, jobID,
		func(rec *api.JobRecord) {
			fmt.Printf("job %s: %s\n", rec.ID, rec.Status)
		},
		nil,
	)
	<-watch.Done()
	rec, err := watch.Result()
	if err != nil {
		fail("watch: %v", err)
	}
	if rec != nil {
		printJob(rec)
	}
}

func runCancel(a *app, args []string) {
	if len(args) != 1 {
		fail("usage: imgto3d cancel <job-id>")
	}
	rec, err := orchestrator.NewSubmitter(a.client, &a.logger).Cancel(context.Background(), args[0])
	if err != nil {
		fail("cancel: %v", err)
	}
	fmt.Printf("job %s is now %s\n", rec.ID, rec.Status)
}

func runDownload(a *app, args []string) {
	fs := flag.NewFlagSet("download", flag.ExitOnError)
	bundle := fs.Bool("zip", false, "bundle outputs into a single zip archive")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		fail("usage: imgto3d download [-zip] <job-id>")
	}
	jobID := fs.Arg(0)

	ctx := context.Background()
	rec, err := a.client.GetJob(ctx, jobID)
	if err != nil {
		fail("download: %v", err)
	}
	if rec.Status != api.StatusCompleted {
		fail("download: job %s is %s, outputs are only available for completed jobs", jobID, rec.Status)
	}
	if len(rec.Outputs) == 0 {
		fail("download: job %s has no outputs", jobID)
	}

	store, err := storage.NewFileStore(a.cfg.DownloadPath)
	if err != nil {
		fail("download: %v", err)
	}

	var bundled []ziputil.Output
	for _, out := range rec.Outputs {
		data, err := a.client.Download(ctx, out.URL)
		if err != nil {
			fail("download: %s output: %v", out.Format, err)
		}
		name := fmt.Sprintf("%s.%s", jobID, out.Format)
		if *bundle {
			bundled = append(bundled, ziputil.Output{Filename: name, MIME: mimeForFormat(out.Format), Data: data})
			continue
		}
		key, err := store.Write(ctx, filepath.Join(jobID, name), data)
		if err != nil {
			fail("download: %v", err)
		}
		fmt.Printf("saved %s (%s)\n", key, humanize.IBytes(uint64(len(data))))
	}

	if *bundle {
		archive := ziputil.ArchiveOutputs(bundled)
		if archive == nil {
			fail("download: failed to build archive")
		}
		key, err := store.Write(ctx, jobID+".zip", archive)
		if err != nil {
			fail("download: %v", err)
		}
		fmt.Printf("saved %s (%s)\n", key, humanize.IBytes(uint64(len(archive))))
	}
}

func mimeForFormat(format string) string {
	switch format {
	case api.FormatGLB:
		return "model/gltf-binary"
	case api.FormatUSDZ:
		return "model/vnd.usdz+zip"
	default:
		return "application/octet-stream"
	}
}

func printJob(rec *api.JobRecord) {
	fmt.Printf("job %s\n  status: %s\n  created: %s\n", rec.ID, rec.Status, rec.CreatedAt.Format("2006-01-02 15:04:05"))
	if rec.StartedAt != nil {
		fmt.Printf("  started: %s\n", rec.StartedAt.Format("2006-01-02 15:04:05"))
	}
	if rec.CompletedAt != nil {
		fmt.Printf("  completed: %s\n", rec.CompletedAt.Format("2006-01-02 15:04:05"))
	}
	for _, out := range rec.Outputs {
		fmt.Printf("  output: %s %s (%s)\n", out.Format, out.URL, humanize.IBytes(uint64(out.SizeBytes)))
	}
	for _, e := range rec.Errors {
		fmt.Printf("  error: %s\n", e)
	}
}
