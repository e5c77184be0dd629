package main

import (
	"context"
	"flag"
	"fmt"

	"imgto3d/internal/api"
	"imgto3d/internal/orchestrator"
)

// runBatch drives the local batch flow: every directory becomes one group,
// oversized directories are split by the grouper, and the groups run through
// the pipeline with bounded concurrency.
func runBatch(a *app, args []string) {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	quality := fs.String("quality", "fast", "reconstruction quality (fast|high)")
	formats := fs.String("formats", "glb", "comma-separated target formats (glb,usdz)")
	webhookURL := fs.String("webhook", "", "optional completion callback URL")
	remote := fs.String("remote", "", "remote batch source type (csv|manifest|zip); expands server-side")
	remoteURL := fs.String("url", "", "remote batch source URL")
	orgID := fs.String("org", "", "organization id for remote batches")
	_ = fs.Parse(args)

	params, err := jobParams(*quality, *formats, *webhookURL)
	if err != nil {
		fail("batch: %v", err)
	}

	if *remote != "" {
		runRemoteBatch(a, *remote, *remoteURL, *orgID, params)
		return
	}

	if fs.NArg() == 0 {
		fail("batch: at least one image directory is required")
	}

	var groups [][]api.LocalFile
	for _, dir := range fs.Args() {
		paths, err := imagePathsInDir(dir)
		if err != nil {
			fail("batch: %v", err)
		}
		files, err := loadLocalFiles(paths)
		if err != nil {
			fail("batch: %v", err)
		}
		accepted, rejected := orchestrator.ValidateFiles(files)
		for _, r := range rejected {
			fmt.Printf("rejected %s/%s: %s\n", dir, r.File.Name, r.Reason)
		}
		dirGroups, dropped, err := orchestrator.GroupFiles(accepted, orchestrator.APILimits)
		if err != nil {
			fail("batch: %v", err)
		}
		if len(dropped) > 0 {
			fmt.Printf("%s: %d trailing images below the minimum group size were dropped\n", dir, len(dropped))
		}
		groups = append(groups, dirGroups...)
	}
	if len(groups) == 0 {
		fail("batch: no submittable groups")
	}

	runner := orchestrator.NewRunner(
		a.uploader(),
		orchestrator.NewSubmitter(a.client, &a.logger),
		a.poller(),
		&a.logger,
		a.cfg.BatchConcurrency,
	)

	results := runner.Run(context.Background(), groups, params)

	failed := 0
	for _, res := range results {
		switch {
		case res.Err != nil:
			failed++
			fmt.Printf("group %d: failed: %v\n", res.Index+1, res.Err)
		case res.Record != nil:
			fmt.Printf("group %d: job %s finished %s\n", res.Index+1, res.JobID, res.Record.Status)
		default:
			fmt.Printf("group %d: job %s stopped before completion\n", res.Index+1, res.JobID)
		}
	}
	fmt.Printf("%d/%d groups succeeded\n", len(results)-failed, len(results))
}

func runRemoteBatch(a *app, source, url, orgID string, params api.JobParameters) {
	if url == "" {
		fail("batch: -url is required with -remote")
	}
	rec, err := a.client.CreateBatch(context.Background(), api.BatchCreate{
		Source:     source,
		URL:        url,
		OrgID:      orgID,
		Params:     &params,
		WebhookURL: params.WebhookURL,
	})
	if err != nil {
		fail("batch: %v", err)
	}
	fmt.Printf("batch %s created (status %s, %d jobs)\n", rec.BatchID, rec.Status, rec.TotalJobs)
}
