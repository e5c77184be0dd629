package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/dustin/go-humanize"
)

func runCredits(a *app, args []string) {
	balance, err := a.client.Credits(context.Background())
	if err != nil {
		fail("credits: %v", err)
	}
	fmt.Printf("organization %s\n", balance.OrgID)
	fmt.Printf("  balance: %s credits\n", humanize.Ftoa(balance.Balance))
	fmt.Printf("  used this month: %s credits\n", humanize.Ftoa(balance.UsageThisMonth))
}

func runEstimate(a *app, args []string) {
	fs := flag.NewFlagSet("estimate", flag.ExitOnError)
	quality := fs.String("quality", "fast", "reconstruction quality (fast|high)")
	formats := fs.String("formats", "glb", "comma-separated target formats (glb,usdz)")
	jobCount := fs.Int("jobs", 1, "number of jobs to estimate")
	_ = fs.Parse(args)

	params, err := jobParams(*quality, *formats, "")
	if err != nil {
		fail("estimate: %v", err)
	}

	est, err := a.client.EstimateJobs(context.Background(), *jobCount, params)
	if err != nil {
		fail("estimate: %v", err)
	}
	fmt.Printf("%d job(s): %s credits total (%s per job, ~%d minutes each)\n",
		*jobCount, humanize.Ftoa(est.TotalCredits), humanize.Ftoa(est.PerJobCredits), est.EstimatedMinutesPer)
}

func runHealth(a *app, args []string) {
	h, err := a.client.Health(context.Background())
	if err != nil {
		fail("health: %v", err)
	}
	fmt.Printf("status: %s (version %s, database %s, redis %s)\n", h.Status, h.Version, h.Database, h.Redis)
}
