package main

import (
	"context"
	"flag"
	"fmt"

	"imgto3d/internal/orchestrator"
)

func runPreview(a *app, args []string) {
	fs := flag.NewFlagSet("preview", flag.ExitOnError)
	successURL := fs.String("success-url", "", "redirect after successful payment")
	cancelURL := fs.String("cancel-url", "", "redirect after abandoned payment")
	_ = fs.Parse(args)

	if fs.NArg() == 0 {
		fail("preview: at least one image file is required")
	}

	files, err := loadLocalFiles(fs.Args())
	if err != nil {
		fail("preview: %v", err)
	}

	accepted, rejected := orchestrator.ValidateFiles(files)
	for _, r := range rejected {
		fmt.Printf("rejected %s: %s\n", r.File.Name, r.Reason)
	}
	if !orchestrator.StudioLimits.Valid(len(accepted)) {
		fail("preview: need %d-%d valid images, have %d",
			orchestrator.StudioLimits.Min, orchestrator.StudioLimits.Max, len(accepted))
	}

	ctx := context.Background()
	refs, err := a.uploader().Upload(ctx, accepted)
	if err != nil {
		fail("preview: %v", err)
	}

	outcome, err := orchestrator.NewPreviewGate(a.client, &a.logger).Run(ctx, refs, *successURL, *cancelURL)
	if err != nil {
		fail("preview: %v", err)
	}

	if !outcome.OK {
		fmt.Println("preview rejected:")
		for _, w := range outcome.Warnings {
			fmt.Printf("  - %s\n", w)
		}
		return
	}

	for _, w := range outcome.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	fmt.Printf("estimate: %.2f credits, ~%d minutes\n", outcome.EstimateCredits, outcome.EstimateMinutes)
	fmt.Printf("complete payment at: %s\n", outcome.CheckoutURL)
}
