package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"imgto3d/internal/api"
	"imgto3d/internal/infra"
	"imgto3d/internal/orchestrator"
)

// app bundles the shared dependencies every subcommand needs.
type app struct {
	cfg    *infra.Config
	logger infra.Logger
	client *api.Client
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	creds := api.NewCredentials()
	if cfg.SessionToken != "" {
		creds.SetSessionToken(cfg.SessionToken)
	}
	if cfg.APIKey != "" {
		creds.SetAPIKey(cfg.APIKey)
	}

	client, err := api.NewClient(api.Options{
		BaseURL:        cfg.APIBaseURL,
		Credentials:    creds,
		HTTPClient:     &http.Client{Timeout: cfg.RequestTimeout},
		Logger:         &logger,
		RequestTimeout: cfg.RequestTimeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure client")
	}

	a := &app{cfg: cfg, logger: logger, client: client}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "login":
		runLogin(a, args)
	case "signup":
		runSignup(a, args)
	case "keys":
		runKeys(a, args)
	case "preview":
		runPreview(a, args)
	case "submit":
		runSubmit(a, args)
	case "batch":
		runBatch(a, args)
	case "status":
		runStatus(a, args)
	case "watch":
		runWatch(a, args)
	case "cancel":
		runCancel(a, args)
	case "download":
		runDownload(a, args)
	case "credits":
		runCredits(a, args)
	case "estimate":
		runEstimate(a, args)
	case "health":
		runHealth(a, args)
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: imgto3d <command> [flags]

commands:
  login      authenticate with email and password
  signup     register a new account
  keys       create an API key
  preview    validate images and get a checkout URL (studio flow)
  submit     upload images and create a job
  batch      process multiple image directories as independent jobs
  status     fetch a job record once
  watch      poll a job until it reaches a terminal status
  cancel     request cancellation of a queued or running job
  download   fetch the outputs of a completed job
  credits    show the organization credit balance
  estimate   project the credit cost of jobs
  health     check backend availability`)
}

// uploader builds the upload stage from config.
func (a *app) uploader() *orchestrator.Uploader {
	return orchestrator.NewUploader(a.client, &a.logger, a.cfg.UploadConcurrency)
}

// poller builds the polling stage from config.
func (a *app) poller() *orchestrator.Poller {
	return orchestrator.NewPoller(a.client, &a.logger, orchestrator.PollConfig{
		Interval:        a.cfg.PollInterval,
		ErrorInterval:   a.cfg.PollErrorInterval,
		MaxErrorRetries: a.cfg.PollMaxErrorRetries,
	})
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
