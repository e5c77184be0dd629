package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"imgto3d/internal/infra"
	"imgto3d/internal/webhook"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	receiver := webhook.NewServer(&logger, func(ev webhook.Event) {
		logger.Info().
			Str("job_id", ev.JobID).
			Str("status", string(ev.Status)).
			Int("outputs", len(ev.Outputs)).
			Strs("errors", ev.Errors).
			Msg("job finished")
	})

	server := infra.NewHTTPServer(cfg, receiver.Router())

	go func() {
		logger.Info().Msgf("webhook listener on :%s", cfg.WebhookPort)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("webhook listener stopped")
}
