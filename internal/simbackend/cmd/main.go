package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ringsidehq/ringside/internal/simbackend"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	port := getEnv("SIM_PORT", "8080")
	natsURL := os.Getenv("NATS_URL")

	server := simbackend.NewServer()

	var sensors *simbackend.SensorConsumer
	if natsURL != "" {
		var err error
		sensors, err = simbackend.StartSensorConsumer(natsURL, server.Store(), server.Hub())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to start sensor consumer")
		}
		defer sensors.Stop()
	} else {
		log.Info().Msg("NATS_URL not set, sensor intake disabled")
	}

	handler := cors.AllowAll().Handler(server.Handler())
	httpServer := &http.Server{
		Addr:    ":" + port,
		Handler: handler,
	}

	go func() {
		log.Info().Str("port", port).Msg("sim backend listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutting down sim backend")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
