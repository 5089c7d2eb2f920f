// Command station runs one headless match session against the scoring
// backend: it opens the push channel, drives the match clock and logs
// the merged board state once per second. The visual board in front of
// the audience consumes the same session API; this binary is the
// reference wiring.
package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ringsidehq/ringside/clients"
	"github.com/ringsidehq/ringside/internal/config"
	"github.com/ringsidehq/ringside/internal/feed"
	"github.com/ringsidehq/ringside/internal/models"
	"github.com/ringsidehq/ringside/internal/session"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfgPath := getEnv("RINGSIDE_CONFIG", "config.yaml")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfgPath).Msg("failed to load config")
	}

	matchCfg, err := cfg.MatchConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid match configuration")
	}

	base := clients.NewBaseClient(cfg.APIBaseURL)
	if cfg.AuthToken != "" {
		base.SetBearerToken(cfg.AuthToken)
	}

	coord, err := session.Start(matchCfg, session.Deps{
		Scores: clients.NewScoreClientWith(base),
		Feed:   feed.NewClient(cfg.FeedConfig(), nil, nil),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start session")
	}

	if err := coord.StartClock(); err != nil {
		log.Fatal().Err(err).Msg("failed to start the match clock")
	}

	go func() {
		for notice := range coord.Notices() {
			log.Warn().Str("notice", notice.Text).Msg("operator notice")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			logBoard(coord)
		case <-coord.Done():
			return
		case <-sigCh:
			log.Info().Msg("shutting down station")
			coord.EndSession()
			return
		}
	}
}

func logBoard(coord *session.Coordinator) {
	sides := coord.DisplayedState()
	clock := coord.ClockState()
	red := sides[models.SideRed]
	blue := sides[models.SideBlue]
	log.Info().
		Str("clock", clock.Display).
		Str("status", string(clock.Status)).
		Int("round", clock.Round).
		Int("red", red.Total).
		Int("red_penalties", red.Penalties).
		Int("blue", blue.Total).
		Int("blue_penalties", blue.Penalties).
		Msg("board")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
