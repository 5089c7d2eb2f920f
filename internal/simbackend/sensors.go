package simbackend

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// sensorSubjectPrefix is where judges' scoring devices publish hits;
// the final token is the match id, e.g. "scoreboard.hits.42".
const sensorSubjectPrefix = "scoreboard.hits."

// sensorHit is the payload a scoring device publishes.
type sensorHit struct {
	AthleteID int64 `json:"athleteId"`
	Points    int   `json:"points"`
}

// SensorConsumer feeds the store from NATS and pushes the resulting
// counts out through the hub.
type SensorConsumer struct {
	nc    *nats.Conn
	sub   *nats.Subscription
	store *Store
	hub   *Hub
}

// StartSensorConsumer connects to NATS and subscribes to sensor hits.
func StartSensorConsumer(url string, store *Store, hub *Hub) (*SensorConsumer, error) {
	opts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	sc := &SensorConsumer{nc: nc, store: store, hub: hub}
	sub, err := nc.Subscribe(sensorSubjectPrefix+"*", sc.handleHit)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("subscribe to sensor hits: %w", err)
	}
	sc.sub = sub

	log.Info().Str("url", url).Str("subject", sensorSubjectPrefix+"*").Msg("sensor consumer started")
	return sc, nil
}

func (sc *SensorConsumer) handleHit(msg *nats.Msg) {
	matchID, err := strconv.ParseInt(strings.TrimPrefix(msg.Subject, sensorSubjectPrefix), 10, 64)
	if err != nil {
		log.Warn().Str("subject", msg.Subject).Msg("sensor hit on unparseable subject, dropping")
		return
	}

	var hit sensorHit
	if err := json.Unmarshal(msg.Data, &hit); err != nil {
		log.Warn().Err(err).Str("subject", msg.Subject).Msg("malformed sensor hit, dropping")
		return
	}
	if hit.AthleteID <= 0 || hit.Points == 0 {
		log.Warn().Int64("athlete_id", hit.AthleteID).Int("points", hit.Points).Msg("sensor hit with bad fields, dropping")
		return
	}

	count := sc.store.AddScore(hit.AthleteID, hit.Points)
	sc.hub.BroadcastScore(matchID, hit.AthleteID, count)

	log.Info().
		Int64("match_id", matchID).
		Int64("athlete_id", hit.AthleteID).
		Int("points", hit.Points).
		Int("count", count).
		Msg("sensor hit applied")
}

// Stop drains the subscription and closes the connection.
func (sc *SensorConsumer) Stop() {
	if sc.sub != nil {
		sc.sub.Unsubscribe()
	}
	if sc.nc != nil {
		sc.nc.Close()
	}
	log.Info().Msg("sensor consumer stopped")
}
