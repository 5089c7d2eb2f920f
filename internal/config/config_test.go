package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ringsidehq/ringside/internal/models"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const fullConfig = `
api_base_url: http://backend:9000
ws_base_url: ws://backend:9000
auth_token: sekrit
feed:
  keepalive_seconds: 15
  reconnect_backoff_seconds: 5
match:
  match_id: 42
  category: Senior -68kg
  area: "1"
  red:
    athlete_id: 11
    name: Ada
    nationality: GBR
  blue:
    athlete_id: 22
    name: Grace
    nationality: USA
  round_duration: "00:02:00"
  rest_duration: "00:00:30"
  total_rounds: 2
`

func TestLoadFullConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, fullConfig))
	require.NoError(t, err)

	assert.Equal(t, "http://backend:9000", cfg.APIBaseURL)
	assert.Equal(t, "sekrit", cfg.AuthToken)

	fc := cfg.FeedConfig()
	assert.Equal(t, "ws://backend:9000", fc.WSBaseURL)
	assert.Equal(t, 15*time.Second, fc.KeepaliveInterval)
	assert.Equal(t, 5*time.Second, fc.ReconnectBackoff)

	mc, err := cfg.MatchConfig()
	require.NoError(t, err)
	assert.Equal(t, int64(42), mc.MatchID)
	assert.Equal(t, int64(11), mc.Red.AthleteID)
	assert.Equal(t, "Grace", mc.Blue.Name)
	assert.Equal(t, 2*time.Minute, mc.RoundDuration)
	assert.Equal(t, 30*time.Second, mc.RestDuration)
	assert.Equal(t, 2, mc.TotalRounds)

	// Sides are filled in when the file leaves them out.
	assert.Equal(t, models.SideRed, mc.Red.Side)
	assert.Equal(t, models.SideBlue, mc.Blue.Side)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "match:\n  match_id: 1\n"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.APIBaseURL)
	assert.Equal(t, "ws://localhost:8080", cfg.WSBaseURL)

	fc := cfg.FeedConfig()
	assert.Equal(t, 30*time.Second, fc.KeepaliveInterval)
	assert.Equal(t, 3*time.Second, fc.ReconnectBackoff)

	mc, err := cfg.MatchConfig()
	require.NoError(t, err)
	assert.Equal(t, 3*time.Minute, mc.RoundDuration)
	assert.Equal(t, time.Minute, mc.RestDuration)
	assert.Equal(t, 3, mc.TotalRounds)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("RINGSIDE_API_BASE_URL", "http://override:1234")
	t.Setenv("RINGSIDE_AUTH_TOKEN", "from-env")

	cfg, err := Load(writeConfig(t, fullConfig))
	require.NoError(t, err)

	assert.Equal(t, "http://override:1234", cfg.APIBaseURL)
	assert.Equal(t, "from-env", cfg.AuthToken)
	assert.Equal(t, "ws://backend:9000", cfg.WSBaseURL)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadBadYaml(t *testing.T) {
	_, err := Load(writeConfig(t, "match: [not a mapping"))
	assert.Error(t, err)
}

func TestMatchConfigBadDuration(t *testing.T) {
	cfg, err := Load(writeConfig(t, "match:\n  round_duration: \"3 minutes\"\n"))
	require.NoError(t, err)

	_, err = cfg.MatchConfig()
	assert.Error(t, err)
}
