package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.TickInterval("scheduler", 99))
	assert.Equal(t, 8900, cfg.Telemetry.Port)
	assert.Equal(t, "0 * * * *", cfg.ReportSchedule)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	raw := `{
  "tickIntervals": {"scheduler": 10},
  "channels": {"sms": {"rateLimitPerMinute": 5, "maxRetries": 1, "timeoutSeconds": 2}},
  "telemetry": {"port": 9100, "apiKey": "k"},
  "reportSchedule": "*/5 * * * *"
}`
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.TickInterval("scheduler", 30))
	assert.Equal(t, 5, cfg.Channels["sms"].RateLimitPerMinute)
	assert.Equal(t, 9100, cfg.Telemetry.Port)
	assert.Equal(t, "k", cfg.Telemetry.APIKey)
	assert.Equal(t, "*/5 * * * *", cfg.ReportSchedule)

	// Fields absent from the file keep their defaults.
	assert.Equal(t, 15, cfg.TickInterval("notifier", 99))
	assert.Equal(t, 40.0, cfg.Weights.SeverityCritical)
}

func TestLoad_InvalidJSONFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0644))

	cfg, err := Load(path)
	assert.Error(t, err)
	assert.Equal(t, 8900, cfg.Telemetry.Port)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := DefaultConfig()
	cfg.Telemetry.Port = 9999
	cfg.Endpoints.SMS = &SMSEndpoint{GatewayURL: "http://gw", Token: "t"}

	require.NoError(t, Save(cfg, path))
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, got.Telemetry.Port)
	require.NotNil(t, got.Endpoints.SMS)
	assert.Equal(t, "http://gw", got.Endpoints.SMS.GatewayURL)
}

func TestTickInterval_Fallback(t *testing.T) {
	cfg := Config{TickIntervals: map[string]int{"scheduler": 0}}
	assert.Equal(t, 25, cfg.TickInterval("scheduler", 25)) // zero is not usable
	assert.Equal(t, 25, cfg.TickInterval("unknown", 25))
}

func TestLoadResourceSeeds_FromYAML(t *testing.T) {
	raw := `resources:
  - type: fire_truck
    quantity: 4
    location: central
  - type: ambulance
    quantity: 6
    location: hospital
`
	path := filepath.Join(t.TempDir(), "resources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0644))

	seeds, err := LoadResourceSeeds(path)
	require.NoError(t, err)
	require.Len(t, seeds, 2)
	assert.Equal(t, "fire_truck", seeds[0].Type)
	assert.Equal(t, 4, seeds[0].Quantity)
	assert.Equal(t, "hospital", seeds[1].Location)
}

func TestLoadResourceSeeds_MissingFileUsesBuiltins(t *testing.T) {
	seeds, err := LoadResourceSeeds(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.NotEmpty(t, seeds)

	seeds, err = LoadResourceSeeds("")
	require.NoError(t, err)
	assert.NotEmpty(t, seeds)
}

func TestLoadRecipients_FromYAML(t *testing.T) {
	raw := `recipients:
  - id: ops-1
    name: On-call Ops
    channels: [sms, email]
    addresses:
      sms: "+15550001"
      email: ops@example.com
    quiet_start: 23
    quiet_end: 7
`
	path := filepath.Join(t.TempDir(), "recipients.yaml")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0644))

	roster, err := LoadRecipients(path)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, "ops-1", roster[0].ID)
	assert.Equal(t, []string{"sms", "email"}, roster[0].Channels)
	assert.Equal(t, "+15550001", roster[0].Addresses["sms"])
	assert.Equal(t, 23, roster[0].QuietStart)
	assert.Equal(t, 7, roster[0].QuietEnd)
}

func TestLoadRecipients_MissingFileIsNil(t *testing.T) {
	roster, err := LoadRecipients(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Nil(t, roster)
}
