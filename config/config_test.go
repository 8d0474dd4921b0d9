package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
trading:
  dry_run: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, int64(100_000), cfg.Trading.InitialBalanceCents)
	assert.Equal(t, 0.10, cfg.Trading.MaxPositionPct)
	assert.Equal(t, int64(95), cfg.Trading.MaxPriceCents)
	assert.Equal(t, 10, cfg.Trading.MaxPositions)
	assert.Equal(t, 0.70, cfg.Scanner.MinProbability)
	assert.Equal(t, 0.95, cfg.Scanner.MaxProbability)
	assert.Equal(t, "profit_target", cfg.Exits.Precedence)
	assert.Equal(t, 8.0, cfg.API.RequestsPerSecond)
	assert.Equal(t, "kalshibot.db", cfg.Storage.DSN)
	assert.Equal(t, "info", cfg.Log.Level)

	assert.Equal(t, time.Minute, cfg.ScanInterval())
	assert.Equal(t, 5*time.Minute, cfg.OrderTimeout())
	assert.Equal(t, 2*time.Second, cfg.PollInterval())
	assert.Equal(t, 15*time.Second, cfg.ExitCadence())
	assert.Equal(t, 5*time.Second, cfg.RateGateMaxWait())
}

func TestLoad_ExplicitValues(t *testing.T) {
	path := writeConfig(t, `
trading:
  initial_balance_cents: 250000
  min_position_pct: 0.02
  max_position_pct: 0.15
  max_positions: 5
  compounding: true
  order_timeout_seconds: 120
  dry_run: true
scanner:
  interval_seconds: 30
  min_probability: 0.75
  max_probability: 0.90
exits:
  profit_target_pct: 0.12
  stop_loss_pct: 0.20
  stop_loss_min_volume: 5000
  precedence: stop_loss
api:
  requests_per_second: 4
  burst: 8
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, int64(250_000), cfg.Trading.InitialBalanceCents)
	assert.Equal(t, 0.15, cfg.Trading.MaxPositionPct)
	assert.True(t, cfg.Trading.Compounding)
	assert.Equal(t, 2*time.Minute, cfg.OrderTimeout())
	assert.Equal(t, 30*time.Second, cfg.ScanInterval())
	assert.Equal(t, "stop_loss", cfg.Exits.Precedence)
	assert.Equal(t, int64(5000), cfg.Exits.StopLossMinVolume)
	assert.Equal(t, 4.0, cfg.API.RequestsPerSecond)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("KALSHI_API_KEY_ID", "key-123")
	t.Setenv("KALSHI_PRIVATE_KEY_PATH", "/tmp/key.pem")
	t.Setenv("LOG_LEVEL", "debug")

	path := writeConfig(t, `
trading:
  dry_run: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "key-123", cfg.API.KeyID)
	assert.Equal(t, "/tmp/key.pem", cfg.API.PrivateKeyPath)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_Validation(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{
			name: "position pct invertida",
			yaml: `
trading:
  min_position_pct: 0.20
  max_position_pct: 0.05
  dry_run: true
`,
		},
		{
			name: "banda de probabilidad vacía",
			yaml: `
trading:
  dry_run: true
scanner:
  min_probability: 0.90
  max_probability: 0.80
`,
		},
		{
			name: "precedence desconocida",
			yaml: `
trading:
  dry_run: true
exits:
  precedence: whatever
`,
		},
		{
			name: "max_contracts menor que min_contracts",
			yaml: `
trading:
  min_contracts: 10
  max_contracts: 5
  dry_run: true
`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.yaml))
			require.Error(t, err)
		})
	}
}

func TestLoad_LiveRequiresCredentials(t *testing.T) {
	t.Setenv("KALSHI_API_KEY_ID", "")
	t.Setenv("KALSHI_PRIVATE_KEY_PATH", "")

	path := writeConfig(t, `
trading:
  dry_run: false
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credenciales")
}
