package config

import (
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) (program, pool solana.PublicKey) {
	t.Helper()
	program = solana.NewWallet().PublicKey()
	pool = solana.NewWallet().PublicKey()
	t.Setenv("SCHEDULER_PROGRAM_ID", program.String())
	t.Setenv("POOL_ADDRESS", pool.String())
	t.Setenv("KEYPAIR_PATH", "/etc/cronos/id.json")
	return program, pool
}

func TestLoad_Defaults(t *testing.T) {
	program, pool := setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, program, cfg.ProgramID)
	assert.Equal(t, pool, cfg.Pool)
	assert.Equal(t, "8082", cfg.Port)
	assert.Equal(t, int64(10), cfg.GracePeriod)
	assert.Equal(t, 5, cfg.MaxTasksPerTx)
	assert.Equal(t, 20, cfg.MaxTasksPerBuild)
	assert.Equal(t, 2*time.Second, cfg.SweepInterval)
	assert.Equal(t, 30*time.Second, cfg.PoolRefreshInterval)
	assert.Equal(t, 20.0, cfg.RPCRateLimit)
	assert.Equal(t, 8, cfg.Lanes)
	assert.Equal(t, 4, cfg.BuildConcurrency)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("GRACE_PERIOD_SEC", "30")
	t.Setenv("MAX_TASKS_PER_TX", "3")
	t.Setenv("SWEEP_INTERVAL", "500ms")
	t.Setenv("WORKER_PORT", "9000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(30), cfg.GracePeriod)
	assert.Equal(t, 3, cfg.MaxTasksPerTx)
	assert.Equal(t, 500*time.Millisecond, cfg.SweepInterval)
	assert.Equal(t, "9000", cfg.Port)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want error
	}{
		{"missing program", map[string]string{"SCHEDULER_PROGRAM_ID": ""}, ErrMissing},
		{"bad program", map[string]string{"SCHEDULER_PROGRAM_ID": "not-base58!"}, ErrInvalid},
		{"missing keypair", map[string]string{"KEYPAIR_PATH": ""}, ErrMissing},
		{"negative grace", map[string]string{"GRACE_PERIOD_SEC": "-1"}, ErrInvalid},
		{"bad duration", map[string]string{"SWEEP_INTERVAL": "soon"}, ErrInvalid},
		{"bad rate", map[string]string{"RPC_RATE_LIMIT": "0"}, ErrInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
