package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("ENCRYPTION_KEY", "0123456789abcdef0123456789abcdef")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4001, cfg.Port)
	assert.Equal(t, uint64(1), cfg.MinConfirmations)
	assert.Equal(t, "America/Sao_Paulo", cfg.Location.String())
	assert.False(t, cfg.IsProduction())
}

func TestLoad_MinConfirmations(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    uint64
		wantErr string
	}{
		{name: "explicit", value: "3", want: 3},
		{name: "one", value: "1", want: 1},
		{name: "zero", value: "0", wantErr: "at least 1"},
		{name: "negative", value: "-2", wantErr: "positive integer"},
		{name: "garbage", value: "abc", wantErr: "positive integer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv("CHAIN_MIN_CONFIRMATIONS", tt.value)

			cfg, err := Load()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.MinConfirmations)
		})
	}
}

func TestLoad_RequiredValues(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{name: "missing jwt secret", key: "JWT_SECRET", value: "", wantErr: "JWT_SECRET"},
		{name: "missing redis", key: "REDIS_URL", value: "", wantErr: "REDIS_URL"},
		{name: "short encryption key", key: "ENCRYPTION_KEY", value: "short", wantErr: "exactly 32 bytes"},
		{name: "bad admin wallet", key: "ADMIN_WALLET", value: "0x123", wantErr: "ADMIN_WALLET"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
