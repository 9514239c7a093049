package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"DB_USER", "DB_PASSWORD", "DB_HOST", "DB_PORT", "DB_NAME",
		"DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS",
		"DB_CONN_MAX_LIFETIME_SECONDS", "DB_CONN_MAX_IDLE_TIME_SECONDS",
		"REDIS_ADDRESS", "RUN_LOCK_TTL_SECONDS",
		"PUBSUB_PROJECT_ID", "GOOGLE_CLOUD_PROJECT", "PUBSUB_TOPIC", "PUBSUB_CREDENTIALS_JSON",
		"MATCH_TOLERANCE",
		"RISK_STALE_AFTER_DAYS", "RISK_UNCONFIRMED_AFTER_DAYS", "RISK_OVERDUE_GRACE_DAYS", "RISK_REPORT_LIMIT",
		"LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.DB.Host)
	assert.Equal(t, "3306", cfg.DB.Port)
	assert.Equal(t, "reconciliation", cfg.DB.Name)
	assert.Equal(t, 50, cfg.DB.MaxOpenConns)
	assert.Equal(t, 25, cfg.DB.MaxIdleConns)
	assert.Equal(t, 300*time.Second, cfg.DB.ConnMaxLifetime)
	assert.Equal(t, 60*time.Second, cfg.DB.ConnMaxIdleTime)
	assert.Equal(t, 60*time.Second, cfg.Redis.RunLockTTL)
	assert.Empty(t, cfg.Redis.Address)
	assert.Empty(t, cfg.PubSub.Topic)
	assert.True(t, decimal.RequireFromString("0.01").Equal(cfg.Matching.Tolerance))
	assert.Equal(t, RiskConfig{StaleAfterDays: 14, UnconfirmedAfterDays: 3, OverdueGraceDays: 0, Limit: 20}, cfg.Risk)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_NAME", "recon_test")
	t.Setenv("MATCH_TOLERANCE", "0.50")
	t.Setenv("RISK_REPORT_LIMIT", "5")
	t.Setenv("RUN_LOCK_TTL_SECONDS", "15")
	t.Setenv("GOOGLE_CLOUD_PROJECT", "acme-prod")
	t.Setenv("PUBSUB_TOPIC", "reconciliation-events")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.DB.Host)
	assert.Equal(t, "recon_test", cfg.DB.Name)
	assert.True(t, decimal.RequireFromString("0.5").Equal(cfg.Matching.Tolerance))
	assert.Equal(t, 5, cfg.Risk.Limit)
	assert.Equal(t, 15*time.Second, cfg.Redis.RunLockTTL)
	assert.Equal(t, "acme-prod", cfg.PubSub.ProjectID)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_UnparsableValuesAreReported(t *testing.T) {
	clearEnv(t)
	t.Setenv("RISK_REPORT_LIMIT", "abc")
	t.Setenv("RISK_STALE_AFTER_DAYS", "two weeks")

	cfg, err := Load()
	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Equal(t, `invalid config: RISK_STALE_AFTER_DAYS: "two weeks" is not an integer; RISK_REPORT_LIMIT: "abc" is not an integer`, err.Error())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "tolerance not a number",
			env:     map[string]string{"MATCH_TOLERANCE": "a cent"},
			wantErr: "MATCH_TOLERANCE",
		},
		{
			name:    "zero tolerance",
			env:     map[string]string{"MATCH_TOLERANCE": "0"},
			wantErr: "Config.Matching.Tolerance failed positive_decimal",
		},
		{
			name:    "negative tolerance",
			env:     map[string]string{"MATCH_TOLERANCE": "-0.01"},
			wantErr: "Config.Matching.Tolerance failed positive_decimal",
		},
		{
			name:    "unknown log level",
			env:     map[string]string{"LOG_LEVEL": "loud"},
			wantErr: "Config.LogLevel failed oneof",
		},
		{
			name:    "topic without project",
			env:     map[string]string{"PUBSUB_TOPIC": "reconciliation-events"},
			wantErr: "Config.PubSub.ProjectID failed required_with",
		},
		{
			name:    "negative risk window",
			env:     map[string]string{"RISK_UNCONFIRMED_AFTER_DAYS": "-1"},
			wantErr: "Config.Risk.UnconfirmedAfterDays failed gte",
		},
		{
			name:    "zero lock ttl",
			env:     map[string]string{"RUN_LOCK_TTL_SECONDS": "0"},
			wantErr: "Config.Redis.RunLockTTL failed gt",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_ReportsEveryFailureSorted(t *testing.T) {
	cfg := &Config{
		DB:       DBConfig{Host: "", Name: ""},
		Redis:    RedisConfig{RunLockTTL: time.Second},
		Matching: MatchingConfig{Tolerance: decimal.RequireFromString("0.01")},
		LogLevel: "info",
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Equal(t, "invalid config: Config.DB.Host failed required; Config.DB.Name failed required", err.Error())
}

func TestDBConfig_DSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  DBConfig
		want string
	}{
		{
			name: "tcp",
			cfg:  DBConfig{User: "recon", Password: "secret", Host: "127.0.0.1", Port: "3306", Name: "reconciliation"},
			want: "recon:secret@tcp(127.0.0.1:3306)/reconciliation?parseTime=true&loc=UTC",
		},
		{
			name: "cloud sql socket",
			cfg:  DBConfig{User: "recon", Password: "secret", Host: "/cloudsql/acme:europe-west1:ledger", Port: "3306", Name: "reconciliation"},
			want: "recon:secret@unix(/cloudsql/acme:europe-west1:ledger)/reconciliation?parseTime=true&loc=UTC",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.DSN())
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn")
	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())

	logger.Info("dropped")
	logger.Warn("kept")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "warning", entry["level"])

	assert.Equal(t, logrus.InfoLevel, NewLogger(&buf, "nonsense").GetLevel())
}

func TestLogError(t *testing.T) {
	logger, hook := test.NewNullLogger()

	LogError(logger, "usecase", "Reconcile", "commit reconciliation", map[string]string{"document_id": "doc-1"}, errors.New("deadlock"))

	require.Len(t, hook.Entries, 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, "deadlock", entry.Message)
	assert.Equal(t, "usecase", entry.Data["module"])
	assert.Equal(t, "Reconcile", entry.Data["funcName"])
	assert.Equal(t, "commit reconciliation", entry.Data["context"])
	assert.Equal(t, map[string]string{"document_id": "doc-1"}, entry.Data["data"])

	hook.Reset()
	LogError(logger, "gateway", "Notify", "publish", nil, errors.New("timeout"))
	require.Len(t, hook.Entries, 1)
	_, hasData := hook.LastEntry().Data["data"]
	assert.False(t, hasData)
}
