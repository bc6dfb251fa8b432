package config

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, []string{"approver", "finance_lead"}, cfg.Auth.ApproverRoles)
	assert.Equal(t, 730, cfg.Scheduler.AuditRetentionDays)
	assert.Equal(t, "0 0 2 * * *", cfg.Scheduler.RecalculateCron)
	assert.Equal(t, PlanningConfig{
		HighUtilizationPercent: 90,
		FulfillmentLagPercent:  50,
		TrendIncreasingPercent: 80,
		TrendDecreasingPercent: 30,
	}, cfg.Planning)
	assert.Equal(t, "dbo.v_season_purchase_orders", cfg.ERP.POView)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("PLANNING_HIGHUTILIZATIONPERCENT", "85")
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("ERP_ENABLED", "true")
	t.Setenv("REDIS_ADDRESS", "redis.internal:6380")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.App.Port)
	assert.EqualValues(t, 85, cfg.Planning.HighUtilizationPercent)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.True(t, cfg.ERP.Enabled)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Address)
}

type mapGetter map[string]string

func (m mapGetter) GetSecretOrEnv(_ context.Context, secretName, _ string) (string, error) {
	v, ok := m[secretName]
	if !ok {
		return "", errors.New("secret not found")
	}
	return v, nil
}

func TestApplySecrets(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{Host: "localhost", User: "planning_user"},
		Auth:     AuthConfig{JWTSecret: "keep-me"},
	}

	applySecrets(context.Background(), cfg, mapGetter{
		"POSTGRES-MAIN-HOST":     "pg.straye.internal",
		"POSTGRES-MAIN-PASSWORD": "vault-password",
		"JWT-SECRET":             "",
		"ERP-URL":                "erp.straye.internal:1433/Purchasing",
	})

	assert.Equal(t, "pg.straye.internal", cfg.Database.Host)
	assert.Equal(t, "vault-password", cfg.Database.Password)
	assert.Equal(t, "planning_user", cfg.Database.User, "unresolved secrets leave the value alone")
	assert.Equal(t, "keep-me", cfg.Auth.JWTSecret, "empty secrets leave the value alone")
	assert.Equal(t, "erp.straye.internal:1433/Purchasing", cfg.ERP.URL)
}

func TestDurations(t *testing.T) {
	assert.Equal(t, 30*time.Second, (&RedisConfig{LockTTL: 30}).LockTTLDuration())
	assert.Equal(t, 2*time.Second, (&RedisConfig{LockWait: 2000}).LockWaitDuration())
	assert.Equal(t, 10*time.Minute, (&SchedulerConfig{JobTimeout: 600}).JobTimeoutDuration())
	assert.Equal(t, 45*time.Second, (&ERPConfig{QueryTimeout: 45}).QueryTimeoutDuration())
}

func TestDatabaseConnectionString(t *testing.T) {
	d := &DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "season_planning", SSLMode: "require"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=season_planning sslmode=require", d.ConnectionString())
}
