package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseYAML = `
app:
  name: dd-qualification
camunda:
  broker_address: localhost:26500
database:
  postgres:
    host: localhost
    database: diligence
    user: ${QUAL_TEST_DB_USER}
  redis:
    address: localhost:6379
workers:
  refresh-qualification:
    enabled: true
    timeout: 45000
  get-qualification-snapshot:
    enabled: false
qualification:
  snapshot_ttl: 60000
notifications:
  sns:
    enabled: true
    topic_arn: arn:aws:sns:us-east-1:123456789012:qualification-alerts
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile(t *testing.T) {
	t.Setenv("QUAL_TEST_DB_USER", "scorer")

	cfg, err := LoadFromFile(writeConfig(t, baseYAML))
	require.NoError(t, err)

	assert.Equal(t, "scorer", cfg.Database.Postgres.User)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)
	assert.True(t, cfg.Database.Redis.Enabled())
	assert.False(t, cfg.Database.Elasticsearch.Enabled())
	assert.Equal(t, time.Minute, cfg.Qualification.SnapshotTTLDuration())
	assert.Equal(t, "qualification-findings", cfg.Qualification.FindingsIndex)
	assert.Equal(t, "qualification:snapshot:", cfg.Qualification.SnapshotPrefix)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "dd-qualification", cfg.Observability.ServiceName)
	assert.NoError(t, cfg.Camunda.Validate())
}

func TestLoadFromFile_EnvOverridesFile(t *testing.T) {
	t.Setenv("QUAL_TEST_DB_USER", "scorer")
	t.Setenv("DATABASE_POSTGRES_HOST", "db.internal")

	cfg, err := LoadFromFile(writeConfig(t, baseYAML))
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Database.Postgres.Host)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "missing postgres host",
			body:    "database:\n  postgres:\n    database: d\n    user: u\n",
			wantErr: "database.postgres.host is required",
		},
		{
			name: "sns without topic",
			body: "database:\n  postgres:\n    host: h\n    database: d\n    user: u\n" +
				"notifications:\n  sns:\n    enabled: true\n",
			wantErr: "notifications.sns.topic_arn is required",
		},
		{
			name: "ses without recipients",
			body: "database:\n  postgres:\n    host: h\n    database: d\n    user: u\n" +
				"notifications:\n  ses:\n    enabled: true\n    from_email: dd@example.com\n",
			wantErr: "notifications.ses.recipients is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWorkerConfigHelpers(t *testing.T) {
	t.Setenv("QUAL_TEST_DB_USER", "scorer")
	cfg, err := LoadFromFile(writeConfig(t, baseYAML))
	require.NoError(t, err)

	refresh := GetWorkerConfig(cfg, "refresh-qualification")
	assert.Equal(t, 45000, refresh.Timeout)
	assert.Equal(t, 5, refresh.MaxJobsActive)
	assert.Equal(t, 3, refresh.MaxRetries)

	assert.False(t, IsWorkerEnabled(cfg, "get-qualification-snapshot"))
	assert.True(t, IsWorkerEnabled(cfg, "compute-qualification-score"))

	fallback := GetWorkerConfig(cfg, "validate-qualification")
	assert.Equal(t, 30000, fallback.Timeout)
	assert.Equal(t, 45*time.Second, GetDuration(refresh.Timeout))
}

func TestCamundaValidate(t *testing.T) {
	assert.Error(t, CamundaConfig{}.Validate())
}
