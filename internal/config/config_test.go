package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pears-cleaning/internal/datastore"
)

func TestDefaultConfig_Valid(t *testing.T) {
	c := DefaultConfig()
	require.NoError(t, c.Validate())
	assert.Equal(t, 12, c.Schedule.MonthlyDay)
	assert.Equal(t, []int{12, 23}, c.Schedule.QuarterlyDays)
	assert.Equal(t, "exports.pears.oeie.org", c.S3.Bucket)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pears.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
report:
  output_dir: /tmp/reports
  allow_partial: true
  recipients: [lead@illinois.edu]
schedule:
  monthly_day: 14
`), 0o644))

	c, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, "/tmp/reports", c.Report.OutputDir)
	assert.True(t, c.Report.AllowPartial)
	assert.Equal(t, []string{"lead@illinois.edu"}, c.Report.Recipients)
	assert.Equal(t, 14, c.Schedule.MonthlyDay)
	assert.Equal(t, "FCS Evaluation Team", c.Report.TeamName, "defaults survive")
	require.NoError(t, c.Validate())
}

func TestLoadFromFile_Errors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("report: ["), 0o644))
	_, err = LoadFromFile(path)
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestValidate(t *testing.T) {
	c := DefaultConfig()
	c.Report.Recipients = []string{"not-an-email"}
	assert.ErrorContains(t, c.Validate(), "invalid config")

	c = DefaultConfig()
	c.Report.SendEmails = true
	assert.ErrorContains(t, c.Validate(), "mail.host")

	c.Mail.Host = "smtp.illinois.edu"
	c.Mail.From = "pears@illinois.edu"
	assert.NoError(t, c.Validate())
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("PEARS_SMTP_USERNAME", "svc")
	t.Setenv("PEARS_SMTP_PASSWORD", "secret")
	t.Setenv("PEARS_SMTP_PORT", "2525")
	t.Setenv("PEARS_ADMIN_EMAILS", "a@illinois.edu, b@illinois.edu")

	c := DefaultConfig()
	require.NoError(t, c.ApplyEnv())
	assert.Equal(t, "svc", c.Mail.Username)
	assert.Equal(t, "secret", c.Mail.Password)
	assert.Equal(t, 2525, c.Mail.Port)
	assert.Equal(t, []string{"a@illinois.edu", "b@illinois.edu"}, c.Report.AdminRecipients)

	t.Setenv("PEARS_SMTP_PORT", "smtp")
	assert.ErrorContains(t, DefaultConfig().ApplyEnv(), "PEARS_SMTP_PORT")
}

func TestGetDataStoreConfig(t *testing.T) {
	t.Setenv("PEARS_STORE_TYPE", "")
	t.Setenv("DB_CONN_STRING", "")
	assert.Equal(t, datastore.Config{Type: datastore.MemoryStore}, GetDataStoreConfig())

	t.Setenv("DB_CONN_STRING", "postgres://db/pears")
	assert.Equal(t, datastore.Config{Type: datastore.PostgreSQLStore, ConnectionString: "postgres://db/pears"}, GetDataStoreConfig())

	t.Setenv("PEARS_STORE_TYPE", "memory")
	assert.Equal(t, datastore.MemoryStore, GetDataStoreConfig().Type)

	t.Setenv("PEARS_STORE_TYPE", "mongo")
	assert.Equal(t, datastore.Type("mongo"), GetDataStoreConfig().Type)
}
