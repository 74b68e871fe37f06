package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("STORAGE_ENDPOINT", "minio.internal:9000")
	t.Setenv("STORAGE_ACCESS_KEY", "test-access")
	t.Setenv("STORAGE_SECRET_KEY", "test-secret")
	t.Setenv("SNS_TOPIC_ARN", "arn:aws:sns:ap-southeast-5:123456789012:invoices")
	t.Setenv("OPENAI_API_KEY", "sk-test")
}

func TestLoad_DefaultsAndEnvBinding(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	setRequiredEnv(t)

	path := writeConfig(t, `
server:
  port: 9090
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	// Explicit value wins, the rest falls back to defaults
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "data/invoices.db", cfg.Database.Path)
	assert.Equal(t, "generated-invoice-pdf", cfg.Storage.InvoiceBucket)
	assert.Equal(t, "static-invoice-template", cfg.Storage.TemplateBucket)
	assert.Equal(t, "invoice_template.html", cfg.Storage.TemplateKey)
	assert.Equal(t, 30*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, "gpt-4", cfg.Oracle.Model)
	assert.Equal(t, 10*time.Minute, cfg.WhatsApp.DedupTTL)

	// Secrets come from the environment
	assert.Equal(t, "minio.internal:9000", cfg.Storage.Endpoint)
	assert.Equal(t, "test-access", cfg.Storage.AccessKey)
	assert.Equal(t, "test-secret", cfg.Storage.SecretKey)
	assert.Equal(t, "sk-test", cfg.Oracle.APIKey)
	assert.Equal(t, "arn:aws:sns:ap-southeast-5:123456789012:invoices", cfg.Notify.TopicARN)
}

func TestLoad_MissingRequiredSecrets(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	setRequiredEnv(t)
	t.Setenv("OPENAI_API_KEY", "")

	path := writeConfig(t, "server:\n  port: 8080\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oracle.api_key")
}

func TestLoad_MissingFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Config{
		Storage: StorageConfig{Endpoint: "minio:9000", AccessKey: "a", SecretKey: "s"},
		Notify:  NotifyConfig{TopicARN: "arn:aws:sns:x"},
		Oracle:  OracleConfig{APIKey: "sk"},
	}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing storage endpoint", func(c *Config) { c.Storage.Endpoint = "" }},
		{"missing access key", func(c *Config) { c.Storage.AccessKey = "" }},
		{"missing secret key", func(c *Config) { c.Storage.SecretKey = "" }},
		{"missing topic arn", func(c *Config) { c.Notify.TopicARN = "" }},
		{"missing oracle key", func(c *Config) { c.Oracle.APIKey = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
