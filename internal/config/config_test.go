package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PORT", "9000")
	t.Setenv("IDEMPOTENCY_TTL", "1h")
	t.Setenv("POLICY_FILE", "/etc/assetfiles/policy.yaml")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, int64(10), cfg.Server.MaxUploadSizeMB)
	assert.Equal(t, time.Hour, cfg.Server.IdempotencyTTL)
	assert.Equal(t, "assetfiles", cfg.MongoDB.Database)
	assert.Equal(t, "asset-files", cfg.S3.Bucket)
	assert.Equal(t, "/etc/assetfiles/policy.yaml", cfg.Policy.File)
	assert.False(t, cfg.OTEL.Enabled)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		cfg.JWT.Secret = "secret"
		cfg.Server.MaxUploadSizeMB = 10
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing secret", mutate: func(c *Config) { c.JWT.Secret = "" }, wantErr: "JWT_SECRET"},
		{name: "zero upload size", mutate: func(c *Config) { c.Server.MaxUploadSizeMB = 0 }, wantErr: "MAX_UPLOAD_SIZE_MB"},
		{name: "otel without endpoint", mutate: func(c *Config) { c.OTEL.Enabled = true }, wantErr: "OTEL_EXPORTER_OTLP_ENDPOINT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParsePolicy(t *testing.T) {
	pf, err := ParsePolicy([]byte(`
file_types:
  media_layer:
    allowed_extensions: [".csv", ".kml"]
    allowed_mime_type_prefixes: ["text/csv"]
  generic: {}
`))
	require.NoError(t, err)

	require.Contains(t, pf.FileTypes, "media_layer")
	assert.Equal(t, []string{".csv", ".kml"}, pf.FileTypes["media_layer"].AllowedExtensions)
	assert.Equal(t, []string{"text/csv"}, pf.FileTypes["media_layer"].AllowedMimeTypePrefixes)
	assert.Nil(t, pf.FileTypes["generic"].AllowedExtensions)

	_, err = ParsePolicy([]byte("file_types: {}\n"))
	assert.Error(t, err)

	_, err = ParsePolicy([]byte("file_types: [oops"))
	assert.Error(t, err)
}
