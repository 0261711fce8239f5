package models

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSearchPaths(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"single", "/bucket/public", []string{"/bucket/public"}},
		{"trims and drops blanks", " /a/public , ,/b/public ", []string{"/a/public", "/b/public"}},
		{"dedupes keeping order", "/a/x,/b/y,/a/x", []string{"/a/x", "/b/y"}},
		{"empty", " , ", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSearchPaths(tt.raw))
		})
	}
}

func TestConfig_ValidateMissingSearchPaths(t *testing.T) {
	cfg := &Config{Storage: StorageConfig{PrivateObjectDir: "/bucket/.private", Driver: DriverMemory}}

	err := cfg.Validate()

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "PUBLIC_OBJECT_SEARCH_PATHS", cfgErr.Field)
}

func TestConfig_ValidateMissingPrivateDir(t *testing.T) {
	cfg := &Config{Storage: StorageConfig{PublicSearchPaths: []string{"/bucket/public"}, Driver: DriverMemory}}

	err := cfg.Validate()

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "PRIVATE_OBJECT_DIR", cfgErr.Field)
}

func TestConfig_ValidateUnknownDriver(t *testing.T) {
	cfg := &Config{Storage: StorageConfig{
		PublicSearchPaths: []string{"/bucket/public"},
		PrivateObjectDir:  "/bucket/.private",
		Driver:            "ftp",
	}}

	var cfgErr *ConfigurationError
	require.ErrorAs(t, cfg.Validate(), &cfgErr)
	assert.Equal(t, "STORAGE_DRIVER", cfgErr.Field)
}

func TestConfig_ApplyEnvOverridesYAML(t *testing.T) {
	cfg := &Config{Storage: StorageConfig{PrivateObjectDir: "/yaml/.private"}}
	env := map[string]string{
		"PUBLIC_OBJECT_SEARCH_PATHS": "/media/public,/media/legacy",
		"PRIVATE_OBJECT_DIR":         "/media/.private",
		"STORAGE_USE_SSL":            "true",
		"CACHE_TTL_SECONDS":          "120",
	}

	cfg.applyEnv(func(k string) string { return env[k] })
	cfg.applyDefaults()

	assert.Equal(t, []string{"/media/public", "/media/legacy"}, cfg.Storage.PublicSearchPaths)
	assert.Equal(t, "/media/.private", cfg.Storage.PrivateObjectDir)
	assert.True(t, cfg.Storage.UseSSL)
	assert.Equal(t, 120, cfg.CacheTTLSeconds)
	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, DriverMinio, cfg.Storage.Driver)
}

func TestStorageConfig_DefaultSignedURLPrefixes(t *testing.T) {
	s := StorageConfig{Endpoint: "localhost:9000"}
	assert.Equal(t, []string{"https://storage.googleapis.com/", "http://localhost:9000/"}, s.DefaultSignedURLPrefixes())

	s = StorageConfig{Endpoint: "s3.example.com", UseSSL: true}
	assert.Equal(t, "https://s3.example.com", s.EndpointURL())

	assert.Equal(t, []string{"https://storage.googleapis.com/"}, StorageConfig{}.DefaultSignedURLPrefixes())
}

func TestStorageConfig_DefaultSignedURLPrefixesForAWS(t *testing.T) {
	s := StorageConfig{Driver: DriverS3, Region: "eu-west-1", PrivateObjectDir: "/kennel-media/.private"}

	assert.Equal(t, []string{
		"https://storage.googleapis.com/",
		"https://kennel-media.s3.eu-west-1.amazonaws.com/",
		"https://kennel-media.s3.amazonaws.com/",
		"https://s3.eu-west-1.amazonaws.com/kennel-media/",
	}, s.DefaultSignedURLPrefixes())
	assert.Equal(t, "kennel-media", s.PrivateBucket())

	s.Endpoint = "s3.internal:9000"
	assert.Equal(t, []string{"https://storage.googleapis.com/", "http://s3.internal:9000/"}, s.DefaultSignedURLPrefixes())
}

func TestConfig_DefaultJWTSecretIsFlagged(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()
	assert.True(t, cfg.UsesDefaultJWTSecret())

	cfg = &Config{JWTSecret: "s3cr3t"}
	cfg.applyDefaults()
	assert.False(t, cfg.UsesDefaultJWTSecret())
}

func TestLoadConfig_FromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := `
server_addr: ":9090"
storage:
  driver: memory
  public_search_paths: ["/media/public"]
  private_object_dir: /media/.private
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))
	t.Setenv("PUBLIC_OBJECT_SEARCH_PATHS", "")
	t.Setenv("PRIVATE_OBJECT_DIR", "")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.ServerAddr)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, []string{"/media/public"}, cfg.Storage.PublicSearchPaths)
	assert.Equal(t, 3600, cfg.CacheTTLSeconds)
}

func TestLoadConfig_MissingRequiredFailsFast(t *testing.T) {
	t.Setenv("PUBLIC_OBJECT_SEARCH_PATHS", "")
	t.Setenv("PRIVATE_OBJECT_DIR", "")

	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestObjectInfo_MetadataValueIgnoresCase(t *testing.T) {
	info := ObjectInfo{Metadata: map[string]string{"Acl-Policy": "{}"}}

	v, ok := info.MetadataValue("acl-policy")
	assert.True(t, ok)
	assert.Equal(t, "{}", v)

	_, ok = info.MetadataValue("missing")
	assert.False(t, ok)
}
