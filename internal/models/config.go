package models

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const (
	DriverMinio  = "minio"
	DriverS3     = "s3"
	DriverMemory = "memory"

	DefaultRegion = "us-east-1"
	// DefaultJWTSecret is only fit for local development.
	DefaultJWTSecret = "change_me_in_production"
)

// StorageConfig describes the blob store and the directory layout inside it.
// Search paths and the private directory use the "/<bucket>/<prefix>" form.
type StorageConfig struct {
	Driver            string   `yaml:"driver"`
	Endpoint          string   `yaml:"endpoint"`
	AccessKey         string   `yaml:"access_key"`
	SecretKey         string   `yaml:"secret_key"`
	Region            string   `yaml:"region"`
	UseSSL            bool     `yaml:"use_ssl"`
	PublicSearchPaths []string `yaml:"public_search_paths"`
	PrivateObjectDir  string   `yaml:"private_object_dir"`
	SignedURLPrefixes []string `yaml:"signed_url_prefixes"`
}

type Config struct {
	ServerAddr      string        `yaml:"server_addr"`
	JWTSecret       string        `yaml:"jwt_secret"`
	LogLevel        string        `yaml:"log_level"`
	CacheTTLSeconds int           `yaml:"cache_ttl_seconds"`
	DatabaseURL     string        `yaml:"database_url"`
	KafkaBroker     string        `yaml:"kafka_broker"`
	KafkaTopic      string        `yaml:"kafka_topic"`
	Storage         StorageConfig `yaml:"storage"`
}

// LoadConfig reads .env (if any), then the YAML file at path (if any), then
// environment overrides, and validates the result.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	cfg.applyEnv(os.Getenv)
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	setString := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	setString(&c.ServerAddr, "SERVER_ADDR")
	setString(&c.JWTSecret, "JWT_SECRET")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.KafkaBroker, "KAFKA_BROKER")
	setString(&c.KafkaTopic, "KAFKA_TOPIC")
	setString(&c.Storage.Driver, "STORAGE_DRIVER")
	setString(&c.Storage.Endpoint, "STORAGE_ENDPOINT")
	setString(&c.Storage.AccessKey, "STORAGE_ACCESS_KEY")
	setString(&c.Storage.SecretKey, "STORAGE_SECRET_KEY")
	setString(&c.Storage.Region, "STORAGE_REGION")
	setString(&c.Storage.PrivateObjectDir, "PRIVATE_OBJECT_DIR")

	if v := getenv("STORAGE_USE_SSL"); v != "" {
		c.Storage.UseSSL = v == "true"
	}
	if v := getenv("CACHE_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.CacheTTLSeconds = n
		}
	}
	if v := getenv("PUBLIC_OBJECT_SEARCH_PATHS"); v != "" {
		c.Storage.PublicSearchPaths = ParseSearchPaths(v)
	}
	if v := getenv("SIGNED_URL_PREFIXES"); v != "" {
		c.Storage.SignedURLPrefixes = ParseSearchPaths(v)
	}
}

func (c *Config) applyDefaults() {
	if c.ServerAddr == "" {
		c.ServerAddr = ":8080"
	}
	if c.JWTSecret == "" {
		c.JWTSecret = DefaultJWTSecret
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.CacheTTLSeconds <= 0 {
		c.CacheTTLSeconds = 3600
	}
	if c.KafkaTopic == "" {
		c.KafkaTopic = "object-uploads"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverMinio
	}
	if c.Storage.Region == "" {
		c.Storage.Region = DefaultRegion
	}
	c.Storage.PublicSearchPaths = dedupe(c.Storage.PublicSearchPaths)
	if len(c.Storage.SignedURLPrefixes) == 0 {
		c.Storage.SignedURLPrefixes = c.Storage.DefaultSignedURLPrefixes()
	}
}

// DefaultSignedURLPrefixes covers legacy Google Cloud Storage URLs and URLs
// signed against the configured endpoint. Without an endpoint the s3 driver
// signs against AWS, in virtual-hosted or path style.
func (s StorageConfig) DefaultSignedURLPrefixes() []string {
	prefixes := []string{"https://storage.googleapis.com/"}
	if base := s.EndpointURL(); base != "" {
		return append(prefixes, base+"/")
	}
	if s.Driver == DriverS3 {
		if bucket := s.PrivateBucket(); bucket != "" {
			region := s.Region
			if region == "" {
				region = DefaultRegion
			}
			prefixes = append(prefixes,
				"https://"+bucket+".s3."+region+".amazonaws.com/",
				"https://"+bucket+".s3.amazonaws.com/",
				"https://s3."+region+".amazonaws.com/"+bucket+"/",
			)
		}
	}
	return prefixes
}

// PrivateBucket is the bucket segment of PrivateObjectDir.
func (s StorageConfig) PrivateBucket() string {
	bucket, _, _ := strings.Cut(strings.TrimPrefix(s.PrivateObjectDir, "/"), "/")
	return bucket
}

// EndpointURL returns the endpoint with a scheme, or "" when no endpoint is set.
func (s StorageConfig) EndpointURL() string {
	if s.Endpoint == "" {
		return ""
	}
	if strings.HasPrefix(s.Endpoint, "http://") || strings.HasPrefix(s.Endpoint, "https://") {
		return strings.TrimRight(s.Endpoint, "/")
	}
	scheme := "http"
	if s.UseSSL {
		scheme = "https"
	}
	return scheme + "://" + strings.TrimRight(s.Endpoint, "/")
}

// UsesDefaultJWTSecret reports whether tokens are checked against the
// development secret.
func (c *Config) UsesDefaultJWTSecret() bool {
	return c.JWTSecret == DefaultJWTSecret
}

// Validate fails on the settings the pipeline cannot start without.
func (c *Config) Validate() error {
	if len(c.Storage.PublicSearchPaths) == 0 {
		return &ConfigurationError{
			Field:  "PUBLIC_OBJECT_SEARCH_PATHS",
			Reason: "not set; provide a comma-separated list of /<bucket>/<prefix> paths",
		}
	}
	if c.Storage.PrivateObjectDir == "" {
		return &ConfigurationError{
			Field:  "PRIVATE_OBJECT_DIR",
			Reason: "not set; provide the /<bucket>/<prefix> directory for private uploads",
		}
	}
	switch c.Storage.Driver {
	case DriverMinio, DriverS3:
		if c.Storage.Endpoint == "" && c.Storage.Driver == DriverMinio {
			return &ConfigurationError{Field: "STORAGE_ENDPOINT", Reason: "required for the minio driver"}
		}
	case DriverMemory:
	default:
		return &ConfigurationError{Field: "STORAGE_DRIVER", Reason: fmt.Sprintf("unknown driver %q", c.Storage.Driver)}
	}
	return nil
}

// ParseSearchPaths splits a comma-separated list, trimming blanks and
// dropping duplicates while keeping the first occurrence order.
func ParseSearchPaths(raw string) []string {
	return dedupe(strings.Split(raw, ","))
}

func dedupe(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
