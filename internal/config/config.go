package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port         string
	S3Bucket     string
	S3Region     string
	S3Endpoint   string
	AWSAccessKey string
	AWSSecretKey string
	DatabaseURL  string
	CDNDomain    string
	APIKey       string
}

func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8080"),
		S3Bucket:     getEnv("S3_BUCKET", ""),
		S3Region:     getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:   getEnv("S3_ENDPOINT", ""),
		AWSAccessKey: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		CDNDomain:    getEnv("CDN_DOMAIN", ""),
		APIKey:       getEnv("API_KEY", ""),
	}
}

// UploadConfig holds the upload planning policy. Part size is fixed so
// per-part progress can be weighted equally.
type UploadConfig struct {
	MaxFileSizeBytes        int64    `yaml:"max_file_size_bytes"`
	MultipartThresholdBytes int64    `yaml:"multipart_threshold_bytes"`
	PartSizeBytes           int64    `yaml:"part_size_bytes"`
	URLTTLMinutes           int      `yaml:"url_ttl_minutes"`
	StaleTimeoutMinutes     int      `yaml:"stale_timeout_minutes"`
	ReapIntervalMinutes     int      `yaml:"reap_interval_minutes"`
	AllowedMimes            []string `yaml:"allowed_mimes"`
}

func LoadUploadConfig() (*UploadConfig, error) {
	configPath := getEnv("UPLOAD_CONFIG_PATH", "upload-config.yaml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultUploadConfig(), nil
		}
		return nil, fmt.Errorf("failed to read upload config: %w", err)
	}

	config := DefaultUploadConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse upload config: %w", err)
	}

	return config, nil
}

func DefaultUploadConfig() *UploadConfig {
	return &UploadConfig{
		MaxFileSizeBytes:        50 * 1024 * 1024,
		MultipartThresholdBytes: 10 * 1024 * 1024,
		PartSizeBytes:           5 * 1024 * 1024,
		URLTTLMinutes:           15,
		StaleTimeoutMinutes:     60,
		ReapIntervalMinutes:     10,
		AllowedMimes: []string{
			"image/jpeg",
			"image/png",
			"image/webp",
			"image/heic",
		},
	}
}

func (c *UploadConfig) URLTTL() time.Duration {
	return time.Duration(c.URLTTLMinutes) * time.Minute
}

func (c *UploadConfig) StaleTimeout() time.Duration {
	return time.Duration(c.StaleTimeoutMinutes) * time.Minute
}

func (c *UploadConfig) ReapInterval() time.Duration {
	return time.Duration(c.ReapIntervalMinutes) * time.Minute
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
