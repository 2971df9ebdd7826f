package config

import (
	"os"
	"path/filepath"
)

// Config holds the static service configuration. Storage backend
// credentials are deliberately not here: the storage layer re-reads
// them from the environment on every call so that credential changes
// are picked up without a restart.
type Config struct {
	// Service configuration
	ServicePort string
	ServiceName string

	// Local fallback paths
	DataDir    string // JSON collection documents
	UploadsDir string // blob content tree

	// Admin session
	AdminPassword string

	// OTLP trace collector
	OTLPEndpoint string
}

// LoadConfig loads configuration from environment variables with sensible defaults
func LoadConfig() (*Config, error) {
	config := &Config{
		ServicePort: getEnv("SERVICE_PORT", "8080"),
		ServiceName: getEnv("SERVICE_NAME", "labarchive-service"),

		DataDir:    getEnv("DATA_DIR", filepath.Join("data", "collections")),
		UploadsDir: getEnv("UPLOADS_DIR", filepath.Join("data", "uploads")),

		AdminPassword: getEnv("ADMIN_PASSWORD", ""),

		OTLPEndpoint: getEnv("OTLP_ENDPOINT", "localhost:4318"),
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
