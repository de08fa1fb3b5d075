// Package config loads application settings from environment variables.
// A .env file in the working directory is read first when present.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Detection DetectionConfig
	Upload    UploadConfig
	Logging   LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	// BodyLimit is the maximum request body in bytes (default: 25MB)
	BodyLimit int `env:"SERVER_BODY_LIMIT" default:"26214400"`

	// CORSOrigins is a comma-separated list of allowed origins
	CORSOrigins []string `env:"CORS_ORIGINS" default:"*"`

	// ShutdownTimeout bounds graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// StorageConfig holds file and job store settings.
type StorageConfig struct {
	// DataDir holds one directory per job (default: ./data/jobs)
	DataDir string `env:"DATA_DIR" default:"./data/jobs"`

	// DatabaseURL selects the job store: postgres://, sqlite:// or a file path
	DatabaseURL string `env:"DATABASE_URL" envAlt:"DB_URL" default:"./data/jobs.db"`
}

// DetectionConfig holds format detection settings.
type DetectionConfig struct {
	// FormatsDir overrides the built-in format definitions when set
	FormatsDir string `env:"FORMATS_DIR"`

	// SamplePages is how many leading pages are read for detection (default: 2)
	SamplePages int `env:"DETECT_SAMPLE_PAGES" default:"2"`
}

// UploadConfig holds upload processing settings.
type UploadConfig struct {
	// MaxConcurrent is the maximum number of uploads processed at once (default: 4)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long to wait for a processing slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`

	// PreviewRows is how many movements the parse response returns (default: 50)
	PreviewRows int `env:"PREVIEW_ROWS" default:"50"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the console format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`

	// File additionally receives JSON logs when set
	File string `env:"LOG_FILE"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
