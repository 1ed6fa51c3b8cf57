package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the autograder API service.
type Config struct {
	AppName        string
	AppEnv         string
	AppPort        string
	EngineURL      string
	EngineTimeout  time.Duration
	UploadDir      string
	ResultsDir     string
	MaxFileSizeMB  int
	MaxBatchFiles  int
	ReclaimDelay   time.Duration
	WorkbookAuthor string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// MaxFileSizeBytes returns the per-file upload ceiling in bytes.
func (c Config) MaxFileSizeBytes() int64 {
	return int64(c.MaxFileSizeMB) * 1024 * 1024
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("AUTOGRADER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "C Autograder API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "5000")
	v.SetDefault("engine.url", "http://localhost:8000")
	v.SetDefault("engine.timeout", "300s")
	v.SetDefault("upload.dir", "uploads")
	v.SetDefault("results.dir", "results")
	v.SetDefault("upload.max_file_size_mb", 10)
	v.SetDefault("upload.max_batch_files", 1000)
	v.SetDefault("upload.reclaim_delay", "60s")
	v.SetDefault("workbook.author", "C Autograder")

	engineTimeout, err := time.ParseDuration(v.GetString("engine.timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid engine timeout: %w", err)
	}

	reclaimDelay, err := time.ParseDuration(v.GetString("upload.reclaim_delay"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid reclaim delay: %w", err)
	}

	cfg := Config{
		AppName:        v.GetString("app.name"),
		AppEnv:         v.GetString("app.env"),
		AppPort:        v.GetString("app.port"),
		EngineURL:      strings.TrimRight(v.GetString("engine.url"), "/"),
		EngineTimeout:  engineTimeout,
		UploadDir:      v.GetString("upload.dir"),
		ResultsDir:     v.GetString("results.dir"),
		MaxFileSizeMB:  v.GetInt("upload.max_file_size_mb"),
		MaxBatchFiles:  v.GetInt("upload.max_batch_files"),
		ReclaimDelay:   reclaimDelay,
		WorkbookAuthor: v.GetString("workbook.author"),
	}

	if cfg.EngineURL == "" {
		return Config{}, fmt.Errorf("engine url must be provided")
	}

	if cfg.MaxFileSizeMB <= 0 {
		cfg.MaxFileSizeMB = 10
	}

	if cfg.MaxBatchFiles <= 0 {
		cfg.MaxBatchFiles = 1000
	}

	return cfg, nil
}
