package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"email-ingest/internal/models"

	"gopkg.in/yaml.v2"
)

const (
	DefaultListen          = ":8000"
	DefaultShutdownTimeout = 30 * time.Second
	DefaultOutFile         = "/tmp/shipcube_emails.jsonl"
	DefaultGraphOutFile    = "/tmp/shipcube_graph_emails.jsonl"
	DefaultMboxOutFile     = "/tmp/shipcube_mbox_emails.jsonl"
	DefaultAuthority       = "https://login.microsoftonline.com"
	DefaultGraphBaseURL    = "https://graph.microsoft.com"
)

// ErrEmptyConfig is returned when a request carries no config object
var ErrEmptyConfig = errors.New("config is required")

// Default returns the configuration used when no file overrides it
func Default() *models.Config {
	return &models.Config{
		Server: models.ServerConfig{
			Listen:          DefaultListen,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Logging: models.LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Ingest: models.IngestDefaults{
			OutFile:      DefaultOutFile,
			GraphOutFile: DefaultGraphOutFile,
			MboxOutFile:  DefaultMboxOutFile,
			Mailbox:      models.DefaultMailbox,
			Limit:        models.DefaultLimit,
		},
		Graph: models.GraphEndpoints{
			Authority: DefaultAuthority,
			BaseURL:   DefaultGraphBaseURL,
		},
		Kafka: models.KafkaConfig{
			Topic: "emails",
		},
	}
}

// Load reads the configuration from the specified YAML file on top of Default.
// An empty path returns the defaults.
func Load(filepath string) (*models.Config, error) {
	config := Default()
	if filepath == "" {
		return config, nil
	}

	configFile, err := os.ReadFile(filepath)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(configFile, config); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath, err)
	}

	if config.Ingest.Limit < 0 {
		return nil, fmt.Errorf("ingest.limit: %w", models.ErrNegativeLimit)
	}

	return config, nil
}

// DecodeIMAP decodes a request config into a validated IMAPConfig with defaults applied
func DecodeIMAP(raw json.RawMessage, defaults models.IngestDefaults) (models.IMAPConfig, error) {
	var cfg models.IMAPConfig
	if err := decodeStrict(raw, &cfg); err != nil {
		return cfg, err
	}
	cfg.ApplyDefaults(defaults)
	return cfg, cfg.Validate()
}

// DecodeGraph decodes a request config into a validated GraphConfig with defaults applied
func DecodeGraph(raw json.RawMessage, defaults models.IngestDefaults) (models.GraphConfig, error) {
	var cfg models.GraphConfig
	if err := decodeStrict(raw, &cfg); err != nil {
		return cfg, err
	}
	cfg.ApplyDefaults(defaults)
	return cfg, cfg.Validate()
}

// DecodeMbox decodes a request config into a validated MboxConfig with defaults applied
func DecodeMbox(raw json.RawMessage, defaults models.IngestDefaults) (models.MboxConfig, error) {
	var cfg models.MboxConfig
	if err := decodeStrict(raw, &cfg); err != nil {
		return cfg, err
	}
	cfg.ApplyDefaults(defaults)
	return cfg, cfg.Validate()
}

// decodeStrict rejects keys the target struct does not declare
func decodeStrict(raw json.RawMessage, v any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ErrEmptyConfig
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
