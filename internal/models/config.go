package models

import "time"

// Config represents the service configuration
type Config struct {
	Server  ServerConfig   `yaml:"server"`
	Logging LoggingConfig  `yaml:"logging"`
	Ingest  IngestDefaults `yaml:"ingest"`
	Graph   GraphEndpoints `yaml:"graph"`
	Kafka   KafkaConfig    `yaml:"kafka"`
}

// ServerConfig represents the HTTP trigger service settings
type ServerConfig struct {
	Listen          string        `yaml:"listen"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// LoggingConfig selects the logrus level and formatter
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "text"
}

// IngestDefaults are applied to every driver config that leaves them unset
type IngestDefaults struct {
	OutFile      string `yaml:"outFile"`
	GraphOutFile string `yaml:"graphOutFile"`
	MboxOutFile  string `yaml:"mboxOutFile"`
	Mailbox      string `yaml:"mailbox"`
	Limit        int    `yaml:"limit"`
}

// GraphEndpoints locates the identity platform and the Graph REST API
type GraphEndpoints struct {
	Authority string `yaml:"authority"`
	BaseURL   string `yaml:"baseUrl"`
}

// KafkaConfig enables record publishing when Brokers is set
type KafkaConfig struct {
	Brokers  string `yaml:"brokers"`
	Topic    string `yaml:"topic"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Enabled reports whether a broker address was configured
func (k KafkaConfig) Enabled() bool {
	return k.Brokers != ""
}
