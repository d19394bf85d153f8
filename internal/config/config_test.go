package config

import (
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"email-ingest/internal/models"
)

func TestLoad(t *testing.T) {
	yamlContent := `server:
  listen: ":9090"
  shutdownTimeout: 45s
logging:
  level: debug
  format: text
ingest:
  outFile: "/var/lib/ingest/emails.jsonl"
  mailbox: "Archive"
  limit: 25
graph:
  authority: "https://login.example.com"
kafka:
  brokers: "kafka.test.com:9092"
  topic: "mail"
`

	tmpFile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	defer func(name string) {
		_ = os.Remove(name)
	}(tmpFile.Name())

	if _, err := tmpFile.Write([]byte(yamlContent)); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}
	_ = tmpFile.Close()

	cfg, err := Load(tmpFile.Name())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Listen != ":9090" {
		t.Errorf("Expected listen ':9090', got '%s'", cfg.Server.Listen)
	}

	if cfg.Server.ShutdownTimeout != 45*time.Second {
		t.Errorf("Expected shutdownTimeout 45s, got %v", cfg.Server.ShutdownTimeout)
	}

	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Errorf("Expected debug/text logging, got %s/%s", cfg.Logging.Level, cfg.Logging.Format)
	}

	if cfg.Ingest.Mailbox != "Archive" || cfg.Ingest.Limit != 25 {
		t.Errorf("Expected mailbox 'Archive' limit 25, got '%s' %d", cfg.Ingest.Mailbox, cfg.Ingest.Limit)
	}

	// Keys absent from the file keep their defaults
	if cfg.Ingest.GraphOutFile != DefaultGraphOutFile {
		t.Errorf("Expected graphOutFile default '%s', got '%s'", DefaultGraphOutFile, cfg.Ingest.GraphOutFile)
	}

	if cfg.Graph.BaseURL != DefaultGraphBaseURL {
		t.Errorf("Expected baseUrl default '%s', got '%s'", DefaultGraphBaseURL, cfg.Graph.BaseURL)
	}

	if !cfg.Kafka.Enabled() || cfg.Kafka.Topic != "mail" {
		t.Errorf("Expected kafka enabled with topic 'mail', got %+v", cfg.Kafka)
	}
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Ingest.OutFile != "/tmp/shipcube_emails.jsonl" {
		t.Errorf("Expected default outFile, got '%s'", cfg.Ingest.OutFile)
	}

	if cfg.Kafka.Enabled() {
		t.Error("Expected kafka to be disabled by default")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestDecodeIMAP(t *testing.T) {
	defaults := Default().Ingest

	tests := []struct {
		name    string
		raw     string
		wantErr error
		check   func(t *testing.T, cfg models.IMAPConfig)
	}{
		{
			name: "Defaults applied",
			raw:  `{"host":"imap.test.com","username":"u","password":"p"}`,
			check: func(t *testing.T, cfg models.IMAPConfig) {
				if !cfg.UseTLS() {
					t.Error("Expected ssl to default to true")
				}
				if cfg.Address() != "imap.test.com:993" {
					t.Errorf("Address() = %v, want imap.test.com:993", cfg.Address())
				}
				if cfg.Mailbox != "INBOX" || cfg.Limit != 10 || cfg.RecentBy != models.RecentByUID {
					t.Errorf("unexpected defaults: %+v", cfg)
				}
				if cfg.OutFile != DefaultOutFile {
					t.Errorf("OutFile = %v, want %v", cfg.OutFile, DefaultOutFile)
				}
			},
		},
		{
			name: "Plain connection uses 143",
			raw:  `{"host":"imap.test.com","username":"u","password":"p","ssl":false,"limit":3,"out_file":"/tmp/x.jsonl"}`,
			check: func(t *testing.T, cfg models.IMAPConfig) {
				if cfg.UseTLS() {
					t.Error("Expected ssl false")
				}
				if cfg.Address() != "imap.test.com:143" {
					t.Errorf("Address() = %v, want imap.test.com:143", cfg.Address())
				}
				if cfg.Limit != 3 || cfg.OutFile != "/tmp/x.jsonl" {
					t.Errorf("unexpected values: %+v", cfg)
				}
			},
		},
		{
			name:    "Missing host",
			raw:     `{"username":"u","password":"p"}`,
			wantErr: models.ErrMissingHost,
		},
		{
			name:    "Missing password",
			raw:     `{"host":"imap.test.com","username":"u"}`,
			wantErr: models.ErrMissingCredentials,
		},
		{
			name:    "Null config",
			raw:     `null`,
			wantErr: ErrEmptyConfig,
		},
		{
			name:    "Negative limit",
			raw:     `{"host":"h","username":"u","password":"p","limit":-1}`,
			wantErr: models.ErrNegativeLimit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := DecodeIMAP(json.RawMessage(tt.raw), defaults)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("DecodeIMAP() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeIMAP() error = %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestDecodeIMAP_UnknownKey(t *testing.T) {
	_, err := DecodeIMAP(json.RawMessage(`{"host":"h","username":"u","password":"p","folder":"x"}`), Default().Ingest)
	if err == nil {
		t.Error("Expected unknown key to be rejected")
	}
}

func TestDecodeIMAP_UnknownRecentBy(t *testing.T) {
	_, err := DecodeIMAP(json.RawMessage(`{"host":"h","username":"u","password":"p","recent_by":"size"}`), Default().Ingest)
	if err == nil {
		t.Error("Expected unknown recent_by to be rejected")
	}
}

func TestDecodeGraph(t *testing.T) {
	cfg, err := DecodeGraph(json.RawMessage(`{"client_id":"c","client_secret":"s","tenant_id":"t"}`), Default().Ingest)
	if err != nil {
		t.Fatalf("DecodeGraph() error: %v", err)
	}

	if len(cfg.Scopes) != 1 || cfg.Scopes[0] != models.DefaultGraphScope {
		t.Errorf("Scopes = %v, want [%s]", cfg.Scopes, models.DefaultGraphScope)
	}

	if cfg.OutFile != DefaultGraphOutFile {
		t.Errorf("OutFile = %v, want %v", cfg.OutFile, DefaultGraphOutFile)
	}

	if _, err := DecodeGraph(json.RawMessage(`{"client_id":"c"}`), Default().Ingest); err == nil {
		t.Error("Expected missing credentials to be rejected")
	}
}

func TestDecodeMbox(t *testing.T) {
	cfg, err := DecodeMbox(json.RawMessage(`{"path":"/var/mail/test"}`), Default().Ingest)
	if err != nil {
		t.Fatalf("DecodeMbox() error: %v", err)
	}

	if cfg.Limit != 0 {
		t.Errorf("Limit = %d, want 0 (all messages)", cfg.Limit)
	}

	if _, err := DecodeMbox(json.RawMessage(`{"limit":2}`), Default().Ingest); !errors.Is(err, models.ErrMissingPath) {
		t.Errorf("DecodeMbox() error = %v, want %v", err, models.ErrMissingPath)
	}
}
