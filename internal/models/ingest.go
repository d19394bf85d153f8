package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
)

// Recency orderings for the IMAP driver
const (
	RecentByUID          = "uid"
	RecentByInternalDate = "internal_date"
)

const (
	DefaultMailbox    = "INBOX"
	DefaultLimit      = 10
	DefaultGraphScope = "https://graph.microsoft.com/.default"
)

var (
	ErrMissingHost        = errors.New("host is required")
	ErrMissingCredentials = errors.New("username and password are required")
	ErrMissingPath        = errors.New("path is required")
	ErrNegativeLimit      = errors.New("limit must not be negative")
)

// Providers accepted by the trigger endpoints
const (
	ProviderIMAP  = "imap"
	ProviderGraph = "graph"
	ProviderMbox  = "mbox"
)

// IngestRequest is the body accepted by the trigger endpoints and the ingest CLI.
// Config is decoded into the provider's typed config.
type IngestRequest struct {
	Provider string          `json:"provider"`
	Config   json.RawMessage `json:"config"`
}

// IMAPConfig is the typed form of the caller-supplied IMAP ingestion config
type IMAPConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	SSL      *bool  `json:"ssl"`
	OutFile  string `json:"out_file"`
	Mailbox  string `json:"mailbox"`
	Limit    int    `json:"limit"`
	RecentBy string `json:"recent_by"`
}

// ApplyDefaults fills every unset field from d
func (c *IMAPConfig) ApplyDefaults(d IngestDefaults) {
	if c.SSL == nil {
		ssl := true
		c.SSL = &ssl
	}
	if c.Port == 0 {
		if *c.SSL {
			c.Port = 993
		} else {
			c.Port = 143
		}
	}
	if c.OutFile == "" {
		c.OutFile = d.OutFile
	}
	if c.Mailbox == "" {
		c.Mailbox = d.Mailbox
	}
	if c.Mailbox == "" {
		c.Mailbox = DefaultMailbox
	}
	if c.Limit == 0 {
		c.Limit = d.Limit
	}
	if c.Limit == 0 {
		c.Limit = DefaultLimit
	}
	if c.RecentBy == "" {
		c.RecentBy = RecentByUID
	}
}

// Validate checks the config after defaults have been applied
func (c IMAPConfig) Validate() error {
	if c.Host == "" {
		return ErrMissingHost
	}
	if c.Username == "" || c.Password == "" {
		return ErrMissingCredentials
	}
	if c.Limit < 0 {
		return ErrNegativeLimit
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	switch c.RecentBy {
	case RecentByUID, RecentByInternalDate:
	default:
		return fmt.Errorf("unknown recent_by %q", c.RecentBy)
	}
	if c.OutFile == "" {
		return errors.New("out_file is required")
	}
	return nil
}

// UseTLS reports whether the connection should be wrapped in TLS (default true)
func (c IMAPConfig) UseTLS() bool {
	return c.SSL == nil || *c.SSL
}

// Address returns host:port for dialing
func (c IMAPConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// GraphConfig is the typed form of the caller-supplied Graph ingestion config
type GraphConfig struct {
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	TenantID     string   `json:"tenant_id"`
	Scopes       []string `json:"scopes"`
	User         string   `json:"user"`
	Limit        int      `json:"limit"`
	OutFile      string   `json:"out_file"`
}

// ApplyDefaults fills every unset field from d
func (c *GraphConfig) ApplyDefaults(d IngestDefaults) {
	if len(c.Scopes) == 0 {
		c.Scopes = []string{DefaultGraphScope}
	}
	if c.Limit == 0 {
		c.Limit = d.Limit
	}
	if c.Limit == 0 {
		c.Limit = DefaultLimit
	}
	if c.OutFile == "" {
		c.OutFile = d.GraphOutFile
	}
}

// Validate checks the config after defaults have been applied
func (c GraphConfig) Validate() error {
	if c.ClientID == "" || c.ClientSecret == "" || c.TenantID == "" {
		return errors.New("client_id, client_secret and tenant_id are required")
	}
	if c.Limit < 0 {
		return ErrNegativeLimit
	}
	if c.OutFile == "" {
		return errors.New("out_file is required")
	}
	return nil
}

// MboxConfig selects a local mbox file to ingest
type MboxConfig struct {
	Path    string `json:"path"`
	Limit   int    `json:"limit"`
	OutFile string `json:"out_file"`
}

// ApplyDefaults fills the output path from d. A zero limit keeps every message.
func (c *MboxConfig) ApplyDefaults(d IngestDefaults) {
	if c.OutFile == "" {
		c.OutFile = d.MboxOutFile
	}
}

// Validate checks the config after defaults have been applied
func (c MboxConfig) Validate() error {
	if c.Path == "" {
		return ErrMissingPath
	}
	if c.Limit < 0 {
		return ErrNegativeLimit
	}
	if c.OutFile == "" {
		return errors.New("out_file is required")
	}
	return nil
}
