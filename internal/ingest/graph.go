package ingest

import (
	"context"
	"net/http"
	"strings"

	"email-ingest/internal/graph"
	"email-ingest/internal/mailparse"
	"email-ingest/internal/models"
	"email-ingest/internal/record"

	"github.com/sirupsen/logrus"
)

// GraphDriver ingests the most recent messages of a Microsoft 365 mailbox
type GraphDriver struct {
	authority string
	client    *graph.Client
	out       output
}

// NewGraphDriver creates a driver that acquires tokens under authority and reads
// messages through client
func NewGraphDriver(authority string, client *graph.Client, log logrus.FieldLogger, opts ...Option) *GraphDriver {
	return &GraphDriver{
		authority: authority,
		client:    client,
		out:       newOutput(log, opts),
	}
}

// Ingest acquires an application token, fetches up to cfg.Limit messages and writes
// them to cfg.OutFile
func (d *GraphDriver) Ingest(ctx context.Context, cfg models.GraphConfig) (*models.IngestResult, error) {
	log := d.out.log.WithFields(logrus.Fields{
		"provider": models.ProviderGraph,
		"tenant":   cfg.TenantID,
		"user":     cfg.User,
	})

	token, err := graph.AcquireToken(ctx, d.httpClient(), d.authority, graph.Credentials{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TenantID:     cfg.TenantID,
		Scopes:       cfg.Scopes,
	})
	if err != nil {
		return nil, err
	}

	msgs, err := d.client.FetchMessages(ctx, token, cfg.User, cfg.Limit)
	if err != nil {
		return nil, err
	}

	log.Infof("Fetched %d messages", len(msgs))

	records := make([]models.EmailRecord, 0, len(msgs))
	for _, m := range msgs {
		records = append(records, GraphRecord(m))
	}

	return d.out.finish(ctx, log, cfg.OutFile, records)
}

func (d *GraphDriver) httpClient() *http.Client {
	if d.client == nil {
		return nil
	}
	return d.client.HTTPClient()
}

// GraphRecord maps a Graph message onto an EmailRecord. raw_text holds the message
// exactly as the API returned it; the thread is the conversation id, else the subject.
func GraphRecord(m graph.Message) models.EmailRecord {
	in := record.Input{
		Raw:       string(m.Raw),
		Body:      graphBody(m),
		Subject:   m.Subject,
		Sender:    record.String(m.Sender()),
		ThreadID:  record.String(m.ConversationID),
		MessageID: record.String(m.InternetMessageID),
	}
	if ts, ok := m.ReceivedAt(); ok {
		in.Timestamp = &ts
	}
	return record.Build(in)
}

func graphBody(m graph.Message) string {
	if m.Body == nil || m.Body.Content == "" {
		return m.BodyPreview
	}
	if strings.EqualFold(m.Body.ContentType, "html") {
		return mailparse.Normalize(m.Body.Content)
	}
	return m.Body.Content
}
