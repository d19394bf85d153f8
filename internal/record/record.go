package record

import (
	"time"

	"email-ingest/internal/mailparse"
	"email-ingest/internal/models"
)

// Input carries the fields a driver extracted from one source message.
// Nil pointers mean the source did not provide the field.
type Input struct {
	Raw       string
	Body      string
	Subject   *string
	Sender    *string
	Timestamp *time.Time
	ThreadID  *string
	MessageID *string
}

// Build assembles a normalized EmailRecord. The body is normalized again even when the
// extractor already did so; Normalize is idempotent on its own output.
// Without an explicit thread id the subject is used when it is non-empty.
func Build(in Input) models.EmailRecord {
	rec := models.EmailRecord{
		RawText:     in.Raw,
		CleanedText: mailparse.Normalize(in.Body),
		Sender:      in.Sender,
		Timestamp:   in.Timestamp,
		Subject:     in.Subject,
		MessageID:   in.MessageID,
		ThreadID:    in.ThreadID,
	}

	if rec.ThreadID == nil && in.Subject != nil && *in.Subject != "" {
		subject := *in.Subject
		rec.ThreadID = &subject
	}

	return rec
}

// FromRaw parses a full message source and builds its record. A source that cannot be
// parsed as MIME still yields a record holding the raw text; the parse error is returned
// alongside so the caller can log it.
func FromRaw(raw []byte) (models.EmailRecord, error) {
	parsed, err := mailparse.Parse(raw)
	if err != nil {
		return Build(Input{Raw: mailparse.DecodeRaw(raw)}), err
	}

	return Build(Input{
		Raw:       mailparse.DecodeRaw(raw),
		Body:      parsed.Body,
		Subject:   parsed.Subject,
		Sender:    parsed.From,
		Timestamp: parsed.Date,
		MessageID: parsed.MessageID,
	}), nil
}

// String returns a pointer to s, or nil when s is empty
func String(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
