package models

import "time"

// EmailRecord is the normalized shape every ingested message is reduced to.
// Optional fields are pointers so that absence serializes as null, distinct from "".
type EmailRecord struct {
	RawText     string           `json:"raw_text"`
	CleanedText string           `json:"cleaned_text"`
	Sender      *string          `json:"sender"`
	SenderRole  *string          `json:"sender_role"`
	Timestamp   *time.Time       `json:"timestamp"`
	ThreadID    *string          `json:"thread_id"`
	Subject     *string          `json:"subject"`
	MessageID   *string          `json:"message_id"`
	Language    *string          `json:"language"`
	Entities    []map[string]any `json:"entities"`
}

// ParsedEmail holds the fields extracted from a raw RFC 5322 message
type ParsedEmail struct {
	Subject   *string
	From      *string
	MessageID *string
	Date      *time.Time
	Body      string
}

// IngestResult is what a driver reports after writing a batch
type IngestResult struct {
	Fetched int    `json:"fetched"`
	OutFile string `json:"out_file"`
}
