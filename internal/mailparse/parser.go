package mailparse

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"email-ingest/internal/models"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
)

const (
	contentTypePlain   = "text/plain"
	contentTypeHTML    = "text/html"
	contentTypeMessage = "message/rfc822"
)

// Parse reads a raw RFC 5322 message into a ParsedEmail. A malformed Date header
// yields a nil Date rather than an error. The header block ends at the first line that
// is not a header field; everything from that line on is read as the body.
func Parse(raw []byte) (*models.ParsedEmail, error) {
	entity, err := message.Read(bytes.NewReader(raw))
	if err != nil && !isRecoverable(err) {
		entity, err = message.Read(bytes.NewReader(splitHeader(raw)))
		if err != nil && !isRecoverable(err) {
			return nil, fmt.Errorf("reading message: %w", err)
		}
	}

	header := mail.Header{Header: entity.Header}

	email := &models.ParsedEmail{
		Subject:   decodedHeader(header, "Subject"),
		From:      decodedHeader(header, "From"),
		MessageID: messageID(header),
	}

	if date, err := header.Date(); err == nil {
		email.Date = &date
	}

	email.Body = ExtractBody(entity)

	return email, nil
}

// ExtractBody selects the best textual representation of a message.
// For multipart messages the first text/plain part wins, then the first text/html
// part (normalized), then the empty string; attached message/rfc822 parts are searched
// too. A single-part message is returned decoded, normalized first when it is HTML.
func ExtractBody(entity *message.Entity) string {
	if !isMultipart(entity) && contentType(entity) != contentTypeMessage {
		body := readBody(entity)
		if body == "" {
			return ""
		}
		if contentType(entity) == contentTypeHTML {
			return Normalize(body)
		}
		return body
	}

	var c bodyCandidates
	c.collect(entity)

	if c.hasPlain {
		return c.plain
	}
	if c.hasHTML {
		return Normalize(c.html)
	}
	return ""
}

// bodyCandidates holds the first text/plain and first text/html part found
type bodyCandidates struct {
	plain, html       string
	hasPlain, hasHTML bool
}

// collect walks entity depth first. Bodies are streams, so one walk gathers both
// candidates; attached messages are descended into in place.
func (c *bodyCandidates) collect(entity *message.Entity) {
	_ = entity.Walk(func(path []int, part *message.Entity, err error) error {
		if part == nil || (err != nil && !isRecoverable(err)) {
			return nil
		}
		switch contentType(part) {
		case contentTypePlain:
			if !c.hasPlain {
				c.plain, c.hasPlain = readBody(part), true
			}
		case contentTypeHTML:
			if !c.hasHTML {
				c.html, c.hasHTML = readBody(part), true
			}
		case contentTypeMessage:
			if part.Body == nil {
				return nil
			}
			inner, err := message.Read(part.Body)
			if err != nil && !isRecoverable(err) {
				return nil
			}
			c.collect(inner)
		}
		return nil
	})
}

func isMultipart(entity *message.Entity) bool {
	t, _, err := entity.Header.ContentType()
	return err == nil && strings.HasPrefix(strings.ToLower(t), "multipart/")
}

// contentType mirrors the usual default: a missing or unparsable type is text/plain
func contentType(entity *message.Entity) string {
	t, _, err := entity.Header.ContentType()
	if err != nil || t == "" {
		return contentTypePlain
	}
	return strings.ToLower(t)
}

func readBody(entity *message.Entity) string {
	if entity.Body == nil {
		return ""
	}
	b, err := io.ReadAll(entity.Body)
	if err != nil && len(b) == 0 {
		return ""
	}
	return decodeUTF8(b)
}

// decodedHeader returns nil when the header is absent, the RFC 2047 decoded value
// when possible and the raw value otherwise
func decodedHeader(header mail.Header, key string) *string {
	if !header.Has(key) {
		return nil
	}
	value, err := header.Text(key)
	if err != nil {
		value = header.Get(key)
	}
	return &value
}

func messageID(header mail.Header) *string {
	if !header.Has("Message-Id") {
		return nil
	}
	id, err := header.MessageID()
	if err != nil || id == "" {
		raw := strings.TrimSpace(header.Get("Message-Id"))
		if raw == "" {
			return nil
		}
		return &raw
	}
	return &id
}

// splitHeader rebuilds raw so that its header block ends before the first line that is
// neither a header field nor a continuation. That line and the rest become the body.
func splitHeader(raw []byte) []byte {
	rest := raw
	var header []byte
	for len(rest) > 0 {
		line := rest
		if i := bytes.IndexByte(rest, '\n'); i >= 0 {
			line = rest[:i+1]
		}
		trimmed := bytes.TrimRight(line, "\r\n")
		if len(trimmed) == 0 {
			return raw
		}
		isContinuation := len(header) > 0 && (trimmed[0] == ' ' || trimmed[0] == '\t')
		if !isContinuation && !isHeaderField(trimmed) {
			break
		}
		header = append(header, line...)
		rest = rest[len(line):]
	}

	out := make([]byte, 0, len(raw)+4)
	out = append(out, header...)
	if len(header) > 0 && header[len(header)-1] != '\n' {
		out = append(out, "\r\n"...)
	}
	out = append(out, "\r\n"...)
	return append(out, rest...)
}

// isHeaderField reports whether line starts with a printable field name and a colon
func isHeaderField(line []byte) bool {
	i := bytes.IndexByte(line, ':')
	if i <= 0 {
		return false
	}
	for _, b := range line[:i] {
		if b <= ' ' || b > '~' {
			return false
		}
	}
	return true
}

func isRecoverable(err error) bool {
	return message.IsUnknownCharset(err) || message.IsUnknownEncoding(err)
}
