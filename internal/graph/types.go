package graph

import (
	"encoding/json"
	"time"
)

// Credentials identify an application registration for the client-credentials grant
type Credentials struct {
	ClientID     string
	ClientSecret string
	TenantID     string
	Scopes       []string
}

// EmailAddress is a Graph emailAddress resource
type EmailAddress struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Recipient wraps an EmailAddress
type Recipient struct {
	EmailAddress EmailAddress `json:"emailAddress"`
}

// ItemBody is a message body with its content type ("text" or "html")
type ItemBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

// Message holds the fields of a Graph message resource used for ingestion.
// Raw keeps the object exactly as the API returned it.
type Message struct {
	ID                string     `json:"id"`
	Subject           *string    `json:"subject"`
	From              *Recipient `json:"from"`
	ReceivedDateTime  string     `json:"receivedDateTime"`
	BodyPreview       string     `json:"bodyPreview"`
	Body              *ItemBody  `json:"body"`
	WebLink           string     `json:"webLink"`
	ConversationID    string     `json:"conversationId"`
	InternetMessageID string     `json:"internetMessageId"`

	Raw json.RawMessage `json:"-"`
}

// ReceivedAt parses receivedDateTime. ok is false when the value is missing or malformed.
func (m Message) ReceivedAt() (t time.Time, ok bool) {
	if m.ReceivedDateTime == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, m.ReceivedDateTime)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Sender renders the from field as "Name <address>", or just the address
func (m Message) Sender() string {
	if m.From == nil {
		return ""
	}
	addr := m.From.EmailAddress
	switch {
	case addr.Name != "" && addr.Address != "" && addr.Name != addr.Address:
		return addr.Name + " <" + addr.Address + ">"
	case addr.Address != "":
		return addr.Address
	default:
		return addr.Name
	}
}

// messagePage is one page of the messages collection
type messagePage struct {
	Value []json.RawMessage `json:"value"`
}

// errorResponse is the Graph error envelope
type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
