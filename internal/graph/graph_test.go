package graph

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func newTokenServer(t *testing.T, response string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tenant-1/oauth2/v2.0/token" {
			t.Errorf("unexpected token path %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm() error: %v", err)
		}
		if r.Form.Get("grant_type") != "client_credentials" {
			t.Errorf("grant_type = %q, want client_credentials", r.Form.Get("grant_type"))
		}
		if r.Form.Get("client_id") != "client-1" || r.Form.Get("client_secret") != "secret-1" {
			t.Errorf("unexpected client credentials %q/%q", r.Form.Get("client_id"), r.Form.Get("client_secret"))
		}
		if r.Form.Get("scope") != "https://graph.microsoft.com/.default" {
			t.Errorf("scope = %q", r.Form.Get("scope"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv
}

var testCreds = Credentials{
	ClientID:     "client-1",
	ClientSecret: "secret-1",
	TenantID:     "tenant-1",
	Scopes:       []string{"https://graph.microsoft.com/.default"},
}

func TestAcquireToken(t *testing.T) {
	srv := newTokenServer(t, `{"access_token":"tok-123","token_type":"Bearer","expires_in":3600}`)

	token, err := AcquireToken(context.Background(), srv.Client(), srv.URL, testCreds)
	if err != nil {
		t.Fatalf("AcquireToken() error: %v", err)
	}
	if token != "tok-123" {
		t.Errorf("AcquireToken() = %q, want tok-123", token)
	}
}

func TestAcquireToken_NoAccessToken(t *testing.T) {
	srv := newTokenServer(t, `{"token_type":"Bearer","expires_in":3600}`)

	_, err := AcquireToken(context.Background(), srv.Client(), srv.URL, testCreds)
	if !errors.Is(err, ErrNoAccessToken) {
		t.Errorf("AcquireToken() error = %v, want %v", err, ErrNoAccessToken)
	}
}

func TestAcquireToken_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
	}))
	defer srv.Close()

	_, err := AcquireToken(context.Background(), srv.Client(), srv.URL, testCreds)
	if !errors.Is(err, ErrNoAccessToken) {
		t.Errorf("AcquireToken() error = %v, want %v", err, ErrNoAccessToken)
	}
}

func TestAcquireToken_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := AcquireToken(context.Background(), nil, addr, testCreds)
	if err == nil {
		t.Fatal("Expected an error for an unreachable token endpoint")
	}
	if errors.Is(err, ErrNoAccessToken) {
		t.Errorf("AcquireToken() error = %v, want a transport error, not %v", err, ErrNoAccessToken)
	}
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		t.Errorf("AcquireToken() error = %v, want it to wrap *url.Error", err)
	}
}

func TestTokenURL(t *testing.T) {
	got := TokenURL("https://login.microsoftonline.com/", "abc")
	want := "https://login.microsoftonline.com/abc/oauth2/v2.0/token"
	if got != want {
		t.Errorf("TokenURL() = %v, want %v", got, want)
	}
}

const messagesResponse = `{"value":[
 {"id":"AAA","subject":"Order #123","from":{"emailAddress":{"name":"Shop","address":"orders@shop.example"}},
  "receivedDateTime":"2024-01-02T10:15:00Z","bodyPreview":"Your order","webLink":"https://outlook.example/AAA",
  "conversationId":"conv-1","internetMessageId":"<a@shop.example>","body":{"contentType":"html","content":"<p>Your order</p>"}},
 {"id":"BBB","subject":null,"receivedDateTime":"yesterday","bodyPreview":"no body"}
]}`

func TestFetchMessages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1.0/me/messages" {
			t.Errorf("path = %s, want /v1.0/me/messages", r.URL.Path)
		}
		if r.URL.Query().Get("$top") != "5" {
			t.Errorf("$top = %q, want 5", r.URL.Query().Get("$top"))
		}
		if r.Header.Get("Authorization") != "Bearer tok-123" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		_, _ = w.Write([]byte(messagesResponse))
	}))
	defer srv.Close()

	msgs, err := NewClient(srv.URL, srv.Client()).FetchMessages(context.Background(), "tok-123", "", 5)
	if err != nil {
		t.Fatalf("FetchMessages() error: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(msgs))
	}

	first := msgs[0]
	if first.Sender() != "Shop <orders@shop.example>" {
		t.Errorf("Sender() = %q", first.Sender())
	}
	if ts, ok := first.ReceivedAt(); !ok || ts.Year() != 2024 {
		t.Errorf("ReceivedAt() = %v, %v", ts, ok)
	}
	if first.Body == nil || first.Body.ContentType != "html" {
		t.Errorf("Body = %+v", first.Body)
	}

	var raw map[string]any
	if err := json.Unmarshal(first.Raw, &raw); err != nil || raw["webLink"] != "https://outlook.example/AAA" {
		t.Errorf("Raw does not hold the original object: %s", first.Raw)
	}

	second := msgs[1]
	if second.Subject != nil {
		t.Errorf("Subject = %v, want nil", *second.Subject)
	}
	if _, ok := second.ReceivedAt(); ok {
		t.Error("Expected malformed receivedDateTime to be rejected")
	}
	if second.Sender() != "" {
		t.Errorf("Sender() = %q, want empty", second.Sender())
	}
}

func TestFetchMessages_UserPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1.0/users/ops@shop.example/messages" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"value":[]}`))
	}))
	defer srv.Close()

	msgs, err := NewClient(srv.URL, srv.Client()).FetchMessages(context.Background(), "tok", "ops@shop.example", 10)
	if err != nil {
		t.Fatalf("FetchMessages() error: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("Expected no messages, got %d", len(msgs))
	}
}

func TestFetchMessages_Non2xx(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":"TooManyRequests","message":"slow down"}}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, srv.Client()).FetchMessages(context.Background(), "tok", "", 10)
	if err == nil {
		t.Fatal("Expected an error for a 429 response")
	}
	if !strings.Contains(err.Error(), "TooManyRequests") {
		t.Errorf("error = %v, want the Graph error code", err)
	}
	if calls != 1 {
		t.Errorf("Expected exactly 1 request (no retry), got %d", calls)
	}
}

func TestSender(t *testing.T) {
	tests := []struct {
		name     string
		from     *Recipient
		expected string
	}{
		{name: "No from", from: nil, expected: ""},
		{name: "Address only", from: &Recipient{EmailAddress{Address: "a@x.com"}}, expected: "a@x.com"},
		{name: "Name equals address", from: &Recipient{EmailAddress{Name: "a@x.com", Address: "a@x.com"}}, expected: "a@x.com"},
		{name: "Name only", from: &Recipient{EmailAddress{Name: "Ops"}}, expected: "Ops"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (Message{From: tt.from}).Sender(); got != tt.expected {
				t.Errorf("Sender() = %q, want %q", got, tt.expected)
			}
		})
	}
}
