package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const messageFields = "id,subject,from,receivedDateTime,bodyPreview,body,webLink,conversationId,internetMessageId"

// Client is a thin HTTP client for the Graph messages endpoint. It sends one request
// per call and never retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Graph client rooted at baseURL (e.g. https://graph.microsoft.com)
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// HTTPClient returns the client used for API calls
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// FetchMessages returns up to top most recent messages of user, or of the token's
// owner when user is empty. Any non-2xx response is an error.
func (c *Client) FetchMessages(ctx context.Context, token, user string, top int) ([]Message, error) {
	path := "/v1.0/me/messages"
	if user != "" {
		path = "/v1.0/users/" + url.PathEscape(user) + "/messages"
	}

	q := url.Values{}
	q.Set("$top", strconv.Itoa(top))
	q.Set("$select", messageFields)
	q.Set("$orderby", "receivedDateTime desc")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request GET %s: %w", path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var graphErr errorResponse
		if json.Unmarshal(body, &graphErr) == nil && graphErr.Error.Code != "" {
			return nil, fmt.Errorf("graph API error (%d) on GET %s: %s: %s",
				resp.StatusCode, path, graphErr.Error.Code, graphErr.Error.Message)
		}
		return nil, fmt.Errorf("unexpected status %d on GET %s: %s", resp.StatusCode, path, string(body))
	}

	var page messagePage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("unmarshaling response from GET %s: %w", path, err)
	}

	messages := make([]Message, 0, len(page.Value))
	for i, raw := range page.Value {
		var m Message
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("unmarshaling message %d: %w", i, err)
		}
		m.Raw = raw
		messages = append(messages, m)
	}

	return messages, nil
}
