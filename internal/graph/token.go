package graph

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ErrNoAccessToken is returned when the token endpoint answers without an access token
var ErrNoAccessToken = errors.New("failed to get access token")

// TokenURL returns the v2.0 token endpoint of tenant under authority
func TokenURL(authority, tenantID string) string {
	return strings.TrimRight(authority, "/") + "/" + tenantID + "/oauth2/v2.0/token"
}

// AcquireToken exchanges client credentials for an application bearer token.
// httpClient may be nil to use http.DefaultClient. Errors wrap ErrNoAccessToken only when
// the token endpoint answered; transport failures are returned as they are.
func AcquireToken(ctx context.Context, httpClient *http.Client, authority string, creds Credentials) (string, error) {
	cfg := clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     TokenURL(authority, creds.TenantID),
		Scopes:       creds.Scopes,
		AuthStyle:    oauth2.AuthStyleInParams,
	}

	if httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	}

	tok, err := cfg.Token(ctx)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return "", fmt.Errorf("acquiring token: %w", err)
		}
		return "", fmt.Errorf("%w: %v", ErrNoAccessToken, err)
	}
	if tok.AccessToken == "" {
		return "", ErrNoAccessToken
	}

	return tok.AccessToken, nil
}
