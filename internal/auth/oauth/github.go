// Package oauth exchanges provider authorization codes for a verified user
// identity. Only GitHub is wired today; the Bridge shape keeps the provider
// specifics out of the session service.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	dErrors "taskgate/pkg/domain-errors"
)

const defaultUserInfoURL = "https://api.github.com/user"

// Identity is what the provider asserts about the authenticated user.
// Email is the preferred identifier; when the provider account has no public
// email, Login carries the provider username instead.
type Identity struct {
	Email string
	Login string
}

// Key returns the identifier used to match the identity against a local
// account.
func (i Identity) Key() string {
	if i.Email != "" {
		return i.Email
	}
	return i.Login
}

// GitHubBridge drives the GitHub authorization code flow.
type GitHubBridge struct {
	config      *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
	timeout     time.Duration
}

// GitHubOption configures a GitHubBridge instance.
type GitHubOption func(*GitHubBridge)

// WithUserInfoURL overrides the user info endpoint, for tests.
func WithUserInfoURL(url string) GitHubOption {
	return func(b *GitHubBridge) {
		if url != "" {
			b.userInfoURL = url
		}
	}
}

// WithHTTPClient overrides the HTTP client used for the exchange and the
// user info fetch, for tests.
func WithHTTPClient(client *http.Client) GitHubOption {
	return func(b *GitHubBridge) {
		if client != nil {
			b.httpClient = client
		}
	}
}

// NewGitHubBridge builds a bridge for the given OAuth app credentials.
func NewGitHubBridge(clientID, clientSecret, redirectURL string, timeout time.Duration, opts ...GitHubOption) *GitHubBridge {
	b := &GitHubBridge{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"user:email"},
			Endpoint:     github.Endpoint,
		},
		userInfoURL: defaultUserInfoURL,
		timeout:     timeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Configured reports whether OAuth app credentials are present.
func (b *GitHubBridge) Configured() bool {
	return b.config.ClientID != "" && b.config.ClientSecret != ""
}

// AuthURL builds the provider consent page URL carrying the given state.
func (b *GitHubBridge) AuthURL(state string) string {
	return b.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades the authorization code for a provider access token.
func (b *GitHubBridge) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	if b.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, b.httpClient)
	}

	token, err := b.config.Exchange(ctx, code)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeForbidden, "authorization code exchange failed")
	}
	return token, nil
}

// ResolveIdentity fetches the provider user record with the access token.
func (b *GitHubBridge) ResolveIdentity(ctx context.Context, token *oauth2.Token) (Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.userInfoURL, nil)
	if err != nil {
		return Identity{}, fmt.Errorf("build user info request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/vnd.github+json")

	client := b.httpClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Identity{}, dErrors.Wrap(err, dErrors.CodeForbidden, "provider user info fetch failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Identity{}, dErrors.New(dErrors.CodeForbidden, fmt.Sprintf("provider rejected token: status %d", resp.StatusCode))
	}

	var payload struct {
		Email string `json:"email"`
		Login string `json:"login"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Identity{}, fmt.Errorf("decode user info response: %w", err)
	}

	identity := Identity{Email: payload.Email, Login: payload.Login}
	if identity.Key() == "" {
		return Identity{}, dErrors.New(dErrors.CodeForbidden, "provider returned no usable identity")
	}
	return identity, nil
}
