package client

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/fruitsalade/hubmirror/internal/logging"
)

// DefaultScopes are the read-only scopes a mirror needs.
var DefaultScopes = []string{"data:read", "account:read"}

// tokenPath is the two-legged token endpoint relative to the base URL.
const tokenPath = "/authentication/v2/token"

// expiryMargin is how early a saved token is treated as expired.
const expiryMargin = time.Minute

// AuthConfig identifies the application for the client-credentials flow.
type AuthConfig struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	Scopes       []string
}

// TwoLeggedTokenSource returns a token source that fetches application tokens
// with the client-credentials grant and reuses them until they expire.
func TwoLeggedTokenSource(ctx context.Context, cfg AuthConfig) oauth2.TokenSource {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}

	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     base + tokenPath,
		Scopes:       scopes,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	return cc.TokenSource(ctx)
}

// TokenFile holds a saved access token.
type TokenFile struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
	Server    string    `json:"server"`
}

// IsExpired returns true if the token has expired (with optional margin).
// A zero ExpiresAt never expires.
func (t *TokenFile) IsExpired(margin time.Duration) bool {
	if t.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().Add(margin).After(t.ExpiresAt)
}

func (t *TokenFile) oauth2Token() *oauth2.Token {
	return &oauth2.Token{AccessToken: t.Token, TokenType: t.TokenType, Expiry: t.ExpiresAt}
}

// CachedTokenSource wraps src so tokens survive between runs in the file at
// path. A saved token is only used for the same server and while it is not
// about to expire.
func CachedTokenSource(src oauth2.TokenSource, path, server string) oauth2.TokenSource {
	return &cachedTokenSource{src: src, path: path, server: server}
}

type cachedTokenSource struct {
	src    oauth2.TokenSource
	path   string
	server string

	mu  sync.Mutex
	tok *oauth2.Token
}

func (c *cachedTokenSource) Token() (*oauth2.Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tok != nil && (c.tok.Expiry.IsZero() || c.tok.Expiry.After(time.Now().Add(expiryMargin))) {
		return c.tok, nil
	}

	if tf, err := LoadToken(c.path); err == nil && tf.Server == c.server && !tf.IsExpired(expiryMargin) {
		c.tok = tf.oauth2Token()
		return c.tok, nil
	}

	tok, err := c.src.Token()
	if err != nil {
		return nil, err
	}
	c.tok = tok

	tf := &TokenFile{Token: tok.AccessToken, TokenType: tok.TokenType, ExpiresAt: tok.Expiry, Server: c.server}
	if err := SaveToken(c.path, tf); err != nil {
		logging.Warn("failed to save token", logging.String("path", c.path), logging.Err(err))
	}
	return tok, nil
}

// SaveToken writes a token file, creating its directory.
func SaveToken(path string, tf *TokenFile) error {
	if path == "" {
		return fmt.Errorf("save token: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(tf, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// LoadToken reads a token file.
func LoadToken(path string) (*TokenFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tf TokenFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, err
	}
	return &tf, nil
}

// DeleteToken removes a saved token file.
func DeleteToken(path string) error {
	return os.Remove(path)
}
