package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
)

// Environment variables holding the OAuth client credentials.
const (
	EnvClientID     = "GOOGLE_CLIENT_ID"
	EnvClientSecret = "GOOGLE_CLIENT_SECRET"
)

// DefaultAccount is used when no account name is given.
const DefaultAccount = "default"

// redirectURL is the loopback address Google sends the consent code to. The
// user copies the code parameter from the browser's address bar.
const redirectURL = "http://127.0.0.1"

// ErrMissingCredentials is returned when the OAuth client id or secret is
// not configured.
var ErrMissingCredentials = errors.New("google oauth client credentials are not configured")

// ErrNoToken is returned when no token is stored for an account.
var ErrNoToken = errors.New("no stored google token")

// Scopes are the OAuth scopes inboxtriage requests. Modify allows removing
// the INBOX label; nothing is ever deleted or sent.
var Scopes = []string{gmail.GmailModifyScope}

var accountName = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

func validateAccountName(account string) error {
	if !accountName.MatchString(account) {
		return fmt.Errorf("invalid account name %q: use letters, digits, '-' or '_'", account)
	}
	return nil
}

// OAuthConfig returns the OAuth2 configuration built from GOOGLE_CLIENT_ID
// and GOOGLE_CLIENT_SECRET.
func OAuthConfig() (*oauth2.Config, error) {
	id, secret := os.Getenv(EnvClientID), os.Getenv(EnvClientSecret)
	if id == "" || secret == "" {
		return nil, fmt.Errorf("%w: set %s and %s", ErrMissingCredentials, EnvClientID, EnvClientSecret)
	}
	return &oauth2.Config{
		ClientID:     id,
		ClientSecret: secret,
		Endpoint:     google.Endpoint,
		RedirectURL:  redirectURL,
		Scopes:       Scopes,
	}, nil
}

// AuthURL returns the consent URL. Offline access makes Google issue a
// refresh token.
func AuthURL(conf *oauth2.Config, state string) string {
	return conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a token and stores it for
// account.
func Exchange(ctx context.Context, conf *oauth2.Config, account, code string) error {
	if err := validateAccountName(account); err != nil {
		return err
	}
	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return SaveToken(account, tok)
}

// TokenFilePath returns where the token for account is stored.
func TokenFilePath(account string) string {
	return filepath.Join(userCacheDir(), "inboxtriage", "google-"+account+".token")
}

// HasTokenForAccount reports whether a token file exists for account.
func HasTokenForAccount(account string) bool {
	if validateAccountName(account) != nil {
		return false
	}
	_, err := os.Stat(TokenFilePath(account))
	return err == nil
}

// SaveToken writes tok for account with owner-only permissions.
func SaveToken(account string, tok *oauth2.Token) error {
	if err := validateAccountName(account); err != nil {
		return err
	}
	path := TokenFilePath(account)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	data, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// LoadToken reads the stored token for account.
func LoadToken(account string) (*oauth2.Token, error) {
	if err := validateAccountName(account); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(TokenFilePath(account))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w for account %q: run 'inboxtriage auth --account %s'", ErrNoToken, account, account)
	}
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("invalid token file %s: %w", TokenFilePath(account), err)
	}
	return &tok, nil
}

// savingTokenSource writes a token back whenever the wrapped source
// refreshes it.
type savingTokenSource struct {
	account string
	src     oauth2.TokenSource

	mu   sync.Mutex
	last string
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := SaveToken(s.account, tok); err != nil {
			return nil, err
		}
	}
	return tok, nil
}

// TokenSourceForAccount returns a refreshing token source for account.
func TokenSourceForAccount(ctx context.Context, account string) (oauth2.TokenSource, error) {
	conf, err := OAuthConfig()
	if err != nil {
		return nil, err
	}
	tok, err := LoadToken(account)
	if err != nil {
		return nil, err
	}
	return &savingTokenSource{
		account: account,
		src:     conf.TokenSource(ctx, tok),
		last:    tok.AccessToken,
	}, nil
}

// HTTPClientForAccount returns an authenticated HTTP client for account.
// HTTP/2 is disabled, which avoids sporadic stream errors from the Gmail
// batch frontends.
func HTTPClientForAccount(ctx context.Context, account string) (*http.Client, error) {
	ts, err := TokenSourceForAccount(ctx, account)
	if err != nil {
		return nil, err
	}
	return &http.Client{
		Transport: &oauth2.Transport{
			Source: ts,
			Base:   &http.Transport{ForceAttemptHTTP2: false, Proxy: http.ProxyFromEnvironment},
		},
	}, nil
}

func userCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return dir
	}
	return filepath.Join(os.TempDir(), "cache")
}
