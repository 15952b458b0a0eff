// Package credentials manages the stored OAuth token used by the Google
// calendar and mail collaborators.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/Kellia855/mindbridge/internal/middleware"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/gmail/v1"
)

// ErrNoToken means the one-time consent grant has not been run yet.
var ErrNoToken = errors.New("no stored oauth token; run cmd/calendar-auth first")

// DefaultScopes covers calendar event management and sending mail.
var DefaultScopes = []string{calendar.CalendarEventsScope, gmail.GmailSendScope}

// Provider loads, refreshes and persists the OAuth token pair.
type Provider struct {
	config    *oauth2.Config
	tokenFile string

	mu    sync.Mutex
	token *oauth2.Token
}

// NewProvider reads the installed-app client secret downloaded from the
// Google console.
func NewProvider(clientSecretFile, tokenFile string, scopes ...string) (*Provider, error) {
	raw, err := os.ReadFile(clientSecretFile)
	if err != nil {
		return nil, fmt.Errorf("read client secret: %w", err)
	}
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}
	cfg, err := google.ConfigFromJSON(raw, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse client secret: %w", err)
	}
	return NewProviderFromConfig(cfg, tokenFile), nil
}

// NewProviderFromConfig builds a Provider around an existing oauth2 config.
func NewProviderFromConfig(cfg *oauth2.Config, tokenFile string) *Provider {
	return &Provider{config: cfg, tokenFile: tokenFile}
}

// Init loads the stored token. It returns ErrNoToken when none exists.
func (p *Provider) Init() error {
	tok, err := readToken(p.tokenFile)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.token = tok
	p.mu.Unlock()
	return nil
}

// AuthCodeURL is the consent page for the interactive grant. Offline
// access with a forced prompt guarantees a refresh token.
func (p *Provider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a token and stores it.
func (p *Provider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange auth code: %w", err)
	}
	if err := p.store(tok); err != nil {
		return nil, err
	}
	return tok, nil
}

// TokenSource returns a source that refreshes on expiry and writes every
// new token back to disk.
func (p *Provider) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	p.mu.Lock()
	tok := p.token
	p.mu.Unlock()
	if tok == nil {
		return nil, ErrNoToken
	}
	base := p.config.TokenSource(ctx, tok)
	return oauth2.ReuseTokenSource(tok, &persistingSource{base: base, provider: p}), nil
}

// HTTPClient returns an authorized client for the Google API constructors.
func (p *Provider) HTTPClient(ctx context.Context) (*http.Client, error) {
	ts, err := p.TokenSource(ctx)
	if err != nil {
		return nil, err
	}
	return oauth2.NewClient(ctx, ts), nil
}

func (p *Provider) store(tok *oauth2.Token) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	// a refresh response may omit the refresh token
	if tok.RefreshToken == "" && p.token != nil {
		tok.RefreshToken = p.token.RefreshToken
	}
	p.token = tok
	return writeToken(p.tokenFile, tok)
}

type persistingSource struct {
	base     oauth2.TokenSource
	provider *Provider
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	if err := s.provider.store(tok); err != nil {
		middleware.Logger.Warn("failed to persist refreshed oauth token", slog.String("error", err.Error()))
	}
	return tok, nil
}

func readToken(path string) (*oauth2.Token, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, fmt.Errorf("decode token file: %w", err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, ErrNoToken
	}
	return &tok, nil
}

func writeToken(path string, tok *oauth2.Token) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create token dir: %w", err)
		}
	}
	raw, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return os.Rename(tmp, path)
}
