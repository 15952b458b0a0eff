package credentials

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func tokenServer(t *testing.T, access string) (*httptest.Server, *int) {
	t.Helper()
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		require.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": access,
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func testConfig(tokenURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "urn:ietf:wg:oauth:2.0:oob",
		Endpoint: oauth2.Endpoint{
			AuthURL:   "https://accounts.example/auth",
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func TestInit_MissingTokenFile(t *testing.T) {
	p := NewProviderFromConfig(testConfig("http://unused"), filepath.Join(t.TempDir(), "token.json"))
	assert.ErrorIs(t, p.Init(), ErrNoToken)

	_, err := p.TokenSource(context.Background())
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestExchange_StoresToken(t *testing.T) {
	srv, _ := tokenServer(t, "fresh")
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	p := NewProviderFromConfig(testConfig(srv.URL), path)

	tok, err := p.Exchange(context.Background(), "code-123")
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok.AccessToken)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reloaded := NewProviderFromConfig(testConfig(srv.URL), path)
	require.NoError(t, reloaded.Init())
}

func TestTokenSource_RefreshesExpiredTokenAndPersists(t *testing.T) {
	srv, calls := tokenServer(t, "refreshed")
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, writeToken(path, &oauth2.Token{
		AccessToken:  "stale",
		RefreshToken: "refresh-1",
		Expiry:       time.Now().Add(-time.Hour),
	}))

	p := NewProviderFromConfig(testConfig(srv.URL), path)
	require.NoError(t, p.Init())

	ts, err := p.TokenSource(context.Background())
	require.NoError(t, err)
	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "refreshed", tok.AccessToken)
	assert.Equal(t, 1, *calls)

	stored, err := readToken(path)
	require.NoError(t, err)
	assert.Equal(t, "refreshed", stored.AccessToken)
	assert.Equal(t, "refresh-1", stored.RefreshToken, "refresh token survives a refresh response without one")
}

func TestAuthCodeURL_RequestsOfflineAccess(t *testing.T) {
	p := NewProviderFromConfig(testConfig("http://unused"), "token.json")
	u := p.AuthCodeURL("state-xyz")
	assert.Contains(t, u, "access_type=offline")
	assert.Contains(t, u, "prompt=consent")
	assert.Contains(t, u, "state=state-xyz")
}

func TestNewProvider_ParsesClientSecret(t *testing.T) {
	dir := t.TempDir()
	secret := filepath.Join(dir, "client_secret.json")
	require.NoError(t, os.WriteFile(secret, []byte(`{"installed":{"client_id":"id","client_secret":"s","auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token","redirect_uris":["http://localhost"]}}`), 0o600))

	p, err := NewProvider(secret, filepath.Join(dir, "token.json"))
	require.NoError(t, err)
	assert.Equal(t, "id", p.config.ClientID)
	assert.ElementsMatch(t, DefaultScopes, p.config.Scopes)

	_, err = NewProvider(filepath.Join(dir, "missing.json"), "token.json")
	assert.Error(t, err)
}
