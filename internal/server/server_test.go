package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/Kellia855/mindbridge/internal/config"
	"github.com/Kellia855/mindbridge/internal/models"
	"github.com/Kellia855/mindbridge/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testNow = time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	t       *testing.T
	db      *gorm.DB
	srv     *Server
	app     *fiber.App
	meet    *testutil.ProvisionerStub
	mail    *testutil.MailRecorder
	student *models.User
	staff   *models.User
}

type envOption func(cfg *config.Config)

func withFlags(raw string) envOption {
	return func(cfg *config.Config) { cfg.FeatureFlags = raw }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	return newTestEnvWithRedis(t, nil, opts...)
}

func newTestEnvWithRedis(t *testing.T, rdb *redis.Client, opts ...envOption) *testEnv {
	t.Helper()
	cfg := &config.Config{
		JWTSecret:         testSecret,
		Port:              "0",
		Env:               "test",
		SessionTimezone:   "UTC",
		FeatureFlags:      "permissive_approval=off,post_auto_approve=off,session_reminders=on",
		MediaDir:          t.TempDir(),
		MediaMaxUploadMB:  5,
		PublicMediaPrefix: "/media",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	db := testutil.NewTestDB(t)
	env := &testEnv{
		t:    t,
		db:   db,
		meet: &testutil.ProvisionerStub{},
		mail: &testutil.MailRecorder{},
	}
	srv, err := NewServerWithDeps(cfg, db, rdb, Deps{
		Meetings: env.meet,
		Mail:     env.mail,
		Now:      func() time.Time { return testNow },
	})
	require.NoError(t, err)
	env.srv = srv
	env.app = srv.newApp()
	env.student = testutil.CreateUser(t, db, "amina", models.RoleStudent)
	env.staff = testutil.CreateUser(t, db, "counselor", models.RoleWellnessTeam)
	return env
}

func (e *testEnv) token(u *models.User) string {
	e.t.Helper()
	tok, _, err := e.srv.tokens.Issue(u.ID, u.Username, string(u.Role))
	require.NoError(e.t, err)
	return tok
}

// do sends a JSON request as user (nil for anonymous) and returns the
// status and raw body.
func (e *testEnv) do(method, path string, user *models.User, body any) (int, []byte) {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != nil {
		req.Header.Set("Authorization", "Bearer "+e.token(user))
	}
	return e.send(req)
}

func (e *testEnv) send(req *http.Request) (int, []byte) {
	e.t.Helper()
	resp, err := e.app.Test(req, -1)
	require.NoError(e.t, err)
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	return resp.StatusCode, raw
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return out
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
