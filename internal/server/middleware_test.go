package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/Kellia855/mindbridge/internal/middleware"
	"github.com/Kellia855/mindbridge/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

// MockUserRepository is a mock of the UserRepository interface
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByLogin(ctx context.Context, identifier string) (*models.User, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) UpdateRole(ctx context.Context, id uint, role models.Role) (*models.User, error) {
	args := m.Called(ctx, id, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) ListStaff(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.User), args.Error(1)
}

func TestServer_AuthRequired(t *testing.T) {
	repo := new(MockUserRepository)
	repo.On("GetByID", mock.Anything, uint(123)).Return(&models.User{ID: 123, Username: "amina", Role: models.RoleStudent}, nil)
	repo.On("GetByID", mock.Anything, uint(404)).Return(nil, models.NewNotFoundError("User", uint(404)))

	tokens := middleware.NewTokenManager(testSecret, time.Hour)
	s := &Server{tokens: tokens, userRepo: repo}

	app := fiber.New()
	app.Get("/protected", s.AuthRequired(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"userID": c.Locals("userID"), "username": currentUser(c).Username})
	})

	issued := func(userID uint) string {
		tok, _, err := tokens.Issue(userID, "amina", "student")
		require.NoError(t, err)
		return tok
	}
	forged := func(issuer, audience string, exp time.Duration) string {
		claims := jwt.MapClaims{
			"sub": strconv.Itoa(123),
			"iss": issuer,
			"aud": audience,
			"exp": time.Now().Add(exp).Unix(),
			"jti": "test-jti-valid-length",
		}
		str, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		return str
	}

	tests := []struct {
		name           string
		authHeader     string
		tokenParam     string
		expectedStatus int
	}{
		{"Valid Token", "Bearer " + issued(123), "", http.StatusOK},
		{"Expired Token", "Bearer " + forged(middleware.TokenIssuer, middleware.TokenAudience, -time.Hour), "", http.StatusUnauthorized},
		{"Invalid Issuer", "Bearer " + forged("wrong-issuer", middleware.TokenAudience, time.Hour), "", http.StatusUnauthorized},
		{"Invalid Audience", "Bearer " + forged(middleware.TokenIssuer, "wrong-audience", time.Hour), "", http.StatusUnauthorized},
		{"Missing Header", "", "", http.StatusUnauthorized},
		{"Malformed Bearer Format", "Token " + issued(123), "", http.StatusUnauthorized},
		{"Query Param Outside Websocket", "", issued(123), http.StatusUnauthorized},
		{"Deleted User", "Bearer " + issued(404), "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/protected"
			if tt.tokenParam != "" {
				target += "?token=" + tt.tokenParam
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedStatus == http.StatusOK {
				var body map[string]any
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, float64(123), body["userID"])
				assert.Equal(t, "amina", body["username"])
			}
		})
	}
}

func TestServer_AuthRequired_WebsocketQueryToken(t *testing.T) {
	repo := new(MockUserRepository)
	repo.On("GetByID", mock.Anything, uint(5)).Return(&models.User{ID: 5, Username: "brian"}, nil)
	tokens := middleware.NewTokenManager(testSecret, time.Hour)
	s := &Server{tokens: tokens, userRepo: repo}

	app := fiber.New()
	app.Get("/ws", s.AuthRequired(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	tok, _, err := tokens.Issue(5, "brian", "student")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/ws?token="+tok, nil)
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Connection", "Upgrade")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	repo.AssertExpectations(t)
}
