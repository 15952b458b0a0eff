package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/Kellia855/mindbridge/internal/cache"
	"github.com/Kellia855/mindbridge/internal/middleware"
	"github.com/Kellia855/mindbridge/internal/models"
	"github.com/Kellia855/mindbridge/internal/repository"
	"github.com/Kellia855/mindbridge/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	Issue(userID uint, username, role string) (string, *middleware.Claims, error)
}

type UserService struct {
	userRepo repository.UserRepository
	tokens   TokenIssuer
	// revoke blacklists a token id; replaced in tests.
	revoke func(ctx context.Context, jti string, ttl time.Duration) error
	now    func() time.Time
}

func NewUserService(userRepo repository.UserRepository, tokens TokenIssuer) *UserService {
	return &UserService{
		userRepo: userRepo,
		tokens:   tokens,
		revoke:   cache.RevokeToken,
		now:      time.Now,
	}
}

type SignupInput struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" validate:"max=150"`
}

type LoginInput struct {
	// Login accepts a username or an email address.
	Login    string `json:"login"`
	Password string `json:"password"`
}

type UpdateProfileInput struct {
	FirstName   *string `json:"first_name" validate:"omitempty,max=150"`
	LastName    *string `json:"last_name" validate:"omitempty,max=150"`
	PhoneNumber *string `json:"phone_number" validate:"omitempty,max=20"`
	StudentID   *string `json:"student_id" validate:"omitempty,max=50"`
}

// AuthResult is returned by signup and login.
type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Signup registers a student account.
func (s *UserService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, models.NewValidationError("Username, email, and password are required")
	}
	if err := validation.ValidateUsername(in.Username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	existing, err := s.userRepo.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("User already exists")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username:  in.Username,
		Email:     in.Email,
		Password:  string(hashed),
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Role:      models.RoleStudent,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	middleware.Logger.InfoContext(ctx, "user signed up", slog.Uint64("user_id", uint64(user.ID)))
	return s.issue(user)
}

// Login authenticates by username or email.
func (s *UserService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	user, err := s.userRepo.GetByLogin(ctx, in.Login)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); err != nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	return s.issue(user)
}

// Logout revokes the token until it would have expired anyway.
func (s *UserService) Logout(ctx context.Context, claims *middleware.Claims) error {
	if claims == nil || claims.ExpiresAt == nil {
		return nil
	}
	ttl := claims.ExpiresAt.Sub(s.now())
	if err := s.revoke(ctx, claims.ID, ttl); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (s *UserService) issue(user *models.User) (*AuthResult, error) {
	token, _, err := s.tokens.Issue(user.ID, user.Username, string(user.Role))
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &AuthResult{Token: token, User: user}, nil
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// UpdateProfile changes the caller's own profile. Nil fields are kept.
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, in UpdateProfileInput) (*models.User, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.FirstName != nil {
		user.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		user.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.PhoneNumber != nil {
		user.PhoneNumber = strings.TrimSpace(*in.PhoneNumber)
	}
	if in.StudentID != nil {
		if sid := strings.TrimSpace(*in.StudentID); sid != "" {
			user.StudentID = &sid
		} else {
			user.StudentID = nil
		}
	}

	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// SetRole promotes or demotes a user. Staff cannot demote themselves.
func (s *UserService) SetRole(ctx context.Context, actor Actor, userID uint, role models.Role) (*models.User, error) {
	if !actor.IsStaff() {
		return nil, models.NewForbiddenError("Only the wellness team can change roles")
	}
	if !role.Valid() {
		return nil, models.NewValidationError("role must be student or wellness_team")
	}
	if actor.ID == userID && role != models.RoleWellnessTeam {
		return nil, models.NewValidationError("You cannot remove your own wellness team role")
	}
	user, err := s.userRepo.UpdateRole(ctx, userID, role)
	if err != nil {
		return nil, err
	}
	middleware.Logger.InfoContext(ctx, "user role changed",
		slog.Uint64("user_id", uint64(userID)),
		slog.String("role", string(role)),
		slog.Uint64("actor_id", uint64(actor.ID)),
	)
	return user, nil
}
