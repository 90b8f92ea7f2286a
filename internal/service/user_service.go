package service

import (
	"context"
	"fmt"
	"net/mail"
	"slices"
	"strings"
	"time"
	"unicode"

	"portal/internal/apperror"
	"portal/internal/hooks"
	"portal/internal/model"
	"portal/internal/repository"
	"portal/pkg/money"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	AccessTokenTTL  = 24 * time.Hour
	RefreshTokenTTL = 7 * 24 * time.Hour

	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// DTOs for Request validation
type CreateUserRequest struct {
	Username    string `json:"username" binding:"required"`
	Email       string `json:"email" binding:"omitempty,email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password" binding:"required,min=6"`
	IsSuperuser bool   `json:"is_superuser"`
}

type LoginUserRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type UpdateProfileRequest struct {
	CostRate      *string `json:"cost_rate" example:"150.00"`
	DefaultTaskID *string `json:"default_task_id"`
	Mail          *bool   `json:"mail"`
	PageSize      *int    `json:"page_size"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type ProfileResponse struct {
	CostRate      *string `json:"cost_rate"`
	DefaultTaskID *string `json:"default_task_id"`
	Mail          bool    `json:"mail"`
	PageSize      int     `json:"page_size"`
}

// DTO for returning User without exposing sensitive data (e.g. password)
type UserResponse struct {
	ID          uuid.UUID        `json:"id"`
	Username    string           `json:"username"`
	Email       string           `json:"email"`
	DisplayName string           `json:"display_name"`
	IsActive    bool             `json:"is_active"`
	IsSuperuser bool             `json:"is_superuser"`
	Profile     *ProfileResponse `json:"profile,omitempty"`
	CreatedAt   string           `json:"created_at"`
	UpdatedAt   string           `json:"updated_at"`
}

// AuthOptions configures token issuance and third-party sign-in.
type AuthOptions struct {
	JWTSecret []byte
	// Whitelist lists the third-party usernames allowed to sign in. An
	// empty list admits everyone.
	Whitelist []string
}

// UserService defines the interface for business logic related to User
type UserService interface {
	Login(ctx context.Context, req LoginUserRequest) (*TokenResponse, error)
	// AuthenticateExternal signs in a user vouched for by the identity
	// provider, creating the account on first sight.
	AuthenticateExternal(ctx context.Context, username, email string) (*TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error)
	// ParseAccessToken validates an access token and returns its subject.
	ParseAccessToken(token string) (uuid.UUID, error)
	// PrincipalFor loads an active user and its profile as a Principal.
	PrincipalFor(ctx context.Context, userID uuid.UUID) (Principal, error)

	CreateUser(ctx context.Context, p Principal, req CreateUserRequest) (*UserResponse, error)
	Me(ctx context.Context, p Principal) (*UserResponse, error)
	ListUsers(ctx context.Context, p Principal, opts repository.ListOptions) ([]UserResponse, int64, error)
	UpdateProfile(ctx context.Context, p Principal, userID string, req UpdateProfileRequest) (*UserResponse, error)
	// EnsureProfile is the Authenticated hook handler.
	EnsureProfile(ctx context.Context, m hooks.Mutation) error
}

type userService struct {
	repo     repository.UserRepository
	taskRepo repository.TaskRepository
	bus      *hooks.Bus
	opts     AuthOptions
}

// NewUserService returns a new instance of UserService
func NewUserService(repo repository.UserRepository, taskRepo repository.TaskRepository, bus *hooks.Bus, opts AuthOptions) UserService {
	return &userService{repo: repo, taskRepo: taskRepo, bus: bus, opts: opts}
}

// Helper: parse model to standard json API response
func mapToResponse(user *model.User) *UserResponse {
	res := &UserResponse{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		IsActive:    user.IsActive,
		IsSuperuser: user.IsSuperuser,
		CreatedAt:   formatTimestamp(user.CreatedAt),
		UpdatedAt:   formatTimestamp(user.UpdatedAt),
	}
	if user.Profile != nil {
		res.Profile = &ProfileResponse{
			CostRate:      money.NullString(user.Profile.CostRate),
			DefaultTaskID: formatID(user.Profile.DefaultTaskID),
			Mail:          user.Profile.Mail,
			PageSize:      user.Profile.PageSize,
		}
	}
	return res
}

func (s *userService) Login(ctx context.Context, req LoginUserRequest) (*TokenResponse, error) {
	invalid := apperror.PermissionDenied("user", "invalid username or password")

	user, err := s.repo.GetByUsername(ctx, req.Username)
	if err != nil {
		if apperror.Is(err, apperror.KindNotFound) {
			return nil, invalid
		}
		return nil, err
	}
	if user.Password == "" || !user.IsActive {
		return nil, invalid
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, invalid
	}
	return s.signIn(ctx, user)
}

func (s *userService) AuthenticateExternal(ctx context.Context, username, email string) (*TokenResponse, error) {
	username = strings.TrimSpace(username)
	if err := checkUsername(username); err != nil {
		return nil, err
	}
	if len(s.opts.Whitelist) > 0 && !slices.Contains(s.opts.Whitelist, username) {
		return nil, apperror.PermissionDenied("user", "not on the sign-in whitelist")
	}

	user, err := s.repo.GetByUsername(ctx, username)
	switch {
	case err == nil:
		if !user.IsActive {
			return nil, apperror.PermissionDenied("user", "account is disabled")
		}
	case apperror.Is(err, apperror.KindNotFound):
		user = &model.User{Username: username, Email: email, IsActive: true}
		if err := s.repo.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("create external user: %w", err)
		}
	default:
		return nil, err
	}
	return s.signIn(ctx, user)
}

// checkUsername rejects empty names and names with whitespace or control
// characters.
func checkUsername(username string) error {
	if username == "" {
		return apperror.Validation("user", "username is required")
	}
	if strings.IndexFunc(username, func(r rune) bool { return unicode.IsSpace(r) || unicode.IsControl(r) }) >= 0 {
		return apperror.Validation("user", "username must not contain whitespace or control characters")
	}
	return nil
}

// signIn fires the Authenticated hook and issues a token pair.
func (s *userService) signIn(ctx context.Context, user *model.User) (*TokenResponse, error) {
	if err := s.bus.Authenticated(ctx, hooks.Mutation{Kind: model.KindUser, ID: user.ID, Entity: user}); err != nil {
		return nil, fmt.Errorf("authenticated hook: %w", err)
	}
	return s.issueTokens(user)
}

func (s *userService) issueTokens(user *model.User) (*TokenResponse, error) {
	now := time.Now()
	access, err := s.sign(user, tokenTypeAccess, now.Add(AccessTokenTTL))
	if err != nil {
		return nil, err
	}
	refresh, err := s.sign(user, tokenTypeRefresh, now.Add(RefreshTokenTTL))
	if err != nil {
		return nil, err
	}
	return &TokenResponse{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *userService) sign(user *model.User, typ string, expires time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":       user.ID.String(),
		"superuser": user.IsSuperuser,
		"typ":       typ,
		"exp":       expires.Unix(),
	})
	signed, err := token.SignedString(s.opts.JWTSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return signed, nil
}

func (s *userService) parse(raw, typ string) (uuid.UUID, error) {
	invalid := apperror.PermissionDenied("user", "invalid token")
	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.opts.JWTSecret, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, invalid
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["typ"] != typ {
		return uuid.Nil, invalid
	}
	sub, _ := claims["sub"].(string)
	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, invalid
	}
	return id, nil
}

func (s *userService) ParseAccessToken(token string) (uuid.UUID, error) {
	return s.parse(token, tokenTypeAccess)
}

func (s *userService) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	userID, err := s.parse(refreshToken, tokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, apperror.PermissionDenied("user", "invalid token")
	}
	if !user.IsActive {
		return nil, apperror.PermissionDenied("user", "account is disabled")
	}
	return s.issueTokens(user)
}

func (s *userService) PrincipalFor(ctx context.Context, userID uuid.UUID) (Principal, error) {
	user, err := s.repo.GetWithProfile(ctx, userID)
	if err != nil {
		return Principal{}, err
	}
	if !user.IsActive {
		return Principal{}, apperror.PermissionDenied("user", "account is disabled")
	}
	return PrincipalFromUser(user), nil
}

func (s *userService) EnsureProfile(ctx context.Context, m hooks.Mutation) error {
	return s.repo.CreateProfileIfMissing(ctx, &model.Profile{UserID: m.ID, PageSize: 10})
}

func (s *userService) CreateUser(ctx context.Context, p Principal, req CreateUserRequest) (*UserResponse, error) {
	if err := requireSuperuser(p, "user"); err != nil {
		return nil, err
	}
	username := strings.TrimSpace(req.Username)
	if err := checkUsername(username); err != nil {
		return nil, err
	}
	if req.Email != "" {
		if _, err := mail.ParseAddress(req.Email); err != nil {
			return nil, apperror.Validation("user", "invalid email format")
		}
	}
	if len(req.Password) < 6 {
		return nil, apperror.Validation("user", "password must be at least 6 characters")
	}

	// Double check username uniqueness via repo directly
	if _, err := s.repo.GetByUsername(ctx, username); err == nil {
		return nil, apperror.Conflict("user", "username already exists")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username:    username,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Password:    string(hashedPassword),
		IsActive:    true,
		IsSuperuser: req.IsSuperuser,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	if err := s.repo.CreateProfileIfMissing(ctx, &model.Profile{UserID: user.ID, PageSize: 10}); err != nil {
		return nil, err
	}
	created, err := s.repo.GetWithProfile(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return mapToResponse(created), nil
}

func (s *userService) Me(ctx context.Context, p Principal) (*UserResponse, error) {
	user, err := s.repo.GetWithProfile(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return mapToResponse(user), nil
}

func (s *userService) ListUsers(ctx context.Context, p Principal, opts repository.ListOptions) ([]UserResponse, int64, error) {
	if err := requireSuperuser(p, "user"); err != nil {
		return nil, 0, err
	}
	users, total, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, 0, err
	}
	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, *mapToResponse(&users[i]))
	}
	return responses, total, nil
}

// UpdateProfile lets users edit their own profile. Only a superuser may set
// a cost rate, on anyone's profile.
func (s *userService) UpdateProfile(ctx context.Context, p Principal, userID string, req UpdateProfileRequest) (*UserResponse, error) {
	id, err := parseID("user", userID)
	if err != nil {
		return nil, err
	}
	if !p.CanAct(id) {
		return nil, apperror.PermissionDenied("profile", "only the owner or a superuser may edit it")
	}
	if req.CostRate != nil && !p.IsSuperuser {
		return nil, apperror.PermissionDenied("profile", "only a superuser may set a cost rate")
	}
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.repo.CreateProfileIfMissing(ctx, &model.Profile{UserID: id, PageSize: 10}); err != nil {
		return nil, err
	}
	profile, err := s.repo.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.CostRate != nil {
		if profile.CostRate, err = parseOptionalAmount("profile", "cost_rate", req.CostRate); err != nil {
			return nil, err
		}
	}
	if req.DefaultTaskID != nil {
		taskID, err := parseOptionalID("profile", "default_task_id", req.DefaultTaskID)
		if err != nil {
			return nil, err
		}
		if taskID != nil {
			if _, err := s.taskRepo.Get(ctx, *taskID); err != nil {
				return nil, referenceError("profile", "task", err)
			}
		}
		profile.DefaultTaskID = taskID
	}
	if req.Mail != nil {
		profile.Mail = *req.Mail
	}
	if req.PageSize != nil {
		if *req.PageSize < 1 || *req.PageSize > 100 {
			return nil, apperror.Validation("profile", "page_size must be between 1 and 100")
		}
		profile.PageSize = *req.PageSize
	}
	if err := s.repo.SaveProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	user, err := s.repo.GetWithProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	return mapToResponse(user), nil
}
