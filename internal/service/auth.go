package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/msomdec/shift-clock/internal/civil"
	"github.com/msomdec/shift-clock/internal/domain"
	"github.com/msomdec/shift-clock/internal/tzconv"
)

// TokenTTL is how long an issued session token stays valid.
const TokenTTL = 7 * 24 * time.Hour

// AuthService handles user registration, login, JWT token operations and
// per-user settings.
type AuthService struct {
	users      domain.UserRepository
	tz         *tzconv.Resolver
	jwtSecret  []byte
	bcryptCost int
}

// NewAuthService creates a new AuthService.
func NewAuthService(users domain.UserRepository, tz *tzconv.Resolver, jwtSecret string, bcryptCost int) *AuthService {
	return &AuthService{
		users:      users,
		tz:         tz,
		jwtSecret:  []byte(jwtSecret),
		bcryptCost: bcryptCost,
	}
}

// Register creates a new user account after validating inputs. A blank zone
// is stored as UTC; an unknown zone is rejected.
func (s *AuthService) Register(ctx context.Context, email, password, zone string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", domain.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email address", domain.ErrInvalidInput)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", domain.ErrInvalidInput)
	}

	zone = tzconv.ZoneOrDefault(strings.TrimSpace(zone))
	if err := s.tz.Validate(zone); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Email:              email,
		PasswordHash:       string(hash),
		TZ:                 zone,
		Role:               domain.RoleUser,
		SearchDefaultRange: string(civil.DefaultPreset),
		RecentLogsScope:    string(civil.DefaultPreset),
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

// Login verifies credentials and returns the user and a signed JWT.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, "", domain.ErrUnauthorized
		}
		return nil, "", fmt.Errorf("get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", domain.ErrUnauthorized
	}

	token, err := s.generateJWT(user)
	if err != nil {
		return nil, "", fmt.Errorf("generate jwt: %w", err)
	}

	return user, token, nil
}

// IssueToken signs a fresh token for an already authenticated user.
func (s *AuthService) IssueToken(user *domain.User) (string, error) {
	return s.generateJWT(user)
}

// ValidateToken parses and validates a JWT token string.
// Returns the user ID from the sub claim.
func (s *AuthService) ValidateToken(tokenString string) (int64, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return 0, domain.ErrUnauthorized
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, domain.ErrUnauthorized
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return 0, domain.ErrUnauthorized
	}

	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return 0, domain.ErrUnauthorized
	}

	return userID, nil
}

// GetUserByID retrieves a user by their ID.
func (s *AuthService) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

// Settings holds optional changes to a user's preferences.
type Settings struct {
	TZ                 *string
	SearchDefaultRange *string
	RecentLogsScope    *string
}

// UpdateSettings validates and stores the given preference changes.
func (s *AuthService) UpdateSettings(ctx context.Context, user *domain.User, in Settings) (*domain.User, error) {
	updated := *user
	if in.TZ != nil {
		zone := tzconv.ZoneOrDefault(strings.TrimSpace(*in.TZ))
		if err := s.tz.Validate(zone); err != nil {
			return nil, err
		}
		updated.TZ = zone
	}
	if in.SearchDefaultRange != nil {
		p, err := civil.ParsePreset(*in.SearchDefaultRange, civil.SearchPresets)
		if err != nil {
			return nil, invalid(err)
		}
		updated.SearchDefaultRange = string(p)
	}
	if in.RecentLogsScope != nil {
		p, err := civil.ParsePreset(*in.RecentLogsScope, civil.RecentScopes)
		if err != nil {
			return nil, invalid(err)
		}
		updated.RecentLogsScope = string(p)
	}

	if err := s.users.UpdateSettings(ctx, &updated); err != nil {
		return nil, fmt.Errorf("update settings: %w", err)
	}
	return &updated, nil
}

func (s *AuthService) generateJWT(user *domain.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  strconv.FormatInt(user.ID, 10),
		"jti":  uuid.NewString(),
		"role": user.Role,
		"iat":  now.Unix(),
		"exp":  now.Add(TokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
