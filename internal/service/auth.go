package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spendsphere/spendsphere-go/internal/domain"
	"github.com/spendsphere/spendsphere-go/internal/port"
)

var authTracer = otel.Tracer("service/auth")

// AuthService issues and validates HS256 access tokens and handles
// registration, password login and OAuth first-login upsert.
type AuthService struct {
	store     port.Store
	jwtSecret []byte
	accessTTL time.Duration
	logger    *zap.Logger
}

// NewAuthService creates the auth service.
func NewAuthService(store port.Store, jwtSecret string, accessTTL time.Duration, logger *zap.Logger) *AuthService {
	return &AuthService{
		store:     store,
		jwtSecret: []byte(jwtSecret),
		accessTTL: accessTTL,
		logger:    logger,
	}
}

// Register creates a user with a bcrypt-hashed password.
// A duplicate email is a conflict.
func (s *AuthService) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.AuthResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Register")
	defer span.End()

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, &domain.ErrValidation{Field: "email", Message: "is required"}
	}
	if len(req.Password) < 8 {
		return nil, &domain.ErrValidation{Field: "password", Message: "must be at least 8 characters"}
	}

	existing, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	if existing != nil {
		return nil, &domain.ErrConflict{Message: "email already registered"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &domain.User{
		Email:        email,
		PasswordHash: string(hash),
		Name:         req.Name,
		Surname:      req.Surname,
	}
	if err := s.store.Users().Create(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered", zap.Int64("user_id", u.ID))
	return s.tokenResponse(u.ID)
}

// Login verifies the email/password credential.
func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Login")
	defer span.End()

	email := strings.ToLower(strings.TrimSpace(req.Email))
	u, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	if u == nil || u.PasswordHash == "" {
		return nil, &domain.ErrUnauthorized{Message: "invalid credentials"}
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		s.logger.Warn("login: bad password", zap.Int64("user_id", u.ID))
		return nil, &domain.ErrUnauthorized{Message: "invalid credentials"}
	}

	return s.tokenResponse(u.ID)
}

// OAuthLogin upserts a user by provider identity. An existing user with
// the same email is linked rather than duplicated.
func (s *AuthService) OAuthLogin(ctx context.Context, provider, providerID, email, name, surname string) (*domain.AuthResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.OAuthLogin")
	defer span.End()

	if provider == "" || providerID == "" {
		return nil, &domain.ErrValidation{Field: "provider", Message: "provider and providerId are required"}
	}

	u, err := s.store.Users().GetByProvider(ctx, provider, providerID)
	if err != nil {
		return nil, fmt.Errorf("get user by provider: %w", err)
	}
	if u == nil && email != "" {
		u, err = s.store.Users().GetByEmail(ctx, strings.ToLower(email))
		if err != nil {
			return nil, fmt.Errorf("get user by email: %w", err)
		}
		if u != nil {
			u.Provider = provider
			u.ProviderID = providerID
			if err := s.store.Users().Update(ctx, u); err != nil {
				return nil, fmt.Errorf("link provider: %w", err)
			}
		}
	}
	if u == nil {
		u = &domain.User{
			Email:      strings.ToLower(email),
			Name:       name,
			Surname:    surname,
			Provider:   provider,
			ProviderID: providerID,
		}
		if err := s.store.Users().Create(ctx, u); err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		s.logger.Info("user created via oauth",
			zap.Int64("user_id", u.ID),
			zap.String("provider", provider),
		)
	}

	return s.tokenResponse(u.ID)
}

// JWTClaims represents the custom claims in access tokens.
type JWTClaims struct {
	Sub  string `json:"sub"`
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *JWTClaims) UserID() (int64, error) {
	return strconv.ParseInt(c.Sub, 10, 64)
}

// ValidateAccessToken parses and verifies a bearer token.
func (s *AuthService) ValidateAccessToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "invalid or expired token"}
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "invalid token"}
	}
	if claims.Type != "access" {
		return nil, &domain.ErrUnauthorized{Message: "invalid token type"}
	}
	return claims, nil
}

func (s *AuthService) tokenResponse(userID int64) (*domain.AuthResponse, error) {
	token, err := s.signAccessToken(userID)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	return &domain.AuthResponse{
		AccessToken: token,
		ExpiresIn:   int(s.accessTTL.Seconds()),
		UserID:      userID,
	}, nil
}

func (s *AuthService) signAccessToken(userID int64) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		Sub:  strconv.FormatInt(userID, 10),
		Type: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			Issuer:    "spendsphere-api",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
