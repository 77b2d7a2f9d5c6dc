package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"warranty/internal/apperror"
	"warranty/internal/models"
	"warranty/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const tempPasswordBytes = 6

// Identity is the authenticated caller extracted from a bearer token.
type Identity struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// IsAdmin reports whether the caller holds the admin role.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == models.RoleAdmin
}

// CanActFor reports whether the caller may act on the account for email.
func (i *Identity) CanActFor(email string) bool {
	if i == nil {
		return false
	}
	return i.IsAdmin() || i.Email == email
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// GenerateTemporaryPassword returns a random hex credential.
func GenerateTemporaryPassword() (string, error) {
	buf := make([]byte, tempPasswordBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate temporary password: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// AuthService handles business logic for authentication and authorization.
type AuthService struct {
	userRepo   repositories.UserRepository
	jwtSecret  []byte
	tokenTTL   time.Duration
	log        *zap.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, jwtSecret string, tokenTTL time.Duration, log *zap.Logger) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{
		userRepo:   userRepo,
		jwtSecret:  []byte(jwtSecret),
		tokenTTL:   tokenTTL,
		log:        log,
	}
}

// Login authenticates a user and returns a signed token embedding the
// user's id, email and role.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	if email == "" || password == "" {
		return "", nil, apperror.BadRequest("Email and password are required.")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if apperror.Is(err, apperror.KindNotFound) {
			return "", nil, apperror.Unauthorized("Invalid email or password.")
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.log.Info("Password mismatch", zap.String("email", email))
		return "", nil, apperror.Unauthorized("Invalid password.")
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":    user.ID,
		"email": user.Email,
		"role":  user.Role,
		"exp":   now.Add(s.tokenTTL).Unix(),
		"iat":   now.Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, user, nil
}

// ValidateToken parses and validates a token, returning the caller identity.
func (s *AuthService) ValidateToken(tokenString string) (*Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, apperror.Wrap(apperror.Forbidden("Invalid or expired token"), err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, apperror.Forbidden("Invalid or expired token")
	}

	id, _ := claims["id"].(float64)
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)
	if email == "" || role == "" {
		return nil, apperror.Forbidden("Invalid token claims")
	}
	return &Identity{ID: uint(id), Email: email, Role: role}, nil
}

// UpdatePassword replaces the stored hash for email.
func (s *AuthService) UpdatePassword(ctx context.Context, email, newPassword string) error {
	if email == "" || newPassword == "" {
		return apperror.BadRequest("Email and new password are required.")
	}
	if _, err := s.userRepo.GetByEmail(ctx, email); err != nil {
		if apperror.Is(err, apperror.KindNotFound) {
			return apperror.NotFound("User not found.")
		}
		return err
	}

	hashed, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.userRepo.UpdatePassword(ctx, email, hashed); err != nil {
		return err
	}
	s.log.Info("Password updated", zap.String("email", email))
	return nil
}

// IssueTemporaryPassword replaces the user's password with a random one and
// returns it in plaintext. Only the hash is stored.
func (s *AuthService) IssueTemporaryPassword(ctx context.Context, email string) (string, error) {
	if email == "" {
		return "", apperror.BadRequest("Email is required.")
	}
	if _, err := s.userRepo.GetByEmail(ctx, email); err != nil {
		if apperror.Is(err, apperror.KindNotFound) {
			return "", apperror.NotFound("User not found.")
		}
		return "", err
	}

	plain, err := GenerateTemporaryPassword()
	if err != nil {
		return "", err
	}
	hashed, err := HashPassword(plain)
	if err != nil {
		return "", err
	}
	if err := s.userRepo.UpdatePassword(ctx, email, hashed); err != nil {
		return "", err
	}
	s.log.Info("Temporary password issued", zap.String("email", email))
	return plain, nil
}

// EnsureAdmin provisions an admin account when none exists for email. It
// reports whether an account was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	_, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !apperror.Is(err, apperror.KindNotFound) {
		return false, err
	}

	hashed, err := HashPassword(password)
	if err != nil {
		return false, err
	}
	admin := &models.User{
		Name:         "Administrator",
		Email:        email,
		PasswordHash: hashed,
		Role:         models.RoleAdmin,
	}
	if err := s.userRepo.Create(ctx, admin); err != nil {
		return false, fmt.Errorf("failed to provision admin %s: %w", email, err)
	}
	s.log.Info("Admin account provisioned", zap.String("email", email))
	return true, nil
}
