package service

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"irrigation_controller/internal/repository"
)

const (
	defaultTokenTTL   = time.Hour
	tokenIssuer       = "irrigation-supervisor"
	minPasswordLength = 8
	maxUsernameLength = 64
)

// Domain errors for auth flows.
var (
	ErrInvalidUsername = errors.New("username must be 1-64 characters without spaces")
	ErrWeakPassword    = fmt.Errorf("password must be at least %d characters", minPasswordLength)
	ErrInvalidPassword = errors.New("invalid password")
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidToken    = errors.New("invalid token")
)

// AuthService registers operators and issues the tokens that guard pump control.
type AuthService struct {
	users      repository.Authorization
	signingKey []byte
	tokenTTL   time.Duration
	now        func() time.Time
}

func NewAuthService(repo repository.Authorization, signingKey string, tokenTTL time.Duration) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}
	return &AuthService{users: repo, signingKey: []byte(signingKey), tokenTTL: tokenTTL, now: time.Now}
}

// operatorClaims ties a token to one operator account.
type operatorClaims struct {
	jwt.RegisteredClaims
	OperatorID int `json:"operator_id"`
}

// SignUp registers an operator. Usernames are case-insensitive.
func (s *AuthService) SignUp(username, password string) (int, error) {
	name, err := normalizeUsername(username)
	if err != nil {
		return 0, err
	}
	if len(password) < minPasswordLength {
		return 0, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}
	return s.users.Create(name, string(hash))
}

// GenerateToken checks the credentials and signs a bearer token.
func (s *AuthService) GenerateToken(username, password string) (string, error) {
	name, err := normalizeUsername(username)
	if err != nil {
		return "", ErrUserNotFound
	}
	u, err := s.users.GetByUsername(name)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", ErrUserNotFound
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", ErrInvalidPassword
	}
	return s.sign(u.ID)
}

// ParseToken returns the operator ID carried by a valid token.
func (s *AuthService) ParseToken(accessToken string) (int, error) {
	claims := &operatorClaims{}
	token, err := jwt.ParseWithClaims(accessToken, claims,
		func(*jwt.Token) (interface{}, error) { return s.signingKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.OperatorID <= 0 {
		return 0, ErrInvalidToken
	}
	return claims.OperatorID, nil
}

func (s *AuthService) sign(operatorID int) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &operatorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   fmt.Sprintf("operator:%d", operatorID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
		OperatorID: operatorID,
	})
	return token.SignedString(s.signingKey)
}

func normalizeUsername(username string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(username))
	if name == "" || len(name) > maxUsernameLength || strings.IndexFunc(name, unicode.IsSpace) >= 0 {
		return "", ErrInvalidUsername
	}
	return name, nil
}
