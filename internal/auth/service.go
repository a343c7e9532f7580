package auth

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service authenticates the seeded API user and issues tokens. The user
// set is a single operator account seeded from config; there is no
// self-serve registration.
type Service struct {
	jwtManager *JWTManager
	log        zerolog.Logger

	userID       string
	username     string
	passwordHash string
}

// NewService seeds the operator account and wires the token manager.
func NewService(jwtManager *JWTManager, username, password string, log zerolog.Logger) (*Service, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("auth requires a seed username and password")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to seed user: %w", err)
	}

	svc := &Service{
		jwtManager:   jwtManager,
		log:          log.With().Str("component", "auth").Logger(),
		userID:       uuid.New().String(),
		username:     username,
		passwordHash: hash,
	}
	svc.log.Info().Str("username", username).Msg("Seeded API user")
	return svc, nil
}

// Login verifies credentials and returns a token pair.
func (s *Service) Login(username, password string) (*TokenPair, error) {
	if username != s.username || !VerifyPassword(password, s.passwordHash) {
		s.log.Warn().Str("username", username).Msg("Failed login attempt")
		return nil, ErrInvalidCredentials
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(UserClaims{
		UserID:   s.userID,
		Username: s.username,
	})
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken: accessToken,
		ExpiresIn:   s.jwtManager.TokenDurationSeconds(),
		TokenType:   "Bearer",
	}, nil
}

// JWT exposes the token manager for middleware wiring.
func (s *Service) JWT() *JWTManager {
	return s.jwtManager
}
