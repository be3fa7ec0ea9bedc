// Package services implements the backend's application logic between the
// HTTP layer and the repositories.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fieldvault/internal/common"
	"fieldvault/internal/server/auth"
	"fieldvault/internal/server/config"
	"fieldvault/internal/server/models"
	"fieldvault/internal/server/repositories/operators"
)

// AuthService authenticates operators and issues access tokens.
type AuthService struct {
	operators operators.Repository
	jwtSecret []byte
	validity  time.Duration
}

// NewAuthService wires the auth service from the operator repository and
// server config.
func NewAuthService(repo operators.Repository, cfg *config.Config) *AuthService {
	return &AuthService{
		operators: repo,
		jwtSecret: []byte(cfg.SecretKey),
		validity:  cfg.AccessTokenValidityDuration,
	}
}

// Register creates an operator account with an argon2id password hash.
func (s *AuthService) Register(ctx context.Context, login, password string) (*models.Operator, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	op, err := s.operators.Create(ctx, &models.Operator{Login: login, PasswordHash: hash})
	if err != nil {
		return nil, fmt.Errorf("error creating operator: %w", err)
	}
	return op, nil
}

// Login verifies the operator's password and returns a signed access token
// with its expiry. An unknown login and a wrong password are
// indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, login, password string) (string, time.Time, error) {
	op, err := s.operators.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", time.Time{}, common.ErrorUnauthorized
		}
		return "", time.Time{}, common.ErrorInternal
	}

	if !VerifyPassword(op.PasswordHash, password) {
		return "", time.Time{}, common.ErrorUnauthorized
	}

	token, expiresAt, err := auth.GenerateToken(op.ID, s.jwtSecret, s.validity)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return token, expiresAt, nil
}

// VerifyToken resolves an access token to the operator it was issued to.
func (s *AuthService) VerifyToken(tokenString string) (string, error) {
	return auth.GetOperatorIDFromToken(tokenString, s.jwtSecret)
}
