package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/llevateloexpress/financing-backend/internal/domain"
	"github.com/rs/zerolog/log"
)

// AuthService resolves authenticated callers to local users
type AuthService struct {
	userRepo domain.UserRepository
}

// NewAuthService creates a new AuthService
func NewAuthService(userRepo domain.UserRepository) *AuthService {
	return &AuthService{userRepo: userRepo}
}

// CreateOrGetByAuth0ID returns the user for an Auth0 subject, creating it on
// first login. The staff flag is never set here.
func (s *AuthService) CreateOrGetByAuth0ID(ctx context.Context, auth0ID, email string, name *string) (*domain.User, error) {
	auth0ID = strings.TrimSpace(auth0ID)
	if auth0ID == "" {
		return nil, domain.ErrUnauthorized
	}

	user, err := s.userRepo.CreateOrGetByAuth0ID(ctx, auth0ID, strings.TrimSpace(email), name)
	if err != nil {
		log.Error().Err(err).Str("auth0_id", auth0ID).Msg("Failed to create or get user")
		return nil, err
	}
	return user, nil
}

// GetUserByID retrieves a user by their ID
func (s *AuthService) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// GetByAuth0ID retrieves a user by their Auth0 ID without creating it
func (s *AuthService) GetByAuth0ID(ctx context.Context, auth0ID string) (*domain.User, error) {
	user, err := s.userRepo.GetByAuth0ID(ctx, auth0ID)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		log.Error().Err(err).Str("auth0_id", auth0ID).Msg("Failed to get user")
	}
	return user, err
}
