package auth

import (
	"context"

	"github.com/queuedesk/ticketero/internal/model"
	"github.com/queuedesk/ticketero/internal/repository"
	"github.com/queuedesk/ticketero/pkg/auth"
	"github.com/queuedesk/ticketero/pkg/errors"
	"github.com/queuedesk/ticketero/pkg/security"
)

type Service struct {
	users  repository.UserRepository
	hasher security.PasswordHasher
	jwt    *auth.JWTService
}

func NewService(users repository.UserRepository, hasher security.PasswordHasher, jwt *auth.JWTService) *Service {
	return &Service{users: users, hasher: hasher, jwt: jwt}
}

func (s *Service) Login(ctx context.Context, email, password string) (*model.TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		// Do not leak whether the account exists.
		return nil, errors.Unauthorized(err)
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return nil, errors.Unauthorized(err)
	}

	access, err := s.jwt.GenerateAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, errors.Internal(err)
	}
	refresh, err := s.jwt.GenerateRefreshToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, errors.Internal(err)
	}

	return &model.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (*model.TokenPair, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, errors.Unauthorized(err)
	}

	access, err := s.jwt.GenerateAccessToken(claims.UserID, claims.Email, claims.Role)
	if err != nil {
		return nil, errors.Internal(err)
	}
	refresh, err := s.jwt.GenerateRefreshToken(claims.UserID, claims.Email, claims.Role)
	if err != nil {
		return nil, errors.Internal(err)
	}

	return &model.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
