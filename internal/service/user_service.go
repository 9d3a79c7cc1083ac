package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/banterhq/banter/internal/domain"
	"github.com/banterhq/banter/internal/repository"
)

type UserService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// Search finds users by username or display name, excluding the actor.
func (s *UserService) Search(ctx context.Context, selfID uuid.UUID, query string) ([]domain.User, error) {
	users, err := s.userRepo.Search(ctx, query, selfID, 10)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []domain.User{}
	}
	return users, nil
}

// List returns every other registered user.
func (s *UserService) List(ctx context.Context, selfID uuid.UUID) ([]domain.User, error) {
	users, err := s.userRepo.List(ctx, selfID)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []domain.User{}
	}
	return users, nil
}
