package service

import (
	"context"
	"fmt"

	"github.com/tobimarks/tobimarks-api/internal/apperror"
	"github.com/tobimarks/tobimarks-api/internal/auth"
	"github.com/tobimarks/tobimarks-api/internal/model"
	"github.com/tobimarks/tobimarks-api/internal/repository"
)

const CodeUserNotFound = "USER_NOT_FOUND"

type UserService struct {
	users repository.UserRepository
}

func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

// GetProfile returns the caller's own account. A valid access token for a
// user that no longer exists yields USER_NOT_FOUND.
func (s *UserService) GetProfile(ctx context.Context, p auth.Principal) (*model.User, error) {
	user, err := s.users.FindByID(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("service/user: fetching user %s: %w", p.UserID, err)
	}
	if user == nil {
		return nil, apperror.NotFound(CodeUserNotFound, "User not found")
	}
	return user, nil
}
