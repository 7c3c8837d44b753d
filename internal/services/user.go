package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/felixvaughn/themachine-backend/internal/logger"
	"github.com/felixvaughn/themachine-backend/internal/repos"
	"github.com/felixvaughn/themachine-backend/internal/requestdata"
	"github.com/felixvaughn/themachine-backend/internal/types"
)

type UserService interface {
	GetUser(ctx context.Context) (*types.User, error)
	GetUsersByIDs(ctx context.Context, ids []uuid.UUID) ([]*types.User, error)
}

type userService struct {
	db       *gorm.DB
	log      *logger.Logger
	userRepo repos.UserRepo
}

func NewUserService(db *gorm.DB, log *logger.Logger, userRepo repos.UserRepo) UserService {
	return &userService{
		db:       db,
		log:      log.With("service", "UserService"),
		userRepo: userRepo,
	}
}

func (us *userService) GetUser(ctx context.Context) (*types.User, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil {
		us.log.Warn("No request data found in context")
		return nil, fmt.Errorf("No request data found in context")
	}
	users, uErr := us.userRepo.GetByIDs(ctx, nil, []uuid.UUID{rd.UserID})
	if uErr != nil {
		us.log.Warn("Failed to load user", "error", uErr)
		return nil, fmt.Errorf("Failed to load user: %w", uErr)
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("User not found")
	}
	user := users[0]
	user.Password = ""
	return user, nil
}

func (us *userService) GetUsersByIDs(ctx context.Context, ids []uuid.UUID) ([]*types.User, error) {
	users, uErr := us.userRepo.GetByIDs(ctx, nil, ids)
	if uErr != nil {
		return nil, fmt.Errorf("Failed to load users: %w", uErr)
	}
	for _, u := range users {
		u.Password = ""
	}
	return users, nil
}
