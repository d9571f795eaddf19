package services

import (
	"context"
	"fmt"
	"log"
)

// UserStore is the slice of the store user removal needs.
type UserStore interface {
	DeleteUser(ctx context.Context, userID string) error
}

// UserService handles user-initiated data removal: untracking from the
// sweep and deleting every persisted key for the user.
type UserService struct {
	store UserStore
}

func NewUserService(store UserStore) *UserService {
	return &UserService{store: store}
}

func (s *UserService) RemoveUser(ctx context.Context, userID string) error {
	if err := s.store.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to remove user data: %w", err)
	}
	log.Printf("Removed all persisted data for user %s", userID)
	return nil
}
