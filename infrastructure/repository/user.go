package repository

import (
	"context"
	"fmt"

	"ledger/domain/entity"
)

type userRepository struct {
	*baseRepository[entity.User]
}

func (r *userRepository) Create(ctx context.Context, user *entity.User) error {
	query := r.qb.Insert("users").
		Columns("id", "name", "email", "role", "created_at").
		Values(user.ID, user.Name, user.Email, user.Role, user.CreatedAt)

	if _, err := r.exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	r.metrics.IncrementCounter("repository.users.create", nil)
	return nil
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	return r.getByID(ctx, id)
}

func (r *userRepository) List(ctx context.Context) ([]*entity.User, error) {
	return r.listAll(ctx, "name ASC", "id ASC")
}
