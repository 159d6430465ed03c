package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/frahmantamala/task-management/internal"
	"github.com/frahmantamala/task-management/internal/auth"
	"github.com/frahmantamala/task-management/internal/organization"
	"github.com/frahmantamala/task-management/internal/user"
)

// UserRepository implements user.Repository using GORM.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) user.Repository {
	return &UserRepository{db: db}
}

func (r *UserRepository) ListMembers(ctx context.Context, organizationID int64) ([]user.Member, error) {
	var members []user.Member
	err := r.db.WithContext(ctx).
		Table("users").
		Select("users.id AS id, users.email AS email, users.name AS name, roles.name AS role").
		Joins("JOIN memberships ON memberships.user_id = users.id").
		Joins("JOIN roles ON roles.id = memberships.role_id").
		Where("memberships.organization_id = ?", organizationID).
		Order("users.id").
		Scan(&members).Error
	if err != nil {
		return nil, internal.NewInternalError("failed to list members", err)
	}
	return members, nil
}

func (r *UserRepository) GetMember(ctx context.Context, userID, organizationID int64) (*user.Member, error) {
	var member user.Member
	err := r.db.WithContext(ctx).
		Table("users").
		Select("users.id AS id, users.email AS email, users.name AS name, roles.name AS role").
		Joins("JOIN memberships ON memberships.user_id = users.id").
		Joins("JOIN roles ON roles.id = memberships.role_id").
		Where("users.id = ? AND memberships.organization_id = ?", userID, organizationID).
		Scan(&member).Error
	if err != nil {
		return nil, internal.NewInternalError("failed to load member", err)
	}
	if member.ID == 0 {
		return nil, internal.ErrUserNotFound
	}
	return &member, nil
}

func (r *UserRepository) UpdateUser(ctx context.Context, userID int64, dto user.UpdateUserDTO) error {
	updates := map[string]interface{}{}
	if dto.Name != nil {
		updates["name"] = *dto.Name
	}
	if dto.Email != nil {
		updates["email"] = *dto.Email
	}
	if len(updates) == 0 {
		return nil
	}

	err := r.db.WithContext(ctx).Model(&auth.User{}).Where("id = ?", userID).Updates(updates).Error
	if err != nil {
		if isUniqueViolation(err) {
			return internal.ErrUserExists
		}
		return internal.NewInternalError("failed to update user", err)
	}
	return nil
}

func (r *UserRepository) RemoveMember(ctx context.Context, userID, organizationID int64) error {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND organization_id = ?", userID, organizationID).
		Delete(&organization.Membership{})
	if res.Error != nil {
		return internal.NewInternalError("failed to remove member", res.Error)
	}
	if res.RowsAffected == 0 {
		return internal.ErrNotAMember
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
