package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/frahmantamala/task-management/internal"
	"github.com/frahmantamala/task-management/internal/auth"
	"github.com/frahmantamala/task-management/internal/organization"
)

// AuthRepository implements auth.Repository using GORM.
type AuthRepository struct {
	db *gorm.DB
}

func NewAuthRepository(db *gorm.DB) auth.Repository {
	return &AuthRepository{db: db}
}

func (r *AuthRepository) CreateUser(ctx context.Context, user *auth.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return internal.ErrUserExists
		}
		return internal.NewInternalError("failed to create user", err)
	}
	return nil
}

func (r *AuthRepository) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	var user auth.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, internal.NewInternalError("failed to load user", err)
	}
	return &user, nil
}

func (r *AuthRepository) GetUserByID(ctx context.Context, id int64) (*auth.User, error) {
	var user auth.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, internal.NewInternalError("failed to load user", err)
	}
	return &user, nil
}

func (r *AuthRepository) GetUserByProvider(ctx context.Context, provider, providerID string) (*auth.User, error) {
	var user auth.User
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_id = ?", provider, providerID).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, internal.NewInternalError("failed to load user", err)
	}
	return &user, nil
}

func (r *AuthRepository) LinkProvider(ctx context.Context, userID int64, provider, providerID string) error {
	err := r.db.WithContext(ctx).Model(&auth.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"provider":    provider,
			"provider_id": providerID,
		}).Error
	if err != nil {
		return internal.NewInternalError("failed to link provider", err)
	}
	return nil
}

func (r *AuthRepository) GetMemberships(ctx context.Context, userID int64) ([]auth.MembershipInfo, error) {
	var memberships []auth.MembershipInfo
	err := r.db.WithContext(ctx).
		Table("memberships").
		Select("memberships.organization_id AS organization_id, organizations.name AS organization_name, roles.name AS role").
		Joins("JOIN organizations ON organizations.id = memberships.organization_id").
		Joins("JOIN roles ON roles.id = memberships.role_id").
		Where("memberships.user_id = ?", userID).
		Order("memberships.organization_id").
		Scan(&memberships).Error
	if err != nil {
		return nil, internal.NewInternalError("failed to load memberships", err)
	}
	return memberships, nil
}

func (r *AuthRepository) HasMembership(ctx context.Context, userID, organizationID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&organization.Membership{}).
		Where("user_id = ? AND organization_id = ?", userID, organizationID).
		Count(&count).Error
	if err != nil {
		return false, internal.NewInternalError("failed to check membership", err)
	}
	return count > 0, nil
}

func (r *AuthRepository) GetGrantedPermissions(ctx context.Context, userID, organizationID int64) ([]auth.GrantedPermission, error) {
	var membership organization.Membership
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND organization_id = ?", userID, organizationID).
		First(&membership).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrNotAMember
		}
		return nil, internal.NewInternalError("failed to load membership", err)
	}

	var granted []auth.GrantedPermission
	err = r.db.WithContext(ctx).
		Table("permissions").
		Select("permissions.action AS action, permissions.resource AS resource").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Where("role_permissions.role_id = ?", membership.RoleID).
		Scan(&granted).Error
	if err != nil {
		return nil, internal.NewInternalError("failed to load permissions", err)
	}
	return granted, nil
}

// isUniqueViolation detects a unique-constraint failure from postgres
// (23505) or the gorm translated error.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
