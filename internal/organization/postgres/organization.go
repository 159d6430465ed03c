package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/frahmantamala/task-management/internal"
	"github.com/frahmantamala/task-management/internal/organization"
)

// OrganizationRepository implements organization.Repository using GORM.
// Organization creation and invite acceptance run inside transactions;
// the unique constraints on organizations.name, invites.token and
// memberships(user_id, organization_id) make the losing side of a
// concurrent duplicate write fail deterministically.
type OrganizationRepository struct {
	db *gorm.DB
}

func NewOrganizationRepository(db *gorm.DB) organization.Repository {
	return &OrganizationRepository{db: db}
}

func (r *OrganizationRepository) CreateOrganization(ctx context.Context, org *organization.Organization, creatorID int64, invites []organization.Invite) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(org).Error; err != nil {
			return err
		}

		var adminRoleID int64
		for _, role := range org.Roles {
			if role.Name == organization.RoleAdministrator {
				adminRoleID = role.ID
			}
		}
		if adminRoleID == 0 {
			return errors.New("administrator role missing from seeded roles")
		}

		membership := &organization.Membership{
			UserID:         creatorID,
			OrganizationID: org.ID,
			RoleID:         adminRoleID,
		}
		if err := tx.Create(membership).Error; err != nil {
			return err
		}

		for i := range invites {
			invites[i].OrganizationID = org.ID
			if err := tx.Create(&invites[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return internal.ErrOrganizationExists
		}
		return internal.NewInternalError("failed to create organization", err)
	}
	return nil
}

func (r *OrganizationRepository) GetOrganization(ctx context.Context, id int64) (*organization.Organization, error) {
	var org organization.Organization
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&org).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrOrganizationNotFound
		}
		return nil, internal.NewInternalError("failed to load organization", err)
	}
	return &org, nil
}

func (r *OrganizationRepository) AllPermissions(ctx context.Context) ([]organization.Permission, error) {
	var permissions []organization.Permission
	if err := r.db.WithContext(ctx).Order("id").Find(&permissions).Error; err != nil {
		return nil, internal.NewInternalError("failed to load permission catalog", err)
	}
	return permissions, nil
}

func (r *OrganizationRepository) GetPermissionsByIDs(ctx context.Context, ids []int64) ([]organization.Permission, error) {
	var permissions []organization.Permission
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&permissions).Error; err != nil {
		return nil, internal.NewInternalError("failed to load permissions", err)
	}
	return permissions, nil
}

func (r *OrganizationRepository) FindMembership(ctx context.Context, userID, organizationID int64) (*organization.Membership, error) {
	var membership organization.Membership
	err := r.db.WithContext(ctx).
		Preload("Role").
		Where("user_id = ? AND organization_id = ?", userID, organizationID).
		First(&membership).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrNotAMember
		}
		return nil, internal.NewInternalError("failed to load membership", err)
	}
	return &membership, nil
}

func (r *OrganizationRepository) CreateMembership(ctx context.Context, membership *organization.Membership) error {
	if err := r.db.WithContext(ctx).Create(membership).Error; err != nil {
		if isUniqueViolation(err) {
			return internal.ErrMembershipExists
		}
		return internal.NewInternalError("failed to create membership", err)
	}
	return nil
}

func (r *OrganizationRepository) DefaultRole(ctx context.Context, organizationID int64) (*organization.Role, error) {
	var role organization.Role
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND name = ?", organizationID, organization.RoleViewer).
		First(&role).Error
	if err == nil {
		return &role, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, internal.NewInternalError("failed to load default role", err)
	}

	// No viewer role; fall back to the lowest-id role so the choice is
	// at least deterministic.
	err = r.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Order("id").
		First(&role).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrRoleNotFound
		}
		return nil, internal.NewInternalError("failed to load default role", err)
	}
	return &role, nil
}

func (r *OrganizationRepository) CreateInvite(ctx context.Context, invite *organization.Invite) error {
	if err := r.db.WithContext(ctx).Create(invite).Error; err != nil {
		return internal.NewInternalError("failed to create invite", err)
	}
	return nil
}

func (r *OrganizationRepository) GetInviteByToken(ctx context.Context, token string) (*organization.Invite, error) {
	var invite organization.Invite
	err := r.db.WithContext(ctx).Where("token = ?", token).First(&invite).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrInviteInvalid
		}
		return nil, internal.NewInternalError("failed to load invite", err)
	}
	return &invite, nil
}

func (r *OrganizationRepository) AcceptInvite(ctx context.Context, token string, userID, roleID int64) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Mark accepted first with a guarded update; zero rows means a
		// concurrent accept already consumed the token.
		res := tx.Model(&organization.Invite{}).
			Where("token = ? AND accepted = ? AND expires_at > ?", token, false, time.Now()).
			Update("accepted", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return internal.ErrInviteAccepted
		}

		var invite organization.Invite
		if err := tx.Where("token = ?", token).First(&invite).Error; err != nil {
			return err
		}

		// Retry-safe: a membership left by a prior attempt is kept.
		var count int64
		if err := tx.Model(&organization.Membership{}).
			Where("user_id = ? AND organization_id = ?", userID, invite.OrganizationID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		return tx.Create(&organization.Membership{
			UserID:         userID,
			OrganizationID: invite.OrganizationID,
			RoleID:         roleID,
		}).Error
	})
	if err != nil {
		if appErr, ok := internal.IsAppError(err); ok {
			return appErr
		}
		if isUniqueViolation(err) {
			return internal.ErrMembershipExists
		}
		return internal.NewInternalError("failed to accept invite", err)
	}
	return nil
}

func (r *OrganizationRepository) ListRoles(ctx context.Context, organizationID int64) ([]organization.Role, error) {
	var roles []organization.Role
	err := r.db.WithContext(ctx).
		Preload("Permissions").
		Where("organization_id = ?", organizationID).
		Order("id").
		Find(&roles).Error
	if err != nil {
		return nil, internal.NewInternalError("failed to list roles", err)
	}
	return roles, nil
}

func (r *OrganizationRepository) GetRole(ctx context.Context, roleID, organizationID int64) (*organization.Role, error) {
	var role organization.Role
	err := r.db.WithContext(ctx).
		Preload("Permissions").
		Where("id = ? AND organization_id = ?", roleID, organizationID).
		First(&role).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrRoleNotFound
		}
		return nil, internal.NewInternalError("failed to load role", err)
	}
	return &role, nil
}

func (r *OrganizationRepository) CreateRole(ctx context.Context, role *organization.Role) error {
	if err := r.db.WithContext(ctx).Create(role).Error; err != nil {
		return internal.NewInternalError("failed to create role", err)
	}
	return nil
}

func (r *OrganizationRepository) UpdateRole(ctx context.Context, role *organization.Role, permissions *[]organization.Permission) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(role).
			Updates(map[string]interface{}{
				"name":        role.Name,
				"description": role.Description,
				"updated_at":  time.Now(),
			}).Error; err != nil {
			return err
		}
		if permissions != nil {
			if err := tx.Model(role).Association("Permissions").Replace(*permissions); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return internal.NewInternalError("failed to update role", err)
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
