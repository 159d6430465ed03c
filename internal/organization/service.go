package organization

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/frahmantamala/task-management/internal"
	"github.com/frahmantamala/task-management/internal/auth"
	"github.com/frahmantamala/task-management/internal/core/events"
)

// Repository is the data access surface for organizations, roles,
// memberships and invites. Multi-step sequences (organization creation,
// invite acceptance) are transactional inside the implementation, with
// unique constraints making concurrent duplicate writers fail with a
// conflict instead of corrupting state.
type Repository interface {
	// CreateOrganization persists the organization, its pre-built roles
	// (with permissions), the creator's administrator membership and the
	// invites in a single transaction.
	CreateOrganization(ctx context.Context, org *Organization, creatorID int64, invites []Invite) error
	GetOrganization(ctx context.Context, id int64) (*Organization, error)

	AllPermissions(ctx context.Context) ([]Permission, error)
	GetPermissionsByIDs(ctx context.Context, ids []int64) ([]Permission, error)

	FindMembership(ctx context.Context, userID, organizationID int64) (*Membership, error)
	CreateMembership(ctx context.Context, membership *Membership) error
	// DefaultRole returns the role named "viewer", else the lowest-id
	// role of the organization.
	DefaultRole(ctx context.Context, organizationID int64) (*Role, error)

	CreateInvite(ctx context.Context, invite *Invite) error
	GetInviteByToken(ctx context.Context, token string) (*Invite, error)
	// AcceptInvite re-checks the invite inside a transaction, creates
	// the membership unless one already exists and marks the invite
	// accepted. A second accept of the same token fails.
	AcceptInvite(ctx context.Context, token string, userID, roleID int64) error

	ListRoles(ctx context.Context, organizationID int64) ([]Role, error)
	GetRole(ctx context.Context, roleID, organizationID int64) (*Role, error)
	CreateRole(ctx context.Context, role *Role) error
	UpdateRole(ctx context.Context, role *Role, permissions *[]Permission) error
}

// UserDirectory resolves account identities; implemented by the auth
// repository.
type UserDirectory interface {
	GetUserByEmail(ctx context.Context, email string) (*auth.User, error)
	GetUserByID(ctx context.Context, id int64) (*auth.User, error)
}

// TokenIssuer creates session tokens scoped to an organization.
type TokenIssuer interface {
	Issue(userID int64, email string, organizationID *int64) (string, error)
}

// EventPublisher decouples invite creation from mail delivery.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Service struct {
	repo   Repository
	users  UserDirectory
	tokens TokenIssuer
	bus    EventPublisher
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, users UserDirectory, tokens TokenIssuer, bus EventPublisher, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		users:  users,
		tokens: tokens,
		bus:    bus,
		logger: logger,
		now:    time.Now,
	}
}

// CreateOrganization creates the organization with the three seeded
// roles, enrolls the creator as administrator, stores any invites and
// returns a session token scoped to the new organization.
func (s *Service) CreateOrganization(ctx context.Context, dto CreateOrganizationDTO) (*CreateOrganizationResultDTO, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	creator, err := s.users.GetUserByID(ctx, dto.UserID)
	if err != nil {
		return nil, err
	}

	catalog, err := s.repo.AllPermissions(ctx)
	if err != nil {
		return nil, err
	}

	org := &Organization{Name: dto.Name}
	grants := SeededRolePermissions(catalog)
	for _, name := range []string{RoleAdministrator, RoleEditor, RoleViewer} {
		org.Roles = append(org.Roles, Role{
			Name:        name,
			Description: seededRoleDescription(name),
			Permissions: grants[name],
		})
	}

	invites := s.buildInvites(dto.Invites, creator.ID)
	if err := s.repo.CreateOrganization(ctx, org, creator.ID, invites); err != nil {
		return nil, err
	}

	s.publishInvites(ctx, org, invites)

	token, err := s.tokens.Issue(creator.ID, creator.Email, &org.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("organization created",
		"organization_id", org.ID,
		"creator_id", creator.ID,
		"invites", len(invites))

	return &CreateOrganizationResultDTO{OrganizationID: org.ID, Token: token}, nil
}

// SendInvites issues invites for an existing organization. The inviter
// must be a member.
func (s *Service) SendInvites(ctx context.Context, organizationID int64, dto SendInvitesDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}
	if organizationID <= 0 {
		return ValidationError{Msg: "organizationId is required"}
	}

	if _, err := s.repo.FindMembership(ctx, dto.UserID, organizationID); err != nil {
		return err
	}

	org, err := s.repo.GetOrganization(ctx, organizationID)
	if err != nil {
		return err
	}

	invites := s.buildInvites(dto.Invites, dto.UserID)
	for i := range invites {
		invites[i].OrganizationID = organizationID
		if err := s.repo.CreateInvite(ctx, &invites[i]); err != nil {
			return err
		}
	}

	s.publishInvites(ctx, org, invites)
	return nil
}

// ValidateInvite checks the token without side effects. With the
// register flag the invited email is returned for prefill.
func (s *Service) ValidateInvite(ctx context.Context, token string, includeEmail bool) (*ValidateInviteResultDTO, error) {
	invite, err := s.usableInvite(ctx, token)
	if err != nil {
		return nil, err
	}

	result := &ValidateInviteResultDTO{OrganizationID: invite.OrganizationID}
	if includeEmail {
		result.Email = invite.Email
	}
	return result, nil
}

// AcceptInvite consumes the token exactly once. If no account exists for
// the invited email the register-first sentinel is returned and the
// invite stays usable; otherwise a membership at the default role is
// created, the invite is marked accepted and a session token scoped to
// the organization is issued. Retries after success fail, and never
// create a second membership.
func (s *Service) AcceptInvite(ctx context.Context, token string) (*AcceptOutcome, error) {
	invite, err := s.usableInvite(ctx, token)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByEmail(ctx, invite.Email)
	if err != nil {
		if errors.Is(err, internal.ErrUserNotFound) {
			return &AcceptOutcome{
				RequiresRegistration: true,
				InviteToken:          token,
				Email:                invite.Email,
			}, nil
		}
		return nil, err
	}

	role, err := s.repo.DefaultRole(ctx, invite.OrganizationID)
	if err != nil {
		return nil, err
	}
	if role.Name != RoleViewer {
		s.logger.Warn("no viewer role; falling back to lowest-id role",
			"organization_id", invite.OrganizationID,
			"role", role.Name)
	}

	if err := s.repo.AcceptInvite(ctx, token, user.ID, role.ID); err != nil {
		return nil, err
	}

	sessionToken, err := s.tokens.Issue(user.ID, user.Email, &invite.OrganizationID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("invite accepted",
		"organization_id", invite.OrganizationID,
		"user_id", user.ID,
		"role", role.Name)

	return &AcceptOutcome{Token: sessionToken}, nil
}

// FindMembership gates organization-scoped operations for other services.
func (s *Service) FindMembership(ctx context.Context, userID, organizationID int64) (*Membership, error) {
	return s.repo.FindMembership(ctx, userID, organizationID)
}

func (s *Service) ListRoles(ctx context.Context, userID, organizationID int64) ([]Role, error) {
	if _, err := s.repo.FindMembership(ctx, userID, organizationID); err != nil {
		return nil, err
	}
	return s.repo.ListRoles(ctx, organizationID)
}

func (s *Service) CreateRole(ctx context.Context, userID, organizationID int64, dto CreateRoleDTO) (*Role, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindMembership(ctx, userID, organizationID); err != nil {
		return nil, err
	}

	permissions, err := s.resolvePermissions(ctx, dto.PermissionIDs)
	if err != nil {
		return nil, err
	}

	role := &Role{
		OrganizationID: &organizationID,
		Name:           dto.Name,
		Description:    dto.Description,
		Permissions:    permissions,
	}
	if err := s.repo.CreateRole(ctx, role); err != nil {
		return nil, err
	}

	return role, nil
}

func (s *Service) UpdateRole(ctx context.Context, userID, organizationID, roleID int64, dto UpdateRoleDTO) (*Role, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindMembership(ctx, userID, organizationID); err != nil {
		return nil, err
	}

	role, err := s.repo.GetRole(ctx, roleID, organizationID)
	if err != nil {
		return nil, err
	}

	if dto.Name != nil {
		role.Name = *dto.Name
	}
	if dto.Description != nil {
		role.Description = *dto.Description
	}

	var permissions *[]Permission
	if dto.PermissionIDs != nil {
		resolved, err := s.resolvePermissions(ctx, *dto.PermissionIDs)
		if err != nil {
			return nil, err
		}
		permissions = &resolved
	}

	if err := s.repo.UpdateRole(ctx, role, permissions); err != nil {
		return nil, err
	}

	return s.repo.GetRole(ctx, roleID, organizationID)
}

func (s *Service) usableInvite(ctx context.Context, token string) (*Invite, error) {
	if token == "" {
		return nil, ValidationError{Msg: "invite token is required"}
	}

	invite, err := s.repo.GetInviteByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if invite.Accepted {
		return nil, internal.ErrInviteAccepted
	}
	if invite.Expired(s.now()) {
		return nil, internal.ErrInviteExpired
	}
	return invite, nil
}

func (s *Service) resolvePermissions(ctx context.Context, ids []int64) ([]Permission, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	permissions, err := s.repo.GetPermissionsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(permissions) != len(ids) {
		return nil, internal.NewValidationError("unknown permission id", internal.ErrCodeInvalidPermission)
	}
	return permissions, nil
}

func (s *Service) buildInvites(emails []string, inviterID int64) []Invite {
	var invites []Invite
	for _, email := range emails {
		if email == "" {
			continue
		}
		token, err := auth.GenerateRandomToken()
		if err != nil {
			s.logger.Error("failed to generate invite token", "error", err)
			continue
		}
		invites = append(invites, Invite{
			Email:     email,
			InviterID: inviterID,
			Token:     token,
			ExpiresAt: s.now().Add(InviteTTL),
		})
	}
	return invites
}

func (s *Service) publishInvites(ctx context.Context, org *Organization, invites []Invite) {
	if s.bus == nil {
		return
	}
	for _, invite := range invites {
		if err := s.bus.Publish(ctx, events.NewInviteCreatedEvent(invite.Email, invite.Token, org.ID, org.Name)); err != nil {
			s.logger.Error("failed to publish invite event", "error", err, "email", invite.Email)
		}
	}
}

func seededRoleDescription(name string) string {
	switch name {
	case RoleAdministrator:
		return "Full access to every resource in the organization"
	case RoleEditor:
		return "Full access to tasks"
	case RoleViewer:
		return "Read-only access to tasks"
	default:
		return ""
	}
}
