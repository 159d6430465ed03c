package user

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/task-management/internal/organization"
)

// Repository is the organization-scoped data access surface for users.
type Repository interface {
	ListMembers(ctx context.Context, organizationID int64) ([]Member, error)
	GetMember(ctx context.Context, userID, organizationID int64) (*Member, error)
	UpdateUser(ctx context.Context, userID int64, dto UpdateUserDTO) error
	// RemoveMember deletes the membership row only; the account survives.
	RemoveMember(ctx context.Context, userID, organizationID int64) error
}

type MembershipFinder interface {
	FindMembership(ctx context.Context, userID, organizationID int64) (*organization.Membership, error)
}

type Service struct {
	repo        Repository
	memberships MembershipFinder
	logger      *slog.Logger
}

func NewService(repo Repository, memberships MembershipFinder, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		memberships: memberships,
		logger:      logger,
	}
}

func (s *Service) ListMembers(ctx context.Context, callerID, organizationID int64) ([]Member, error) {
	if _, err := s.memberships.FindMembership(ctx, callerID, organizationID); err != nil {
		return nil, err
	}
	return s.repo.ListMembers(ctx, organizationID)
}

func (s *Service) UpdateMember(ctx context.Context, callerID, organizationID, userID int64, dto UpdateUserDTO) (*Member, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.memberships.FindMembership(ctx, callerID, organizationID); err != nil {
		return nil, err
	}
	// The target must be a member of the caller's organization too.
	if _, err := s.repo.GetMember(ctx, userID, organizationID); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateUser(ctx, userID, dto); err != nil {
		return nil, err
	}

	return s.repo.GetMember(ctx, userID, organizationID)
}

func (s *Service) RemoveMember(ctx context.Context, callerID, organizationID, userID int64) error {
	if _, err := s.memberships.FindMembership(ctx, callerID, organizationID); err != nil {
		return err
	}

	if err := s.repo.RemoveMember(ctx, userID, organizationID); err != nil {
		return err
	}

	s.logger.Info("member removed", "organization_id", organizationID, "user_id", userID)
	return nil
}
