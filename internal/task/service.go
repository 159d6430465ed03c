package task

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/task-management/internal/organization"
)

// Repository is the data access surface for tasks and comments. Every
// method takes the organization id and filters by it.
type Repository interface {
	Create(ctx context.Context, task *Task) error
	GetByID(ctx context.Context, id, organizationID int64) (*Task, error)
	List(ctx context.Context, organizationID int64, limit, offset int) ([]*Task, error)
	// Update persists the task and appends any new comments atomically.
	Update(ctx context.Context, task *Task, newComments []Comment) error
	Delete(ctx context.Context, id, organizationID int64) error

	CreateComment(ctx context.Context, comment *Comment) error
	ListComments(ctx context.Context, taskID, organizationID int64) ([]Comment, error)
	// DeleteComment is organization-scoped through the task join; a
	// comment id alone cannot delete across organizations.
	DeleteComment(ctx context.Context, commentID, taskID, organizationID int64) error
}

// MembershipFinder gates every operation on membership in the
// organization; implemented by the organization service.
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

func (s *Service) CreateTask(ctx context.Context, userID, organizationID int64, dto CreateTaskDTO) (*Task, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.memberships.FindMembership(ctx, userID, organizationID); err != nil {
		return nil, err
	}

	task := &Task{
		OrganizationID: organizationID,
		Title:          dto.Title,
		Description:    dto.Description,
		Status:         dto.Status,
		Priority:       dto.Priority,
		AssigneeID:     dto.AssigneeID,
		CreatorID:      userID,
		DueDate:        dto.DueDate,
	}
	for _, c := range dto.Comments {
		task.Comments = append(task.Comments, Comment{AuthorID: userID, Content: c.Content})
	}

	if err := s.repo.Create(ctx, task); err != nil {
		s.logger.Error("failed to create task", "error", err, "organization_id", organizationID)
		return nil, err
	}

	s.logger.Info("task created", "task_id", task.ID, "organization_id", organizationID)
	return task, nil
}

func (s *Service) GetTask(ctx context.Context, userID, organizationID, taskID int64) (*Task, error) {
	if _, err := s.memberships.FindMembership(ctx, userID, organizationID); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, taskID, organizationID)
}

func (s *Service) ListTasks(ctx context.Context, userID, organizationID int64, limit, offset int) ([]*Task, error) {
	if _, err := s.memberships.FindMembership(ctx, userID, organizationID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.List(ctx, organizationID, limit, offset)
}

func (s *Service) UpdateTask(ctx context.Context, userID, organizationID, taskID int64, dto UpdateTaskDTO) (*Task, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.memberships.FindMembership(ctx, userID, organizationID); err != nil {
		return nil, err
	}

	task, err := s.repo.GetByID(ctx, taskID, organizationID)
	if err != nil {
		return nil, err
	}

	if dto.Title != nil {
		task.Title = *dto.Title
	}
	if dto.Description != nil {
		task.Description = dto.Description
	}
	if dto.Status != nil {
		task.Status = *dto.Status
	}
	if dto.Priority != nil {
		task.Priority = *dto.Priority
	}
	if dto.AssigneeID != nil {
		task.AssigneeID = dto.AssigneeID
	}
	if dto.DueDate != nil {
		task.DueDate = dto.DueDate
	}

	var newComments []Comment
	for _, c := range dto.Comments {
		newComments = append(newComments, Comment{TaskID: task.ID, AuthorID: userID, Content: c.Content})
	}

	if err := s.repo.Update(ctx, task, newComments); err != nil {
		s.logger.Error("failed to update task", "error", err, "task_id", taskID)
		return nil, err
	}

	return s.repo.GetByID(ctx, taskID, organizationID)
}

func (s *Service) DeleteTask(ctx context.Context, userID, organizationID, taskID int64) error {
	if _, err := s.memberships.FindMembership(ctx, userID, organizationID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, taskID, organizationID)
}

func (s *Service) AddComment(ctx context.Context, userID, organizationID, taskID int64, dto CreateCommentDTO) (*Comment, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.memberships.FindMembership(ctx, userID, organizationID); err != nil {
		return nil, err
	}

	// The task lookup both verifies existence and enforces org scoping.
	if _, err := s.repo.GetByID(ctx, taskID, organizationID); err != nil {
		return nil, err
	}

	comment := &Comment{TaskID: taskID, AuthorID: userID, Content: dto.Content}
	if err := s.repo.CreateComment(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *Service) ListComments(ctx context.Context, userID, organizationID, taskID int64) ([]Comment, error) {
	if _, err := s.memberships.FindMembership(ctx, userID, organizationID); err != nil {
		return nil, err
	}
	return s.repo.ListComments(ctx, taskID, organizationID)
}

func (s *Service) DeleteComment(ctx context.Context, userID, organizationID, taskID, commentID int64) error {
	if _, err := s.memberships.FindMembership(ctx, userID, organizationID); err != nil {
		return err
	}
	return s.repo.DeleteComment(ctx, commentID, taskID, organizationID)
}
