package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/frahmantamala/task-management/internal"
	"github.com/frahmantamala/task-management/internal/task"
)

// TaskRepository implements task.Repository using GORM. Every query
// filters by organization id.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) task.Repository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, t *task.Task) error {
	// Inline comments are persisted through the association in the same
	// insert transaction.
	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		return internal.NewInternalError("failed to create task", err)
	}
	return nil
}

func (r *TaskRepository) GetByID(ctx context.Context, id, organizationID int64) (*task.Task, error) {
	var t task.Task
	err := r.db.WithContext(ctx).
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("task_comments.created_at DESC")
		}).
		Where("id = ? AND organization_id = ?", id, organizationID).
		First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrTaskNotFound
		}
		return nil, internal.NewInternalError("failed to load task", err)
	}
	return &t, nil
}

func (r *TaskRepository) List(ctx context.Context, organizationID int64, limit, offset int) ([]*task.Task, error) {
	var tasks []*task.Task
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&tasks).Error
	if err != nil {
		return nil, internal.NewInternalError("failed to list tasks", err)
	}
	return tasks, nil
}

func (r *TaskRepository) Update(ctx context.Context, t *task.Task, newComments []task.Comment) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&task.Task{}).
			Where("id = ? AND organization_id = ?", t.ID, t.OrganizationID).
			Updates(map[string]interface{}{
				"title":       t.Title,
				"description": t.Description,
				"status":      t.Status,
				"priority":    t.Priority,
				"assignee_id": t.AssigneeID,
				"due_date":    t.DueDate,
				"updated_at":  time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return internal.ErrTaskNotFound
		}

		for i := range newComments {
			if err := tx.Create(&newComments[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if appErr, ok := internal.IsAppError(err); ok {
			return appErr
		}
		return internal.NewInternalError("failed to update task", err)
	}
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, id, organizationID int64) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND organization_id = ?", id, organizationID).Delete(&task.Task{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return internal.ErrTaskNotFound
		}
		return tx.Where("task_id = ?", id).Delete(&task.Comment{}).Error
	})
	if err != nil {
		if appErr, ok := internal.IsAppError(err); ok {
			return appErr
		}
		return internal.NewInternalError("failed to delete task", err)
	}
	return nil
}

func (r *TaskRepository) CreateComment(ctx context.Context, comment *task.Comment) error {
	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		return internal.NewInternalError("failed to create comment", err)
	}
	return nil
}

func (r *TaskRepository) ListComments(ctx context.Context, taskID, organizationID int64) ([]task.Comment, error) {
	var comments []task.Comment
	err := r.db.WithContext(ctx).
		Joins("JOIN tasks ON tasks.id = task_comments.task_id").
		Where("task_comments.task_id = ? AND tasks.organization_id = ?", taskID, organizationID).
		Order("task_comments.created_at DESC").
		Find(&comments).Error
	if err != nil {
		return nil, internal.NewInternalError("failed to list comments", err)
	}
	return comments, nil
}

func (r *TaskRepository) DeleteComment(ctx context.Context, commentID, taskID, organizationID int64) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND task_id = ? AND task_id IN (SELECT id FROM tasks WHERE organization_id = ?)",
			commentID, taskID, organizationID).
		Delete(&task.Comment{})
	if res.Error != nil {
		return internal.NewInternalError("failed to delete comment", res.Error)
	}
	if res.RowsAffected == 0 {
		return internal.ErrCommentNotFound
	}
	return nil
}
