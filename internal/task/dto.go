package task

import (
	"time"
)

// ValidationError represents a simple validation error from DTO validation.
type ValidationError struct {
	Msg string
}

func (v ValidationError) Error() string { return v.Msg }

// CommentDTO is an inline comment attached with a task create/update.
type CommentDTO struct {
	Content string `json:"content"`
}

type CreateTaskDTO struct {
	Title       string       `json:"title"`
	Description *string      `json:"description,omitempty"`
	Status      string       `json:"status,omitempty"`
	Priority    string       `json:"priority,omitempty"`
	AssigneeID  *int64       `json:"assigneeId,omitempty"`
	DueDate     *time.Time   `json:"dueDate,omitempty"`
	Comments    []CommentDTO `json:"comments,omitempty"`
}

func (d *CreateTaskDTO) Validate() error {
	if d.Title == "" {
		return ValidationError{Msg: "title is required"}
	}
	if d.Status == "" {
		d.Status = StatusPending
	}
	if !ValidStatus(d.Status) {
		return ValidationError{Msg: "invalid status"}
	}
	if d.Priority == "" {
		d.Priority = PriorityMedium
	}
	if !ValidPriority(d.Priority) {
		return ValidationError{Msg: "invalid priority"}
	}
	for _, c := range d.Comments {
		if c.Content == "" {
			return ValidationError{Msg: "comment content is required"}
		}
	}
	return nil
}

type UpdateTaskDTO struct {
	Title       *string      `json:"title,omitempty"`
	Description *string      `json:"description,omitempty"`
	Status      *string      `json:"status,omitempty"`
	Priority    *string      `json:"priority,omitempty"`
	AssigneeID  *int64       `json:"assigneeId,omitempty"`
	DueDate     *time.Time   `json:"dueDate,omitempty"`
	Comments    []CommentDTO `json:"comments,omitempty"`
}

func (d UpdateTaskDTO) Validate() error {
	if d.Title != nil && *d.Title == "" {
		return ValidationError{Msg: "title cannot be empty"}
	}
	if d.Status != nil && !ValidStatus(*d.Status) {
		return ValidationError{Msg: "invalid status"}
	}
	if d.Priority != nil && !ValidPriority(*d.Priority) {
		return ValidationError{Msg: "invalid priority"}
	}
	for _, c := range d.Comments {
		if c.Content == "" {
			return ValidationError{Msg: "comment content is required"}
		}
	}
	return nil
}

type CreateCommentDTO struct {
	Content string `json:"content"`
}

func (d CreateCommentDTO) Validate() error {
	if d.Content == "" {
		return ValidationError{Msg: "content is required"}
	}
	return nil
}
