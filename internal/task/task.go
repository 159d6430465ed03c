package task

import (
	"time"
)

const (
	StatusPending    = "PENDING"
	StatusInProgress = "IN_PROGRESS"
	StatusReview     = "REVIEW"
	StatusDone       = "DONE"

	PriorityLow    = "LOW"
	PriorityMedium = "MEDIUM"
	PriorityHigh   = "HIGH"
)

func ValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusInProgress, StatusReview, StatusDone:
		return true
	}
	return false
}

func ValidPriority(priority string) bool {
	switch priority {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task is always scoped to one organization; a task id alone never
// locates a record.
type Task struct {
	ID             int64      `json:"id" gorm:"primaryKey"`
	OrganizationID int64      `json:"organization_id" gorm:"not null;index"`
	Title          string     `json:"title" gorm:"not null"`
	Description    *string    `json:"description,omitempty"`
	Status         string     `json:"status" gorm:"not null;default:PENDING"`
	Priority       string     `json:"priority" gorm:"not null;default:MEDIUM"`
	AssigneeID     *int64     `json:"assignee_id,omitempty"`
	CreatorID      int64      `json:"creator_id" gorm:"not null"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	Comments []Comment `json:"comments,omitempty" gorm:"foreignKey:TaskID"`
}

func (Task) TableName() string { return "tasks" }

type Comment struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	TaskID    int64     `json:"task_id" gorm:"not null;index"`
	AuthorID  int64     `json:"author_id" gorm:"not null"`
	Content   string    `json:"content" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}

func (Comment) TableName() string { return "task_comments" }
