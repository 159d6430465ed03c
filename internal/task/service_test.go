package task

import (
	"context"
	"log/slog"
	"sort"
	"testing"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/frahmantamala/task-management/internal"
	"github.com/frahmantamala/task-management/internal/organization"
)

func TestTask(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Task Module Suite")
}

type mockTaskRepository struct {
	tasks    map[int64]*Task
	comments map[int64]*Comment
	nextID   int64
}

func newMockTaskRepository() *mockTaskRepository {
	return &mockTaskRepository{
		tasks:    map[int64]*Task{},
		comments: map[int64]*Comment{},
		nextID:   1,
	}
}

func (m *mockTaskRepository) id() int64 {
	id := m.nextID
	m.nextID++
	return id
}

func (m *mockTaskRepository) Create(ctx context.Context, task *Task) error {
	task.ID = m.id()
	for i := range task.Comments {
		task.Comments[i].ID = m.id()
		task.Comments[i].TaskID = task.ID
		stored := task.Comments[i]
		m.comments[stored.ID] = &stored
	}
	clone := *task
	m.tasks[task.ID] = &clone
	return nil
}

func (m *mockTaskRepository) GetByID(ctx context.Context, id, organizationID int64) (*Task, error) {
	task, ok := m.tasks[id]
	if !ok || task.OrganizationID != organizationID {
		return nil, internal.ErrTaskNotFound
	}
	clone := *task
	clone.Comments = nil
	for _, c := range m.comments {
		if c.TaskID == id {
			clone.Comments = append(clone.Comments, *c)
		}
	}
	sort.Slice(clone.Comments, func(i, j int) bool { return clone.Comments[i].ID > clone.Comments[j].ID })
	return &clone, nil
}

func (m *mockTaskRepository) List(ctx context.Context, organizationID int64, limit, offset int) ([]*Task, error) {
	var out []*Task
	for _, task := range m.tasks {
		if task.OrganizationID == organizationID {
			out = append(out, task)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockTaskRepository) Update(ctx context.Context, task *Task, newComments []Comment) error {
	stored, ok := m.tasks[task.ID]
	if !ok || stored.OrganizationID != task.OrganizationID {
		return internal.ErrTaskNotFound
	}
	clone := *task
	clone.Comments = nil
	m.tasks[task.ID] = &clone
	for i := range newComments {
		newComments[i].ID = m.id()
		stored := newComments[i]
		m.comments[stored.ID] = &stored
	}
	return nil
}

func (m *mockTaskRepository) Delete(ctx context.Context, id, organizationID int64) error {
	task, ok := m.tasks[id]
	if !ok || task.OrganizationID != organizationID {
		return internal.ErrTaskNotFound
	}
	delete(m.tasks, id)
	for cid, c := range m.comments {
		if c.TaskID == id {
			delete(m.comments, cid)
		}
	}
	return nil
}

func (m *mockTaskRepository) CreateComment(ctx context.Context, comment *Comment) error {
	comment.ID = m.id()
	clone := *comment
	m.comments[comment.ID] = &clone
	return nil
}

func (m *mockTaskRepository) ListComments(ctx context.Context, taskID, organizationID int64) ([]Comment, error) {
	if _, err := m.GetByID(ctx, taskID, organizationID); err != nil {
		return nil, err
	}
	var out []Comment
	for _, c := range m.comments {
		if c.TaskID == taskID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *mockTaskRepository) DeleteComment(ctx context.Context, commentID, taskID, organizationID int64) error {
	comment, ok := m.comments[commentID]
	if !ok || comment.TaskID != taskID {
		return internal.ErrCommentNotFound
	}
	if _, err := m.GetByID(ctx, taskID, organizationID); err != nil {
		return internal.ErrCommentNotFound
	}
	delete(m.comments, commentID)
	return nil
}

type mockMembershipFinder struct {
	memberOf map[int64]map[int64]bool
}

func (m *mockMembershipFinder) FindMembership(ctx context.Context, userID, organizationID int64) (*organization.Membership, error) {
	if m.memberOf[userID][organizationID] {
		return &organization.Membership{UserID: userID, OrganizationID: organizationID}, nil
	}
	return nil, internal.ErrNotAMember
}

var _ = ginkgo.Describe("TaskService", func() {
	var (
		service  *Service
		mockRepo *mockTaskRepository
		ctx      context.Context
	)

	const (
		memberID    int64 = 1
		outsiderID  int64 = 2
		orgID       int64 = 10
		otherOrgID  int64 = 20
		otherMember int64 = 3
	)

	ginkgo.BeforeEach(func() {
		mockRepo = newMockTaskRepository()
		finder := &mockMembershipFinder{memberOf: map[int64]map[int64]bool{
			memberID:    {orgID: true},
			otherMember: {otherOrgID: true},
		}}
		service = NewService(mockRepo, finder, slog.Default())
		ctx = context.Background()
	})

	ginkgo.Describe("CreateTask", func() {
		ginkgo.It("should default status and priority", func() {
			task, err := service.CreateTask(ctx, memberID, orgID, CreateTaskDTO{Title: "write report"})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(task.Status).To(gomega.Equal(StatusPending))
			gomega.Expect(task.Priority).To(gomega.Equal(PriorityMedium))
			gomega.Expect(task.CreatorID).To(gomega.Equal(memberID))
		})

		ginkgo.It("should attach inline comments with the caller as author", func() {
			task, err := service.CreateTask(ctx, memberID, orgID, CreateTaskDTO{
				Title:    "write report",
				Comments: []CommentDTO{{Content: "first draft due friday"}},
			})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			comments, err := service.ListComments(ctx, memberID, orgID, task.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(comments).To(gomega.HaveLen(1))
			gomega.Expect(comments[0].AuthorID).To(gomega.Equal(memberID))
		})

		ginkgo.It("should reject an invalid status", func() {
			_, err := service.CreateTask(ctx, memberID, orgID, CreateTaskDTO{
				Title:  "write report",
				Status: "SOMEDAY",
			})

			gomega.Expect(err).To(gomega.BeAssignableToTypeOf(ValidationError{}))
		})

		ginkgo.It("should refuse a non-member", func() {
			_, err := service.CreateTask(ctx, outsiderID, orgID, CreateTaskDTO{Title: "write report"})
			gomega.Expect(err).To(gomega.MatchError(internal.ErrNotAMember))
		})
	})

	ginkgo.Describe("task lifecycle", func() {
		ginkgo.It("should create, update to done and delete", func() {
			task, err := service.CreateTask(ctx, memberID, orgID, CreateTaskDTO{
				Title:    "ship release",
				Priority: PriorityHigh,
			})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			fetched, err := service.GetTask(ctx, memberID, orgID, task.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(fetched.Priority).To(gomega.Equal(PriorityHigh))

			done := StatusDone
			updated, err := service.UpdateTask(ctx, memberID, orgID, task.ID, UpdateTaskDTO{Status: &done})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(updated.Status).To(gomega.Equal(StatusDone))
			gomega.Expect(updated.Title).To(gomega.Equal("ship release"))

			gomega.Expect(service.DeleteTask(ctx, memberID, orgID, task.ID)).To(gomega.Succeed())

			_, err = service.GetTask(ctx, memberID, orgID, task.ID)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrTaskNotFound))
		})

		ginkgo.It("should never locate a task through another organization", func() {
			task, err := service.CreateTask(ctx, memberID, orgID, CreateTaskDTO{Title: "internal doc"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = service.GetTask(ctx, otherMember, otherOrgID, task.ID)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrTaskNotFound))

			err = service.DeleteTask(ctx, otherMember, otherOrgID, task.ID)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrTaskNotFound))
		})
	})

	ginkgo.Describe("ListTasks", func() {
		ginkgo.BeforeEach(func() {
			for i := 0; i < 3; i++ {
				_, err := service.CreateTask(ctx, memberID, orgID, CreateTaskDTO{Title: "task"})
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
			}
			_, err := service.CreateTask(ctx, otherMember, otherOrgID, CreateTaskDTO{Title: "elsewhere"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
		})

		ginkgo.It("should only return the organization's tasks", func() {
			tasks, err := service.ListTasks(ctx, memberID, orgID, 0, 0)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(tasks).To(gomega.HaveLen(3))
		})

		ginkgo.It("should apply limit and offset", func() {
			tasks, err := service.ListTasks(ctx, memberID, orgID, 2, 2)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(tasks).To(gomega.HaveLen(1))
		})
	})

	ginkgo.Describe("comments", func() {
		var taskID int64

		ginkgo.BeforeEach(func() {
			task, err := service.CreateTask(ctx, memberID, orgID, CreateTaskDTO{Title: "review PR"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			taskID = task.ID
		})

		ginkgo.It("should add and list comments newest first", func() {
			_, err := service.AddComment(ctx, memberID, orgID, taskID, CreateCommentDTO{Content: "first"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			_, err = service.AddComment(ctx, memberID, orgID, taskID, CreateCommentDTO{Content: "second"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			comments, err := service.ListComments(ctx, memberID, orgID, taskID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(comments).To(gomega.HaveLen(2))
			gomega.Expect(comments[0].Content).To(gomega.Equal("second"))
		})

		ginkgo.It("should refuse commenting a task in another organization", func() {
			_, err := service.AddComment(ctx, otherMember, otherOrgID, taskID, CreateCommentDTO{Content: "sneaky"})
			gomega.Expect(err).To(gomega.MatchError(internal.ErrTaskNotFound))
		})

		ginkgo.It("should delete a comment only through its own organization", func() {
			comment, err := service.AddComment(ctx, memberID, orgID, taskID, CreateCommentDTO{Content: "to remove"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			err = service.DeleteComment(ctx, otherMember, otherOrgID, taskID, comment.ID)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrCommentNotFound))

			gomega.Expect(service.DeleteComment(ctx, memberID, orgID, taskID, comment.ID)).To(gomega.Succeed())

			comments, err := service.ListComments(ctx, memberID, orgID, taskID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(comments).To(gomega.BeEmpty())
		})
	})
})
