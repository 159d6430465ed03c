package postgres_test

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/frahmantamala/task-management/internal"
	"github.com/frahmantamala/task-management/internal/task"
	taskPostgres "github.com/frahmantamala/task-management/internal/task/postgres"
)

func TestTaskPostgres(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Task Postgres Suite")
}

var _ = Describe("Task Repository", func() {
	var (
		db   *gorm.DB
		repo task.Repository
		ctx  context.Context
	)

	const (
		orgID      int64 = 10
		otherOrgID int64 = 20
	)

	newTask := func(organizationID int64, title string) *task.Task {
		t := &task.Task{
			OrganizationID: organizationID,
			Title:          title,
			Status:         task.StatusPending,
			Priority:       task.PriorityMedium,
			CreatorID:      1,
		}
		Expect(repo.Create(ctx, t)).To(Succeed())
		return t
	}

	BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(&task.Task{}, &task.Comment{})
		Expect(err).NotTo(HaveOccurred())

		repo = taskPostgres.NewTaskRepository(db)
		ctx = context.Background()
	})

	Describe("Create", func() {
		It("should persist the task with inline comments", func() {
			t := &task.Task{
				OrganizationID: orgID,
				Title:          "write report",
				Status:         task.StatusPending,
				Priority:       task.PriorityLow,
				CreatorID:      1,
				Comments: []task.Comment{
					{AuthorID: 1, Content: "kickoff notes"},
				},
			}

			Expect(repo.Create(ctx, t)).To(Succeed())
			Expect(t.ID).To(BeNumerically(">", 0))

			fetched, err := repo.GetByID(ctx, t.ID, orgID)
			Expect(err).NotTo(HaveOccurred())
			Expect(fetched.Comments).To(HaveLen(1))
			Expect(fetched.Comments[0].TaskID).To(Equal(t.ID))
		})
	})

	Describe("GetByID", func() {
		It("should not find a task through another organization", func() {
			t := newTask(orgID, "internal doc")

			_, err := repo.GetByID(ctx, t.ID, otherOrgID)
			Expect(err).To(MatchError(internal.ErrTaskNotFound))
		})
	})

	Describe("List", func() {
		It("should filter by organization and paginate", func() {
			for i := 0; i < 3; i++ {
				newTask(orgID, "task")
			}
			newTask(otherOrgID, "elsewhere")

			tasks, err := repo.List(ctx, orgID, 50, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(tasks).To(HaveLen(3))

			page, err := repo.List(ctx, orgID, 2, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(page).To(HaveLen(1))
		})
	})

	Describe("Update", func() {
		It("should update fields and append new comments atomically", func() {
			t := newTask(orgID, "ship release")

			t.Status = task.StatusDone
			newComments := []task.Comment{{TaskID: t.ID, AuthorID: 1, Content: "shipped"}}
			Expect(repo.Update(ctx, t, newComments)).To(Succeed())

			fetched, err := repo.GetByID(ctx, t.ID, orgID)
			Expect(err).NotTo(HaveOccurred())
			Expect(fetched.Status).To(Equal(task.StatusDone))
			Expect(fetched.Comments).To(HaveLen(1))
		})

		It("should refuse an update through another organization", func() {
			t := newTask(orgID, "ship release")

			t.OrganizationID = otherOrgID
			err := repo.Update(ctx, t, nil)
			Expect(err).To(MatchError(internal.ErrTaskNotFound))
		})
	})

	Describe("Delete", func() {
		It("should hard-delete the task and its comments", func() {
			t := newTask(orgID, "cleanup")
			Expect(repo.CreateComment(ctx, &task.Comment{TaskID: t.ID, AuthorID: 1, Content: "note"})).To(Succeed())

			Expect(repo.Delete(ctx, t.ID, orgID)).To(Succeed())

			_, err := repo.GetByID(ctx, t.ID, orgID)
			Expect(err).To(MatchError(internal.ErrTaskNotFound))

			var count int64
			Expect(db.Model(&task.Comment{}).Where("task_id = ?", t.ID).Count(&count).Error).NotTo(HaveOccurred())
			Expect(count).To(BeZero())
		})

		It("should refuse a delete through another organization", func() {
			t := newTask(orgID, "keep me")

			err := repo.Delete(ctx, t.ID, otherOrgID)
			Expect(err).To(MatchError(internal.ErrTaskNotFound))
		})
	})

	Describe("DeleteComment", func() {
		It("should scope the delete through the task's organization", func() {
			t := newTask(orgID, "review PR")
			comment := &task.Comment{TaskID: t.ID, AuthorID: 1, Content: "lgtm"}
			Expect(repo.CreateComment(ctx, comment)).To(Succeed())

			err := repo.DeleteComment(ctx, comment.ID, t.ID, otherOrgID)
			Expect(err).To(MatchError(internal.ErrCommentNotFound))

			Expect(repo.DeleteComment(ctx, comment.ID, t.ID, orgID)).To(Succeed())

			comments, err := repo.ListComments(ctx, t.ID, orgID)
			Expect(err).NotTo(HaveOccurred())
			Expect(comments).To(BeEmpty())
		})
	})
})
