package task_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/frahmantamala/task-management/internal"
	"github.com/frahmantamala/task-management/internal/organization"
	"github.com/frahmantamala/task-management/internal/task"
	taskpostgres "github.com/frahmantamala/task-management/internal/task/postgres"
)

type allowAllMemberships struct{}

func (allowAllMemberships) FindMembership(ctx context.Context, userID, organizationID int64) (*organization.Membership, error) {
	return &organization.Membership{UserID: userID, OrganizationID: organizationID, RoleID: 1}, nil
}

var _ = Describe("Task Handler Integration", func() {
	var (
		db      *gorm.DB
		handler *task.Handler
		router  *chi.Mux
		orgID   int64
	)

	withSession := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := &internal.Session{UserID: 1, Email: "alice@mail.com", OrganizationID: &orgID}
			next.ServeHTTP(w, r.WithContext(internal.ContextWithSession(r.Context(), session)))
		})
	}

	BeforeEach(func() {
		var err error
		orgID = 10

		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(&task.Task{}, &task.Comment{})
		Expect(err).NotTo(HaveOccurred())

		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		repo := taskpostgres.NewTaskRepository(db)
		service := task.NewService(repo, allowAllMemberships{}, slogger)
		handler = task.NewHandler(service)

		router = chi.NewRouter()
		router.Route("/tasks", func(r chi.Router) {
			r.Use(withSession)
			r.Get("/", handler.ListTasks)
			r.Post("/", handler.CreateTask)
			r.Get("/{id}", handler.GetTask)
			r.Put("/{id}", handler.UpdateTask)
			r.Delete("/{id}", handler.DeleteTask)
			r.Get("/{id}/comments", handler.ListComments)
			r.Post("/{id}/comments", handler.AddComment)
		})
	})

	type taskEnvelope struct {
		OK      bool      `json:"ok"`
		Status  int       `json:"status"`
		Data    task.Task `json:"data"`
		Message string    `json:"message"`
	}

	createTask := func(body string) taskEnvelope {
		req := httptest.NewRequest(http.MethodPost, "/tasks", bytes.NewBufferString(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))

		var envelope taskEnvelope
		Expect(json.NewDecoder(w.Body).Decode(&envelope)).To(Succeed())
		return envelope
	}

	It("should create a task with defaults and return the envelope", func() {
		envelope := createTask(`{"title":"write release notes"}`)

		Expect(envelope.OK).To(BeTrue())
		Expect(envelope.Status).To(Equal(http.StatusOK))
		Expect(envelope.Data.ID).To(BeNumerically(">", 0))
		Expect(envelope.Data.Title).To(Equal("write release notes"))
		Expect(envelope.Data.Status).To(Equal(task.StatusPending))
		Expect(envelope.Data.Priority).To(Equal(task.PriorityMedium))
		Expect(envelope.Data.OrganizationID).To(Equal(orgID))
	})

	It("should persist inline comments with the creating user as author", func() {
		envelope := createTask(`{"title":"ship it","comments":[{"content":"draft ready"}]}`)

		req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/tasks/%d/comments", envelope.Data.ID), nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))

		var listed struct {
			OK   bool           `json:"ok"`
			Data []task.Comment `json:"data"`
		}
		Expect(json.NewDecoder(w.Body).Decode(&listed)).To(Succeed())
		Expect(listed.Data).To(HaveLen(1))
		Expect(listed.Data[0].Content).To(Equal("draft ready"))
		Expect(listed.Data[0].AuthorID).To(Equal(int64(1)))
	})

	It("should reject an invalid status with a 400 envelope", func() {
		req := httptest.NewRequest(http.MethodPost, "/tasks", bytes.NewBufferString(`{"title":"x","status":"SOMEDAY"}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusBadRequest))

		var envelope taskEnvelope
		Expect(json.NewDecoder(w.Body).Decode(&envelope)).To(Succeed())
		Expect(envelope.OK).To(BeFalse())
		Expect(envelope.Message).To(Equal("invalid status"))
	})

	It("should return 404 for a task id outside the organization", func() {
		created := createTask(`{"title":"private"}`)

		orgID = 99

		req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/tasks/%d", created.Data.ID), nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusNotFound))

		var envelope taskEnvelope
		Expect(json.NewDecoder(w.Body).Decode(&envelope)).To(Succeed())
		Expect(envelope.OK).To(BeFalse())
	})

	It("should update status and delete through the full round trip", func() {
		created := createTask(`{"title":"rotate keys","priority":"HIGH"}`)

		req := httptest.NewRequest(http.MethodPut, fmt.Sprintf("/tasks/%d", created.Data.ID),
			bytes.NewBufferString(`{"status":"DONE"}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))

		var updated taskEnvelope
		Expect(json.NewDecoder(w.Body).Decode(&updated)).To(Succeed())
		Expect(updated.Data.Status).To(Equal(task.StatusDone))
		Expect(updated.Data.Priority).To(Equal(task.PriorityHigh))

		req = httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/tasks/%d", created.Data.ID), nil)
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)
		Expect(w.Code).To(Equal(http.StatusOK))

		req = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/tasks/%d", created.Data.ID), nil)
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)
		Expect(w.Code).To(Equal(http.StatusNotFound))
	})

	It("should answer 401 when no session is present", func() {
		bare := chi.NewRouter()
		bare.Get("/tasks", handler.ListTasks)

		req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
		w := httptest.NewRecorder()
		bare.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusUnauthorized))
	})
})
