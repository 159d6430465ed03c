package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MailJob is one outbound message waiting for a worker.
type MailJob struct {
	MessageID string
	To        string
	Subject   string
	Body      string
}

type Worker struct {
	ID         int
	WorkerPool chan chan MailJob
	JobChannel chan MailJob
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan MailJob, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan MailJob),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, processFunc func(MailJob)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			w.WorkerPool <- w.JobChannel

			select {
			case job := <-w.JobChannel:
				w.Logger.Debug("worker processing mail", "worker_id", w.ID, "message_id", job.MessageID)
				processFunc(job)
			case <-ctx.Done():
				w.Logger.Debug("mail worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

type Config struct {
	APIURL     string
	APIKey     string
	FromEmail  string
	Timeout    time.Duration
	MaxWorkers int
	QueueSize  int
}

// Client delivers mail through an HTTP mail API with a bounded queue
// and a small worker pool. Delivery is best-effort: the invite row is
// the source of truth, a failed or dropped mail is only logged.
type Client struct {
	apiURL     string
	apiKey     string
	fromEmail  string
	httpClient *http.Client
	logger     *slog.Logger

	jobQueue   chan MailJob
	workerPool chan chan MailJob
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once
}

func NewClient(config Config, logger *slog.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := config.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 3
	}
	queueSize := config.QueueSize
	if queueSize <= 0 {
		queueSize = 100
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		apiURL:     config.APIURL,
		apiKey:     config.APIKey,
		fromEmail:  config.FromEmail,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		jobQueue:   make(chan MailJob, queueSize),
		workerPool: make(chan chan MailJob, maxWorkers),
		maxWorkers: maxWorkers,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start launches the workers and the dispatcher. Safe to call once.
func (c *Client) Start() {
	c.once.Do(func() {
		for i := 1; i <= c.maxWorkers; i++ {
			worker := NewWorker(i, c.workerPool, c.logger)
			worker.Start(c.ctx, &c.wg, c.deliver)
		}

		c.wg.Add(1)
		go c.dispatch()
	})
}

func (c *Client) Stop() {
	c.cancel()
	c.wg.Wait()
}

// Enqueue queues a message; when the queue is full the message is
// dropped and logged.
func (c *Client) Enqueue(to, subject, body string) {
	job := MailJob{
		MessageID: uuid.NewString(),
		To:        to,
		Subject:   subject,
		Body:      body,
	}

	select {
	case c.jobQueue <- job:
		c.logger.Debug("mail queued", "message_id", job.MessageID, "to", to)
	default:
		c.logger.Error("mail queue full, dropping message", "message_id", job.MessageID, "to", to)
	}
}

func (c *Client) dispatch() {
	defer c.wg.Done()

	for {
		select {
		case job := <-c.jobQueue:
			select {
			case jobChannel := <-c.workerPool:
				jobChannel <- job
			case <-c.ctx.Done():
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Client) deliver(job MailJob) {
	ctx, cancel := context.WithTimeout(c.ctx, c.httpClient.Timeout)
	defer cancel()

	payload := map[string]interface{}{
		"message_id": job.MessageID,
		"from":       c.fromEmail,
		"to":         job.To,
		"subject":    job.Subject,
		"html":       job.Body,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		c.logger.Error("failed to marshal mail payload", "error", err, "message_id", job.MessageID)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		c.logger.Error("failed to build mail request", "error", err, "message_id", job.MessageID)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("mail delivery failed", "error", err, "message_id", job.MessageID, "to", job.To)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		c.logger.Error("mail API rejected message",
			"status", resp.StatusCode,
			"message_id", job.MessageID,
			"to", job.To)
		return
	}

	c.logger.Info("mail delivered", "message_id", job.MessageID, "to", job.To)
}

// InviteSubject builds the subject line for an organization invite.
func InviteSubject(organizationName string) string {
	return fmt.Sprintf("You have been invited to join %s", organizationName)
}
