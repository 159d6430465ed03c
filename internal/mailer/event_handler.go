package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/frahmantamala/task-management/internal/core/events"
)

// EventHandler turns invite.created events into outbound invite mail.
type EventHandler struct {
	client      *Client
	frontendURL string
	logger      *slog.Logger
}

func NewEventHandler(client *Client, frontendURL string, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		client:      client,
		frontendURL: frontendURL,
		logger:      logger,
	}
}

func (h *EventHandler) RegisterHandlers(bus *events.EventBus) {
	bus.Subscribe(events.InviteCreatedEventType, h.HandleInviteCreated)
}

func (h *EventHandler) HandleInviteCreated(ctx context.Context, event events.Event) error {
	data, ok := event.Payload().(map[string]interface{})
	if !ok {
		return fmt.Errorf("unexpected payload for event %s", event.EventID())
	}

	email, _ := data["email"].(string)
	token, _ := data["token"].(string)
	orgName, _ := data["organization_name"].(string)

	if email == "" || token == "" {
		return fmt.Errorf("invite event %s missing email or token", event.EventID())
	}

	link := h.inviteLink(token)
	body := fmt.Sprintf(
		`<p>You have been invited to join <strong>%s</strong>.</p>
<p><a href="%s">Accept the invitation</a></p>
<p>The link expires in 7 days.</p>`,
		orgName, link)

	h.client.Enqueue(email, InviteSubject(orgName), body)
	h.logger.Info("invite mail queued", "email", email, "organization", orgName)
	return nil
}

func (h *EventHandler) inviteLink(token string) string {
	return fmt.Sprintf("%s/invite/%s", h.frontendURL, url.PathEscape(token))
}
