package events

import (
	"time"

	"github.com/google/uuid"
)

const InviteCreatedEventType = "invite.created"

// NewInviteCreatedEvent is published after an invite row is persisted;
// the mailer subscribes to deliver the invite link.
func NewInviteCreatedEvent(email, token string, organizationID int64, organizationName string) Event {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      InviteCreatedEventType,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"email":             email,
			"token":             token,
			"organization_id":   organizationID,
			"organization_name": organizationName,
		},
	}
}
