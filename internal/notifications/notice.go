package notifications

import (
	"github.com/google/uuid"

	"github.com/vendibook/vendibook-backend/pkg/enums"
)

// Notice is one message to one user, fanned out to the selected channels.
type Notice struct {
	UserID  uuid.UUID
	Type    enums.NotificationType
	Title   string
	Message string
	Link    string

	InApp bool
	Email bool
	Push  bool
}

// pushPayload is the JSON body published for push fan-out.
type pushPayload struct {
	UserID  uuid.UUID              `json:"user_id"`
	Type    enums.NotificationType `json:"type"`
	Title   string                 `json:"title"`
	Message string                 `json:"message"`
	Link    string                 `json:"link,omitempty"`
}
