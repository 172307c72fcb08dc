package model

import (
	"time"

	"github.com/secmon-lab/flowsync/pkg/domain/types"
)

// Notification is a message to a single user. When OverrideEmail is set the message must be
// delivered to that address directly instead of the in-app channel.
type Notification struct {
	RecipientID   string                     `json:"recipient_id"`
	Message       string                     `json:"message"`
	Category      types.NotificationCategory `json:"category"`
	OverrideEmail string                     `json:"override_email,omitempty"`
	RequestID     RequestID                  `json:"request_id,omitempty"`
	CreatedAt     time.Time                  `json:"created_at"`
}
