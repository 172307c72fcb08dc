package slack

import (
	"unicode/utf8"

	"github.com/secmon-lab/flowsync/pkg/domain/model"
	"github.com/secmon-lab/flowsync/pkg/domain/types"
)

// maxMessageBytes keeps DM text well under the Slack limit for a single message
const maxMessageBytes = 3000

// FormatNotification renders a notification as DM text with a category marker
func FormatNotification(n *model.Notification) string {
	var prefix string
	switch n.Category {
	case types.NotificationApproval:
		prefix = ":white_check_mark: "
	case types.NotificationReject:
		prefix = ":x: "
	case types.NotificationRequest:
		prefix = ":inbox_tray: "
	default:
		prefix = ":information_source: "
	}
	return truncateToMaxBytes(prefix+n.Message, maxMessageBytes)
}

// truncateToMaxBytes cuts s to at most maxBytes without splitting a UTF-8 sequence
func truncateToMaxBytes(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
