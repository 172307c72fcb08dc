package slack

import (
	"context"
)

// Service is the part of the Slack API used to deliver notifications out of app
type Service interface {
	// LookupUserByEmail returns the Slack user registered with email (cached)
	LookupUserByEmail(ctx context.Context, email string) (*User, error)

	// SendDirectMessage posts text to the direct message channel of a Slack user
	SendDirectMessage(ctx context.Context, slackUserID, text string) error
}

// User represents a Slack user
type User struct {
	ID       string
	Name     string
	RealName string
	Email    string
}
