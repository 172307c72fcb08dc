package model

import (
	"time"

	"github.com/secmon-lab/flowsync/pkg/domain/types"
)

// User is an account. LeaderID is the reporting line used to route requests.
type User struct {
	ID        string
	Name      string
	Email     string
	Role      types.Role
	LeaderID  string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Copy returns a copy of the user
func (u *User) Copy() *User {
	c := *u
	return &c
}
