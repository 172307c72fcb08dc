package usecase

import (
	"github.com/secmon-lab/flowsync/pkg/domain/types"
)

// CreateTaskInput is the payload of TaskUseCase.CreateTask
type CreateTaskInput struct {
	Key      string         `json:"key" validate:"required,len=5,numeric"`
	Title    string         `json:"title" validate:"max=200"`
	Priority types.Priority `json:"priority" validate:"required,oneof=URGENT REGULAR IMPORTANT"`
	OwnerID  string         `json:"owner_id" validate:"required,max=128"`
}

// SubmitInput is the payload of RequestUseCase.Submit. Target is the task business key for
// task requests and the account ID for deactivation; it defaults to the requester's own
// account for deactivation.
type SubmitInput struct {
	Target string `json:"target" validate:"max=128"`
	Reason string `json:"reason" validate:"max=1000"`
	Notes  string `json:"notes" validate:"max=2000"`
}

// ResolveInput is the payload of RequestUseCase.Resolve
type ResolveInput struct {
	Decision types.Decision `json:"decision" validate:"required,oneof=APPROVE REJECT"`
	Comment  string         `json:"comment" validate:"max=1000"`
}

// FreezeInput is the payload of TaskUseCase.FreezeTask
type FreezeInput struct {
	Reason string `json:"reason" validate:"max=1000"`
}

// ChangePriorityInput is the payload of TaskUseCase.ChangePriority
type ChangePriorityInput struct {
	Priority types.Priority `json:"priority" validate:"required,oneof=URGENT REGULAR IMPORTANT"`
}
