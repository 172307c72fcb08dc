package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/flowsync/pkg/domain/model"
	"github.com/secmon-lab/flowsync/pkg/domain/sla"
	"github.com/secmon-lab/flowsync/pkg/domain/types"
	"github.com/secmon-lab/flowsync/pkg/usecase"
)

type taskResponse struct {
	ID            int64            `json:"id"`
	Key           string           `json:"key"`
	Title         string           `json:"title"`
	Priority      types.Priority   `json:"priority"`
	Status        types.TaskStatus `json:"status"`
	OwnerID       string           `json:"owner_id"`
	CreatedAt     time.Time        `json:"created_at"`
	Deadline      time.Time        `json:"deadline"`
	Counter       string           `json:"counter"`
	FrozenCounter string           `json:"frozen_counter,omitempty"`
	FreezeReason  string           `json:"freeze_reason,omitempty"`
	CompletedAt   *time.Time       `json:"completed_at,omitempty"`
	Notes         string           `json:"notes,omitempty"`
}

func newTaskResponse(task *model.Task, now time.Time) *taskResponse {
	resp := &taskResponse{
		ID:           task.ID,
		Key:          task.Key,
		Title:        task.Title,
		Priority:     task.Priority,
		Status:       task.EffectiveStatus(now),
		OwnerID:      task.OwnerID,
		CreatedAt:    task.CreatedAt,
		Deadline:     task.Deadline,
		Counter:      sla.FormatCounter(task.Counter(now)),
		FreezeReason: task.FreezeReason,
		CompletedAt:  task.CompletedAt,
		Notes:        task.Notes,
	}
	if task.FrozenCounter != nil {
		resp.FrozenCounter = sla.FormatCounter(*task.FrozenCounter)
	}
	return resp
}

func taskID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, goerr.Wrap(model.ErrInvalidArgument, "invalid task id", goerr.V(model.TaskIDKey, raw))
	}
	return id, nil
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var input usecase.CreateTaskInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	task, err := s.uc.Task.CreateTask(r.Context(), input)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusCreated, newTaskResponse(task, s.now()))
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	id, err := taskID(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	task, err := s.uc.Task.GetTask(r.Context(), id)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, newTaskResponse(task, s.now()))
}

func (s *Server) getTaskCounter(w http.ResponseWriter, r *http.Request) {
	type response struct {
		ID      int64  `json:"id"`
		Counter string `json:"counter"`
		Seconds int64  `json:"seconds"`
	}

	id, err := taskID(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	counter, err := s.uc.Task.GetTaskCounter(r.Context(), id, s.now())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, response{
		ID:      id,
		Counter: sla.FormatCounter(counter),
		Seconds: int64(counter / time.Second),
	})
}

func (s *Server) freezeTask(w http.ResponseWriter, r *http.Request) {
	id, err := taskID(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	var input usecase.FreezeInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	task, err := s.uc.Task.FreezeTask(r.Context(), id, input)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, newTaskResponse(task, s.now()))
}

func (s *Server) resumeTask(w http.ResponseWriter, r *http.Request) {
	id, err := taskID(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	task, err := s.uc.Task.ResumeTask(r.Context(), id)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, newTaskResponse(task, s.now()))
}

func (s *Server) changePriority(w http.ResponseWriter, r *http.Request) {
	id, err := taskID(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	var input usecase.ChangePriorityInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	task, err := s.uc.Task.ChangePriority(r.Context(), id, input)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, newTaskResponse(task, s.now()))
}
