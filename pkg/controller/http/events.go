package http

import (
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/secmon-lab/flowsync/pkg/domain/model/auth"
	"github.com/secmon-lab/flowsync/pkg/utils/errutil"
	"github.com/secmon-lab/flowsync/pkg/utils/safe"
)

// streamEvents serves the caller's in-app notifications as server-sent events. The caller is
// online in presence while the stream is open.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := auth.ActorFromContext(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeErrorMessage(ctx, w, http.StatusInternalServerError, "streaming is not supported")
		return
	}

	sub, err := s.channel.Subscribe(ctx, actor.ID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	defer safe.Close(ctx, sub)

	connID := uuid.NewString()
	heartbeat := time.Hour
	if s.presence != nil {
		heartbeat = s.presence.TTL() / 3
		s.markOnline(ctx, actor.ID, connID)
		defer func() {
			// the request context is already done here
			if err := s.presence.MarkOffline(context.WithoutCancel(ctx), actor.ID, connID); err != nil {
				errutil.Handle(ctx, err, "failed to mark user offline")
			}
		}()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case n, ok := <-sub.C():
			if !ok {
				return
			}
			data, err := json.Marshal(n)
			if err != nil {
				errutil.Handle(ctx, err, "failed to marshal notification")
				continue
			}
			safe.Write(ctx, w, []byte("event: notification\ndata: "))
			safe.Write(ctx, w, data)
			safe.Write(ctx, w, []byte("\n\n"))
			flusher.Flush()

		case <-ticker.C:
			if s.presence != nil {
				s.markOnline(ctx, actor.ID, connID)
			}
			safe.Write(ctx, w, []byte(": ping\n\n"))
			flusher.Flush()

		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) markOnline(ctx context.Context, userID, connID string) {
	if err := s.presence.MarkOnline(ctx, userID, connID); err != nil {
		errutil.Handle(ctx, err, "failed to mark user online")
	}
}
