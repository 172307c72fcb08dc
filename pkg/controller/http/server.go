package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/secmon-lab/flowsync/pkg/service/pubsub"
	"github.com/secmon-lab/flowsync/pkg/usecase"
	"github.com/secmon-lab/flowsync/pkg/utils/logging"
)

type Server struct {
	router   *chi.Mux
	uc       *usecase.UseCases
	authn    Authenticator
	channel  *pubsub.Channel
	presence *pubsub.Presence
	now      func() time.Time
}

type Options func(*Server)

// WithAuthenticator sets how the actor of each API request is established. Without it every
// API request is rejected.
func WithAuthenticator(authn Authenticator) Options {
	return func(s *Server) {
		s.authn = authn
	}
}

// WithEventStream enables GET /api/events, the in-app notification stream. Connected users
// are registered in presence for as long as the stream is open.
func WithEventStream(channel *pubsub.Channel, presence *pubsub.Presence) Options {
	return func(s *Server) {
		s.channel = channel
		s.presence = presence
	}
}

// WithClock replaces time.Now for counters
func WithClock(now func() time.Time) Options {
	return func(s *Server) {
		s.now = now
	}
}

func New(uc *usecase.UseCases, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router: r,
		uc:     uc,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware(s.authn))

		r.Route("/tasks", func(r chi.Router) {
			r.Post("/", s.createTask)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getTask)
				r.Get("/counter", s.getTaskCounter)
				r.Post("/freeze", s.freezeTask)
				r.Post("/resume", s.resumeTask)
				r.Patch("/priority", s.changePriority)
			})
		})

		r.Route("/requests", func(r chi.Router) {
			r.Route("/id/{id}", func(r chi.Router) {
				r.Get("/", s.getRequest)
				r.Post("/approve", s.resolveRequest(approve))
				r.Post("/reject", s.resolveRequest(reject))
			})
			r.Post("/{kind}", s.submitRequest)
			r.Get("/{kind}", s.listRequests)
		})

		if s.channel != nil {
			r.Get("/events", s.streamEvents)
		}
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.Default().Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
