package slack_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/flowsync/pkg/service/slack"
)

func TestNew(t *testing.T) {
	t.Run("returns error when token is empty", func(t *testing.T) {
		_, err := slack.New("")
		gt.Value(t, err).NotNil()
	})

	t.Run("creates service when token is provided", func(t *testing.T) {
		svc, err := slack.New("test-token")
		gt.NoError(t, err).Required()
		gt.Value(t, svc).NotNil()
	})
}

type fakeSlackAPI struct {
	mu      sync.Mutex
	lookups int
	posted  []string
}

func (f *fakeSlackAPI) handler() http.Handler {
	mux := http.NewServeMux()
	writeJSON := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}

	mux.HandleFunc("/users.lookupByEmail", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.lookups++
		f.mu.Unlock()
		writeJSON(w, map[string]any{
			"ok": true,
			"user": map[string]any{
				"id":        "U123",
				"name":      "max",
				"real_name": "Max",
				"profile":   map[string]any{"email": "max@example.com"},
			},
		})
	})
	mux.HandleFunc("/conversations.open", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"ok": true, "channel": map[string]any{"id": "D999"}})
	})
	mux.HandleFunc("/chat.postMessage", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		f.mu.Lock()
		f.posted = append(f.posted, r.Form.Get("channel")+":"+r.Form.Get("text"))
		f.mu.Unlock()
		writeJSON(w, map[string]any{"ok": true, "channel": "D999", "ts": "1700000000.000100"})
	})
	return mux
}

func TestClientAgainstFakeAPI(t *testing.T) {
	api := &fakeSlackAPI{}
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	svc, err := slack.New("xoxb-test", slack.WithAPIURL(srv.URL+"/"))
	gt.NoError(t, err).Required()
	ctx := context.Background()

	u, err := svc.LookupUserByEmail(ctx, "Max@Example.com")
	gt.NoError(t, err).Required()
	gt.Value(t, u.ID).Equal("U123")

	_, err = svc.LookupUserByEmail(ctx, "max@example.com")
	gt.NoError(t, err).Required()
	gt.Value(t, api.lookups).Equal(1)

	gt.NoError(t, svc.SendDirectMessage(ctx, u.ID, "hello")).Required()
	gt.Array(t, api.posted).Length(1)
	gt.Value(t, api.posted[0]).Equal("D999:hello")
}

func TestIntegration(t *testing.T) {
	token := os.Getenv("TEST_SLACK_BOT_TOKEN")
	if token == "" {
		t.Skip("TEST_SLACK_BOT_TOKEN is not set")
	}
	email := os.Getenv("TEST_SLACK_USER_EMAIL")
	if email == "" {
		t.Skip("TEST_SLACK_USER_EMAIL is not set")
	}

	ctx := context.Background()
	svc, err := slack.New(token)
	gt.NoError(t, err).Required()

	u, err := svc.LookupUserByEmail(ctx, email)
	gt.NoError(t, err).Required()
	gt.String(t, u.ID).NotEqual("")

	gt.NoError(t, svc.SendDirectMessage(ctx, u.ID, "flowsync integration test")).Required()
}
