package cli_test

import (
	"context"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/flowsync/pkg/cli"
)

func TestGracefulShutdown_EndsOpenStreams(t *testing.T) {
	entered := make(chan struct{})
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		close(entered)
		<-r.Context().Done()
	})

	server := cli.NewHTTPServer(context.Background(), "127.0.0.1:0", handler)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	gt.NoError(t, err).Required()
	go func() { _ = server.Serve(ln) }()

	go func() {
		resp, err := http.Get("http://" + ln.Addr().String() + "/api/events")
		if err == nil {
			_ = resp.Body.Close()
		}
	}()

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("stream handler was not reached")
	}

	var drained atomic.Bool
	start := time.Now()
	err = cli.GracefulShutdown(server, 5*time.Second, func() { drained.Store(true) })
	gt.NoError(t, err)
	gt.Bool(t, drained.Load()).True()
	gt.Bool(t, time.Since(start) < 5*time.Second).True()
}

func TestGracefulShutdown_DrainsOnTimeout(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	defer close(release)

	// ignores cancellation, so Shutdown cannot finish in time
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
	})

	server := cli.NewHTTPServer(context.Background(), "127.0.0.1:0", handler)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	gt.NoError(t, err).Required()
	go func() { _ = server.Serve(ln) }()

	go func() {
		resp, err := http.Get("http://" + ln.Addr().String() + "/")
		if err == nil {
			_ = resp.Body.Close()
		}
	}()

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("handler was not reached")
	}

	var drained atomic.Bool
	err = cli.GracefulShutdown(server, 100*time.Millisecond, func() { drained.Store(true) })
	gt.Error(t, err)
	gt.Bool(t, drained.Load()).True()
}

func TestIndexConfig(t *testing.T) {
	cfg := cli.GetIndexConfig()
	gt.NoError(t, cfg.Validate())
	gt.Array(t, cfg.Collections).Length(2)
	gt.Value(t, cfg.Collections[0].Name).Equal("tasks")
	gt.Value(t, cfg.Collections[1].Name).Equal("requests")
}
