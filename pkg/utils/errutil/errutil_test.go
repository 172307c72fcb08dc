package errutil_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/flowsync/pkg/utils/errutil"
)

func newSentryContext(t *testing.T) (context.Context, *sentry.MockTransport) {
	t.Helper()
	transport := &sentry.MockTransport{}
	client, err := sentry.NewClient(sentry.ClientOptions{Transport: transport})
	gt.NoError(t, err).Required()

	hub := sentry.NewHub(client, sentry.NewScope())
	return sentry.SetHubOnContext(context.Background(), hub), transport
}

func TestHandle_ReportsGoerrValues(t *testing.T) {
	ctx, transport := newSentryContext(t)

	err := goerr.New("sweep failed", goerr.V("task_key", "12345"))
	errutil.Handle(ctx, err, "failed to mark task delayed")

	events := transport.Events()
	gt.Array(t, events).Length(1).Required()
	gt.Value(t, events[0].Tags["message"]).Equal("failed to mark task delayed")
	gt.Value(t, events[0].Contexts["goerr"]["task_key"]).Equal(any("12345"))
}

func TestHandle_PlainError(t *testing.T) {
	ctx, transport := newSentryContext(t)

	errutil.Handle(ctx, errors.New("connection reset"), "notify")

	events := transport.Events()
	gt.Array(t, events).Length(1).Required()
	_, ok := events[0].Contexts["goerr"]
	gt.Bool(t, ok).False()
}

func TestHandle_Nil(t *testing.T) {
	ctx, transport := newSentryContext(t)
	errutil.Handle(ctx, nil, "nothing")
	gt.Array(t, transport.Events()).Length(0)
}

func TestHandleHTTP(t *testing.T) {
	ctx, transport := newSentryContext(t)

	w := httptest.NewRecorder()
	errutil.HandleHTTP(ctx, w, errors.New("bad input"), http.StatusBadRequest)
	gt.Value(t, w.Code).Equal(http.StatusBadRequest)
	gt.Array(t, transport.Events()).Length(0)

	w = httptest.NewRecorder()
	errutil.HandleHTTP(ctx, w, errors.New("db down"), http.StatusInternalServerError)
	gt.Value(t, w.Code).Equal(http.StatusInternalServerError)
	gt.Array(t, transport.Events()).Length(1)
}
