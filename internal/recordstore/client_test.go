package recordstore_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hanpama/persongraph/internal/directory"
	eventbus "github.com/hanpama/persongraph/internal/eventbus"
	events "github.com/hanpama/persongraph/internal/events"
	"github.com/hanpama/persongraph/internal/recordstore"
	"github.com/hanpama/persongraph/internal/recordstore/memstore"
	reqid "github.com/hanpama/persongraph/internal/reqid"
)

var ann = directory.PersonRecord{ID: "a", Name: "Ann", Age: 30, Street: "S", City: "C"}

func newClient(t *testing.T, baseURL string, opts ...recordstore.Option) *recordstore.Client {
	t.Helper()
	c, err := recordstore.New(append([]recordstore.Option{recordstore.WithBaseURL(baseURL)}, opts...)...)
	require.NoError(t, err)
	return c
}

func failingServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", status)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNew_RejectsBadConfig(t *testing.T) {
	_, err := recordstore.New(recordstore.WithBaseURL("ftp://x"))
	require.Error(t, err)
	_, err = recordstore.New(recordstore.WithReadPolicy("maybe"))
	require.Error(t, err)
}

func TestClient_RoundTripAgainstMemstore(t *testing.T) {
	store := memstore.New()
	srv := httptest.NewServer(store.Handler())
	defer srv.Close()
	c := newClient(t, srv.URL)
	ctx := context.Background()

	created, err := c.Create(ctx, ann)
	require.NoError(t, err)
	require.Equal(t, ann, created)

	_, err = c.Create(ctx, directory.PersonRecord{ID: "b", Name: "Ann"})
	require.ErrorIs(t, err, directory.ErrConflict)

	edited := ann
	edited.Phone = "555"
	got, err := c.Update(ctx, ann.ID, edited)
	require.NoError(t, err)
	require.Equal(t, edited, got)

	_, err = c.Update(ctx, "missing id/with slash", edited)
	require.ErrorIs(t, err, directory.ErrNotFound)

	all, err := c.FetchAll(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff([]directory.PersonRecord{edited}, all); diff != "" {
		t.Fatalf("FetchAll mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchAll_FailOpenLogsAndReturnsEmpty(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	c := newClient(t, failingServer(t, http.StatusInternalServerError).URL, recordstore.WithLogger(zap.New(core)))

	got, err := c.FetchAll(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)
	require.Equal(t, 1, logs.FilterMessage("fetching persons failed, serving an empty collection").Len())
}

func TestFetchAll_FailClosedReturnsError(t *testing.T) {
	c := newClient(t, failingServer(t, http.StatusBadGateway).URL, recordstore.WithReadPolicy(recordstore.FailClosed))

	_, err := c.FetchAll(context.Background())
	var se *recordstore.StatusError
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusBadGateway, se.Status)
}

func TestFetchAll_UndecodableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"persons":`))
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL, recordstore.WithReadPolicy(recordstore.FailClosed)).FetchAll(context.Background())
	require.ErrorContains(t, err, "decode persons")
}

func TestFetchAll_SkipsMalformedRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"id": 1, "name": "Ann", "age": 30, "street": "S", "city": "C"},
			{"id": "b", "name": "Bob", "age": "old", "street": "S", "city": "C"},
			{"id": {"nested": true}, "name": "Cid"},
			{"id": "d", "name": "Dee", "age": 41, "phone": "555", "street": "T", "city": "D"}
		]`))
	}))
	defer srv.Close()
	core, logs := observer.New(zap.WarnLevel)
	c := newClient(t, srv.URL, recordstore.WithReadPolicy(recordstore.FailClosed), recordstore.WithLogger(zap.New(core)))

	got, err := c.FetchAll(context.Background())
	require.NoError(t, err)
	want := []directory.PersonRecord{
		{ID: "1", Name: "Ann", Age: 30, Street: "S", City: "C"},
		{ID: "d", Name: "Dee", Age: 41, Phone: "555", Street: "T", City: "D"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("FetchAll mismatch (-want +got):\n%s", diff)
	}
	skipped := logs.FilterMessage("skipping malformed person record").All()
	require.Len(t, skipped, 2)
	require.Equal(t, int64(1), skipped[0].ContextMap()["index"])
	require.Equal(t, int64(2), skipped[1].ContextMap()["index"])
}

func TestWrite_FailureIsNotAcknowledged(t *testing.T) {
	c := newClient(t, failingServer(t, http.StatusServiceUnavailable).URL)

	_, err := c.Create(context.Background(), ann)
	var se *recordstore.StatusError
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusServiceUnavailable, se.Status)
}

func TestWrite_EmptyAckFallsBackToSentRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	got, err := newClient(t, srv.URL).Update(context.Background(), ann.ID, ann)
	require.NoError(t, err)
	require.Equal(t, ann, got)
}

func TestDo_ForwardsHeadersAndRequestID(t *testing.T) {
	var seen http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Clone()
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	ctx, rid := reqid.NewContext(context.Background())
	ctx = recordstore.WithHeaders(ctx, http.Header{"Authorization": {"Bearer t"}})
	_, err := newClient(t, srv.URL).FetchAll(ctx)
	require.NoError(t, err)
	require.Equal(t, "Bearer t", seen.Get("Authorization"))
	require.Equal(t, rid, seen.Get(reqid.Header))
}

func TestDo_PublishesCallEvents(t *testing.T) {
	bus := eventbus.New()
	eventbus.Use(bus)
	defer eventbus.Use(nil)

	var starts []events.StoreCallStart
	var finishes []events.StoreCallFinish
	eventbus.On(bus, func(_ context.Context, e events.StoreCallStart) { starts = append(starts, e) })
	eventbus.On(bus, func(_ context.Context, e events.StoreCallFinish) { finishes = append(finishes, e) })

	srv := failingServer(t, http.StatusTeapot)
	_, _ = newClient(t, srv.URL).FetchAll(context.Background())

	require.Len(t, starts, 1)
	require.Len(t, finishes, 1)
	require.Equal(t, starts[0].CallID, finishes[0].CallID)
	require.Equal(t, http.MethodGet, finishes[0].Method)
	require.Equal(t, srv.URL+"/persons", finishes[0].URL)
	require.Equal(t, http.StatusTeapot, finishes[0].Status)
	require.Error(t, finishes[0].Err)
}
