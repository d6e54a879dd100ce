package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hanpama/persongraph/internal/directory"
	"github.com/hanpama/persongraph/internal/eventbus"
	"github.com/hanpama/persongraph/internal/metrics"
	"github.com/hanpama/persongraph/internal/recordstore"
	"github.com/hanpama/persongraph/internal/recordstore/memstore"
)

func TestHelp(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"help", "serve"}, &out, io.Discard))
	require.Contains(t, out.String(), "-store.read-policy")

	out.Reset()
	require.NoError(t, run([]string{"help"}, &out, io.Discard))
	require.Contains(t, out.String(), "print-schema")

	require.Error(t, run([]string{"help", "nope"}, io.Discard, io.Discard))
}

func TestRun_UnknownOrMissingCommand(t *testing.T) {
	var errOut bytes.Buffer
	require.ErrorContains(t, run(nil, io.Discard, &errOut), "missing command")
	require.Contains(t, errOut.String(), "USAGE:")
	require.ErrorContains(t, run([]string{"frobnicate"}, io.Discard, io.Discard), `unknown command "frobnicate"`)
}

func TestPrintSchema(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"print-schema"}, &out, io.Discard))
	sdl := out.String()
	for _, want := range []string{"type Person", "enum YesNo", "editPhoneNumber", "birthYear"} {
		require.Contains(t, sdl, want)
	}
	require.NotContains(t, sdl, "__Schema")

	path := filepath.Join(t.TempDir(), "schema.graphql")
	require.NoError(t, run([]string{"print-schema", "-out", path}, io.Discard, io.Discard))
	written, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, sdl, string(written))
}

func TestParseServeFlags(t *testing.T) {
	t.Setenv("PERSONGRAPH_STORE_URL", "http://env-store:3000")

	cfg, err := parseServeFlags(nil, io.Discard)
	require.NoError(t, err)
	require.Equal(t, ":4000", cfg.addr)
	require.Equal(t, "http://env-store:3000", cfg.storeURL)
	require.Equal(t, recordstore.FailOpen, cfg.readPolicy)
	require.Equal(t, 3*time.Second, cfg.storeTimeout)
	require.True(t, cfg.introspection)

	cfg, err = parseServeFlags([]string{
		"-store.url", "http://flag-store:3000",
		"-store.read-policy", "fail-closed",
		"-server.forward-header", "Authorization",
		"-server.forward-header", "X-Tenant",
		"-server.cors-origin", "*",
	}, io.Discard)
	require.NoError(t, err)
	require.Equal(t, "http://flag-store:3000", cfg.storeURL)
	require.Equal(t, recordstore.FailClosed, cfg.readPolicy)
	require.Equal(t, stringListFlag{"Authorization", "X-Tenant"}, cfg.forwardHeaders)
	require.Equal(t, stringListFlag{"*"}, cfg.corsOrigins)

	_, err = parseServeFlags([]string{"-store.read-policy", "sometimes"}, io.Discard)
	require.Error(t, err)

	t.Setenv("PERSONGRAPH_STORE_READ_POLICY", "bogus")
	_, err = parseServeFlags(nil, io.Discard)
	require.Error(t, err)
}

func TestNewHandler_EndToEnd(t *testing.T) {
	eventbus.Use(eventbus.New())
	defer eventbus.Use(nil)

	store := memstore.New(memstore.WithPersons(directory.PersonRecord{ID: "a", Name: "Alice", Age: 40, Street: "Main", City: "Springfield"}))
	backend := httptest.NewServer(store.Handler())
	defer backend.Close()

	cfg, err := parseServeFlags([]string{"-store.url", backend.URL}, io.Discard)
	require.NoError(t, err)
	m := metrics.New()
	defer m.Subscribe()()
	h, err := newHandler(cfg, zap.NewNop(), m)
	require.NoError(t, err)
	srv := httptest.NewServer(h)
	defer srv.Close()

	post := func(body string) string {
		resp, err := http.Post(srv.URL+"/graphql", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		b, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return string(b)
	}

	require.JSONEq(t,
		`{"data":{"addPerson":{"name":"Bob","phone":"555-0100"}}}`,
		post(`{"query":"mutation { addPerson(name: \"Bob\", age: 20, phone: \"555-0100\", street: \"S\", city: \"C\") { name phone } }"}`))
	require.JSONEq(t,
		`{"data":{"personCount":2,"allPersons":[{"name":"Bob"}]}}`,
		post(`{"query":"{ personCount allPersons(phone: YES) { name } }"}`))

	require.JSONEq(t,
		`{"data":{"__type":{"enumValues":[{"name":"YES"},{"name":"NO"}]}}}`,
		post(`{"query":"{ __type(name: \"YesNo\") { enumValues { name } } }"}`))

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Contains(t, string(b), `persongraph_graphql_operations_total{operation_type="mutation",outcome="ok"} 1`)
	require.Contains(t, string(b), `persongraph_recordstore_calls_total{method="POST",status="201"} 1`)
}
