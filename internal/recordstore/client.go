// Package recordstore is the HTTP client of the person record store, a
// json-server style collection exposing GET/POST /persons and
// PUT /persons/{id}.
package recordstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/hanpama/persongraph/internal/directory"
	eventbus "github.com/hanpama/persongraph/internal/eventbus"
	events "github.com/hanpama/persongraph/internal/events"
	reqid "github.com/hanpama/persongraph/internal/reqid"
)

const collectionPath = "/persons"

// maxResponseBytes caps how much of a store response is read.
const maxResponseBytes = 8 << 20

// StatusError is returned when the store answers with an unexpected status.
type StatusError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("recordstore: %s %s: status %d", e.Method, e.URL, e.Status)
	}
	return fmt.Sprintf("recordstore: %s %s: status %d: %s", e.Method, e.URL, e.Status, e.Body)
}

// Client talks to the record store. It implements directory.Store and is
// safe for concurrent use.
type Client struct {
	opts   *Options
	base   string
	callID atomic.Uint64
}

var _ directory.Store = (*Client)(nil)

func New(opts ...Option) (*Client, error) {
	o := defaultOptions()
	for _, f := range opts {
		f(o)
	}
	u, err := url.Parse(o.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("recordstore: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("recordstore: base url %q must be http or https", o.BaseURL)
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{}
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if _, err := ParseReadPolicy(string(o.ReadPolicy)); err != nil {
		return nil, err
	}
	return &Client{opts: o, base: strings.TrimRight(o.BaseURL, "/")}, nil
}

// FetchAll returns the whole collection. Failures follow the read policy.
// Rows that do not decode into a record are logged and skipped.
func (c *Client) FetchAll(ctx context.Context) ([]directory.PersonRecord, error) {
	var rows []json.RawMessage
	body, err := c.do(ctx, http.MethodGet, collectionPath, nil)
	if err == nil {
		err = json.Unmarshal(body, &rows)
		if err != nil {
			err = fmt.Errorf("recordstore: decode persons: %w", err)
		}
	}
	if err != nil {
		if c.opts.ReadPolicy == FailClosed {
			return nil, err
		}
		rid, _ := reqid.FromContext(ctx)
		c.opts.Logger.Error("fetching persons failed, serving an empty collection",
			zap.Error(err),
			zap.String("request_id", rid),
			zap.Stringer("read_policy", c.opts.ReadPolicy),
		)
		return []directory.PersonRecord{}, nil
	}
	persons := make([]directory.PersonRecord, 0, len(rows))
	for i, row := range rows {
		var p directory.PersonRecord
		if err := json.Unmarshal(row, &p); err != nil {
			rid, _ := reqid.FromContext(ctx)
			c.opts.Logger.Warn("skipping malformed person record",
				zap.Error(err),
				zap.Int("index", i),
				zap.String("request_id", rid),
			)
			continue
		}
		persons = append(persons, p)
	}
	return persons, nil
}

// Create inserts rec. A 409 answer is reported as directory.ErrConflict.
func (c *Client) Create(ctx context.Context, rec directory.PersonRecord) (directory.PersonRecord, error) {
	return c.write(ctx, http.MethodPost, collectionPath, rec)
}

// Update replaces the record stored under id. A 404 answer is reported as
// directory.ErrNotFound.
func (c *Client) Update(ctx context.Context, id string, rec directory.PersonRecord) (directory.PersonRecord, error) {
	return c.write(ctx, http.MethodPut, collectionPath+"/"+url.PathEscape(id), rec)
}

// write sends rec and returns the acknowledged record, which is the response
// body when it decodes into a record and rec otherwise.
func (c *Client) write(ctx context.Context, method, path string, rec directory.PersonRecord) (directory.PersonRecord, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return directory.PersonRecord{}, fmt.Errorf("recordstore: encode person: %w", err)
	}
	body, err := c.do(ctx, method, path, payload)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			switch se.Status {
			case http.StatusConflict:
				return directory.PersonRecord{}, fmt.Errorf("%w: %s", directory.ErrConflict, se.Body)
			case http.StatusNotFound:
				return directory.PersonRecord{}, fmt.Errorf("%w: %s", directory.ErrNotFound, se.URL)
			}
		}
		return directory.PersonRecord{}, err
	}

	var acked directory.PersonRecord
	if len(bytes.TrimSpace(body)) > 0 && json.Unmarshal(body, &acked) == nil && acked.ID != "" {
		return acked, nil
	}
	return rec, nil
}

// do performs one HTTP exchange. Any non-2xx answer becomes a *StatusError.
func (c *Client) do(ctx context.Context, method, path string, payload []byte) (body []byte, err error) {
	if _, ok := ctx.Deadline(); !ok && c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	target := c.base + path
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("recordstore: build request: %w", err)
	}
	for k, vs := range HeadersFromContext(ctx) {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if rid, ok := reqid.FromContext(ctx); ok {
		req.Header.Set(reqid.Header, rid)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	id := c.callID.Add(1)
	status := 0
	start := time.Now()
	eventbus.Publish(ctx, events.StoreCallStart{CallID: id, Method: method, URL: target})
	defer func() {
		eventbus.Publish(ctx, events.StoreCallFinish{
			CallID:   id,
			Method:   method,
			URL:      target,
			Status:   status,
			Err:      err,
			Duration: time.Since(start),
		})
	}()

	resp, err := c.opts.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("recordstore: %s %s: %w", method, target, err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("recordstore: read %s %s: %w", method, target, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Method: method, URL: target, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}
