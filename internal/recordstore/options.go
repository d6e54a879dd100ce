package recordstore

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Options configures the record store client.
//
// Defaults:
// - BaseURL:    http://localhost:3000
// - Timeout:    3s (used only if the call context has no deadline)
// - HTTPClient: a client without its own timeout
// - ReadPolicy: FailOpen
// - Logger:     zap.NewNop()
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	ReadPolicy ReadPolicy
	Logger     *zap.Logger
}

type Option func(*Options)

// DefaultBaseURL is where a local json-server style store listens.
const DefaultBaseURL = "http://localhost:3000"

// DefaultTimeout bounds a store call whose context has no deadline.
const DefaultTimeout = 3 * time.Second

func defaultOptions() *Options {
	return &Options{
		BaseURL:    DefaultBaseURL,
		Timeout:    DefaultTimeout,
		HTTPClient: &http.Client{},
		ReadPolicy: FailOpen,
		Logger:     zap.NewNop(),
	}
}

func WithBaseURL(u string) Option          { return func(o *Options) { o.BaseURL = u } }
func WithTimeout(d time.Duration) Option   { return func(o *Options) { o.Timeout = d } }
func WithHTTPClient(c *http.Client) Option { return func(o *Options) { o.HTTPClient = c } }
func WithReadPolicy(p ReadPolicy) Option   { return func(o *Options) { o.ReadPolicy = p } }
func WithLogger(l *zap.Logger) Option      { return func(o *Options) { o.Logger = l } }
