package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hanpama/persongraph/internal/config"
	"github.com/hanpama/persongraph/internal/directory"
	"github.com/hanpama/persongraph/internal/directoryrt"
	"github.com/hanpama/persongraph/internal/eventbus"
	"github.com/hanpama/persongraph/internal/executor"
	"github.com/hanpama/persongraph/internal/introspection"
	"github.com/hanpama/persongraph/internal/language"
	"github.com/hanpama/persongraph/internal/logging"
	"github.com/hanpama/persongraph/internal/metrics"
	"github.com/hanpama/persongraph/internal/otel"
	"github.com/hanpama/persongraph/internal/recordstore"
	"github.com/hanpama/persongraph/internal/server"
)

const rootUsage = `persongraph: GraphQL person directory over an HTTP record store

USAGE:
  persongraph <command> [flags]

COMMANDS:
  serve            Run the HTTP GraphQL server
  print-schema     Print the GraphQL schema as SDL
  help             Show help for any command
`

const serveUsage = `serve FLAGS:
  -graphql.introspection <bool>    Answer __schema and __type queries (default: true)
  -server.addr <addr>              HTTP listen address (default: :4000, env PERSONGRAPH_ADDR)
  -server.pretty                   Pretty-print JSON responses
  -server.timeout <duration>       Per-request timeout, e.g. 10s (default: 10s)
  -server.forward-header <name>    Forward HTTP header to record store calls. Repeatable
  -server.cors-origin <origin>     Allowed CORS origin, * for any. Repeatable
  -server.max-body-bytes N         Request body limit in bytes, 0 for none (default: 1048576)
  -store.url <url>                 Record store base URL (default: http://localhost:3000,
                                   env PERSONGRAPH_STORE_URL)
  -store.timeout <duration>        Record store call timeout (default: 3s)
  -store.read-policy <policy>      fail-open or fail-closed (default: fail-open,
                                   env PERSONGRAPH_STORE_READ_POLICY)
  -log.mode <mode>                 dev or prod (default: dev, env PERSONGRAPH_LOG_MODE)
  -otel.endpoint <addr>            OTLP collector endpoint (env PERSONGRAPH_OTEL_ENDPOINT)
  -otel.service <name>             OpenTelemetry service name (default: persongraph)
`

const printSchemaUsage = `print-schema FLAGS:
  -out <file>              Write SDL to file (default: stdout)
`

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		log.Fatal(err)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	global := flag.NewFlagSet("persongraph", flag.ContinueOnError)
	global.SetOutput(new(bytes.Buffer))
	if err := global.Parse(args); err != nil {
		fmt.Fprint(stderr, rootUsage)
		return err
	}
	remaining := global.Args()
	if len(remaining) == 0 {
		fmt.Fprint(stderr, rootUsage)
		return fmt.Errorf("missing command")
	}

	cmd := remaining[0]
	cmdArgs := remaining[1:]
	switch cmd {
	case "serve":
		cfg, err := parseServeFlags(cmdArgs, stderr)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return cmdServe(ctx, cfg)
	case "print-schema":
		return cmdPrintSchema(cmdArgs, stdout, stderr)
	case "help":
		return cmdHelp(cmdArgs, stdout)
	default:
		fmt.Fprint(stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdHelp(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stdout, rootUsage)
		return nil
	}
	switch args[0] {
	case "serve":
		fmt.Fprint(stdout, serveUsage)
	case "print-schema":
		fmt.Fprint(stdout, printSchemaUsage)
	default:
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	return nil
}

type stringListFlag []string

func (s *stringListFlag) String() string { return "" }

func (s *stringListFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}

type serveConfig struct {
	introspection  bool
	addr           string
	pretty         bool
	timeout        time.Duration
	forwardHeaders stringListFlag
	corsOrigins    stringListFlag
	maxBodyBytes   int64
	storeURL       string
	storeTimeout   time.Duration
	readPolicy     recordstore.ReadPolicy
	logMode        string
	otelEndpoint   string
	otelService    string
}

func parseServeFlags(args []string, stderr io.Writer) (serveConfig, error) {
	env, err := config.LoadServe()
	if err != nil {
		return serveConfig{}, err
	}
	cfg := serveConfig{
		introspection: true,
		addr:          env.Addr,
		timeout:       10 * time.Second,
		maxBodyBytes:  1 << 20,
		storeURL:      env.StoreURL,
		storeTimeout:  recordstore.DefaultTimeout,
		readPolicy:    recordstore.ReadPolicy(env.ReadPolicy),
		logMode:       env.LogMode,
		otelEndpoint:  env.OTelEndpoint,
		otelService:   "persongraph",
	}

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.BoolVar(&cfg.introspection, "graphql.introspection", cfg.introspection, "Enable GraphQL introspection")
	fs.StringVar(&cfg.addr, "server.addr", cfg.addr, "HTTP listen address")
	fs.BoolVar(&cfg.pretty, "server.pretty", cfg.pretty, "Pretty-print JSON responses")
	fs.DurationVar(&cfg.timeout, "server.timeout", cfg.timeout, "Per-request timeout")
	fs.Var(&cfg.forwardHeaders, "server.forward-header", "Forward HTTP header to record store calls")
	fs.Var(&cfg.corsOrigins, "server.cors-origin", "Allowed CORS origin")
	fs.Int64Var(&cfg.maxBodyBytes, "server.max-body-bytes", cfg.maxBodyBytes, "Request body limit")
	fs.StringVar(&cfg.storeURL, "store.url", cfg.storeURL, "Record store base URL")
	fs.DurationVar(&cfg.storeTimeout, "store.timeout", cfg.storeTimeout, "Record store call timeout")
	fs.Var(&cfg.readPolicy, "store.read-policy", "fail-open or fail-closed")
	fs.StringVar(&cfg.logMode, "log.mode", cfg.logMode, "dev or prod")
	fs.StringVar(&cfg.otelEndpoint, "otel.endpoint", cfg.otelEndpoint, "OTLP collector endpoint")
	fs.StringVar(&cfg.otelService, "otel.service", cfg.otelService, "OpenTelemetry service name")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(stderr, serveUsage)
		return serveConfig{}, err
	}
	if fs.NArg() > 0 {
		fmt.Fprint(stderr, serveUsage)
		return serveConfig{}, fmt.Errorf("unexpected arguments %q", fs.Args())
	}
	if _, err := recordstore.ParseReadPolicy(string(cfg.readPolicy)); err != nil {
		return serveConfig{}, err
	}
	return cfg, nil
}

// newHandler wires the directory behind /graphql next to /healthz and
// /metrics.
func newHandler(cfg serveConfig, logger *zap.Logger, m *metrics.Metrics) (http.Handler, error) {
	client, err := recordstore.New(
		recordstore.WithBaseURL(cfg.storeURL),
		recordstore.WithTimeout(cfg.storeTimeout),
		recordstore.WithReadPolicy(cfg.readPolicy),
		recordstore.WithLogger(logger.Named("recordstore")),
	)
	if err != nil {
		return nil, err
	}
	svc := directory.NewService(client)
	var rt executor.Runtime = directoryrt.New(svc, directoryrt.WithLogger(logger.Named("runtime")))
	sch, err := directoryrt.Schema()
	if err != nil {
		return nil, fmt.Errorf("build schema: %w", err)
	}
	if cfg.introspection {
		rt, sch, err = introspection.Wrap(rt, sch)
		if err != nil {
			return nil, err
		}
	}

	var sopts []server.Option
	if cfg.pretty {
		sopts = append(sopts, server.WithPretty())
	}
	sopts = append(sopts, server.WithTimeout(cfg.timeout), server.WithMaxBodyBytes(cfg.maxBodyBytes))
	if len(cfg.forwardHeaders) > 0 {
		sopts = append(sopts, server.WithForwardHeaders(cfg.forwardHeaders...))
	}
	if len(cfg.corsOrigins) > 0 {
		sopts = append(sopts, server.WithCORS(cfg.corsOrigins...))
	}
	gql, err := server.New(rt, sch, sopts...)
	if err != nil {
		return nil, fmt.Errorf("server init: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/graphql", gql)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", m.Handler())
	return r, nil
}

func cmdServe(ctx context.Context, cfg serveConfig) error {
	logger, err := logging.New(cfg.logMode)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	eventbus.Use(eventbus.New())
	defer logging.Subscribe(logger)()
	m := metrics.New()
	defer m.Subscribe()()

	shutdownOTel, err := otel.Setup(ctx, cfg.otelEndpoint, cfg.otelService)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdownOTel(context.Background()) }()

	h, err := newHandler(cfg, logger, m)
	if err != nil {
		return err
	}
	srv := &http.Server{Addr: cfg.addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("GraphQL server listening",
			zap.String("addr", cfg.addr),
			zap.String("store_url", cfg.storeURL),
			zap.Stringer("read_policy", cfg.readPolicy),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

func cmdPrintSchema(args []string, stdout, stderr io.Writer) error {
	outFile := ""
	fs := flag.NewFlagSet("print-schema", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&outFile, "out", outFile, "Write SDL to file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(stderr, printSchemaUsage)
		return err
	}

	sch, err := directoryrt.Schema()
	if err != nil {
		return fmt.Errorf("build schema: %w", err)
	}
	var buf bytes.Buffer
	language.FormatSchema(&buf, sch.Definition())
	if outFile == "" {
		_, err := stdout.Write(buf.Bytes())
		return err
	}
	return os.WriteFile(outFile, buf.Bytes(), 0644)
}
