// Command recordstore serves an in-memory persons collection compatible with
// the json-server layout persongraph reads from.
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

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hanpama/persongraph/internal/config"
	"github.com/hanpama/persongraph/internal/logging"
	"github.com/hanpama/persongraph/internal/recordstore/memstore"
)

const usage = `recordstore FLAGS:
  -addr <addr>           HTTP listen address (default: :3000, env RECORDSTORE_ADDR)
  -seed <db.json>        Load {"persons": [...]} at startup (env RECORDSTORE_SEED)
  -unique-names <bool>   Answer 409 to a POST reusing a name (default: true)
  -log.mode <mode>       dev or prod (default: dev)
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		log.Fatal(err)
	}
}

type options struct {
	addr        string
	seed        string
	uniqueNames bool
	logMode     string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	env, err := config.LoadRecordStore()
	if err != nil {
		return options{}, err
	}
	o := options{addr: env.Addr, seed: env.Seed, uniqueNames: env.UniqueNames, logMode: "dev"}
	fs := flag.NewFlagSet("recordstore", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&o.addr, "addr", o.addr, "HTTP listen address")
	fs.StringVar(&o.seed, "seed", o.seed, "Seed file")
	fs.BoolVar(&o.uniqueNames, "unique-names", o.uniqueNames, "Reject duplicate names")
	fs.StringVar(&o.logMode, "log.mode", o.logMode, "dev or prod")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(stderr, usage)
		return options{}, err
	}
	return o, nil
}

func newStore(o options) (*memstore.Store, error) {
	opts := []memstore.Option{memstore.WithUniqueNames(o.uniqueNames)}
	if o.seed != "" {
		persons, err := memstore.LoadSeedFile(o.seed)
		if err != nil {
			return nil, err
		}
		opts = append(opts, memstore.WithPersons(persons...))
	}
	return memstore.New(opts...), nil
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	logger, err := logging.New(o.logMode)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	store, err := newStore(o)
	if err != nil {
		return err
	}
	srv := &http.Server{Addr: o.addr, Handler: store.Handler(), ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("record store listening",
			zap.String("addr", o.addr),
			zap.Int("persons", len(store.List())),
			zap.Bool("unique_names", o.uniqueNames),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
