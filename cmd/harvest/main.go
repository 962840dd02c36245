// Command harvest is a command-line front end for the Greenhouse Harvest API:
// raw requests, the open jobs list, per-job pipelines and cache refreshes.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sternrassler/harvest-client/pkg/cache"
	"github.com/Sternrassler/harvest-client/pkg/client"
	"github.com/Sternrassler/harvest-client/pkg/config"
	"github.com/Sternrassler/harvest-client/pkg/harvest"
	"github.com/Sternrassler/harvest-client/pkg/logging"
	"github.com/Sternrassler/harvest-client/pkg/refresh"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const usage = `Usage: harvest [-config file] <command> [flags]

Commands:
  request    Send a single request (or follow pagination) and print the response
  jobs       List open jobs with their post visibility
  pipeline   Show a job's pipeline grouped by stage
  refresh    Refresh the cached jobs list and every job's pipeline
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// app holds the wired components shared by every command.
type app struct {
	cfg     *config.Config
	client  *client.Client
	service *harvest.Service
	logger  zerolog.Logger
	stdout  io.Writer
	stderr  io.Writer
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("harvest", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := global.String("config", "", "path to a YAML config file")
	if err := global.Parse(args); err != nil {
		return 2
	}

	rest := global.Args()
	if len(rest) == 0 {
		global.Usage()
		return 2
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(stderr, "load .env: %v\n", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Log.Level),
		Pretty: cfg.Log.Pretty,
		Output: stderr,
	})

	a := &app{cfg: cfg, logger: logger, stdout: stdout, stderr: stderr}

	cmd, cmdArgs := rest[0], rest[1:]
	switch cmd {
	case "request":
		return a.runRequest(ctx, cmdArgs)
	case "jobs":
		return a.runJobs(ctx, cmdArgs)
	case "pipeline":
		return a.runPipeline(ctx, cmdArgs)
	case "refresh":
		return a.runRefresh(ctx, cmdArgs)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}
}

// connect builds the client and service. onBehalfOf overrides the configured
// identity when non-empty.
func (a *app) connect(onBehalfOf string) error {
	cc := a.cfg.ClientConfig()
	if onBehalfOf != "" {
		cc.OnBehalfOf = onBehalfOf
	}
	logger := logging.NewLogger("harvest-client")
	cc.Logger = &logger

	c, err := client.New(cc)
	if err != nil {
		return err
	}
	a.client = c
	a.service = harvest.NewService(c, a.cfg.ServiceConfig())
	return nil
}

func (a *app) close() {
	if a.client != nil {
		a.client.Close()
	}
}

// openStore returns a Redis-backed store, or an in-memory one when Redis is
// unreachable and required is false.
func (a *app) openStore(ctx context.Context, required bool) (cache.Store, func(), error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		if required {
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", a.cfg.Redis.Addr, err)
		}
		a.logger.Warn().Err(err).Str("addr", a.cfg.Redis.Addr).Msg("Redis unavailable, using in-memory cache")
		return cache.NewMemoryStore(), func() {}, nil
	}
	return cache.NewRedisStore(rdb), func() { rdb.Close() }, nil
}

func (a *app) newRefresher(store cache.Store) *refresh.Refresher {
	manager := cache.NewManager(store, cache.WithLogger(logging.NewLogger("cache")))
	return refresh.New(a.service, manager, client.NewRetrier(a.cfg.RetryConfig()))
}

// fail reports err to stderr in user-facing terms and returns the exit code.
func (a *app) fail(err error, resource string) int {
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(a.stderr, "cancelled")
		return 130
	}

	var cfgErr *client.ConfigError
	if errors.As(err, &cfgErr) {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return 1
	}

	d := harvest.DescribeError(err, resource)
	fmt.Fprintf(a.stderr, "%s: %s\n", d.Title, d.Description)

	var herr *client.HarvestError
	if errors.As(err, &herr) && herr.Body != nil {
		if b, jerr := json.Marshal(herr.Body); jerr == nil {
			fmt.Fprintf(a.stderr, "%s\n", b)
		}
	} else {
		fmt.Fprintf(a.stderr, "%v\n", err)
	}
	return 1
}

func (a *app) writeJSON(v any, pretty bool) error {
	enc := json.NewEncoder(a.stdout)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
