// Command sgex runs a batch of corpus-query API calls from a calls file:
// parameters are propagated down the batch, cached calls are skipped, the
// rest are dispatched with the server's required wait and the responses are
// stored in the local cache (and optionally a SQLite database).
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"github.com/engisalor/sketch-grammar-explorer/pkg/cache"
	"github.com/engisalor/sketch-grammar-explorer/pkg/call"
	"github.com/engisalor/sketch-grammar-explorer/pkg/config"
	"github.com/engisalor/sketch-grammar-explorer/pkg/job"
	"github.com/engisalor/sketch-grammar-explorer/pkg/logging"
	"github.com/engisalor/sketch-grammar-explorer/pkg/sink"
)

func main() {
	var (
		infile     = flag.String("infile", getEnv("SGEX_INFILE", ""), "calls file (.yml, .yaml, .json or .jsonl)")
		callType   = flag.String("call-type", "", "call type for a one-off call without a calls file")
		params     = flag.String("params", getEnv("SGEX_PARAMS", ""), "inline JSON/YAML parameters for a one-off call")
		serverName = flag.String("server", getEnv("SGEX_SERVER", "noske"), "configured server name")
		configSrc  = flag.String("config", getEnv("SGEX_CONFIG", ""), "server registry: file path, env var name or inline JSON/YAML (default: built-in registry)")
		cacheDir   = flag.String("cache-dir", getEnv("SGEX_CACHE_DIR", "data"), "cache directory")
		dbPath     = flag.String("db", getEnv("SGEX_DB", ""), "optional SQLite database for call records")
		sourceID   = flag.String("source-id", "", "label grouping this run's database records")
		username   = flag.String("username", getEnv("SGEX_USERNAME", ""), "account username")
		apiKey     = flag.String("api-key", getEnv("SGEX_API_KEY", ""), "account API key")
		noCache    = flag.Bool("no-cache", false, "dispatch every call even when cached")
		clearCache = flag.Bool("clear-cache", false, "empty the cache before running")
		halt       = flag.Bool("halt", false, "abort the batch on the first failure")
		concurrent = flag.Bool("concurrent", false, "dispatch through a worker pool (servers permitting)")
		dryRun     = flag.Bool("dry-run", false, "plan the batch without sending anything")
		timeout    = flag.Duration("timeout", 30*time.Second, "per-call request timeout")
		logLevel   = flag.String("log-level", getEnv("SGEX_LOG_LEVEL", "info"), "log level: debug, info, warn, error")
	)
	flag.Parse()

	logging.Setup(logging.Config{Level: logging.LogLevel(*logLevel)})
	logger := logging.NewLogger("sgex")

	if *infile == "" && (*callType == "" || *params == "") {
		fmt.Fprintln(os.Stderr, "sgex: -infile or -call-type with -params is required")
		flag.Usage()
		os.Exit(2)
	}

	registry := config.Default()
	if *configSrc != "" {
		var err error
		registry, err = config.Load(*configSrc)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to load server registry")
		}
	}
	server, err := registry.Get(*serverName)
	if err != nil {
		logger.Fatal().Err(err).Msg("Unknown server")
	}

	store, err := cache.NewFileStore(*cacheDir, logging.NewLogger("cache"))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open cache")
	}

	cfg := job.DefaultConfig(server, store)
	cfg.ServerName = *serverName
	cfg.SourceID = *sourceID
	cfg.SkipCache = !*noCache
	cfg.ClearCache = *clearCache
	cfg.Halt = *halt
	cfg.Concurrent = *concurrent
	cfg.DryRun = *dryRun
	cfg.RequestTimeout = *timeout
	cfg.Logger = logging.NewLogger("job")
	if *username != "" || *apiKey != "" {
		cfg.Creds = config.StaticCredentials{Username: *username, APIKey: *apiKey}
	}

	if *dbPath != "" {
		db, err := sql.Open("sqlite", *dbPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to open database")
		}
		defer db.Close()
		records, err := sink.NewSQLSink(db, logging.NewLogger("sink"))
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to create record sink")
		}
		if err := records.Init(context.Background()); err != nil {
			logger.Fatal().Err(err).Msg("Failed to initialize database")
		}
		cfg.Sink = records
	}

	var batch []*call.Spec
	if *infile != "" {
		batch, err = job.ReadCalls(*infile)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to read calls file")
		}
	} else {
		spec, err := oneOffCall(*callType, *params)
		if err != nil {
			logger.Fatal().Err(err).Msg("Invalid one-off call")
		}
		batch = []*call.Spec{spec}
	}

	runner, err := job.New(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid job configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := runner.Run(ctx, batch)
	if err != nil {
		logger.Error().Err(err).Msg("Batch failed")
	}
	if report != nil {
		for _, res := range report.Errors() {
			logger.Error().
				Int("index", res.Index).
				Str("call", res.Spec.String()).
				Str("status", string(res.Status)).
				Err(res.Err).
				Msg("Call failed")
		}
		if len(report.Errors()) > 0 || err != nil {
			os.Exit(1)
		}
	} else {
		os.Exit(1)
	}
}

// oneOffCall builds a single-call batch from the -call-type and -params
// flags. Parameters parse as JSON first, YAML second.
func oneOffCall(typeName, rawParams string) (*call.Spec, error) {
	typ, err := call.ParseType(typeName)
	if err != nil {
		return nil, err
	}
	var p map[string]any
	if err := json.Unmarshal([]byte(rawParams), &p); err != nil {
		if err := yaml.Unmarshal([]byte(rawParams), &p); err != nil {
			return nil, fmt.Errorf("parse params: %w", err)
		}
	}
	return call.New(typ, p)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
