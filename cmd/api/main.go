package main

import (
	"context"
	"database/sql"
	"expvar"
	"flag"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"

	"github.com/embracexyz/filmorate/internal/data"
	"github.com/embracexyz/filmorate/internal/discovery"
	"github.com/embracexyz/filmorate/internal/feed"
	"github.com/embracexyz/filmorate/internal/jsonlog"
	"github.com/embracexyz/filmorate/internal/vcs"
)

var (
	version   string
	buildTime string
)

type config struct {
	port     int
	env      string
	logLevel string
	db       struct {
		dsn          string
		maxOpenConns int
		maxIdleConns int
		maxIdleTime  string
	}
	limiter struct {
		rps     float64
		burst   int
		enabled bool
	}
	cors struct {
		trustedOrigins []string
	}
	feed struct {
		buffer int64
	}
}

type application struct {
	config config
	logger *jsonlog.Logger
	models data.Models
	films  *discovery.Service
	wg     sync.WaitGroup

	// stopFeed ends the feed recorder once the server has drained.
	stopFeed context.CancelFunc
}

func openDB(cfg config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.db.dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.db.maxOpenConns)
	db.SetMaxIdleConns(cfg.db.maxIdleConns)

	duration, err := time.ParseDuration(cfg.db.maxIdleTime)
	if err != nil {
		return nil, err
	}
	db.SetConnMaxIdleTime(duration)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = db.PingContext(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// 环境变量作为flag的默认值，命令行参数优先
func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func main() {
	var cfg config
	flag.IntVar(&cfg.port, "port", envInt("FILMORATE_PORT", 4000), "API server port")
	flag.StringVar(&cfg.env, "env", envString("FILMORATE_ENV", "development"), "Environment (development|staging|production)")
	flag.StringVar(&cfg.logLevel, "log-level", envString("FILMORATE_LOG_LEVEL", "info"), "Minimum log level (debug|info|warning|error|off)")

	flag.StringVar(&cfg.db.dsn, "db-dsn", envString("FILMORATE_DB_DSN", ""), "PostgreSQL DSN")
	flag.IntVar(&cfg.db.maxOpenConns, "db-max-open-conns", 25, "PostgreSQL max open connections")
	flag.IntVar(&cfg.db.maxIdleConns, "db-max-idle-conns", 25, "PostgreSQL max idle connections")
	flag.StringVar(&cfg.db.maxIdleTime, "db-max-idle-time", "15m", "PostgreSQL max connection idle time")

	flag.Float64Var(&cfg.limiter.rps, "limiter-rps", 2, "Rate limiter maximum requests per second")
	flag.IntVar(&cfg.limiter.burst, "limiter-burst", 4, "Rate limiter maximum burst")
	flag.BoolVar(&cfg.limiter.enabled, "limiter-enabled", true, "Enable rate limiter")

	cfg.cors.trustedOrigins = strings.Fields(envString("FILMORATE_CORS_TRUSTED_ORIGINS", ""))
	flag.Func("cors-trusted-origins", "Trusted CORS origins (space separated)", func(s string) error {
		cfg.cors.trustedOrigins = strings.Fields(s)
		return nil
	})

	flag.Int64Var(&cfg.feed.buffer, "feed-buffer", 64, "Activity feed channel buffer size")

	displayVersion := flag.Bool("version", false, "Display version and exit")

	flag.Parse()

	version = vcs.Version(version)

	if *displayVersion {
		fmt.Printf("Version:\t%s\n", version)
		fmt.Printf("Build time:\t%s\n", buildTime)
		os.Exit(0)
	}

	level, ok := jsonlog.ParseLevel(cfg.logLevel)
	logger := jsonlog.New(os.Stdout, level)
	if !ok {
		logger.PrintWarning("unknown log level, using info", map[string]string{"log_level": cfg.logLevel})
	}

	db, err := openDB(cfg)
	if err != nil {
		logger.PrintFatal(err, nil)
	}
	defer db.Close()
	logger.PrintInfo("database connection pool established", nil)

	expvar.NewString("version").Set(version)
	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))
	expvar.Publish("database", expvar.Func(func() any {
		return db.Stats()
	}))
	expvar.Publish("timestamp", expvar.Func(func() any {
		return time.Now().Unix()
	}))

	app, err := newApplication(cfg, logger, data.NewModels(db))
	if err != nil {
		logger.PrintFatal(err, nil)
	}

	err = app.serve()
	if err != nil {
		logger.PrintFatal(err, nil)
	}
}

// newApplication wires the feed bus and its recorder. The recorder is
// subscribed before this returns, so no like event published afterwards is
// lost.
func newApplication(cfg config, logger *jsonlog.Logger, models data.Models) (*application, error) {
	bus := feed.NewBus(cfg.feed.buffer, feed.NewLogger(logger))

	ctx, cancel := context.WithCancel(context.Background())
	messages, err := bus.Subscribe(ctx, feed.Topic)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe feed recorder: %w", err)
	}

	app := &application{
		config: cfg,
		logger: logger,
		models: models,
		films:  discovery.NewService(models, feed.NewPublisher(bus), logger),
	}
	// 先关bus：订阅通道关闭后Run把剩余消息写完再返回
	app.stopFeed = func() {
		if err := bus.Close(); err != nil {
			logger.PrintError(err, nil)
		}
		cancel()
	}

	recorder := feed.NewRecorder(models, logger)
	app.background(func() {
		recorder.Run(messages)
	})

	return app, nil
}
