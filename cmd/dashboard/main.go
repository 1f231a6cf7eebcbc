package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mohammed-shakir/merchant-map/internal/cache/keys"
	"github.com/mohammed-shakir/merchant-map/internal/cache/redisstore"
	"github.com/mohammed-shakir/merchant-map/internal/core/config"
	"github.com/mohammed-shakir/merchant-map/internal/core/health"
	"github.com/mohammed-shakir/merchant-map/internal/core/model"
	"github.com/mohammed-shakir/merchant-map/internal/core/observability"
	"github.com/mohammed-shakir/merchant-map/internal/core/router"
	"github.com/mohammed-shakir/merchant-map/internal/core/server"
	"github.com/mohammed-shakir/merchant-map/internal/dashboard"
	"github.com/mohammed-shakir/merchant-map/internal/logger"
	"github.com/mohammed-shakir/merchant-map/internal/mapview"
	"github.com/mohammed-shakir/merchant-map/internal/metrics"
	"github.com/mohammed-shakir/merchant-map/internal/records"
	"github.com/mohammed-shakir/merchant-map/internal/session"
	"github.com/mohammed-shakir/merchant-map/internal/web"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	recordsFlag := flag.String("records", "", "path to a .json or .xlsx record file (overrides RECORDS_PATH)")
	addrFlag := flag.String("addr", "", "listen address (overrides ADDR)")
	envFile := flag.String("env", ".env", "dotenv file to load before reading the environment")
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "load %s: %v\n", *envFile, err)
		return 1
	}
	cfg := config.FromEnv()
	if *recordsFlag != "" {
		cfg.Records.Source = config.SourceFile
		cfg.Records.Path = strings.TrimSpace(*recordsFlag)
	}
	if *addrFlag != "" {
		cfg.Addr = *addrFlag
	}

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Service:   "merchant-map",
		Component: "dashboard",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	var p *metrics.Provider
	if cfg.MetricsEnabled {
		p = metrics.Init(metrics.Config{Build: metrics.BuildInfo{
			Version:   Version,
			Revision:  os.Getenv("BUILD_REVISION"),
			Branch:    os.Getenv("BUILD_BRANCH"),
			BuildDate: os.Getenv("BUILD_DATE"),
		}})
		observability.Init(p.Registerer(), true)
	} else {
		observability.Init(nil, false)
	}

	appLog.Info("starting dashboard",
		"addr", cfg.Addr,
		"version", Version,
		"records_source", cfg.Records.Source)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src, checks, closeSrc, err := recordSource(ctx, cfg, appLog)
	if err != nil {
		appLog.Error("record source setup failed", "err", err)
		return 1
	}
	defer closeSrc()
	st, err := records.Load(ctx, appLog, src)
	if err != nil {
		appLog.Error("failed to load records", "err", err)
		return 1
	}

	opts := dashboard.Options{
		PageSize: cfg.DefaultPageSize,
		Map: mapview.Options{
			Center:  model.LatLng{Lat: cfg.Map.CenterLat, Lng: cfg.Map.CenterLng},
			Zoom:    cfg.Map.Zoom,
			TileURL: cfg.Map.TileURL,
		},
	}
	// reject a bad default page size at startup
	if _, err := dashboard.New(st.All(), opts); err != nil {
		appLog.Error("invalid dashboard options", "err", err, "page_size", cfg.DefaultPageSize)
		return 1
	}
	sessions := session.NewStore(cfg.SessionMax, cfg.SessionTTL, func() (*dashboard.Shell, error) {
		return dashboard.New(st.All(), opts)
	})

	page, err := web.New()
	if err != nil {
		appLog.Error("failed to parse page templates", "err", err)
		return 1
	}

	deps := server.Deps{
		Handler:  router.NewHandler(appLog, sessions, st, page, cfg.Map.ClusterRes),
		Sessions: sessions,
		Ready:    st,
		Checks:   checks,
	}
	if p != nil {
		deps.Metrics = p.Handler()
	}

	if err := server.Run(ctx, cfg, appLog, deps); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}

// recordSource picks the configured source. A Redis source stays connected
// for the readiness check until closeFn runs.
func recordSource(ctx context.Context, cfg config.Config, l *slog.Logger) (src records.Source, checks []health.Check, closeFn func(), err error) {
	switch cfg.Records.Source {
	case config.SourceFile:
		return records.FileSource{Path: cfg.Records.Path, Sheet: cfg.Records.Sheet}, nil, func() {}, nil
	case config.SourceRedis:
		cctx, cancel := context.WithTimeout(ctx, cfg.CacheOpTimeout)
		defer cancel()
		rc, err := redisstore.New(cctx, cfg.RedisAddr,
			redisstore.WithReadTimeout(cfg.CacheOpTimeout),
			redisstore.WithWriteTimeout(cfg.CacheOpTimeout))
		if err != nil {
			return nil, nil, nil, err
		}
		closeFn = func() {
			if err := rc.Close(); err != nil {
				l.Warn("redis close failed", "err", err)
			}
		}
		checks = []health.Check{{Name: "redis", Run: rc.Ping}}
		return records.RedisSource{Client: rc, Key: keys.Dataset(cfg.Records.Dataset)}, checks, closeFn, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown RECORDS_SOURCE %q (want %s or %s)", cfg.Records.Source, config.SourceFile, config.SourceRedis)
	}
}
