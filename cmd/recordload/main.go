// Command recordload publishes a merchant record file to Redis so dashboard
// replicas started with RECORDS_SOURCE=redis share one collection. With
// -export it converts the file to an .xlsx workbook instead.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mohammed-shakir/merchant-map/internal/cache/keys"
	"github.com/mohammed-shakir/merchant-map/internal/cache/redisstore"
	"github.com/mohammed-shakir/merchant-map/internal/core/config"
	"github.com/mohammed-shakir/merchant-map/internal/logger"
	"github.com/mohammed-shakir/merchant-map/internal/records"
)

func main() {
	os.Exit(run())
}

func run() int {
	in := flag.String("in", "", "source .json or .xlsx file (default RECORDS_PATH)")
	sheet := flag.String("sheet", "", "worksheet to read or write for .xlsx files")
	dataset := flag.String("dataset", "", "dataset name (default RECORDS_DATASET)")
	export := flag.String("export", "", "write the records to this .xlsx path instead of publishing")
	timeout := flag.Duration("timeout", 10*time.Second, "overall timeout")
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		return 1
	}
	cfg := config.FromEnv()
	if *in == "" {
		*in = cfg.Records.Path
	}
	if *dataset == "" {
		*dataset = cfg.Records.Dataset
	}

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		Service:   "merchant-map",
		Component: "recordload",
	}, os.Stderr)
	log := logger.NewSlog(&zl)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	st, err := records.Load(ctx, log, records.FileSource{Path: *in, Sheet: *sheet})
	if err != nil {
		log.Error("read records", "err", err, "path", *in)
		return 1
	}

	if *export != "" {
		if err := records.WriteXLSX(*export, st.All(), *sheet); err != nil {
			log.Error("export xlsx", "err", err, "path", *export)
			return 1
		}
		log.Info("records exported", "path", *export, "count", st.Len())
		return 0
	}

	rc, err := redisstore.New(ctx, cfg.RedisAddr)
	if err != nil {
		log.Error("connect redis", "err", err, "addr", cfg.RedisAddr)
		return 1
	}
	defer func() { _ = rc.Close() }()

	key := keys.Dataset(*dataset)
	if err := records.Publish(ctx, rc, key, st.All()); err != nil {
		log.Error("publish records", "err", err, "key", key)
		return 1
	}
	log.Info("records published",
		"key", key,
		"count", st.Len(),
		"fingerprint", st.Fingerprint())
	return 0
}
