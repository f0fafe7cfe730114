package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/go-kiosk-pos/internal/assembler"
	"github.com/ariefcatur/go-kiosk-pos/internal/auth"
	"github.com/ariefcatur/go-kiosk-pos/internal/config"
	"github.com/ariefcatur/go-kiosk-pos/internal/errs"
	kafkax "github.com/ariefcatur/go-kiosk-pos/internal/kafka"
	"github.com/ariefcatur/go-kiosk-pos/internal/logging"
	"github.com/ariefcatur/go-kiosk-pos/internal/postgres"
	"github.com/ariefcatur/go-kiosk-pos/internal/redisx"
	"github.com/ariefcatur/go-kiosk-pos/internal/sales"
	"github.com/ariefcatur/go-kiosk-pos/internal/store"
	"github.com/ariefcatur/go-kiosk-pos/internal/tracing"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const usage = `usage: kiosk [-password SECRET] <command> [args]

commands:
  migrate
  category add NAME | list | rename ID NAME | delete ID
  product  add -name N -price P -stock S -category ID | list [-category NAME] | show ID
           stock ID QTY | update ID [-name N] [-price P] | delete ID
  sale     commit [-key K] PRODUCT:QTY... | show ID | list [-date YYYY-MM-DD] | reverse ID
  events   tail sale events from Kafka

rename, delete, stock, update and reverse need -password.
`

// exit codes
const (
	exitOK      = 0
	exitFailure = 1
	exitRefused = 2 // business refusal: insufficient stock, auth denied, conflicts
	exitUsage   = 64
)

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("kiosk", flag.ContinueOnError)
	password := fs.String("password", "", "admin credential for gated commands")
	fs.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	if err := fs.Parse(os.Args[1:]); err != nil || fs.NArg() == 0 {
		fs.Usage()
		return exitUsage
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return exitFailure
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		return exitFailure
	}
	defer func() { _ = log.Sync() }()

	shutdown, err := tracing.Setup(cfg.ServiceName, cfg.TraceExporter, os.Stderr)
	if err != nil {
		log.Error("tracing", zap.Error(err))
		return exitFailure
	}
	defer func() { _ = shutdown(context.Background()) }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if fs.Arg(0) == "events" {
		return tailEvents(ctx, cfg, log)
	}

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("db connect", zap.Error(err))
		return exitFailure
	}
	defer db.Close()
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		log.Error("schema", zap.Error(err))
		return exitFailure
	}

	repo := &store.Repo{DB: db}
	svc := &sales.Service{
		Store:       repo,
		Sales:       repo,
		Logger:      log.Named("sales"),
		ServiceName: cfg.ServiceName,
	}

	// Redis (optional)
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		svc.Ledger = &redisx.Ledger{RDB: rdb}
	}

	// Kafka producers (optional): committed & reversed go to separate topics
	if len(cfg.KafkaBrokers) > 0 {
		pc := kafkax.NewProducer(cfg.KafkaBrokers, sales.TopicSaleCommitted, 64, log)
		pr := kafkax.NewProducer(cfg.KafkaBrokers, sales.TopicSaleReversed, 64, log)
		pc.Start(ctx)
		pr.Start(ctx)
		defer func() {
			pc.Close()
			pr.Close()
			pc.WaitClosed()
			pr.WaitClosed()
		}()
		svc.Committed, svc.Reversed = pc, pr
	}

	c := &cli{
		asm: &assembler.Assembler{
			Store:  repo,
			Engine: svc,
			Logger: log.Named("assembler"),
		},
		gate:     auth.NewGate(cfg.AdminPassword),
		password: *password,
		out:      os.Stdout,
	}

	if fs.Arg(0) == "migrate" {
		fmt.Fprintln(c.out, "schema ready")
		return exitOK
	}
	if err := c.dispatch(ctx, fs.Args()); err != nil {
		return report(err)
	}
	return exitOK
}

func report(err error) int {
	var u usageError
	if errors.As(err, &u) {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprint(os.Stderr, usage)
		return exitUsage
	}
	fmt.Fprintln(os.Stderr, "error:", err)
	switch errs.KindOf(err) {
	case errs.ErrInsufficientStock, errs.ErrAuthDenied, errs.ErrConflict,
		errs.ErrReferentialConflict, errs.ErrNotFound, errs.ErrInvalidArgument:
		return exitRefused
	}
	return exitFailure
}
