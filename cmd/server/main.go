// Package main implements the entry point for the cohort API server, which
// runs actuarial cohort projections over stored decrement bases.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// options holds the command-line flags.
type options struct {
	configPath  string
	migrate     string
	importRates string
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "path to a config file (default: ./config.yaml if present)")
	flag.StringVar(&opts.migrate, "migrate", "", "run a migration command (up, down, reset, status, version) and exit")
	flag.StringVar(&opts.importRates, "import-rates", "", "import a YAML basis file into the rate store and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "cohort-api: %v\n", err)
		os.Exit(1)
	}
}

// run loads configuration, connects to the database and performs the
// requested command. Without a command it serves HTTP until ctx is done.
func run(ctx context.Context, opts options) error {
	if opts.migrate != "" && opts.importRates != "" {
		return fmt.Errorf("-migrate and -import-rates cannot be combined")
	}

	cfg, err := loadAppConfig(opts.configPath)
	if err != nil {
		return err
	}

	log, err := setupAppLogger(cfg)
	if err != nil {
		return err
	}

	db, err := setupAppDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if opts.migrate != "" {
		return runMigrations(ctx, db, opts.migrate, log)
	}

	app, err := newApplication(cfg, log, db, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	if opts.importRates != "" {
		_, err := app.importRates(ctx, opts.importRates)
		return err
	}

	return app.startHTTPServer(ctx, app.setupRouter())
}
