package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"certwatch/internal/app"
	"certwatch/internal/clock"
	"certwatch/internal/config"

	"github.com/joho/godotenv"
)

// main starts the certificate monitor using a file or directory config source.
// Params: CLI flags (--config-file or --config-dir, --daemon, --interval-sec).
// Returns: process exit code by startup/run result.
func main() {
	var (
		configFile  = flag.String("config-file", "", "path to one TOML config file")
		configDir   = flag.String("config-dir", "", "path to directory with TOML config fragments")
		daemon      = flag.Bool("daemon", false, "run continuously instead of a single check cycle")
		intervalSec = flag.Int("interval-sec", 0, "daemon check interval in seconds (overrides config)")
	)
	flag.Parse()

	// Webhook URLs and bot tokens are referenced by env-var name in config;
	// a local .env file fills them in during development.
	_ = godotenv.Load()

	source, err := config.FromCLI(*configFile, *configDir)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	overrides := app.Overrides{}
	if *daemon {
		overrides.Daemon = daemon
	}
	if *intervalSec > 0 {
		overrides.IntervalSec = intervalSec
	}

	service, err := app.NewService(source, clock.RealClock{}, overrides)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "service init failed:", err.Error())
		os.Exit(1)
	}

	if err := service.Run(context.Background()); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "service run failed:", err.Error())
		os.Exit(1)
	}
}
